package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pixil98/go-clocktower/internal/messaging"
	"github.com/pixil98/go-clocktower/internal/narration"
	"github.com/pixil98/go-errors"
)

type NatsConfig struct {
	Enabled bool   `json:"enabled" env:"CLOCKTOWER_NATS_ENABLED"`
	Host    string `json:"host" env:"CLOCKTOWER_NATS_HOST"`
	// Port -1 picks a free port.
	Port         int    `json:"port" env:"CLOCKTOWER_NATS_PORT"`
	StartTimeout string `json:"start_timeout"`
	ClientName   string `json:"client_name,omitempty"`
	// ServeNarration answers narration requests with the built-in
	// templates when no external generator is listening.
	ServeNarration bool `json:"serve_narration"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}
	if n.Port < -1 {
		el.Add(fmt.Errorf("port must be -1 or greater"))
	}
	if n.ServeNarration && !n.Enabled {
		el.Add(fmt.Errorf("serve_narration needs nats to be enabled"))
	}

	return el.Err()
}

func (c *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if c.StartTimeout != "" {
		d, err := time.ParseDuration(c.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, messaging.WithPort(c.Port))
	}
	if c.ClientName != "" {
		opts = append(opts, messaging.WithClientName(c.ClientName))
	}

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// narrationResponder answers narration requests once the server is up.
type narrationResponder struct {
	server   *messaging.NatsServer
	narrator narration.Narrator
}

func (r *narrationResponder) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-r.server.Ready():
	}

	unsub, err := r.server.Respond(ctx, narration.SubjectPrefix+".*", narration.Responder{Narrator: r.narrator}.Handle)
	if err != nil {
		return fmt.Errorf("serving narration: %w", err)
	}
	defer unsub()

	<-ctx.Done()
	return nil
}
