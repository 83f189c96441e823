package command

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pixil98/go-clocktower/internal/driver"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/listener"
	"github.com/pixil98/go-clocktower/internal/messaging"
	"github.com/pixil98/go-clocktower/internal/narration"
	"github.com/pixil98/go-clocktower/internal/session"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.LogLevel != "" {
		var lvl slog.Level
		_ = lvl.UnmarshalText([]byte(cfg.LogLevel))
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	}

	catalog, err := cfg.Storage.BuildCatalog()
	if err != nil {
		return nil, err
	}
	setups, err := cfg.Storage.BuildSetups()
	if err != nil {
		return nil, err
	}
	preset, err := cfg.Game.preset()
	if err != nil {
		return nil, fmt.Errorf("loading setup: %w", err)
	}
	sessCfg, err := cfg.Game.sessionConfig()
	if err != nil {
		return nil, err
	}

	workers := service.WorkerList{}
	sinks := events.Multi{events.Log{Logger: slog.Default()}}
	var opts []session.ManagerOpt
	if preset != nil {
		opts = append(opts, session.WithPreset(preset))
	}
	if setups != nil {
		opts = append(opts, session.WithSetups(setups))
	}

	j, err := cfg.Storage.BuildJournal()
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if j != nil {
		sinks = append(sinks, j)
		opts = append(opts, session.WithJournal(j))
	}

	if cfg.Nats.Enabled {
		ns, err := cfg.Nats.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		workers["nats"] = ns
		sinks = append(sinks, messaging.NewEventPublisher(ns, ""))
		opts = append(opts, session.WithRequester(ns))

		if cfg.Nats.ServeNarration {
			templates, err := narration.NewTemplateNarrator(nil)
			if err != nil {
				return nil, err
			}
			workers["narration"] = &narrationResponder{server: ns, narrator: templates}
		}
	}
	opts = append(opts, session.WithEventSink(sinks))

	sessions := session.NewManager(catalog, sessCfg, opts...)

	// Create Listeners
	cm := listener.NewConnectionManager(sessions)
	for i, l := range cfg.Listeners {
		w, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		workers[fmt.Sprintf("%s-%d", l.Protocol, i)] = w
	}

	// Validate has already checked the interval.
	tick, _ := time.ParseDuration(cfg.TickInterval)
	workers["driver"] = driver.NewDriver([]driver.Manager{sessions}, driver.WithTickLength(tick))
	workers["sessions"] = sessions

	return workers, nil
}
