package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"

	"github.com/iammegalith/telnet"
)

type TelnetListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewTelnetListener(port uint16, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		port: port,
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	h := &telnetHandler{
		live:   newSessions(l.cm),
		logger: slog.Default().With("listener", "telnet"),
	}
	svr := telnet.NewServer(fmt.Sprintf(":%d", l.port), h)

	stop := context.AfterFunc(ctx, func() {
		svr.Stop()
		h.live.drain()
	})
	defer stop()

	slog.InfoContext(ctx, "listening for telnet", "port", l.port)

	if err := svr.ListenAndServe(); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another storyteller running?)", l.port)
		}
		return fmt.Errorf("serving telnet on port %d: %w", l.port, err)
	}
	return nil
}

type telnetHandler struct {
	live   *sessions
	logger *slog.Logger
}

func (h *telnetHandler) HandleTelnet(conn *telnet.Connection) {
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.Error("closing telnet connection", "error", err)
		}
	}()
	h.live.serve(conn, nil)
}
