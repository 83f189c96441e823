package listener

import (
	"context"
	"io"
	"log/slog"
)

// Acceptor serves one connected terminal.
type Acceptor interface {
	AcceptConnection(ctx context.Context, conn io.ReadWriter) error
}

type ConnectionManager struct {
	acceptor Acceptor
}

func NewConnectionManager(a Acceptor) *ConnectionManager {
	return &ConnectionManager{
		acceptor: a,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	if err := m.acceptor.AcceptConnection(ctx, conn); err != nil {
		slog.WarnContext(ctx, "table session", "error", err)
	}
}
