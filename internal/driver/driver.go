// Package driver ticks long-running managers on a fixed interval.
package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixil98/go-errors"
)

const DefaultTickLength = 30 * time.Second

// Manager does periodic housekeeping, such as snapshotting a running game.
type Manager interface {
	Tick(context.Context) error
}

type Driver struct {
	tickLength time.Duration
	managers   []Manager
	logger     *slog.Logger
}

func NewDriver(managers []Manager, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		managers:   managers,
		logger:     slog.Default().With("worker", "driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start ticks every manager until ctx ends. A failed tick is logged and the
// next one still runs.
func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				d.logger.WarnContext(ctx, "tick failed", "error", err)
			}
		}
	}
}

// Tick ticks every manager once, even when an earlier one fails.
func (d *Driver) Tick(ctx context.Context) error {
	el := errors.NewErrorList()
	for _, m := range d.managers {
		el.Add(m.Tick(ctx))
	}
	return el.Err()
}
