package driver

import "time"

type DriverOpt func(*Driver)

// WithTickLength sets how often managers are ticked, such as snapshotting
// a running game.
func WithTickLength(tickLength time.Duration) DriverOpt {
	return func(d *Driver) {
		d.tickLength = tickLength
	}
}
