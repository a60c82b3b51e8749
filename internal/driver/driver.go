// Package driver runs periodic housekeeping such as expiring stale challenge
// offers.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-errors"
)

const DefaultInterval = time.Second

// Manager is anything with work to do on every tick.
type Manager interface {
	Tick(context.Context) error
}

type Driver struct {
	interval time.Duration
	managers []Manager
}

func NewDriver(managers []Manager, opts ...DriverOpt) *Driver {
	d := &Driver{
		interval: DefaultInterval,
		managers: managers,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start ticks until ctx ends. A failing tick is logged and does not stop
// later ones.
func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	slog.DebugContext(ctx, "driver started", "interval", d.interval, "managers", len(d.managers))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				slog.WarnContext(ctx, "driver tick", "error", err)
			}
		}
	}
}

// Tick runs every manager once and returns their combined errors.
func (d *Driver) Tick(ctx context.Context) error {
	el := errors.NewErrorList()
	for i, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			el.Add(fmt.Errorf("manager %d: %w", i, err))
		}
	}
	return el.Err()
}
