package driver

import "time"

type DriverOpt func(*Driver)

// WithInterval sets the time between ticks.
func WithInterval(d time.Duration) DriverOpt {
	return func(drv *Driver) {
		drv.interval = d
	}
}
