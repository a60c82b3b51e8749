package driver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

type countingManager struct {
	ticks atomic.Int32
	err   error
}

func (m *countingManager) Tick(context.Context) error {
	m.ticks.Add(1)
	return m.err
}

func TestDriver_Tick(t *testing.T) {
	tests := map[string]struct {
		errs   []error
		expErr string
	}{
		"all managers succeed": {
			errs: []error{nil, nil},
		},
		"failure does not skip later managers": {
			errs:   []error{errors.New("boom"), nil},
			expErr: "manager 0: boom",
		},
		"every failure reported": {
			errs:   []error{errors.New("boom"), errors.New("bang")},
			expErr: "manager 1: bang",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var managers []Manager
			var counters []*countingManager
			for _, err := range tt.errs {
				m := &countingManager{err: err}
				counters = append(counters, m)
				managers = append(managers, m)
			}

			err := NewDriver(managers).Tick(context.Background())
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else {
				testutil.AssertErrorContains(t, err, tt.expErr)
			}
			for _, m := range counters {
				testutil.AssertEqual(t, "ticks", m.ticks.Load(), int32(1))
			}
		})
	}
}

func TestDriver_Start(t *testing.T) {
	ok := &countingManager{}
	failing := &countingManager{err: errors.New("boom")}
	d := NewDriver([]Manager{failing, ok}, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for ok.ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("driver ticked %d times", ok.ticks.Load())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
