// Package metrics keeps process-wide counters exposed on the /metrics route.
package metrics

import (
	"sync"
	"sync/atomic"
)

const (
	ConnectionsOpened = "connections_opened"
	ConnectionsActive = "connections_active"
	AuthFailures      = "auth_failures"
	UpdatesApplied    = "updates_applied"
	UpdatesDropped    = "updates_dropped"
	ProtocolErrors    = "protocol_errors"
	ChallengesSent    = "challenges_sent"
	BattlesStarted    = "battles_started"
	BattlesActive     = "battles_active"
	BattlesForfeited  = "battles_forfeited"
)

// Registry is a set of named counters. A nil *Registry discards everything.
type Registry struct {
	counters sync.Map // string -> *atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) counter(name string) *atomic.Int64 {
	if c, ok := r.counters.Load(name); ok {
		return c.(*atomic.Int64)
	}
	c, _ := r.counters.LoadOrStore(name, new(atomic.Int64))
	return c.(*atomic.Int64)
}

func (r *Registry) Add(name string, delta int64) {
	if r == nil {
		return
	}
	r.counter(name).Add(delta)
}

func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

func (r *Registry) Dec(name string) {
	r.Add(name, -1)
}

func (r *Registry) Get(name string) int64 {
	if r == nil {
		return 0
	}
	return r.counter(name).Load()
}

// Snapshot returns the current value of every counter.
func (r *Registry) Snapshot() map[string]int64 {
	out := map[string]int64{}
	if r == nil {
		return out
	}
	r.counters.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}
