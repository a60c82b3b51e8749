package game

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const DefaultUpdateInterval = 100 * time.Millisecond

// presence is the live state of one online identity.
type presence struct {
	connID    string
	transform Transform
	limiter   *rate.Limiter
}

// WorldState is the single source of truth for who is online and where they
// are. All access must go through its methods to ensure thread-safety.
type WorldState struct {
	mu      sync.RWMutex
	players map[string]*presence

	updateInterval time.Duration
}

type WorldStateOpt func(*WorldState)

// WithUpdateInterval sets the minimum spacing between accepted transform
// updates of one identity.
func WithUpdateInterval(d time.Duration) WorldStateOpt {
	return func(w *WorldState) {
		w.updateInterval = d
	}
}

func NewWorldState(opts ...WorldStateOpt) *WorldState {
	w := &WorldState{
		players:        make(map[string]*presence),
		updateInterval: DefaultUpdateInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register binds identity to connID with the initial transform t. welcome is
// called with the transforms of every other online identity before the lock
// is released, so nothing published for the new connection can overtake it.
// If identity was already online the previous connection id is returned.
func (w *WorldState) Register(identity, connID string, t Transform, welcome func(map[string]Transform)) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var displaced string
	if prev, ok := w.players[identity]; ok {
		displaced = prev.connID
	}

	w.players[identity] = &presence{
		connID:    connID,
		transform: t,
		limiter:   rate.NewLimiter(rate.Every(w.updateInterval), 1),
	}

	if welcome != nil {
		welcome(w.snapshotLocked(identity))
	}

	return displaced
}

// Unregister removes identity if it is still bound to connID and returns its
// last transform. It reports false when the identity is gone or owned by a
// newer connection.
func (w *WorldState) Unregister(identity, connID string) (Transform, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[identity]
	if !ok || p.connID != connID {
		return Transform{}, false
	}

	delete(w.players, identity)
	return p.transform, true
}

// UpdateTransform replaces the transform of identity unless the previous
// accepted update was less than the update interval before now.
func (w *WorldState) UpdateTransform(identity string, t Transform, now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[identity]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, identity)
	}

	if !p.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}

	p.transform = t
	return nil
}

// Transform returns the current transform of identity.
func (w *WorldState) Transform(identity string) (Transform, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	p, ok := w.players[identity]
	if !ok {
		return Transform{}, false
	}
	return p.transform, true
}

// Snapshot returns the transforms of every online identity except exclude.
func (w *WorldState) Snapshot(exclude string) map[string]Transform {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.snapshotLocked(exclude)
}

func (w *WorldState) snapshotLocked(exclude string) map[string]Transform {
	out := make(map[string]Transform, len(w.players))
	for id, p := range w.players {
		if id == exclude {
			continue
		}
		out[id] = p.transform
	}
	return out
}

// ConnID returns the connection currently bound to identity.
func (w *WorldState) ConnID(identity string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	p, ok := w.players[identity]
	if !ok {
		return "", false
	}
	return p.connID, true
}

// Online reports whether identity has a live connection.
func (w *WorldState) Online(identity string) bool {
	_, ok := w.ConnID(identity)
	return ok
}

// ForEachPlayer calls fn for each online identity while holding the read lock.
// fn must not call back into the WorldState.
func (w *WorldState) ForEachPlayer(fn func(identity, connID string)) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for id, p := range w.players {
		fn(id, p.connID)
	}
}

// Count returns the number of online identities.
func (w *WorldState) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}
