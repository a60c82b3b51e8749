package combat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-arena/internal/metrics"
)

const (
	DefaultTurnDelay = time.Second
	DefaultMaxTurns  = 200
)

var (
	ErrAlreadyFighting = errors.New("already in a battle")
	ErrManagerClosed   = errors.New("battle manager stopped")
)

// Sender delivers a message to the live connection of an identity.
type Sender interface {
	SendTo(identity string, msg any) error
}

// Manager owns every running battle session. An identity takes part in at
// most one session at a time.
type Manager struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	sessions map[string]*Session
	wg       sync.WaitGroup

	sender   Sender
	messages *Messages
	rng      Random
	delay    time.Duration
	maxTurns int
	metrics  *metrics.Registry
}

type ManagerOpt func(*Manager)

func WithTurnDelay(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.delay = d
	}
}

func WithMaxTurns(n int) ManagerOpt {
	return func(m *Manager) {
		m.maxTurns = n
	}
}

// WithRandom replaces the random source. Access is serialized so r need not
// be safe for concurrent use.
func WithRandom(r Random) ManagerOpt {
	return func(m *Manager) {
		m.rng = &lockedRandom{r: r}
	}
}

func WithMessages(msgs *Messages) ManagerOpt {
	return func(m *Manager) {
		m.messages = msgs
	}
}

func WithMetrics(r *metrics.Registry) ManagerOpt {
	return func(m *Manager) {
		m.metrics = r
	}
}

func NewManager(sender Sender, opts ...ManagerOpt) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		sender:   sender,
		rng:      globalRandom{},
		delay:    DefaultTurnDelay,
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	if m.messages == nil {
		msgs, err := NewMessages(MessageConfig{})
		if err != nil {
			panic(fmt.Sprintf("default battle messages: %v", err))
		}
		m.messages = msgs
	}
	return m
}

// Start blocks until ctx ends, then refuses new battles, interrupts the
// running ones and waits for every session to stop.
func (m *Manager) Start(ctx context.Context) error {
	<-ctx.Done()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	return nil
}

// StartBattle registers a session for p1 and p2 and runs it in its own
// goroutine. onEnd is called once the session is over and both identities
// are free again.
func (m *Manager) StartBattle(p1, p2 Participant, onEnd func()) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrManagerClosed
	}
	for _, id := range []string{p1.Identity, p2.Identity} {
		if _, busy := m.sessions[id]; busy {
			m.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrAlreadyFighting, id)
		}
	}

	s := &Session{
		id:       uuid.NewString(),
		p1:       &p1,
		p2:       &p2,
		sender:   m.sender,
		messages: m.messages,
		rng:      m.rng,
		delay:    m.delay,
		maxTurns: m.maxTurns,
	}
	m.sessions[p1.Identity] = s
	m.sessions[p2.Identity] = s
	ctx := m.ctx
	m.wg.Add(1)
	m.mu.Unlock()

	m.metrics.Inc(metrics.BattlesStarted)
	m.metrics.Inc(metrics.BattlesActive)

	go func() {
		defer m.wg.Done()
		defer func() {
			m.release(s)
			m.metrics.Dec(metrics.BattlesActive)
			if onEnd != nil {
				onEnd()
			}
		}()

		slog.InfoContext(ctx, "battle started", "battle", s.id, "player1", p1.Identity, "player2", p2.Identity)
		res := s.run(ctx)
		if res == nil {
			slog.InfoContext(ctx, "battle interrupted", "battle", s.id)
			return
		}
		slog.InfoContext(ctx, "battle finished", "battle", s.id, "winner", res.Winner, "draw", res.Draw)
	}()

	return s.id, nil
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range []*Participant{s.p1, s.p2} {
		if m.sessions[p.Identity] == s {
			delete(m.sessions, p.Identity)
		}
	}
}

// InBattle reports whether identity is in a running session.
func (m *Manager) InBattle(identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[identity]
	return ok
}

// Forfeit ends the battle of identity at its next turn boundary with the
// opponent as winner. It is a no-op when identity is not fighting.
func (m *Manager) Forfeit(identity string) {
	m.mu.Lock()
	s, ok := m.sessions[identity]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.metrics.Inc(metrics.BattlesForfeited)
	s.Forfeit(identity)
}

// Wait blocks until every running session has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

type lockedRandom struct {
	mu sync.Mutex
	r  Random
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
