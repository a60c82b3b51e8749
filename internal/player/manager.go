package player

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/messaging"
	"github.com/pixil98/go-arena/internal/metrics"
	"github.com/pixil98/go-arena/internal/protocol"
)

const (
	DefaultAuthTimeout = 5 * time.Second
	DefaultMap         = "assets/map.png"
)

type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type ProgressStore interface {
	LoadProgress(identity string) (game.Transform, error)
	SaveProgress(identity string, t game.Transform) error
}

// Subscriber delivers messages published for a connection.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

type Broadcaster interface {
	Broadcast(exclude string, msg any) error
}

type Challenges interface {
	Request(ctx context.Context, from, to string) error
	Accept(ctx context.Context, from, to string) error
	Decline(ctx context.Context, from, to string) error
	Cancel(ctx context.Context, from, to string) error
	Forget(ctx context.Context, identity string)
}

type Battles interface {
	Forfeit(identity string)
}

// PlayerManager admits connections, runs their sessions and cleans up after
// them.
type PlayerManager struct {
	world      *game.WorldState
	verifier   Verifier
	progress   ProgressStore
	bus        Subscriber
	router     Broadcaster
	challenges Challenges
	battles    Battles

	handlers map[string]HandlerFunc

	authTimeout time.Duration
	mapName     string
	now         func() time.Time
	metrics     *metrics.Registry

	mu      sync.Mutex
	players map[string]*Player // by connection id
}

type PlayerManagerOpt func(*PlayerManager)

func WithAuthTimeout(d time.Duration) PlayerManagerOpt {
	return func(m *PlayerManager) {
		m.authTimeout = d
	}
}

// WithMap sets the map asset named in gameState messages.
func WithMap(name string) PlayerManagerOpt {
	return func(m *PlayerManager) {
		m.mapName = name
	}
}

func WithClock(now func() time.Time) PlayerManagerOpt {
	return func(m *PlayerManager) {
		m.now = now
	}
}

func WithMetrics(r *metrics.Registry) PlayerManagerOpt {
	return func(m *PlayerManager) {
		m.metrics = r
	}
}

func NewPlayerManager(
	world *game.WorldState,
	verifier Verifier,
	progress ProgressStore,
	bus Subscriber,
	router Broadcaster,
	challenges Challenges,
	battles Battles,
	opts ...PlayerManagerOpt,
) *PlayerManager {
	m := &PlayerManager{
		world:       world,
		verifier:    verifier,
		progress:    progress,
		bus:         bus,
		router:      router,
		challenges:  challenges,
		battles:     battles,
		handlers:    make(map[string]HandlerFunc),
		authTimeout: DefaultAuthTimeout,
		mapName:     DefaultMap,
		now:         time.Now,
		players:     make(map[string]*Player),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registerBuiltins()
	return m
}

// RunSession authenticates conn and serves it until it disconnects.
func (m *PlayerManager) RunSession(ctx context.Context, conn Conn) error {
	inputs := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				close(inputs)
				return
			}
			select {
			case inputs <- data:
			case <-stop:
				return
			}
		}
	}()

	identity, err := m.authenticate(ctx, conn, inputs)
	if err != nil {
		m.metrics.Inc(metrics.AuthFailures)
		_ = conn.Close()
		return err
	}

	p := newPlayer(identity, uuid.NewString(), conn)
	if err := m.admit(ctx, p); err != nil {
		_ = conn.Close()
		return err
	}
	defer m.release(ctx, p)

	return p.play(ctx, m, inputs, readErr)
}

func (m *PlayerManager) authenticate(ctx context.Context, conn Conn, inputs <-chan []byte) (string, error) {
	timer := time.NewTimer(m.authTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()

	case <-timer.C:
		m.reject(conn, protocol.AuthTimeout)
		return "", ErrAuthTimeout

	case data, ok := <-inputs:
		if !ok {
			return "", ErrClosedBeforeAuth
		}

		var req protocol.AuthRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Token == "" {
			m.reject(conn, protocol.AuthInvalid)
			return "", ErrAuthInvalid
		}

		identity, err := m.verifier.Verify(ctx, req.Token)
		if err != nil {
			m.reject(conn, protocol.AuthFailed)
			return "", fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		return identity, nil
	}
}

func (m *PlayerManager) reject(conn Conn, reason string) {
	data, err := json.Marshal(protocol.AuthResponse{Error: reason})
	if err != nil {
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Debug("sending auth rejection", "error", err)
	}
}

// admit registers an authenticated player and sends its initial state.
func (m *PlayerManager) admit(ctx context.Context, p *Player) error {
	if err := p.send(protocol.AuthResponse{Authenticated: true}); err != nil {
		return fmt.Errorf("acknowledging authentication: %w", err)
	}

	unsub, err := m.bus.Subscribe(messaging.Subject(p.connID), func(data []byte) {
		if err := p.conn.Send(data); err != nil {
			slog.Debug("dropping outbound message", "player", p.identity, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing connection: %w", err)
	}
	p.unsubscribe = unsub

	start, err := m.progress.LoadProgress(p.identity)
	if err != nil {
		slog.WarnContext(ctx, "loading progress, using default position", "player", p.identity, "error", err)
	}

	m.mu.Lock()
	m.players[p.connID] = p
	m.mu.Unlock()

	displaced := m.world.Register(p.identity, p.connID, start, func(others map[string]game.Transform) {
		if err := p.send(protocol.NewGameState(m.mapName, others)); err != nil {
			slog.WarnContext(ctx, "sending game state", "player", p.identity, "error", err)
		}
	})
	if displaced != "" {
		slog.InfoContext(ctx, "player reconnected, closing previous connection", "player", p.identity, "previous", displaced)
		m.kick(displaced)
	}

	m.metrics.Inc(metrics.ConnectionsOpened)
	m.metrics.Inc(metrics.ConnectionsActive)
	slog.InfoContext(ctx, "player connected", "player", p.identity, "conn", p.connID)
	return nil
}

func (m *PlayerManager) kick(connID string) {
	m.mu.Lock()
	p, ok := m.players[connID]
	m.mu.Unlock()
	if ok {
		p.Kick()
	}
}

// release runs once per admitted connection. Only the connection that still
// owns its identity persists progress and announces the departure.
func (m *PlayerManager) release(ctx context.Context, p *Player) {
	p.unsubscribe()
	defer func() { _ = p.conn.Close() }()

	m.mu.Lock()
	delete(m.players, p.connID)
	m.mu.Unlock()
	m.metrics.Dec(metrics.ConnectionsActive)

	last, ok := m.world.Unregister(p.identity, p.connID)
	if !ok {
		slog.DebugContext(ctx, "superseded connection closed", "player", p.identity, "conn", p.connID)
		return
	}

	if err := m.progress.SaveProgress(p.identity, last); err != nil {
		slog.ErrorContext(ctx, "saving progress", "player", p.identity, "error", err)
	}

	m.challenges.Forget(ctx, p.identity)
	m.battles.Forfeit(p.identity)

	if err := m.router.Broadcast(p.identity, protocol.NewPlayerDisconnect(p.identity)); err != nil {
		slog.WarnContext(ctx, "broadcasting disconnect", "player", p.identity, "error", err)
	}

	slog.InfoContext(ctx, "player disconnected", "player", p.identity, "conn", p.connID)
}

// Online returns the number of live sessions.
func (m *PlayerManager) Online() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}
