package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pixil98/go-arena/internal/combat"
	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/metrics"
	"github.com/pixil98/go-arena/internal/protocol"
)

const DefaultOfferTTL = time.Minute

var (
	ErrNoPendingOffer = errors.New("no pending challenge")
	ErrSelfChallenge  = errors.New("cannot challenge yourself")
)

// Messages sent to clients when a challenge cannot proceed.
const (
	msgNotConnected   = "User %s is not connected."
	msgAcceptFailed   = "Challenge accept failed. Ensure both players are connected."
	msgDeclineFailed  = "Challenge decline failed. Ensure both players are connected."
	msgNoPending      = "There is no pending challenge from %s."
	msgSelfChallenge  = "You cannot challenge yourself."
	msgBusy           = "User %s is already in a battle."
	msgNoSelection    = "Both players must have selected an Ordinooki to fight."
	msgMissingCatalog = "Ordinooki data is missing for one or both players."
	msgShuttingDown   = "The server is shutting down."
)

type Presence interface {
	Online(identity string) bool
}

type Sender interface {
	SendTo(identity string, msg any) error
}

type Roster interface {
	SelectedCombatant(identity string) (string, error)
}

type Catalog interface {
	Lookup(id string) (game.Combatant, error)
}

type Battles interface {
	StartBattle(p1, p2 combat.Participant, onEnd func()) (string, error)
	InBattle(identity string) bool
	Forfeit(identity string)
}

type pairState int

const (
	stateOffered pairState = iota + 1
	stateFighting
)

func (s pairState) String() string {
	switch s {
	case stateOffered:
		return "offered"
	case stateFighting:
		return "fighting"
	default:
		return "idle"
	}
}

// pairKey identifies an unordered pair of identities.
type pairKey struct {
	lo, hi string
}

func keyFor(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// pair is the state of a non-idle pair. Idle pairs are absent from the map.
type pair struct {
	state      pairState
	challenger string
	target     string
	offeredAt  time.Time
}

// Coordinator runs the challenge handshake between two online players. Each
// unordered pair moves Idle -> Offered -> Fighting -> Idle, or back to Idle
// on decline, cancel, expiry or disconnect.
type Coordinator struct {
	mu    sync.Mutex
	pairs map[pairKey]*pair

	presence Presence
	sender   Sender
	roster   Roster
	catalog  Catalog
	battles  Battles
	metrics  *metrics.Registry

	offerTTL time.Duration
	now      func() time.Time
}

type CoordinatorOpt func(*Coordinator)

// WithOfferTTL sets how long an unanswered challenge stays pending. Zero
// disables expiry.
func WithOfferTTL(d time.Duration) CoordinatorOpt {
	return func(c *Coordinator) {
		c.offerTTL = d
	}
}

func WithClock(now func() time.Time) CoordinatorOpt {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithMetrics(r *metrics.Registry) CoordinatorOpt {
	return func(c *Coordinator) {
		c.metrics = r
	}
}

func NewCoordinator(presence Presence, sender Sender, roster Roster, catalog Catalog, battles Battles, opts ...CoordinatorOpt) *Coordinator {
	c := &Coordinator{
		pairs:    make(map[pairKey]*pair),
		presence: presence,
		sender:   sender,
		roster:   roster,
		catalog:  catalog,
		battles:  battles,
		offerTTL: DefaultOfferTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request offers a challenge from one player to another.
func (c *Coordinator) Request(ctx context.Context, from, to string) error {
	if from == to {
		c.fail(ctx, from, msgSelfChallenge)
		return ErrSelfChallenge
	}
	if !c.presence.Online(to) {
		c.fail(ctx, from, fmt.Sprintf(msgNotConnected, to))
		return fmt.Errorf("%w: %s", game.ErrPlayerNotFound, to)
	}
	for _, id := range []string{from, to} {
		if c.battles.InBattle(id) {
			c.fail(ctx, from, fmt.Sprintf(msgBusy, id))
			return fmt.Errorf("%w: %s", combat.ErrAlreadyFighting, id)
		}
	}

	key := keyFor(from, to)
	c.mu.Lock()
	if p, ok := c.pairs[key]; ok && p.state == stateFighting {
		c.mu.Unlock()
		c.fail(ctx, from, fmt.Sprintf(msgBusy, to))
		return fmt.Errorf("%w: %s", combat.ErrAlreadyFighting, to)
	}
	c.pairs[key] = &pair{state: stateOffered, challenger: from, target: to, offeredAt: c.now()}
	c.mu.Unlock()

	err := c.sender.SendTo(to, protocol.Challenge{Type: protocol.TypeChallengeRequest, From: from, To: to})
	if err != nil {
		c.clear(key, stateOffered)
		c.fail(ctx, from, fmt.Sprintf(msgNotConnected, to))
		return fmt.Errorf("forwarding challenge: %w", err)
	}

	c.metrics.Inc(metrics.ChallengesSent)
	slog.DebugContext(ctx, "challenge offered", "from", from, "to", to)
	return nil
}

// Accept is sent by the challenged player (from) for the offer made by the
// challenger (to). A successful accept starts a battle.
func (c *Coordinator) Accept(ctx context.Context, from, to string) error {
	if !c.presence.Online(from) || !c.presence.Online(to) {
		c.fail(ctx, from, msgAcceptFailed)
		return game.ErrPlayerNotFound
	}

	key := keyFor(from, to)
	c.mu.Lock()
	p, ok := c.pairs[key]
	switch {
	case ok && p.state == stateFighting:
		c.mu.Unlock()
		c.fail(ctx, from, fmt.Sprintf(msgBusy, to))
		return fmt.Errorf("%w: %s", combat.ErrAlreadyFighting, to)
	case !ok || p.challenger != to:
		c.mu.Unlock()
		c.fail(ctx, from, fmt.Sprintf(msgNoPending, to))
		return fmt.Errorf("%w: %s -> %s", ErrNoPendingOffer, to, from)
	}
	// Claiming the pair here is what stops a duplicate accept from starting
	// a second battle.
	p.state = stateFighting
	c.mu.Unlock()

	p1, p2, err := c.resolve(from, to)
	if err != nil {
		c.clear(key, stateFighting)
		c.fightError(ctx, from, to, err)
		return err
	}

	_, err = c.battles.StartBattle(p1, p2, func() { c.clear(key, stateFighting) })
	if err != nil {
		c.clear(key, stateFighting)
		c.fightError(ctx, from, to, err)
		return err
	}

	// A player who left while the battle was being set up was not yet in a
	// battle when its disconnect ran, so the forfeit is applied here.
	for _, id := range []string{from, to} {
		if !c.presence.Online(id) {
			slog.InfoContext(ctx, "player left before battle start", "player", id)
			c.battles.Forfeit(id)
		}
	}

	return nil
}

func (c *Coordinator) resolve(from, to string) (combat.Participant, combat.Participant, error) {
	var parts [2]combat.Participant
	for i, id := range []string{from, to} {
		cid, err := c.roster.SelectedCombatant(id)
		if err != nil {
			return combat.Participant{}, combat.Participant{}, err
		}
		cb, err := c.catalog.Lookup(cid)
		if err != nil {
			return combat.Participant{}, combat.Participant{}, err
		}
		parts[i] = combat.NewParticipant(id, cb)
	}
	return parts[0], parts[1], nil
}

func (c *Coordinator) fightError(ctx context.Context, a, b string, err error) {
	var msg string
	switch {
	case errors.Is(err, game.ErrCombatantNotFound):
		msg = msgMissingCatalog
	case errors.Is(err, combat.ErrAlreadyFighting):
		msg = "One of the players is already in a battle."
	case errors.Is(err, combat.ErrManagerClosed):
		msg = msgShuttingDown
	default:
		msg = msgNoSelection
	}

	slog.InfoContext(ctx, "battle not started", "player1", a, "player2", b, "error", err)
	for _, id := range []string{a, b} {
		if sendErr := c.sender.SendTo(id, protocol.NewFightStartError(msg)); sendErr != nil {
			slog.DebugContext(ctx, "fight_start_error not delivered", "player", id, "error", sendErr)
		}
	}
}

// Decline rejects a pending challenge and notifies both players.
func (c *Coordinator) Decline(ctx context.Context, from, to string) error {
	if !c.presence.Online(from) || !c.presence.Online(to) {
		c.fail(ctx, from, msgDeclineFailed)
		return game.ErrPlayerNotFound
	}

	c.clear(keyFor(from, to), stateOffered)

	msg := protocol.Challenge{Type: protocol.TypeChallengeDecline, From: from, To: to}
	c.notify(ctx, msg, from, to)
	return nil
}

// Cancel withdraws a challenge. Whichever of the two players is online is
// told.
func (c *Coordinator) Cancel(ctx context.Context, from, to string) error {
	c.clear(keyFor(from, to), stateOffered)

	msg := protocol.Challenge{Type: protocol.TypeChallengeCancel, From: from, To: to}
	var targets []string
	for _, id := range []string{from, to} {
		if c.presence.Online(id) {
			targets = append(targets, id)
		}
	}
	c.notify(ctx, msg, targets...)
	return nil
}

// Tick expires offers that were never answered.
func (c *Coordinator) Tick(ctx context.Context) error {
	if c.offerTTL <= 0 {
		return nil
	}
	cutoff := c.now().Add(-c.offerTTL)

	var expired []*pair
	c.mu.Lock()
	for k, p := range c.pairs {
		if p.state == stateOffered && p.offeredAt.Before(cutoff) {
			expired = append(expired, p)
			delete(c.pairs, k)
		}
	}
	c.mu.Unlock()

	for _, p := range expired {
		slog.DebugContext(ctx, "challenge expired", "from", p.challenger, "to", p.target)
		msg := protocol.Challenge{Type: protocol.TypeChallengeCancel, From: p.challenger, To: p.target}
		c.notify(ctx, msg, p.challenger, p.target)
	}
	return nil
}

// Forget drops every pending offer involving identity and tells the other
// side it was cancelled. Running battles are left to the battle engine.
func (c *Coordinator) Forget(ctx context.Context, identity string) {
	var dropped []*pair
	c.mu.Lock()
	for k, p := range c.pairs {
		if p.state == stateOffered && (k.lo == identity || k.hi == identity) {
			dropped = append(dropped, p)
			delete(c.pairs, k)
		}
	}
	c.mu.Unlock()

	for _, p := range dropped {
		other := p.challenger
		if other == identity {
			other = p.target
		}
		msg := protocol.Challenge{Type: protocol.TypeChallengeCancel, From: p.challenger, To: p.target}
		c.notify(ctx, msg, other)
	}
}

// State returns the state name of the pair for diagnostics.
func (c *Coordinator) State(a, b string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pairs[keyFor(a, b)]
	if !ok {
		return "idle"
	}
	return p.state.String()
}

// clear returns the pair to Idle if it is currently in state want.
func (c *Coordinator) clear(key pairKey, want pairState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pairs[key]; ok && p.state == want {
		delete(c.pairs, key)
	}
}

func (c *Coordinator) fail(ctx context.Context, identity, message string) {
	if err := c.sender.SendTo(identity, protocol.NewChallengeFailure(message)); err != nil {
		slog.DebugContext(ctx, "challenge_response not delivered", "player", identity, "error", err)
	}
}

func (c *Coordinator) notify(ctx context.Context, msg protocol.Challenge, targets ...string) {
	for _, id := range targets {
		if err := c.sender.SendTo(id, msg); err != nil {
			slog.DebugContext(ctx, "challenge message not delivered", "type", msg.Type, "player", id, "error", err)
		}
	}
}
