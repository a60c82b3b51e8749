package combat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/protocol"
)

// Participant is one side of a battle. Health starts at the combatant's HP.
type Participant struct {
	Identity  string
	Combatant game.Combatant
	Health    int
}

func NewParticipant(identity string, c game.Combatant) Participant {
	return Participant{Identity: identity, Combatant: c, Health: c.Meta.Stats.HP}
}

func (p *Participant) stats() game.Stats {
	return p.Combatant.Meta.Stats
}

// Session is one running battle. It is driven by its own goroutine; only the
// forfeit flag is touched from outside.
type Session struct {
	id       string
	p1, p2   *Participant
	log      []string
	sender   Sender
	messages *Messages
	rng      Random
	delay    time.Duration
	maxTurns int

	mu        sync.Mutex
	forfeited string
}

// Forfeit marks identity as having left. The battle ends at its next turn
// boundary.
func (s *Session) Forfeit(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forfeited == "" {
		s.forfeited = identity
	}
}

func (s *Session) forfeitedBy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forfeited
}

// Log returns a copy of the battle log.
func (s *Session) Log() []string {
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}

// run plays the battle to completion and returns the terminal message, or
// nil if ctx ended first.
func (s *Session) run(ctx context.Context) *protocol.BattleResult {
	s.send(ctx, protocol.FightStart{
		Type:    protocol.TypeFightStart,
		Player1: protocol.Fighter{Username: s.p1.Identity, Ordinooki: s.p1.Combatant},
		Player2: protocol.Fighter{Username: s.p2.Identity, Ordinooki: s.p2.Combatant},
	})

	attacker, defender := s.p1, s.p2
	if !AttacksFirst(s.p1.stats(), s.p2.stats(), s.rng) {
		attacker, defender = s.p2, s.p1
	}

	line, err := s.messages.Start(attacker.Identity)
	s.announce(ctx, line, err)

	for turn := 1; ; turn++ {
		if !sleep(ctx, s.delay) {
			return nil
		}

		if loser := s.forfeitedBy(); loser != "" {
			return s.forfeitResult(ctx, loser)
		}

		damage, crit := CalculateDamage(attacker.stats(), defender.stats(), s.rng)
		defender.Health -= damage
		line, err := s.messages.Attack(attacker.Identity, defender.Identity, damage, crit)
		s.announce(ctx, line, err)

		if defender.Health <= 0 {
			return s.result(ctx)
		}
		if s.maxTurns > 0 && turn >= s.maxTurns {
			slog.InfoContext(ctx, "battle hit turn limit", "battle", s.id, "turns", turn)
			return s.drawResult(ctx)
		}

		attacker, defender = defender, attacker
	}
}

func (s *Session) result(ctx context.Context) *protocol.BattleResult {
	switch {
	case s.p1.Health > 0 && s.p2.Health <= 0:
		return s.winResult(ctx, s.p1, s.p2)
	case s.p2.Health > 0 && s.p1.Health <= 0:
		return s.winResult(ctx, s.p2, s.p1)
	default:
		return s.drawResult(ctx)
	}
}

func (s *Session) winResult(ctx context.Context, winner, loser *Participant) *protocol.BattleResult {
	line, err := s.messages.Win(winner.Identity, loser.Identity)
	return s.finish(ctx, winner.Identity, s.line(ctx, line, err))
}

func (s *Session) drawResult(ctx context.Context) *protocol.BattleResult {
	line, err := s.messages.Draw(s.p1.Identity, s.p2.Identity)
	return s.finish(ctx, "", s.line(ctx, line, err))
}

func (s *Session) forfeitResult(ctx context.Context, loser string) *protocol.BattleResult {
	winner := s.p1.Identity
	if loser == s.p1.Identity {
		winner = s.p2.Identity
	}
	line, err := s.messages.Forfeit(winner, loser)
	return s.finish(ctx, winner, s.line(ctx, line, err))
}

func (s *Session) finish(ctx context.Context, winner, line string) *protocol.BattleResult {
	s.log = append(s.log, line)
	res := &protocol.BattleResult{
		Type:    protocol.TypeBattleResult,
		Winner:  winner,
		Draw:    winner == "",
		Message: line,
		Log:     s.Log(),
	}
	s.send(ctx, res)
	return res
}

// announce records a log line and sends both health totals with it.
func (s *Session) announce(ctx context.Context, line string, err error) {
	line = s.line(ctx, line, err)
	s.log = append(s.log, line)
	s.send(ctx, protocol.BattleUpdate{
		Type:    protocol.TypeBattleUpdate,
		Player1: protocol.BattleSide{Username: s.p1.Identity, Health: s.p1.Health},
		Player2: protocol.BattleSide{Username: s.p2.Identity, Health: s.p2.Health},
		Message: line,
	})
}

func (s *Session) line(ctx context.Context, line string, err error) string {
	if err != nil {
		slog.ErrorContext(ctx, "rendering battle message", "battle", s.id, "error", err)
	}
	return line
}

func (s *Session) send(ctx context.Context, msg any) {
	for _, p := range []*Participant{s.p1, s.p2} {
		if err := s.sender.SendTo(p.Identity, msg); err != nil {
			slog.DebugContext(ctx, "battle message not delivered", "battle", s.id, "player", p.Identity, "error", err)
		}
	}
}

// sleep waits d unless ctx ends first. It reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
