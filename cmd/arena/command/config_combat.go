package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-arena/internal/challenge"
	"github.com/pixil98/go-arena/internal/combat"
	"github.com/pixil98/go-arena/internal/metrics"
	"github.com/pixil98/go-errors"
)

type CombatConfig struct {
	TurnDelay string               `json:"turn_delay"`
	MaxTurns  int                  `json:"max_turns"`
	Messages  combat.MessageConfig `json:"messages"`
}

func (c *CombatConfig) validate() error {
	el := errors.NewErrorList()

	_, err := parseDuration("turn_delay", c.TurnDelay, combat.DefaultTurnDelay)
	el.Add(err)

	if c.MaxTurns < 0 {
		el.Add(fmt.Errorf("combat: max_turns cannot be negative"))
	}

	if _, err := combat.NewMessages(c.Messages); err != nil {
		el.Add(fmt.Errorf("combat: %w", err))
	}

	return el.Err()
}

func (c *CombatConfig) buildManager(sender combat.Sender, reg *metrics.Registry) (*combat.Manager, error) {
	msgs, err := combat.NewMessages(c.Messages)
	if err != nil {
		return nil, fmt.Errorf("compiling battle messages: %w", err)
	}
	delay, _ := parseDuration("turn_delay", c.TurnDelay, combat.DefaultTurnDelay)

	opts := []combat.ManagerOpt{
		combat.WithMessages(msgs),
		combat.WithTurnDelay(delay),
		combat.WithMetrics(reg),
	}
	if c.MaxTurns > 0 {
		opts = append(opts, combat.WithMaxTurns(c.MaxTurns))
	}

	return combat.NewManager(sender, opts...), nil
}

type ChallengeConfig struct {
	OfferTTL string `json:"offer_ttl"`
}

func (c *ChallengeConfig) validate() error {
	_, err := parseDuration("offer_ttl", c.OfferTTL, challenge.DefaultOfferTTL)
	return err
}

func (c *ChallengeConfig) offerTTL() time.Duration {
	d, _ := parseDuration("offer_ttl", c.OfferTTL, challenge.DefaultOfferTTL)
	return d
}
