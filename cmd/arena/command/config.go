package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-arena/internal/driver"
	"github.com/pixil98/go-arena/internal/player"
	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string          `json:"tick_interval"`
	Map          string          `json:"map"`
	Listener     ListenerConfig  `json:"listener"`
	Auth         AuthConfig      `json:"auth"`
	Storage      StorageConfig   `json:"storage"`
	Nats         NatsConfig      `json:"nats"`
	Combat       CombatConfig    `json:"combat"`
	Challenge    ChallengeConfig `json:"challenge"`
	Log          LogConfig       `json:"log"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if _, err := parseDuration("tick_interval", c.TickInterval, driver.DefaultInterval); err != nil {
		el.Add(err)
	}

	el.Add(c.Listener.validate())
	el.Add(c.Auth.validate())
	el.Add(c.Storage.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Combat.validate())
	el.Add(c.Challenge.validate())
	el.Add(c.Log.validate())

	return el.Err()
}

func (c *Config) tickInterval() time.Duration {
	d, _ := parseDuration("tick_interval", c.TickInterval, driver.DefaultInterval)
	return d
}

func (c *Config) mapName() string {
	if c.Map == "" {
		return player.DefaultMap
	}
	return c.Map
}

// parseDuration parses an optional positive duration setting.
func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
