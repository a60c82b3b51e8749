package command

import (
	"fmt"
	"log/slog"

	"github.com/pixil98/go-arena/internal/logging"
	"github.com/pixil98/go-errors"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Path       string `json:"path"`
	Level      string `json:"level"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Console    bool   `json:"console"`
}

func (c *LogConfig) validate() error {
	el := errors.NewErrorList()

	if c.Level != "" {
		if _, err := zapcore.ParseLevel(c.Level); err != nil {
			el.Add(fmt.Errorf("log: %w", err))
		}
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		el.Add(fmt.Errorf("log: rotation limits cannot be negative"))
	}

	return el.Err()
}

func (c *LogConfig) buildLogger() (*slog.Logger, func() error, error) {
	return logging.New(logging.Options{
		Path:       c.Path,
		Level:      c.Level,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Console:    c.Console,
	})
}
