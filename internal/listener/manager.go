package listener

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/player"
)

// SessionRunner serves one client connection until it ends.
type SessionRunner interface {
	RunSession(ctx context.Context, conn player.Conn) error
}

type ConnectionManager struct {
	runner SessionRunner
}

func NewConnectionManager(runner SessionRunner) *ConnectionManager {
	return &ConnectionManager{
		runner: runner,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn player.Conn) {
	err := m.runner.RunSession(ctx, conn)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, game.ErrPlayerReconnected):
		slog.InfoContext(ctx, "player session replaced", "error", err)
	default:
		slog.WarnContext(ctx, "player session", "error", err)
	}
}
