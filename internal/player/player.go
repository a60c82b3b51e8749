package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pixil98/go-arena/internal/game"
)

// Conn is the transport of one client connection. Send must not block and
// must be safe to call from any goroutine.
type Conn interface {
	ReadMessage() ([]byte, error)
	Send(data []byte) error
	Close() error
}

// Player is an authenticated connection.
type Player struct {
	identity string
	connID   string
	conn     Conn

	unsubscribe func()
	kicked      chan struct{}
	kickOnce    sync.Once
}

func newPlayer(identity, connID string, conn Conn) *Player {
	return &Player{
		identity:    identity,
		connID:      connID,
		conn:        conn,
		unsubscribe: func() {},
		kicked:      make(chan struct{}),
	}
}

// Kick ends the session. Safe to call more than once.
func (p *Player) Kick() {
	p.kickOnce.Do(func() { close(p.kicked) })
}

func (p *Player) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	return p.conn.Send(data)
}

// play dispatches inbound messages in arrival order until the connection
// drops, the player is kicked or ctx ends.
func (p *Player) play(ctx context.Context, m *PlayerManager, inputs <-chan []byte, readErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-p.kicked:
			return game.ErrPlayerReconnected

		case data, ok := <-inputs:
			if !ok {
				select {
				case err := <-readErr:
					if errors.Is(err, io.EOF) {
						return nil
					}
					return err
				default:
					return nil
				}
			}
			m.dispatch(ctx, p, data)
		}
	}
}
