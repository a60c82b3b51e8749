package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

var ErrNotConnected = errors.New("player not connected")

// Publisher publishes raw bytes on a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Directory maps online identities to connection ids.
type Directory interface {
	ConnID(identity string) (string, bool)
	ForEachPlayer(fn func(identity, connID string))
}

// Subject is the subject a connection receives its outbound messages on.
func Subject(connID string) string {
	return fmt.Sprintf("arena.conn.%s", connID)
}

// Router delivers messages to the connections of online players.
type Router struct {
	pub Publisher
	dir Directory
}

func NewRouter(pub Publisher, dir Directory) *Router {
	return &Router{pub: pub, dir: dir}
}

// SendTo delivers msg to the connection currently bound to identity.
func (r *Router) SendTo(identity string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	connID, ok := r.dir.ConnID(identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, identity)
	}

	return r.pub.Publish(Subject(connID), data)
}

// Broadcast delivers msg to every online player except exclude. A failed
// delivery is logged and does not stop the others; the first error is
// returned.
func (r *Router) Broadcast(exclude string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	type target struct{ identity, connID string }
	var targets []target
	r.dir.ForEachPlayer(func(identity, connID string) {
		if identity != exclude {
			targets = append(targets, target{identity, connID})
		}
	})

	var firstErr error
	for _, t := range targets {
		if err := r.pub.Publish(Subject(t.connID), data); err != nil {
			slog.Warn("broadcast delivery failed", "player", t.identity, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
