package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/metrics"
	"github.com/pixil98/go-arena/internal/protocol"
)

// HandlerFunc handles one inbound message of a registered type.
type HandlerFunc func(ctx context.Context, p *Player, data []byte) error

// RegisterHandler registers h for messages tagged msgType.
func (m *PlayerManager) RegisterHandler(msgType string, h HandlerFunc) error {
	if msgType == "" {
		return fmt.Errorf("message type cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if _, exists := m.handlers[msgType]; exists {
		return fmt.Errorf("handler for %q already registered", msgType)
	}
	m.handlers[msgType] = h
	return nil
}

func (m *PlayerManager) registerBuiltins() {
	builtins := map[string]HandlerFunc{
		protocol.TypePlayerUpdate:     m.handlePlayerUpdate,
		protocol.TypeChallengeRequest: m.challengeHandler(m.challenges.Request),
		protocol.TypeChallengeAccept:  m.challengeHandler(m.challenges.Accept),
		protocol.TypeChallengeDecline: m.challengeHandler(m.challenges.Decline),
		protocol.TypeChallengeCancel:  m.challengeHandler(m.challenges.Cancel),
	}
	for name, h := range builtins {
		if err := m.RegisterHandler(name, h); err != nil {
			panic(err)
		}
	}
}

// dispatch routes one message. Malformed and unknown messages are logged and
// dropped; the connection stays open.
func (m *PlayerManager) dispatch(ctx context.Context, p *Player, data []byte) {
	msgType, err := protocol.MessageType(data)
	if err != nil {
		m.metrics.Inc(metrics.ProtocolErrors)
		slog.WarnContext(ctx, "dropping malformed message", "player", p.identity, "error", err)
		return
	}

	h, ok := m.handlers[msgType]
	if !ok {
		m.metrics.Inc(metrics.ProtocolErrors)
		slog.WarnContext(ctx, "unknown message type", "player", p.identity, "type", msgType)
		return
	}

	if err := h(ctx, p, data); err != nil {
		slog.WarnContext(ctx, "handling message", "player", p.identity, "type", msgType, "error", err)
	}
}

func (m *PlayerManager) handlePlayerUpdate(ctx context.Context, p *Player, data []byte) error {
	var req protocol.PlayerUpdateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decoding player update: %w", err)
	}
	t, err := req.Transform()
	if err != nil {
		return err
	}

	err = m.world.UpdateTransform(p.identity, t, m.now())
	if errors.Is(err, game.ErrRateLimited) {
		m.metrics.Inc(metrics.UpdatesDropped)
		return nil
	}
	if err != nil {
		return err
	}
	m.metrics.Inc(metrics.UpdatesApplied)

	return m.router.Broadcast(p.identity, protocol.NewPlayerUpdate(p.identity, t))
}

// challengeHandler decodes a challenge message and hands it to fn with the
// authenticated identity as sender. The coordinator reports failures to the
// clients itself.
func (m *PlayerManager) challengeHandler(fn func(ctx context.Context, from, to string) error) HandlerFunc {
	return func(ctx context.Context, p *Player, data []byte) error {
		var req protocol.Challenge
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("decoding challenge: %w", err)
		}
		if req.To == "" {
			return fmt.Errorf("%s without target", req.Type)
		}
		if req.From != "" && req.From != p.identity {
			slog.WarnContext(ctx, "challenge sender mismatch", "player", p.identity, "claimed", req.From)
		}

		if err := fn(ctx, p.identity, req.To); err != nil {
			slog.DebugContext(ctx, "challenge not completed", "type", req.Type, "from", p.identity, "to", req.To, "error", err)
		}
		return nil
	}
}
