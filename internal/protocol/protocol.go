// Package protocol defines the JSON messages exchanged with game clients.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-arena/internal/game"
)

const (
	TypePlayerUpdate      = "playerUpdate"
	TypeGameState         = "gameState"
	TypePlayerDisconnect  = "playerDisconnect"
	TypeChallengeRequest  = "challenge_request"
	TypeChallengeAccept   = "challenge_accept"
	TypeChallengeDecline  = "challenge_decline"
	TypeChallengeCancel   = "challenge_cancel"
	TypeChallengeResponse = "challenge_response"
	TypeFightStart        = "fight_start"
	TypeFightStartError   = "fight_start_error"
	TypeBattleUpdate      = "battle_update"
	TypeBattleResult      = "battle_result"
)

// Authentication error messages sent before closing a connection.
const (
	AuthFailed  = "Authentication failed"
	AuthTimeout = "Authentication timeout"
	AuthInvalid = "Invalid authentication message"
)

// MessageType returns the type tag of an inbound message. Untagged messages
// are player updates.
func MessageType(data []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decoding message: %w", err)
	}
	if env.Type == "" {
		return TypePlayerUpdate, nil
	}
	return env.Type, nil
}

type AuthRequest struct {
	Token string `json:"token"`
}

type AuthResponse struct {
	Authenticated bool   `json:"authenticated,omitempty"`
	Error         string `json:"error,omitempty"`
}

// PlayerUpdateRequest is an inbound transform update. Optional fields fall
// back to the defaults of game.Transform.
type PlayerUpdateRequest struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Animation *string  `json:"animation"`
	FlipX     *bool    `json:"flipX"`
	Scale     *float64 `json:"scale"`
}

// Transform validates the request and fills defaults.
func (r PlayerUpdateRequest) Transform() (game.Transform, error) {
	if r.X == nil || r.Y == nil {
		return game.Transform{}, fmt.Errorf("player update requires x and y")
	}

	t := game.Transform{
		X:         *r.X,
		Y:         *r.Y,
		Animation: game.DefaultAnimation,
		Scale:     game.DefaultScale,
	}
	if r.Animation != nil {
		t.Animation = *r.Animation
	}
	if r.FlipX != nil {
		t.FlipX = *r.FlipX
	}
	if r.Scale != nil {
		t.Scale = *r.Scale
	}
	return t, nil
}

// PlayerState is one player's transform tagged with its owner.
type PlayerState struct {
	Type     string `json:"type,omitempty"`
	Username string `json:"username"`
	game.Transform
}

func NewPlayerUpdate(identity string, t game.Transform) PlayerState {
	return PlayerState{Type: TypePlayerUpdate, Username: identity, Transform: t}
}

type GameState struct {
	Type    string                 `json:"type"`
	Map     string                 `json:"map"`
	Players map[string]PlayerState `json:"players"`
}

func NewGameState(mapName string, players map[string]game.Transform) GameState {
	gs := GameState{
		Type:    TypeGameState,
		Map:     mapName,
		Players: make(map[string]PlayerState, len(players)),
	}
	for id, t := range players {
		gs.Players[id] = PlayerState{Username: id, Transform: t}
	}
	return gs
}

type PlayerDisconnect struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

func NewPlayerDisconnect(identity string) PlayerDisconnect {
	return PlayerDisconnect{Type: TypePlayerDisconnect, Username: identity}
}

// Challenge is used for request, accept, decline and cancel in both
// directions.
type Challenge struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

type ChallengeResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewChallengeFailure(msg string) ChallengeResponse {
	return ChallengeResponse{Type: TypeChallengeResponse, Message: msg}
}

type Fighter struct {
	Username  string         `json:"username"`
	Ordinooki game.Combatant `json:"ordinooki"`
}

type FightStart struct {
	Type    string  `json:"type"`
	Player1 Fighter `json:"player1"`
	Player2 Fighter `json:"player2"`
}

type FightStartError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewFightStartError(msg string) FightStartError {
	return FightStartError{Type: TypeFightStartError, Message: msg}
}

type BattleSide struct {
	Username string `json:"username"`
	Health   int    `json:"health"`
}

type BattleUpdate struct {
	Type    string     `json:"type"`
	Player1 BattleSide `json:"player1"`
	Player2 BattleSide `json:"player2"`
	Message string     `json:"message"`
}

// BattleResult ends a battle. Winner is empty on a draw.
type BattleResult struct {
	Type    string   `json:"type"`
	Winner  string   `json:"winner,omitempty"`
	Draw    bool     `json:"draw"`
	Message string   `json:"message"`
	Log     []string `json:"log"`
}
