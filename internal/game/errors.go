package game

import "errors"

var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrRateLimited       = errors.New("update rate limited")
	ErrUnknownProfile    = errors.New("unknown profile")
	ErrNoSelection       = errors.New("no combatant selected")
	ErrCombatantNotFound = errors.New("combatant not found")
	ErrCombatantNotOwned = errors.New("combatant not owned")
	ErrPlayerReconnected = errors.New("player reconnected elsewhere")
)
