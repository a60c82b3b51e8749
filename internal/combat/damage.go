package combat

import (
	"math"
	"math/rand/v2"

	"github.com/pixil98/go-arena/internal/game"
)

const CriticalMultiplier = 1.5

// Random is the source of battle randomness. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// globalRandom uses the goroutine-safe top level math/rand/v2 functions.
type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// CalculateDamage rolls one attack. Damage is Attack minus Defense floored at
// zero, times CriticalMultiplier (rounded down) on a critical hit.
func CalculateDamage(attacker, defender game.Stats, rng Random) (int, bool) {
	raw := max(attacker.Attack-defender.Defense, 0)

	if rng.Float64() < attacker.CritProbability() {
		return int(math.Floor(float64(raw) * CriticalMultiplier)), true
	}
	return raw, false
}

// AttacksFirst reports whether a moves before b. Higher Speed wins and ties
// are a coin flip.
func AttacksFirst(a, b game.Stats, rng Random) bool {
	switch {
	case a.Speed > b.Speed:
		return true
	case b.Speed > a.Speed:
		return false
	default:
		return rng.IntN(2) == 0
	}
}
