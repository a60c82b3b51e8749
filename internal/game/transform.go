package game

const (
	DefaultX         = 250
	DefaultY         = 425
	DefaultAnimation = "stand"
	DefaultScale     = 1
)

// Transform is where a player is drawn on the shared map and how.
type Transform struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Animation string  `json:"animation"`
	FlipX     bool    `json:"flipX"`
	Scale     float64 `json:"scale"`
}

// DefaultTransform is the spawn placement for players with no saved progress.
func DefaultTransform() Transform {
	return Transform{
		X:         DefaultX,
		Y:         DefaultY,
		Animation: DefaultAnimation,
		Scale:     DefaultScale,
	}
}
