package humanoid

import "math"

// ForceSource is a single point of influence within a PotentialField. Positive
// strength attracts the cursor, negative strength repels it.
type ForceSource struct {
	Position Vector2D
	Strength float64
	// Falloff controls how quickly the force diminishes with distance.
	Falloff float64
}

// PotentialField simulates a 2D field of forces that deform mouse trajectories,
// modeling a cursor being pulled toward an interactive element or pushed away
// from an obstacle.
type PotentialField struct {
	sources []ForceSource
}

// NewPotentialField creates an empty PotentialField.
func NewPotentialField() *PotentialField {
	return &PotentialField{sources: make([]ForceSource, 0)}
}

// AddSource adds an attractor (positive strength) or repulsor (negative
// strength) to the field.
func (pf *PotentialField) AddSource(pos Vector2D, strength, falloff float64) {
	pf.sources = append(pf.sources, ForceSource{Position: pos, Strength: strength, Falloff: falloff})
}

// CalculateNetForce computes the combined force exerted by all sources on the
// given point, using an exponential decay model per source.
func (pf *PotentialField) CalculateNetForce(cursorPos Vector2D) Vector2D {
	netForce := Vector2D{}
	for _, source := range pf.sources {
		vecToSource := source.Position.Sub(cursorPos)
		dist := vecToSource.Mag()
		if dist < 1e-9 {
			continue
		}
		// F = S * exp(-d/L)
		magnitude := source.Strength * math.Exp(-dist/source.Falloff)
		netForce = netForce.Add(vecToSource.Mul(magnitude / dist))
	}
	return netForce
}
