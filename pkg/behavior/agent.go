// Package behavior holds the two species of the simulation: boids, which
// flock following separation, cohesion and alignment, and predators, which
// chase the boids around them.
//
// Updates only read State values taken before the tick started, never the
// live agents, so a whole population can be updated in any order (or in
// parallel) and still behave as if every agent moved at the same instant.
package behavior

import "github.com/lao-tseu-is-alive/go-boids/pkg/geometry"

// State is the read-only view of an agent used as neighbor or prey input.
type State struct {
	Pos geometry.Vector2D `json:"pos"`
	Vel geometry.Vector2D `json:"vel"`
}

// Agent is what both species share: a position, a velocity and the ability
// to be pushed away from a point (the cursor, or a predator for boids).
type Agent interface {
	Position() geometry.Vector2D
	Velocity() geometry.Vector2D
	Repel(source geometry.Vector2D, repelRange, repelCoeff float64) geometry.Vector2D
}

var (
	_ Agent = (*Boid)(nil)
	_ Agent = (*Predator)(nil)
)

// repulsion is the velocity change pushing pos directly away from source:
// repelCoeff along the unit vector (pos - source), or nothing when pos is not
// strictly within repelRange or sits exactly on source.
func repulsion(pos, source geometry.Vector2D, repelRange, repelCoeff float64) geometry.Vector2D {
	if repelRange <= 0 {
		return geometry.Zero
	}
	away := pos.Sub(source)
	d := away.Len()
	if d >= repelRange || d < geometry.Epsilon {
		return geometry.Zero
	}
	return away.Mul(repelCoeff / d)
}
