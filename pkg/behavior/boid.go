package behavior

import "github.com/lao-tseu-is-alive/go-boids/pkg/geometry"

// Boid represents a single entity in the flock.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds, and related group motion.
// The name "boid" corresponds to a shortened version of "bird-oid object".
// https://en.wikipedia.org/wiki/Boids
type Boid struct {
	Pos geometry.Vector2D
	Vel geometry.Vector2D
}

// Coefficients weights the three flocking rules. They come from the per tick
// parameters so they can be tuned while the simulation runs.
type Coefficients struct {
	Separation float64 `json:"separation"`
	Cohesion   float64 `json:"cohesion"`
	Alignment  float64 `json:"alignment"`
}

func NewBoid(pos, vel geometry.Vector2D) *Boid {
	return &Boid{Pos: pos, Vel: vel}
}

func (b *Boid) Position() geometry.Vector2D { return b.Pos }
func (b *Boid) Velocity() geometry.Vector2D { return b.Vel }

// State returns a copy of the boid usable as neighbor input.
func (b *Boid) State() State {
	return State{Pos: b.Pos, Vel: b.Vel}
}

// Update applies the three flocking rules against neighbors (the result of a
// range query around this boid, the boid itself excluded) and then moves the
// boid by Vel*dt.
//
// Separation sums, for every neighbor strictly closer than separationRange,
// a push pointing from the neighbor to the boid whose length is
// separationRange minus the distance, so crowding pushes harder. Summing the
// raw pos-neighbor differences instead would shrink the push as a neighbor
// closes in, the opposite of what separation has to do, which is why the
// difference is only used for its direction.
// Cohesion and alignment steer toward the mean position and velocity of the
// local group, the boid included, so an isolated boid feels nothing.
func (b *Boid) Update(dt float64, neighbors []State, separationRange float64, c Coefficients) {
	var separation, posSum, velSum geometry.Vector2D

	for _, other := range neighbors {
		away := b.Pos.Sub(other.Pos)
		if d := away.Len(); d < separationRange {
			// coincident boids have no direction to push along
			separation = separation.Add(away.Normalize().Mul(separationRange - d))
		}
		posSum = posSum.Add(other.Pos)
		velSum = velSum.Add(other.Vel)
	}

	delta := separation.Mul(c.Separation)

	if len(neighbors) > 0 {
		group := 1 / float64(len(neighbors)+1)
		center := posSum.Add(b.Pos).Mul(group)
		heading := velSum.Add(b.Vel).Mul(group)

		delta = delta.
			Add(center.Sub(b.Pos).Mul(c.Cohesion)).
			Add(heading.Sub(b.Vel).Mul(c.Alignment))
	}

	b.Vel = b.Vel.Add(delta)
	b.Pos = b.Pos.Add(b.Vel.Mul(dt))
}

// Repel pushes the boid away from source when it is strictly within
// repelRange and returns the velocity change applied.
func (b *Boid) Repel(source geometry.Vector2D, repelRange, repelCoeff float64) geometry.Vector2D {
	push := repulsion(b.Pos, source, repelRange, repelCoeff)
	b.Vel = b.Vel.Add(push)
	return push
}
