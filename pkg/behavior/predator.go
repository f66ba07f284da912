package behavior

import "github.com/lao-tseu-is-alive/go-boids/pkg/geometry"

// Predator hunts boids. There are few of them, so they scan the whole prey
// population instead of going through the spatial index.
type Predator struct {
	Pos geometry.Vector2D
	Vel geometry.Vector2D
}

func NewPredator(pos, vel geometry.Vector2D) *Predator {
	return &Predator{Pos: pos, Vel: vel}
}

func (p *Predator) Position() geometry.Vector2D { return p.Pos }
func (p *Predator) Velocity() geometry.Vector2D { return p.Vel }

func (p *Predator) State() State {
	return State{Pos: p.Pos, Vel: p.Vel}
}

// Update steers toward the mean position of the prey strictly closer than
// predatorRange, scaled by pursuit, then moves by Vel*dt. Without prey in
// range the predator coasts on its current velocity.
func (p *Predator) Update(dt, predatorRange float64, prey []State, pursuit float64) {
	if predatorRange > 0 {
		rangeSq := predatorRange * predatorRange
		var sum geometry.Vector2D
		inRange := 0
		for _, b := range prey {
			if b.Pos.DistanceSquaredTo(p.Pos) < rangeSq {
				sum = sum.Add(b.Pos)
				inRange++
			}
		}
		if inRange > 0 {
			target := sum.Mul(1 / float64(inRange))
			p.Vel = p.Vel.Add(target.Sub(p.Pos).Mul(pursuit))
		}
	}
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
}

// Repel pushes the predator away from source, see Boid.Repel.
func (p *Predator) Repel(source geometry.Vector2D, repelRange, repelCoeff float64) geometry.Vector2D {
	push := repulsion(p.Pos, source, repelRange, repelCoeff)
	p.Vel = p.Vel.Add(push)
	return push
}
