package simulation

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids/pkg/geometry"
)

// testConfig is a small world without predators, speed limits or edges, so
// that expected states can be worked out by hand.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.WorldWidth, cfg.WorldHeight = 100, 100
	cfg.SpawnMargin = 10
	cfg.NumBoids, cfg.NumPredators = 0, 0
	cfg.MaxSpeed, cfg.PredatorMaxSpeed = 0, 0
	cfg.Boundary = BoundaryNone
	cfg.Workers = 1
	return cfg
}

func newTestWorld(t *testing.T, cfg *Config) *World {
	t.Helper()
	w, err := NewWorld(cfg, zap.NewNop(), 1)
	require.NoError(t, err)
	return w
}

func TestNewWorld(t *testing.T) {
	cfg := DefaultConfig()
	w := newTestWorld(t, cfg)
	assert.Len(t, w.Boids, cfg.NumBoids)
	assert.Len(t, w.Predators, cfg.NumPredators)
	assert.Equal(t, uint64(0), w.Tick())
	assert.Greater(t, w.Stats().MeanDistance, 0.0)

	for a := range w.Agents() {
		pos, vel := a.Position(), a.Velocity()
		assert.GreaterOrEqual(t, pos.X, cfg.SpawnMargin)
		assert.LessOrEqual(t, pos.X, cfg.WorldWidth-cfg.SpawnMargin)
		assert.GreaterOrEqual(t, pos.Y, cfg.SpawnMargin)
		assert.LessOrEqual(t, pos.Y, cfg.WorldHeight-cfg.SpawnMargin)
		assert.GreaterOrEqual(t, vel.X, cfg.MinRandVelocity)
		assert.LessOrEqual(t, vel.X, cfg.MaxRandVelocity)
	}

	bad := DefaultConfig()
	bad.CellCapacity = 0
	_, err := NewWorld(bad, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewWorld_SeedIsReproducible(t *testing.T) {
	a := newTestWorld(t, DefaultConfig())
	b := newTestWorld(t, DefaultConfig())
	assert.Equal(t, a.Boids, b.Boids)
	assert.Equal(t, a.Predators, b.Predators)
}

func TestStep_TwoBoidsCohesion(t *testing.T) {
	w := newTestWorld(t, testConfig())
	w.Boids = []behavior.Boid{
		{Pos: geometry.Vector2D{X: 0, Y: 0}},
		{Pos: geometry.Vector2D{X: 1, Y: 0}},
	}
	p := Params{
		DeltaTBoid:      1,
		DeltaTPredator:  1,
		Range:           2,
		SeparationRange: 0.5,
		Coefficients:    behavior.Coefficients{Cohesion: 1},
		NumBoids:        2,
	}
	require.NoError(t, w.Step(p))

	assert.Equal(t, uint64(1), w.Tick())
	assert.InDelta(t, 0.5, w.Boids[0].Vel.X, 1e-12)
	assert.InDelta(t, -0.5, w.Boids[1].Vel.X, 1e-12)
	for _, b := range w.Boids {
		assert.InDelta(t, 0.5, b.Pos.X, 1e-12)
		assert.InDelta(t, 0, b.Pos.Y, 1e-12)
	}
}

func TestStep_NegativeRangeMeansNoNeighbors(t *testing.T) {
	w := newTestWorld(t, testConfig())
	w.Boids = []behavior.Boid{
		{Pos: geometry.Vector2D{X: 20, Y: 20}, Vel: geometry.Vector2D{X: 1, Y: 0}},
		{Pos: geometry.Vector2D{X: 21, Y: 20}, Vel: geometry.Vector2D{X: 0, Y: 1}},
	}
	p := testConfig().Params()
	p.NumBoids = 2
	p.Range = -1
	p.Coefficients = behavior.Coefficients{Separation: 1, Cohesion: 1, Alignment: 1}
	require.NoError(t, w.Step(p))

	assert.Equal(t, geometry.Vector2D{X: 21, Y: 20}, w.Boids[0].Pos)
	assert.Equal(t, geometry.Vector2D{X: 21, Y: 21}, w.Boids[1].Pos)
}

// referenceStep updates boids the slow way: linear neighbor scan over a copy.
func referenceStep(boids []behavior.Boid, p Params) []behavior.Boid {
	before := make([]behavior.State, len(boids))
	for i := range boids {
		before[i] = boids[i].State()
	}
	out := append([]behavior.Boid(nil), boids...)
	for i := range out {
		var neighbors []behavior.State
		for j, s := range before {
			if j != i && s.Pos.DistanceSquaredTo(before[i].Pos) <= p.Range*p.Range {
				neighbors = append(neighbors, s)
			}
		}
		out[i].Update(p.DeltaTBoid, neighbors, p.SeparationRange, p.Coefficients)
	}
	return out
}

func TestStep_MatchesLinearScanReference(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig()
	cfg.WorldWidth, cfg.WorldHeight = 800, 800
	cfg.SpawnMargin = 100 // nobody leaves the indexed region within a few ticks
	cfg.NumBoids = 500
	cfg.Workers = 4
	w := newTestWorld(t, cfg)
	p := DefaultConfig().Params()
	p.NumBoids = cfg.NumBoids
	p.NumPredators = 0

	for tick := 0; tick < 5; tick++ {
		want := referenceStep(w.Boids, p)
		require.NoError(t, w.Step(p))
		require.Len(t, w.Boids, len(want))
		for i := range want {
			// neighbor order differs from the scan, so sums may round differently
			assert.InDelta(t, want[i].Pos.X, w.Boids[i].Pos.X, 1e-9, "tick %d boid %d", tick, i)
			assert.InDelta(t, want[i].Pos.Y, w.Boids[i].Pos.Y, 1e-9, "tick %d boid %d", tick, i)
			assert.InDelta(t, want[i].Vel.X, w.Boids[i].Vel.X, 1e-9, "tick %d boid %d", tick, i)
			assert.InDelta(t, want[i].Vel.Y, w.Boids[i].Vel.Y, 1e-9, "tick %d boid %d", tick, i)
		}
	}
}

func TestStep_WorkerCountDoesNotChangeResult(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	run := func(workers int) *World {
		cfg := DefaultConfig()
		cfg.NumBoids = 700
		cfg.Workers = workers
		w := newTestWorld(t, cfg)
		p := cfg.Params()
		p.Cursor, p.CursorActive = geometry.Vector2D{X: 500, Y: 400}, true
		for range 20 {
			require.NoError(t, w.Step(p))
		}
		return w
	}
	serial, parallel := run(1), run(8)
	if diff := cmp.Diff(serial.Snapshot(), parallel.Snapshot()); diff != "" {
		t.Errorf("parallel update diverged from serial update (-serial +parallel):\n%s", diff)
	}
}

func TestStep_StaysFinite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumBoids = 300
	w := newTestWorld(t, cfg)
	p := cfg.Params()
	for range 200 {
		require.NoError(t, w.Step(p))
	}
	assert.Equal(t, uint64(200), w.Tick())
	for a := range w.Agents() {
		assert.True(t, a.Position().IsFinite())
		assert.True(t, a.Velocity().IsFinite())
		assert.True(t, cfg.Region().Contains(a.Position()), "wrap keeps agents inside the world")
	}
	assert.LessOrEqual(t, w.Stats().MeanSpeed, cfg.MaxSpeed+1e-9)
}

func TestStep_PredatorChasesPrey(t *testing.T) {
	cfg := testConfig()
	cfg.PursuitCoeff = 0.1
	cfg.PreyToPredatorCoeff = 2
	w := newTestWorld(t, cfg)
	w.Boids = []behavior.Boid{{Pos: geometry.Vector2D{X: 15, Y: 10}}}
	w.Predators = []behavior.Predator{{Pos: geometry.Vector2D{X: 10, Y: 10}}}

	p := cfg.Params()
	p.NumBoids, p.NumPredators = 1, 1
	p.PreyRange = 5 // predator range 10, and the boid sits on the prey range border
	require.NoError(t, w.Step(p))

	assert.InDelta(t, 0.5, w.Predators[0].Vel.X, 1e-12)
	assert.InDelta(t, 0, w.Predators[0].Vel.Y, 1e-12)
	assert.Equal(t, geometry.Vector2D{X: 15, Y: 10}, w.Boids[0].Pos, "boid on the border does not flee")
}

func TestStep_BoidsFleePredators(t *testing.T) {
	cfg := testConfig()
	cfg.PredatorAvoidanceCoeff = 2
	w := newTestWorld(t, cfg)
	w.Boids = []behavior.Boid{{Pos: geometry.Vector2D{X: 50, Y: 50}}}
	w.Predators = []behavior.Predator{{Pos: geometry.Vector2D{X: 50, Y: 53}}}

	p := cfg.Params()
	p.NumBoids, p.NumPredators = 1, 1
	p.PreyRange = 10
	require.NoError(t, w.Step(p))

	// pushed straight up (away from a predator below it) by the avoidance coeff
	assert.InDelta(t, 0, w.Boids[0].Vel.X, 1e-12)
	assert.InDelta(t, -2, w.Boids[0].Vel.Y, 1e-12)
}

func TestStep_CursorRepelsEveryAgent(t *testing.T) {
	cfg := testConfig()
	cfg.RepelRange, cfg.RepelCoeff = 20, 1.5
	cfg.PursuitCoeff = 0
	w := newTestWorld(t, cfg)
	w.Boids = []behavior.Boid{
		{Pos: geometry.Vector2D{X: 40, Y: 50}},
		{Pos: geometry.Vector2D{X: 90, Y: 90}},
	}
	w.Predators = []behavior.Predator{{Pos: geometry.Vector2D{X: 60, Y: 50}}}

	p := cfg.Params()
	p.NumBoids, p.NumPredators = 2, 1
	p.PreyRange = 0
	p.Coefficients = behavior.Coefficients{}
	p.Cursor, p.CursorActive = geometry.Vector2D{X: 50, Y: 50}, true
	require.NoError(t, w.Step(p))

	assert.InDelta(t, -1.5, w.Boids[0].Vel.X, 1e-12)
	assert.Equal(t, geometry.Vector2D{}, w.Boids[1].Vel, "out of range")
	assert.InDelta(t, 1.5, w.Predators[0].Vel.X, 1e-12)

	p.CursorActive = false
	require.NoError(t, w.Step(p))
	assert.InDelta(t, -1.5, w.Boids[0].Vel.X, 1e-12, "inactive cursor leaves velocity alone")
}

func TestStep_BoundaryPolicies(t *testing.T) {
	tests := []struct {
		name     string
		boundary string
		pos, vel geometry.Vector2D
		wantPos  geometry.Vector2D
		wantVel  geometry.Vector2D
	}{
		{"wrap east", BoundaryWrap, geometry.Vector2D{X: 99.5, Y: 50}, geometry.Vector2D{X: 1, Y: 0},
			geometry.Vector2D{X: 0.5, Y: 50}, geometry.Vector2D{X: 1, Y: 0}},
		{"wrap north", BoundaryWrap, geometry.Vector2D{X: 50, Y: 0.5}, geometry.Vector2D{X: 0, Y: -1},
			geometry.Vector2D{X: 50, Y: 99.5}, geometry.Vector2D{X: 0, Y: -1}},
		{"turn near west edge", BoundaryTurn, geometry.Vector2D{X: 5, Y: 50}, geometry.Vector2D{X: -1, Y: 0},
			geometry.Vector2D{X: 4, Y: 50}, geometry.Vector2D{X: -0.5, Y: 0}},
		{"turn in the middle", BoundaryTurn, geometry.Vector2D{X: 50, Y: 50}, geometry.Vector2D{X: 1, Y: 1},
			geometry.Vector2D{X: 51, Y: 51}, geometry.Vector2D{X: 1, Y: 1}},
		{"none", BoundaryNone, geometry.Vector2D{X: 99.5, Y: 50}, geometry.Vector2D{X: 1, Y: 0},
			geometry.Vector2D{X: 100.5, Y: 50}, geometry.Vector2D{X: 1, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Boundary = tt.boundary
			cfg.EdgeMargin, cfg.TurnFactor = 10, 0.5
			w := newTestWorld(t, cfg)
			w.Boids = []behavior.Boid{{Pos: tt.pos, Vel: tt.vel}}

			p := cfg.Params()
			p.NumBoids = 1
			require.NoError(t, w.Step(p))
			assert.InDelta(t, tt.wantPos.X, w.Boids[0].Pos.X, 1e-9)
			assert.InDelta(t, tt.wantPos.Y, w.Boids[0].Pos.Y, 1e-9)
			assert.InDelta(t, tt.wantVel.X, w.Boids[0].Vel.X, 1e-9)
			assert.InDelta(t, tt.wantVel.Y, w.Boids[0].Vel.Y, 1e-9)
		})
	}
}

func TestStep_WrapSeesAcrossTheSeam(t *testing.T) {
	tests := []struct {
		name     string
		a, b     geometry.Vector2D
		wantVelA geometry.Vector2D
		wantPos  geometry.Vector2D
	}{
		{"east west", geometry.Vector2D{X: 1, Y: 50}, geometry.Vector2D{X: 99, Y: 50},
			geometry.Vector2D{X: -1, Y: 0}, geometry.Vector2D{X: 0, Y: 50}},
		{"corner", geometry.Vector2D{X: 1, Y: 1}, geometry.Vector2D{X: 99, Y: 99},
			geometry.Vector2D{X: -1, Y: -1}, geometry.Vector2D{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Boundary = BoundaryWrap
			w := newTestWorld(t, cfg)
			w.Boids = []behavior.Boid{{Pos: tt.a}, {Pos: tt.b}}
			p := Params{
				DeltaTBoid:      1,
				DeltaTPredator:  1,
				Range:           5,
				SeparationRange: 0.5,
				Coefficients:    behavior.Coefficients{Cohesion: 1},
				NumBoids:        2,
			}
			require.NoError(t, w.Step(p))

			assert.InDelta(t, tt.wantVelA.X, w.Boids[0].Vel.X, 1e-12)
			assert.InDelta(t, tt.wantVelA.Y, w.Boids[0].Vel.Y, 1e-12)
			assert.InDelta(t, -tt.wantVelA.X, w.Boids[1].Vel.X, 1e-12)
			assert.InDelta(t, -tt.wantVelA.Y, w.Boids[1].Vel.Y, 1e-12)
			for _, b := range w.Boids {
				assert.InDelta(t, tt.wantPos.X, b.Pos.X, 1e-12)
				assert.InDelta(t, tt.wantPos.Y, b.Pos.Y, 1e-12)
			}
		})
	}
}

func TestStep_WrapWideRangeCountsNeighborOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Boundary = BoundaryWrap
	w := newTestWorld(t, cfg)
	w.Boids = []behavior.Boid{
		{Pos: geometry.Vector2D{X: 10, Y: 50}},
		{Pos: geometry.Vector2D{X: 60, Y: 50}},
	}
	p := Params{
		DeltaTBoid:      1,
		DeltaTPredator:  1,
		Range:           60,
		SeparationRange: 0.5,
		Coefficients:    behavior.Coefficients{Cohesion: 1},
		NumBoids:        2,
	}
	require.NoError(t, w.Step(p))

	// both images of the other boid are in range, only one may count
	assert.InDelta(t, 25, w.Boids[0].Vel.X, 1e-12)
	assert.InDelta(t, -25, w.Boids[1].Vel.X, 1e-12)
	assert.InDelta(t, 35, w.Boids[0].Pos.X, 1e-12)
	assert.InDelta(t, 35, w.Boids[1].Pos.X, 1e-12)
}

func TestImageOffsets(t *testing.T) {
	cfg := testConfig()
	cfg.Boundary = BoundaryWrap
	w := newTestWorld(t, cfg)

	assert.Equal(t, []geometry.Vector2D{{}}, w.imageOffsets(geometry.Vector2D{X: 50, Y: 50}, 5, nil))
	assert.Equal(t, []geometry.Vector2D{{}, {X: 100}}, w.imageOffsets(geometry.Vector2D{X: 2, Y: 50}, 5, nil))
	assert.ElementsMatch(t,
		[]geometry.Vector2D{{}, {X: -100}, {Y: 100}, {X: -100, Y: 100}},
		w.imageOffsets(geometry.Vector2D{X: 97, Y: 3}, 5, nil))

	cfg.Boundary = BoundaryTurn
	assert.Equal(t, []geometry.Vector2D{{}}, w.imageOffsets(geometry.Vector2D{X: 2, Y: 2}, 5, nil))
}

func TestStep_BoidsOutsideTheWorldAreNotIndexed(t *testing.T) {
	w := newTestWorld(t, testConfig())
	w.Boids = []behavior.Boid{
		{Pos: geometry.Vector2D{X: 100.5, Y: 50}},
		{Pos: geometry.Vector2D{X: 99.5, Y: 50}},
	}
	p := testConfig().Params()
	p.NumBoids = 2
	p.Coefficients = behavior.Coefficients{Cohesion: 1}
	require.NoError(t, w.Step(p))

	// the outside boid still sees its neighbor, but nobody can see it
	assert.InDelta(t, -0.5, w.Boids[0].Vel.X, 1e-12)
	assert.Equal(t, geometry.Vector2D{}, w.Boids[1].Vel)
}

func TestStep_SpeedClamp(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSpeed, cfg.PredatorMaxSpeed = 2, 1
	w := newTestWorld(t, cfg)
	w.Boids = []behavior.Boid{{Pos: geometry.Vector2D{X: 50, Y: 50}, Vel: geometry.Vector2D{X: 3, Y: 4}}}
	w.Predators = []behavior.Predator{{Pos: geometry.Vector2D{X: 10, Y: 10}, Vel: geometry.Vector2D{X: 0, Y: 5}}}

	p := cfg.Params()
	p.NumBoids, p.NumPredators = 1, 1
	p.PreyRange = 0
	require.NoError(t, w.Step(p))
	assert.InDelta(t, 2, w.Boids[0].Vel.Len(), 1e-12)
	assert.InDelta(t, 1, w.Predators[0].Vel.Len(), 1e-12)
}

func TestStep_RespawnsNonFiniteAgents(t *testing.T) {
	w := newTestWorld(t, testConfig())
	w.Boids = []behavior.Boid{{Pos: geometry.Vector2D{X: 50, Y: 50}, Vel: geometry.Vector2D{X: math.Inf(1)}}}

	p := testConfig().Params()
	p.NumBoids = 1
	require.NoError(t, w.Step(p))
	assert.True(t, w.Boids[0].Pos.IsFinite())
	assert.True(t, w.Boids[0].Vel.IsFinite())
}

func TestResize(t *testing.T) {
	cfg := testConfig()
	cfg.NumBoids, cfg.NumPredators = 20, 2
	w := newTestWorld(t, cfg)
	predators := append([]behavior.Predator(nil), w.Predators...)

	w.Resize(35, 2)
	assert.Len(t, w.Boids, 35)
	assert.Equal(t, predators, w.Predators, "unchanged species keep their state")

	w.Resize(-3, 0)
	assert.Empty(t, w.Boids)
	assert.Empty(t, w.Predators)

	p := cfg.Params()
	p.NumBoids, p.NumPredators = 12, 1
	require.NoError(t, w.Step(p))
	assert.Len(t, w.Boids, 12)
	assert.Len(t, w.Predators, 1)
}

func TestSnapshot(t *testing.T) {
	cfg := testConfig()
	cfg.NumBoids, cfg.NumPredators = 50, 1
	w := newTestWorld(t, cfg)

	p := cfg.Params()
	require.NoError(t, w.Step(p))
	s := w.Snapshot()
	assert.Equal(t, uint64(1), s.Tick)
	assert.Len(t, s.Boids, 50)
	assert.Len(t, s.Predators, 1)
	assert.Nil(t, s.Cells, "cells are only captured on request")
	assert.Equal(t, w.Stats(), s.Stats)

	before := w.Boids[0].Pos
	s.Boids[0].Pos = geometry.Vector2D{X: -1000}
	assert.Equal(t, before, w.Boids[0].Pos, "snapshots must not alias the world")

	p.CaptureCells = true
	require.NoError(t, w.Step(p))
	s = w.Snapshot()
	require.NotEmpty(t, s.Cells)
	var area float64
	for _, c := range s.Cells {
		area += 4 * c.HalfWidth * c.HalfHeight
	}
	assert.InDelta(t, cfg.WorldWidth*cfg.WorldHeight, area, 1e-6)
}

func TestComputeStats(t *testing.T) {
	s, _, _ := computeStats(nil, nil, nil)
	assert.Equal(t, Stats{}, s)

	s, _, _ = computeStats([]behavior.Boid{{Pos: geometry.Vector2D{X: 3, Y: 4}, Vel: geometry.Vector2D{X: 1}}}, nil, nil)
	assert.Equal(t, Stats{MeanDistance: 5, MeanSpeed: 1}, s)

	boids := []behavior.Boid{
		{Pos: geometry.Vector2D{X: 3, Y: 4}, Vel: geometry.Vector2D{X: 1}},
		{Pos: geometry.Vector2D{X: 6, Y: 8}, Vel: geometry.Vector2D{Y: 3}},
	}
	s, d, v := computeStats(boids, make([]float64, 7), nil)
	assert.InDelta(t, 7.5, s.MeanDistance, 1e-12)
	assert.InDelta(t, math.Sqrt(12.5), s.StdDevDistance, 1e-12, "sample standard deviation")
	assert.InDelta(t, 2, s.MeanSpeed, 1e-12)
	assert.InDelta(t, math.Sqrt(2), s.StdDevSpeed, 1e-12)
	assert.Len(t, d, 2, "scratch slices are reset")
	assert.Len(t, v, 2)
}

func BenchmarkStep(b *testing.B) {
	cfg := DefaultConfig()
	cfg.NumBoids = 2000
	w, err := NewWorld(cfg, zap.NewNop(), 1)
	require.NoError(b, err)
	p := cfg.Params()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.Step(p)
	}
}
