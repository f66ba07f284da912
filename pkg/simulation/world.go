package simulation

import (
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lao-tseu-is-alive/go-boids/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-boids/pkg/quadtree"
)

// minChunk is the smallest number of boids worth handing to a worker.
const minChunk = 64

// World owns both agent collections and advances them one tick at a time.
// It is not safe for concurrent use: the WorldActor serializes access to it.
type World struct {
	Boids     []behavior.Boid
	Predators []behavior.Predator

	cfg     *Config
	logger  *zap.Logger
	rng     *rand.Rand
	workers int
	tick    uint64

	// Snapshot of the current tick, taken before any agent moves.
	boidsBefore     []behavior.State
	predatorsBefore []behavior.State

	cells     []geometry.Rectangle
	stats     Stats
	distances []float64
	speeds    []float64
}

// Snapshot is a copy of the world state safe to hand to another goroutine.
type Snapshot struct {
	Tick      uint64               `json:"tick"`
	Boids     []behavior.State     `json:"boids"`
	Predators []behavior.State     `json:"predators"`
	Cells     []geometry.Rectangle `json:"cells,omitempty"`
	Stats     Stats                `json:"stats"`
}

// NewWorld validates cfg and spawns its initial populations from seed.
func NewWorld(cfg *Config, logger *zap.Logger, seed uint64) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	w := &World{
		cfg:     cfg,
		logger:  logger.Named("world"),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		workers: workers,
		Boids:   []behavior.Boid{},
	}
	w.Resize(cfg.NumBoids, cfg.NumPredators)
	w.stats, w.distances, w.speeds = computeStats(w.Boids, nil, nil)
	return w, nil
}

// Tick is the number of completed steps.
func (w *World) Tick() uint64 {
	return w.tick
}

// Stats describes the flock after the last tick.
func (w *World) Stats() Stats {
	return w.stats
}

func (w *World) Config() *Config {
	return w.cfg
}

// Agents yields every boid then every predator.
func (w *World) Agents() iter.Seq[behavior.Agent] {
	return func(yield func(behavior.Agent) bool) {
		for i := range w.Boids {
			if !yield(&w.Boids[i]) {
				return
			}
		}
		for i := range w.Predators {
			if !yield(&w.Predators[i]) {
				return
			}
		}
	}
}

// Resize respawns a species whose requested count differs from its current
// one. Species with an unchanged count keep their state. Negative counts are
// treated as zero.
func (w *World) Resize(numBoids, numPredators int) {
	numBoids, numPredators = max(numBoids, 0), max(numPredators, 0)
	if numBoids != len(w.Boids) {
		w.Boids = w.Boids[:0]
		for range numBoids {
			pos, vel := w.spawn()
			w.Boids = append(w.Boids, behavior.Boid{Pos: pos, Vel: vel})
		}
		w.logger.Debug("boids spawned", zap.Int("count", numBoids), zap.Uint64("tick", w.tick))
	}
	if numPredators != len(w.Predators) {
		w.Predators = w.Predators[:0]
		for range numPredators {
			pos, vel := w.spawn()
			w.Predators = append(w.Predators, behavior.Predator{Pos: pos, Vel: vel})
		}
		w.logger.Debug("predators spawned", zap.Int("count", numPredators), zap.Uint64("tick", w.tick))
	}
}

// spawn draws a position inside the spawn margin and a random velocity.
func (w *World) spawn() (geometry.Vector2D, geometry.Vector2D) {
	c := w.cfg
	uniform := func(a, b float64) float64 { return a + w.rng.Float64()*(b-a) }
	pos := geometry.Vector2D{
		X: uniform(c.SpawnMargin, c.WorldWidth-c.SpawnMargin),
		Y: uniform(c.SpawnMargin, c.WorldHeight-c.SpawnMargin),
	}
	vel := geometry.Vector2D{
		X: uniform(c.MinRandVelocity, c.MaxRandVelocity),
		Y: uniform(c.MinRandVelocity, c.MaxRandVelocity),
	}
	return pos, vel
}

// Step advances the world by one tick:
//
//  1. snapshot every agent,
//  2. build the quadtree from the boid snapshot,
//  3. update boids in parallel, each from its range query over the snapshot,
//  4. update predators against the boid snapshot,
//  5. apply cursor repulsion, then make boids flee the predators,
//  6. enforce the boundary policy and speed limits.
//
// The quadtree only lives for the duration of the call.
func (w *World) Step(p Params) error {
	w.Resize(p.NumBoids, p.NumPredators)
	w.takeSnapshot()

	tree, err := quadtree.New(w.cfg.CellCapacity, w.cfg.Region(), quadtree.WithMaxDepth(w.cfg.MaxTreeDepth))
	if err != nil {
		return fmt.Errorf("failed to build spatial index: %w", err)
	}
	dropped := 0
	for i, s := range w.boidsBefore {
		if !tree.Insert(i, s.Pos) {
			dropped++
		}
	}
	if dropped > 0 {
		w.logger.Debug("boids outside the indexed region", zap.Int("count", dropped), zap.Uint64("tick", w.tick))
	}

	if err := w.updateBoids(tree, p); err != nil {
		return err
	}

	predatorRange := w.cfg.PredatorRange(p.PreyRange)
	for i := range w.Predators {
		w.Predators[i].Update(p.DeltaTPredator, predatorRange, w.boidsBefore, w.cfg.PursuitCoeff)
	}

	w.repel(p)
	w.confine()

	if p.CaptureCells {
		w.cells = tree.Leaves()
	} else {
		w.cells = nil
	}
	w.recoverNonFinite()
	w.stats, w.distances, w.speeds = computeStats(w.Boids, w.distances, w.speeds)
	w.tick++
	return nil
}

func (w *World) takeSnapshot() {
	w.boidsBefore = w.boidsBefore[:0]
	for i := range w.Boids {
		w.boidsBefore = append(w.boidsBefore, w.Boids[i].State())
	}
	w.predatorsBefore = w.predatorsBefore[:0]
	for i := range w.Predators {
		w.predatorsBefore = append(w.predatorsBefore, w.Predators[i].State())
	}
}

// updateBoids splits the boids in contiguous chunks, one per worker. Workers
// share the read-only tree and snapshot and each writes its own chunk only.
func (w *World) updateBoids(tree *quadtree.Tree, p Params) error {
	n := len(w.Boids)
	workers := min(w.workers, (n+minChunk-1)/minChunk)
	if workers <= 1 {
		w.updateBoidRange(tree, p, 0, n)
		return nil
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			w.updateBoidRange(tree, p, lo, hi)
			return nil
		})
	}
	return g.Wait()
}

func (w *World) updateBoidRange(tree *quadtree.Tree, p Params, lo, hi int) {
	ids := make([]int, 0, 32)
	neighbors := make([]behavior.State, 0, 32)
	offsets := make([]geometry.Vector2D, 0, 4)
	var seen map[int]int
	for i := lo; i < hi; i++ {
		origin := w.boidsBefore[i].Pos
		offsets = w.imageOffsets(origin, p.Range, offsets)
		wrapped := len(offsets) > 1
		if wrapped {
			if seen == nil {
				seen = make(map[int]int)
			}
			clear(seen)
		}
		neighbors = neighbors[:0]
		for _, off := range offsets {
			ids = tree.Query(p.Range, origin.Add(off), i, ids[:0])
			for _, id := range ids {
				s := w.boidsBefore[id]
				s.Pos = s.Pos.Sub(off)
				if !wrapped {
					neighbors = append(neighbors, s)
					continue
				}
				// keep the nearest image when a wide range sees a boid twice
				if k, ok := seen[id]; ok {
					if s.Pos.DistanceSquaredTo(origin) < neighbors[k].Pos.DistanceSquaredTo(origin) {
						neighbors[k] = s
					}
					continue
				}
				seen[id] = len(neighbors)
				neighbors = append(neighbors, s)
			}
		}
		w.Boids[i].Update(p.DeltaTBoid, neighbors, p.SeparationRange, p.Coefficients)
	}
}

// imageOffsets lists the translations at which the tree must be queried so
// that a disc of radius r around origin sees across the seams of a wrapping
// world. The identity always comes first and is the only offset for the
// other boundary policies. Neighbors found at offset o are moved by -o into
// the frame of origin.
func (w *World) imageOffsets(origin geometry.Vector2D, r float64, out []geometry.Vector2D) []geometry.Vector2D {
	out = append(out[:0], geometry.Vector2D{})
	if w.cfg.Boundary != BoundaryWrap || r < 0 {
		return out
	}
	var xs, ys [3]float64
	nx := seamShifts(origin.X, r, w.cfg.WorldWidth, xs[:1])
	ny := seamShifts(origin.Y, r, w.cfg.WorldHeight, ys[:1])
	for _, dx := range nx {
		for _, dy := range ny {
			if dx != 0 || dy != 0 {
				out = append(out, geometry.Vector2D{X: dx, Y: dy})
			}
		}
	}
	return out
}

// seamShifts appends to shifts, which holds 0, the axis translations under
// which [v-r, v+r] overlaps [0, size] across a seam.
func seamShifts(v, r, size float64, shifts []float64) []float64 {
	if v-r < 0 {
		shifts = append(shifts, size)
	}
	if v+r > size {
		shifts = append(shifts, -size)
	}
	return shifts
}

// repel runs the repulsion pass. Boids flee the predators where they stood
// at the beginning of the tick.
func (w *World) repel(p Params) {
	if p.CursorActive {
		for a := range w.Agents() {
			a.Repel(p.Cursor, w.cfg.RepelRange, w.cfg.RepelCoeff)
		}
	}
	for i := range w.Boids {
		for _, predator := range w.predatorsBefore {
			w.Boids[i].Repel(predator.Pos, p.PreyRange, w.cfg.PredatorAvoidanceCoeff)
		}
	}
}

// confine applies the boundary policy and the speed limits.
func (w *World) confine() {
	for i := range w.Boids {
		b := &w.Boids[i]
		b.Pos, b.Vel = w.bound(b.Pos, b.Vel)
		b.Vel = b.Vel.ClampLen(w.cfg.MaxSpeed)
	}
	for i := range w.Predators {
		p := &w.Predators[i]
		p.Pos, p.Vel = w.bound(p.Pos, p.Vel)
		p.Vel = p.Vel.ClampLen(w.cfg.PredatorMaxSpeed)
	}
}

func (w *World) bound(pos, vel geometry.Vector2D) (geometry.Vector2D, geometry.Vector2D) {
	c := w.cfg
	switch c.Boundary {
	case BoundaryWrap:
		pos.X = wrap(pos.X, c.WorldWidth)
		pos.Y = wrap(pos.Y, c.WorldHeight)
	case BoundaryTurn:
		if pos.X < c.EdgeMargin {
			vel.X += c.TurnFactor
		}
		if pos.X > c.WorldWidth-c.EdgeMargin {
			vel.X -= c.TurnFactor
		}
		if pos.Y < c.EdgeMargin {
			vel.Y += c.TurnFactor
		}
		if pos.Y > c.WorldHeight-c.EdgeMargin {
			vel.Y -= c.TurnFactor
		}
	}
	return pos, vel
}

// wrap maps v into [0, size).
func wrap(v, size float64) float64 {
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	if v >= size { // -tiny + size rounds to size
		v = 0
	}
	return v
}

// recoverNonFinite respawns agents whose state overflowed, which only happens
// with coefficients far outside their useful range.
func (w *World) recoverNonFinite() {
	respawned := 0
	for i := range w.Boids {
		if !w.Boids[i].Pos.IsFinite() || !w.Boids[i].Vel.IsFinite() {
			w.Boids[i].Pos, w.Boids[i].Vel = w.spawn()
			respawned++
		}
	}
	for i := range w.Predators {
		if !w.Predators[i].Pos.IsFinite() || !w.Predators[i].Vel.IsFinite() {
			w.Predators[i].Pos, w.Predators[i].Vel = w.spawn()
			respawned++
		}
	}
	if respawned > 0 {
		w.logger.Warn("respawned agents with non finite state, check the coefficients",
			zap.Int("count", respawned), zap.Uint64("tick", w.tick))
	}
}

// Snapshot copies the current state.
func (w *World) Snapshot() *Snapshot {
	s := &Snapshot{
		Tick:      w.tick,
		Boids:     make([]behavior.State, len(w.Boids)),
		Predators: make([]behavior.State, len(w.Predators)),
		Stats:     w.stats,
	}
	for i := range w.Boids {
		s.Boids[i] = w.Boids[i].State()
	}
	for i := range w.Predators {
		s.Predators[i] = w.Predators[i].State()
	}
	if len(w.cells) > 0 {
		s.Cells = append([]geometry.Rectangle(nil), w.cells...)
	}
	return s
}
