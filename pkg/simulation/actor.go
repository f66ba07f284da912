package simulation

import (
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/types/known/structpb"
)

// WorldActor hosts a World inside the actor system. The game loop drives it
// by sending tick messages (Params encoded with Params.ToProto) and reads the
// resulting snapshots from a channel, so rendering never touches the live
// agent collections.
type WorldActor struct {
	world      *World
	params     Params
	snapshotCh chan<- *Snapshot
	logger     *zap.Logger

	// --- Benchmark Stats ---
	ticks     int
	dropped   int
	stepTime  time.Duration
	benchmark rate.Sometimes
}

var _ actor.Actor = (*WorldActor)(nil)

// NewWorldActor wraps world. params is the starting point for ticks that
// only carry part of the parameters.
func NewWorldActor(world *World, params Params, snapshotCh chan<- *Snapshot, logger *zap.Logger) *WorldActor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorldActor{
		world:      world,
		params:     params,
		snapshotCh: snapshotCh,
		logger:     logger.Named("world-actor"),
		benchmark:  rate.Sometimes{Interval: time.Second},
	}
}

func (w *WorldActor) PreStart(ctx *actor.Context) error {
	w.logger.Info("world actor starting",
		zap.Int("boids", len(w.world.Boids)),
		zap.Int("predators", len(w.world.Predators)))
	return nil
}

func (w *WorldActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		w.logger.Debug("world actor started", zap.String("name", ctx.Self().Name()))

	case *structpb.Struct:
		w.params = ParamsFromProto(msg, w.params)
		start := time.Now()
		if err := w.world.Step(w.params); err != nil {
			w.logger.Error("simulation step failed", zap.Error(err), zap.Uint64("tick", w.world.Tick()))
			return
		}
		w.stepTime += time.Since(start)
		w.ticks++
		w.pushSnapshot()
		w.logBenchmarks()

	default:
		ctx.Unhandled()
	}
}

func (w *WorldActor) PostStop(ctx *actor.Context) error {
	w.logger.Info("world actor stopped", zap.Uint64("ticks", w.world.Tick()))
	return nil
}

func (w *WorldActor) pushSnapshot() {
	if w.snapshotCh == nil {
		return
	}
	select {
	case w.snapshotCh <- w.world.Snapshot():
	default:
		// UI busy, skip frame
		w.dropped++
	}
}

// logBenchmarks reports the tick rate at most once per second.
func (w *WorldActor) logBenchmarks() {
	w.benchmark.Do(func() {
		stats := w.world.Stats()
		var avg time.Duration
		if w.ticks > 0 {
			avg = w.stepTime / time.Duration(w.ticks)
		}
		w.logger.Info("tick rate",
			zap.Int("ticks", w.ticks),
			zap.Int("droppedSnapshots", w.dropped),
			zap.Duration("avgStep", avg),
			zap.Float64("meanSpeed", stats.MeanSpeed),
			zap.Float64("stdDevSpeed", stats.StdDevSpeed))
		w.ticks, w.dropped, w.stepTime = 0, 0, 0
	})
}
