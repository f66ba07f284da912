// Command boids runs the flocking simulation, in a window or headless.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids/internal/logging"
	"github.com/lao-tseu-is-alive/go-boids/pkg/simulation"
)

// statsEvery is the number of headless ticks between two stats lines.
const statsEvery = 100

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:          "boids",
		Short:        "Quadtree accelerated flocking simulation with predators",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	f := cmd.Flags()
	f.StringP("config", "c", "", "simulation config file (.json or .toml), defaults are used when empty")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-format", logging.FormatConsole, "console log format (console or json)")
	f.String("log-file", "", "also write logs to this rotating file")
	f.String("log-file-format", logging.FormatJSON, "log file format (console or json)")
	f.Bool("headless", false, "run without a window")
	f.Int("steps", 1000, "number of ticks to run in headless mode")
	f.Uint64("seed", 0, "random seed, 0 picks one from the clock")
	f.Int("workers", -1, "boid update workers, 0 for GOMAXPROCS, -1 keeps the config value")

	_ = v.BindPFlags(f)
	v.SetEnvPrefix("BOIDS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = v.GetString("log-level")
	logCfg.Format = v.GetString("log-format")
	logCfg.File = v.GetString("log-file")
	logCfg.FileFormat = v.GetString("log-file-format")
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run", uuid.NewString()))

	cfg := simulation.DefaultConfig()
	if path := v.GetString("config"); path != "" {
		if cfg, err = simulation.LoadConfig(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		logger.Info("config loaded", zap.String("path", path))
	}
	if workers := v.GetInt("workers"); workers >= 0 {
		cfg.Workers = workers
	}

	seed := v.GetUint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	world, err := simulation.NewWorld(cfg, logger, seed)
	if err != nil {
		return err
	}
	logger.Info("world created",
		zap.Float64("width", cfg.WorldWidth),
		zap.Float64("height", cfg.WorldHeight),
		zap.Int("boids", cfg.NumBoids),
		zap.Int("predators", cfg.NumPredators),
		zap.String("boundary", cfg.Boundary),
		zap.Uint64("seed", seed))

	if v.GetBool("headless") {
		return runHeadless(ctx, world, v.GetInt("steps"), logger)
	}
	return runWindow(ctx, world, logger)
}

func runHeadless(ctx context.Context, world *simulation.World, steps int, logger *zap.Logger) error {
	params := world.Config().Params()
	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("interrupted", zap.Uint64("tick", world.Tick()))
			return nil
		}
		if err := world.Step(params); err != nil {
			return err
		}
		if world.Tick()%statsEvery == 0 {
			logStats(logger, world)
		}
	}
	elapsed := time.Since(start)
	var perTick time.Duration
	if steps > 0 {
		perTick = elapsed / time.Duration(steps)
	}
	logger.Info("headless run finished",
		zap.Uint64("ticks", world.Tick()),
		zap.Duration("elapsed", elapsed),
		zap.Duration("avgStep", perTick))
	logStats(logger, world)
	return nil
}

func logStats(logger *zap.Logger, world *simulation.World) {
	s := world.Stats()
	logger.Info("flock stats",
		zap.Uint64("tick", world.Tick()),
		zap.Float64("meanDistance", s.MeanDistance),
		zap.Float64("stdDevDistance", s.StdDevDistance),
		zap.Float64("meanSpeed", s.MeanSpeed),
		zap.Float64("stdDevSpeed", s.StdDevSpeed))
}

func runWindow(ctx context.Context, world *simulation.World, logger *zap.Logger) error {
	system, err := actor.NewActorSystem("BoidsWorld",
		actor.WithLogger(golog.DiscardLogger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("failed to start actor system: %w", err)
	}
	defer func() { _ = system.Stop(context.Background()) }()

	cfg := world.Config()
	snapshotCh := make(chan *simulation.Snapshot, 10) // Buffer to avoid blocking
	worldPID, err := system.Spawn(ctx, "world", simulation.NewWorldActor(world, cfg.Params(), snapshotCh, logger))
	if err != nil {
		return fmt.Errorf("failed to spawn world: %w", err)
	}

	ebiten.SetWindowSize(int(cfg.WorldWidth), int(cfg.WorldHeight))
	ebiten.SetWindowTitle("Boids")
	return ebiten.RunGame(newGame(ctx, cfg, worldPID, snapshotCh, logger))
}
