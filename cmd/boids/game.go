package main

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tochemey/goakt/v3/actor"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-boids/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-boids/pkg/ui"
)

const (
	boidSize     = 6.0
	predatorSize = 10.0

	// 3 vertices per triangle, indices are uint16
	maxBatchTriangles = 65535 / 3
)

var (
	whiteImage    = ebiten.NewImage(3, 3)
	boidColor     = color.RGBA{R: 100, G: 200, B: 255, A: 255}
	predatorColor = color.RGBA{R: 255, G: 70, B: 50, A: 255}
	cellColor     = color.RGBA{R: 60, G: 60, B: 90, A: 255}
	cursorColor   = color.RGBA{R: 255, G: 255, B: 255, A: 60}
	rangeColor    = color.RGBA{R: 100, G: 200, B: 255, A: 120}
	sepColor      = color.RGBA{R: 255, G: 210, B: 80, A: 120}
	preyColor     = color.RGBA{R: 255, G: 70, B: 50, A: 120}
	background    = color.RGBA{R: 10, G: 10, B: 30, A: 255}
)

func init() {
	whiteImage.Fill(color.White)
}

// Game renders the snapshots pushed by the world actor and turns keyboard and
// mouse input into tick parameters.
type Game struct {
	ctx        context.Context
	cfg        *simulation.Config
	worldPID   *actor.PID
	snapshotCh <-chan *simulation.Snapshot
	lastState  *simulation.Snapshot
	params     simulation.Params
	paused     bool
	panel      *ui.Panel

	// range overlays drawn around the first boid
	showRange           bool
	showSeparationRange bool
	showPreyRange       bool
	logger     *zap.Logger

	vertices []ebiten.Vertex
	indices  []uint16

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64
}

func newGame(ctx context.Context, cfg *simulation.Config, worldPID *actor.PID, snapshotCh <-chan *simulation.Snapshot, logger *zap.Logger) *Game {
	g := &Game{
		ctx:        ctx,
		cfg:        cfg,
		worldPID:   worldPID,
		snapshotCh: snapshotCh,
		lastState:  &simulation.Snapshot{}, // Avoid nil pointer
		params:     cfg.Params(),
		logger:     logger.Named("game"),
	}
	g.panel = g.newPanel()
	return g
}

// newPanel binds the sliders to the tick parameters, the next tick message
// carries whatever they are set to.
func (g *Game) newPanel() *ui.Panel {
	p := &g.params
	panel := ui.NewPanel(10, 10, 240, "Configuration [Tab]")

	panel.AddSection("Flocking")
	panel.Add(ui.NewFloatSlider("Separation", 0, 0.2, &p.Coefficients.Separation))
	panel.Add(ui.NewFloatSlider("Cohesion", 0, 0.05, &p.Coefficients.Cohesion))
	panel.Add(ui.NewFloatSlider("Alignment", 0, 0.2, &p.Coefficients.Alignment))

	panel.AddSection("Ranges")
	panel.Add(ui.NewFloatSlider("Range", 0, 150, &p.Range))
	panel.Add(ui.NewFloatSlider("Separation range", 0, 60, &p.SeparationRange))
	panel.Add(ui.NewFloatSlider("Prey range", 0, 200, &p.PreyRange))

	panel.AddSection("Time step")
	panel.Add(ui.NewFloatSlider("Boids", 0.05, 2, &p.DeltaTBoid))
	panel.Add(ui.NewFloatSlider("Predators", 0.05, 2, &p.DeltaTPredator))

	panel.AddSection("Population")
	panel.Add(ui.NewIntSlider("Boids", 0, 5000, &p.NumBoids))
	panel.Add(ui.NewIntSlider("Predators", 0, 20, &p.NumPredators))

	panel.AddSection("Display")
	panel.Add(ui.NewCheckbox("Quadtree cells", &p.CaptureCells))
	panel.Add(ui.NewCheckbox("Show range", &g.showRange))
	panel.Add(ui.NewCheckbox("Show separation range", &g.showSeparationRange))
	panel.Add(ui.NewCheckbox("Show prey range", &g.showPreyRange))
	panel.Add(ui.NewButton(func() string {
		if g.paused {
			return "Resume [Space]"
		}
		return "Pause [Space]"
	}, func() { g.paused = !g.paused }))
	return panel
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	if g.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.handleInput()

	// Retrieve the latest state without blocking
	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
	}

	if g.paused {
		return nil
	}
	msg, err := g.params.ToProto()
	if err != nil {
		return err
	}
	if err := actor.Tell(g.ctx, g.worldPID, msg); err != nil {
		g.logger.Error("failed to send tick", zap.Error(err))
	}
	return nil
}

func (g *Game) handleInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.panel.Hidden = !g.panel.Hidden
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	overPanel := g.panel.Update()

	x, y := ebiten.CursorPosition()
	g.params.Cursor = geometry.NewVector(float64(x), float64(y))
	g.params.CursorActive = !overPanel && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(background)
	s := g.lastState

	for _, c := range s.Cells {
		lo := c.Min()
		vector.StrokeRect(screen, float32(lo.X), float32(lo.Y),
			float32(2*c.HalfWidth), float32(2*c.HalfHeight), 1, cellColor, false)
	}
	if g.params.CursorActive {
		vector.StrokeCircle(screen, float32(g.params.Cursor.X), float32(g.params.Cursor.Y),
			float32(g.cfg.RepelRange), 1, cursorColor, true)
	}
	for _, o := range g.rangeOverlays(s) {
		vector.StrokeCircle(screen, float32(o.center.X), float32(o.center.Y),
			float32(o.radius), 1, o.clr, true)
	}

	g.drawAgents(screen, s.Boids, boidSize, boidColor)
	g.drawAgents(screen, s.Predators, predatorSize, predatorColor)
	g.panel.Draw(screen)
	g.drawHUD(screen)
}

type overlay struct {
	center geometry.Vector2D
	radius float64
	clr    color.RGBA
}

// rangeOverlays lists the circles showing the ranges currently set on the
// panel, centered on the first boid of s.
func (g *Game) rangeOverlays(s *simulation.Snapshot) []overlay {
	if len(s.Boids) == 0 {
		return nil
	}
	center := s.Boids[0].Pos
	var out []overlay
	if g.showRange {
		out = append(out, overlay{center: center, radius: g.params.Range, clr: rangeColor})
	}
	if g.showSeparationRange {
		out = append(out, overlay{center: center, radius: g.params.SeparationRange, clr: sepColor})
	}
	if g.showPreyRange {
		out = append(out, overlay{center: center, radius: g.params.PreyRange, clr: preyColor})
	}
	return out
}

// drawAgents draws every agent as a triangle pointing along its velocity,
// batching as many triangles per DrawTriangles call as uint16 indices allow.
func (g *Game) drawAgents(screen *ebiten.Image, agents []behavior.State, size float64, clr color.RGBA) {
	r, gr, b, a := float32(clr.R)/255, float32(clr.G)/255, float32(clr.B)/255, float32(clr.A)/255
	for lo := 0; lo < len(agents); lo += maxBatchTriangles {
		hi := min(lo+maxBatchTriangles, len(agents))
		g.vertices, g.indices = g.vertices[:0], g.indices[:0]
		for _, st := range agents[lo:hi] {
			angle := st.Vel.Angle()
			tip := st.Pos.Add(geometry.NewVectorPolar(size, angle))
			right := st.Pos.Add(geometry.NewVectorPolar(size*0.8, angle+2.5))
			left := st.Pos.Add(geometry.NewVectorPolar(size*0.8, angle-2.5))

			base := uint16(len(g.vertices))
			for _, p := range [3]geometry.Vector2D{tip, right, left} {
				g.vertices = append(g.vertices, ebiten.Vertex{
					DstX: float32(p.X), DstY: float32(p.Y),
					SrcX: 1, SrcY: 1,
					ColorR: r, ColorG: gr, ColorB: b, ColorA: a,
				})
			}
			g.indices = append(g.indices, base, base+1, base+2)
		}
		screen.DrawTriangles(g.vertices, g.indices, whiteImage, &ebiten.DrawTrianglesOptions{})
	}
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	s := g.lastState
	state := "running"
	if g.paused {
		state = "paused"
	}
	msg := fmt.Sprintf("tick %d (%s)  boids %d  predators %d\n"+
		"distance %.1f +- %.1f  speed %.2f +- %.2f",
		s.Tick, state, len(s.Boids), len(s.Predators),
		s.Stats.MeanDistance, s.Stats.StdDevDistance, s.Stats.MeanSpeed, s.Stats.StdDevSpeed)
	ebitenutil.DebugPrintAt(screen, msg, 10, int(g.cfg.WorldHeight)-40)

	perf := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\n\nUpdate: %.2fms\nDraw:   %.2fms",
		ebiten.ActualFPS(), ebiten.ActualTPS(), g.updateAvg, g.drawAvg)
	ebitenutil.DebugPrintAt(screen, perf, int(g.cfg.WorldWidth)-150, 10)
}

func (g *Game) Layout(w, h int) (int, int) { return int(g.cfg.WorldWidth), int(g.cfg.WorldHeight) }
