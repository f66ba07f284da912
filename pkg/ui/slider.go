package ui

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	labelHeight  = 16
	sliderBarH   = 12
	sliderMargin = 8
)

// Slider edits a number between Min and Max by clicking or dragging on its bar.
type Slider struct {
	Label    string
	Min, Max float64
	format   string
	get      func() float64
	set      func(float64)
}

var _ Widget = (*Slider)(nil)

// NewFloatSlider binds a slider to *v.
func NewFloatSlider(label string, min, max float64, v *float64) *Slider {
	return &Slider{
		Label:  label,
		Min:    min,
		Max:    max,
		format: "%s: %.4g",
		get:    func() float64 { return *v },
		set:    func(f float64) { *v = f },
	}
}

// NewIntSlider binds a slider to *v, rounding to the nearest integer.
func NewIntSlider(label string, min, max int, v *int) *Slider {
	return &Slider{
		Label:  label,
		Min:    float64(min),
		Max:    float64(max),
		format: "%s: %.0f",
		get:    func() float64 { return float64(*v) },
		set:    func(f float64) { *v = int(math.Round(f)) },
	}
}

func (s *Slider) Value() float64 { return s.get() }

func (s *Slider) Height() float64 { return labelHeight + sliderBarH + sliderMargin }

func (s *Slider) HandlePointer(p Pointer, x, y, width float64) {
	if !p.Pressed || !p.in(x, y+labelHeight, width, sliderBarH) || width <= 0 {
		return
	}
	ratio := (p.X - x) / width
	s.set(min(max(s.Min+ratio*(s.Max-s.Min), s.Min), s.Max))
}

func (s *Slider) Draw(screen *ebiten.Image, x, y, width float64) {
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf(s.format, s.Label, s.get()), int(x), int(y))

	barY := float32(y + labelHeight)
	vector.FillRect(screen, float32(x), barY, float32(width), sliderBarH, color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)

	ratio := 0.0
	if s.Max > s.Min {
		ratio = min(max((s.get()-s.Min)/(s.Max-s.Min), 0), 1)
	}
	vector.FillRect(screen, float32(x), barY, float32(width*ratio), sliderBarH, color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
}
