package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const checkboxSize = 16

// Checkbox toggles *value when its box is clicked.
type Checkbox struct {
	Label string
	value *bool
}

var _ Widget = (*Checkbox)(nil)

func NewCheckbox(label string, value *bool) *Checkbox {
	return &Checkbox{Label: label, value: value}
}

func (c *Checkbox) Value() bool { return *c.value }

func (c *Checkbox) Height() float64 { return checkboxSize + 6 }

func (c *Checkbox) HandlePointer(p Pointer, x, y, _ float64) {
	if p.JustPressed && p.in(x, y, checkboxSize, checkboxSize) {
		*c.value = !*c.value
	}
}

func (c *Checkbox) Draw(screen *ebiten.Image, x, y, _ float64) {
	vector.StrokeRect(screen, float32(x), float32(y), checkboxSize, checkboxSize, 2,
		color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
	if *c.value {
		vector.FillRect(screen, float32(x+4), float32(y+4), checkboxSize-8, checkboxSize-8,
			color.RGBA{R: 100, G: 200, B: 100, A: 255}, true)
	}
	ebitenutil.DebugPrintAt(screen, c.Label, int(x+checkboxSize+8), int(y))
}
