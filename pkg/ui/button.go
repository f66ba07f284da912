package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const buttonHeight = 22

// Button calls OnClick once per click. Label is evaluated at every draw so
// it can reflect state, like Pause and Resume.
type Button struct {
	Label   func() string
	OnClick func()
	hover   bool

	BGColor    color.RGBA
	HoverColor color.RGBA
}

var _ Widget = (*Button)(nil)

func NewButton(label func() string, onClick func()) *Button {
	return &Button{
		Label:      label,
		OnClick:    onClick,
		BGColor:    color.RGBA{R: 80, G: 120, B: 180, A: 255},
		HoverColor: color.RGBA{R: 100, G: 150, B: 220, A: 255},
	}
}

func (b *Button) Height() float64 { return buttonHeight + 6 }

func (b *Button) HandlePointer(p Pointer, x, y, width float64) {
	b.hover = p.in(x, y, width, buttonHeight)
	if b.hover && p.JustPressed && b.OnClick != nil {
		b.OnClick()
	}
}

func (b *Button) Draw(screen *ebiten.Image, x, y, width float64) {
	bg := b.BGColor
	if b.hover {
		bg = b.HoverColor
	}
	vector.FillRect(screen, float32(x), float32(y), float32(width), buttonHeight, bg, true)
	ebitenutil.DebugPrintAt(screen, b.Label(), int(x+8), int(y+4))
}
