// Package ui draws the control panel of the simulation window: collapsible
// sections of sliders, checkboxes and buttons bound directly to the values
// they edit.
//
// Widgets do not store their position. The panel lays them out top to bottom
// every frame and hands each one its rectangle, so collapsing a section simply
// moves everything below it.
package ui

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Pointer is the left mouse button state for one frame.
type Pointer struct {
	X, Y        float64
	Pressed     bool // held down
	JustPressed bool // went down this frame
}

// CurrentPointer reads the pointer from ebiten. It must be called from the
// game Update.
func CurrentPointer() Pointer {
	x, y := ebiten.CursorPosition()
	return Pointer{
		X:           float64(x),
		Y:           float64(y),
		Pressed:     ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		JustPressed: inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
	}
}

func (p Pointer) in(x, y, w, h float64) bool {
	return p.X >= x && p.X <= x+w && p.Y >= y && p.Y <= y+h
}

// Widget is anything the panel can stack.
type Widget interface {
	Height() float64
	HandlePointer(p Pointer, x, y, width float64)
	Draw(screen *ebiten.Image, x, y, width float64)
}
