package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	titleHeight   = 25
	headerHeight  = 25
	headerBoxH    = 20
	panelPadding  = 10
	bottomPadding = 5
)

type section struct {
	title     string
	widgets   []Widget
	collapsed bool
}

// Panel stacks widgets in sections under a title. Clicking a section header
// collapses it.
type Panel struct {
	X, Y, Width float64
	Title       string
	Hidden      bool
	sections    []*section

	BGColor     color.RGBA
	BorderColor color.RGBA
	HeaderColor color.RGBA
}

func NewPanel(x, y, width float64, title string) *Panel {
	return &Panel{
		X:           x,
		Y:           y,
		Width:       width,
		Title:       title,
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
		HeaderColor: color.RGBA{R: 60, G: 60, B: 70, A: 255},
	}
}

// AddSection starts a new section, widgets added afterwards go into it.
func (p *Panel) AddSection(title string) {
	p.sections = append(p.sections, &section{title: title})
}

// Add appends w to the last section.
func (p *Panel) Add(w Widget) {
	if len(p.sections) == 0 {
		p.AddSection("")
	}
	s := p.sections[len(p.sections)-1]
	s.widgets = append(s.widgets, w)
}

func (p *Panel) Height() float64 {
	h := float64(titleHeight)
	for _, s := range p.sections {
		h += headerHeight
		if s.collapsed {
			continue
		}
		for _, w := range s.widgets {
			h += w.Height()
		}
	}
	return h + bottomPadding
}

// Contains reports whether (x, y) lies on the visible panel.
func (p *Panel) Contains(x, y float64) bool {
	return !p.Hidden && x >= p.X && x <= p.X+p.Width && y >= p.Y && y <= p.Y+p.Height()
}

// Update feeds the current pointer to the widgets. It reports whether the
// pointer is over the panel, in which case the click belongs to the panel.
func (p *Panel) Update() bool {
	return p.HandlePointer(CurrentPointer())
}

// HandlePointer is Update with an explicit pointer.
func (p *Panel) HandlePointer(ptr Pointer) bool {
	if !p.Contains(ptr.X, ptr.Y) {
		return false
	}
	p.layout(func(s *section, headerY float64) {
		if ptr.JustPressed && ptr.in(p.X, headerY, p.Width, headerBoxH) {
			s.collapsed = !s.collapsed
		}
	}, func(w Widget, x, y, width float64) {
		w.HandlePointer(ptr, x, y, width)
	})
	return true
}

func (p *Panel) Draw(screen *ebiten.Image) {
	if p.Hidden {
		return
	}
	h := float32(p.Height())
	vector.FillRect(screen, float32(p.X), float32(p.Y), float32(p.Width), h, p.BGColor, true)
	vector.StrokeRect(screen, float32(p.X), float32(p.Y), float32(p.Width), h, 2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+panelPadding), int(p.Y+5))

	p.layout(func(s *section, headerY float64) {
		vector.FillRect(screen, float32(p.X+5), float32(headerY), float32(p.Width-10), headerBoxH, p.HeaderColor, true)
		marker := "-"
		if s.collapsed {
			marker = "+"
		}
		ebitenutil.DebugPrintAt(screen, marker+" "+s.title, int(p.X+panelPadding), int(headerY+3))
	}, func(w Widget, x, y, width float64) {
		w.Draw(screen, x, y, width)
	})
}

// layout walks sections and visible widgets top to bottom. Header callbacks
// run before the section's widgets are laid out, so a collapse toggled there
// applies from the same frame.
func (p *Panel) layout(header func(s *section, y float64), widget func(w Widget, x, y, width float64)) {
	x, width := p.X+panelPadding, p.Width-2*panelPadding
	y := p.Y + titleHeight
	for _, s := range p.sections {
		header(s, y)
		y += headerHeight
		if s.collapsed {
			continue
		}
		for _, w := range s.widgets {
			widget(w, x, y, width)
			y += w.Height()
		}
	}
}
