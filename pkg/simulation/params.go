package simulation

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lao-tseu-is-alive/go-boids/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids/pkg/geometry"
)

// Params are the tunable inputs of a single tick. The UI builds a new value
// for every frame instead of mutating shared globals.
type Params struct {
	DeltaTBoid     float64
	DeltaTPredator float64

	Range           float64
	SeparationRange float64
	PreyRange       float64
	Coefficients    behavior.Coefficients

	// Requested populations, the world respawns a species when they change.
	NumBoids     int
	NumPredators int

	// Cursor repulsion, only applied while CursorActive is set.
	Cursor       geometry.Vector2D
	CursorActive bool

	// CaptureCells asks the world to keep the quadtree leaves in the snapshot.
	CaptureCells bool
}

// proto field names
const (
	fieldDeltaTBoid      = "deltaTBoid"
	fieldDeltaTPredator  = "deltaTPredator"
	fieldRange           = "range"
	fieldSeparationRange = "separationRange"
	fieldPreyRange       = "preyRange"
	fieldSeparation      = "separationCoeff"
	fieldCohesion        = "cohesionCoeff"
	fieldAlignment       = "alignmentCoeff"
	fieldNumBoids        = "numBoids"
	fieldNumPredators    = "numPredators"
	fieldCursorX         = "cursorX"
	fieldCursorY         = "cursorY"
	fieldCursorActive    = "cursorActive"
	fieldCaptureCells    = "captureCells"
)

// ToProto converts the parameters into the message sent to the world actor.
func (p Params) ToProto() (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		fieldDeltaTBoid:      p.DeltaTBoid,
		fieldDeltaTPredator:  p.DeltaTPredator,
		fieldRange:           p.Range,
		fieldSeparationRange: p.SeparationRange,
		fieldPreyRange:       p.PreyRange,
		fieldSeparation:      p.Coefficients.Separation,
		fieldCohesion:        p.Coefficients.Cohesion,
		fieldAlignment:       p.Coefficients.Alignment,
		fieldNumBoids:        p.NumBoids,
		fieldNumPredators:    p.NumPredators,
		fieldCursorX:         p.Cursor.X,
		fieldCursorY:         p.Cursor.Y,
		fieldCursorActive:    p.CursorActive,
		fieldCaptureCells:    p.CaptureCells,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tick params: %w", err)
	}
	return s, nil
}

// ParamsFromProto reads a tick message. Fields missing from the message keep
// the value they have in base, so a sender may only send what changed.
func ParamsFromProto(s *structpb.Struct, base Params) Params {
	p := base
	if s == nil {
		return p
	}
	f := s.GetFields()
	number := func(name string, dst *float64) {
		if v, ok := f[name]; ok {
			if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
				*dst = v.GetNumberValue()
			}
		}
	}
	integer := func(name string, dst *int) {
		n := float64(*dst)
		number(name, &n)
		*dst = int(n)
	}
	boolean := func(name string, dst *bool) {
		if v, ok := f[name]; ok {
			if _, isBool := v.GetKind().(*structpb.Value_BoolValue); isBool {
				*dst = v.GetBoolValue()
			}
		}
	}

	number(fieldDeltaTBoid, &p.DeltaTBoid)
	number(fieldDeltaTPredator, &p.DeltaTPredator)
	number(fieldRange, &p.Range)
	number(fieldSeparationRange, &p.SeparationRange)
	number(fieldPreyRange, &p.PreyRange)
	number(fieldSeparation, &p.Coefficients.Separation)
	number(fieldCohesion, &p.Coefficients.Cohesion)
	number(fieldAlignment, &p.Coefficients.Alignment)
	integer(fieldNumBoids, &p.NumBoids)
	integer(fieldNumPredators, &p.NumPredators)
	number(fieldCursorX, &p.Cursor.X)
	number(fieldCursorY, &p.Cursor.Y)
	boolean(fieldCursorActive, &p.CursorActive)
	boolean(fieldCaptureCells, &p.CaptureCells)
	return p
}
