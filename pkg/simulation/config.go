package simulation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lao-tseu-is-alive/go-boids/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids/pkg/geometry"
)

// Boundary policies applied at the end of every tick.
const (
	BoundaryWrap = "wrap" // toroidal world
	BoundaryTurn = "turn" // soft turn inside edgeMargin
	BoundaryNone = "none" // agents may leave; they are no longer indexed
)

var ErrInvalidConfig = errors.New("invalid simulation config")

//go:embed config.schema.json
var configSchema string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

type Config struct {
	// World Dimensions
	WorldWidth  float64 `json:"worldWidth"`
	WorldHeight float64 `json:"worldHeight"`

	// Population
	NumBoids     int `json:"numBoids"`
	NumPredators int `json:"numPredators"`

	// Spatial index
	CellCapacity int `json:"cellCapacity"`
	MaxTreeDepth int `json:"maxTreeDepth"`

	// Interaction ranges
	Range               float64 `json:"range"`           // neighborhood radius of a boid
	SeparationRange     float64 `json:"separationRange"` // personal space radius
	PreyRange           float64 `json:"preyRange"`       // boids flee predators closer than this
	PreyToPredatorCoeff float64 `json:"preyToPredatorCoeff"`

	// Flocking
	SeparationCoeff float64 `json:"separationCoeff"`
	CohesionCoeff   float64 `json:"cohesionCoeff"`
	AlignmentCoeff  float64 `json:"alignmentCoeff"`

	PursuitCoeff           float64 `json:"pursuitCoeff"`
	RepelRange             float64 `json:"repelRange"` // cursor
	RepelCoeff             float64 `json:"repelCoeff"`
	PredatorAvoidanceCoeff float64 `json:"predatorAvoidanceCoeff"`

	// Time step of each species
	DeltaTBoid     float64 `json:"deltaTBoid"`
	DeltaTPredator float64 `json:"deltaTPredator"`

	// Speed clamps, 0 disables them
	MaxSpeed         float64 `json:"maxSpeed"`
	PredatorMaxSpeed float64 `json:"predatorMaxSpeed"`

	Boundary   string  `json:"boundary"`
	EdgeMargin float64 `json:"edgeMargin"`
	TurnFactor float64 `json:"turnFactor"`

	// Spawning
	MinRandVelocity float64 `json:"minRandVelocity"`
	MaxRandVelocity float64 `json:"maxRandVelocity"`
	SpawnMargin     float64 `json:"spawnMargin"`

	// Workers for the boid update pass, 0 means runtime.GOMAXPROCS
	Workers int `json:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		WorldWidth:             1000,
		WorldHeight:            800,
		NumBoids:               400,
		NumPredators:           3,
		CellCapacity:           4,
		MaxTreeDepth:           16,
		Range:                  45,
		SeparationRange:        15,
		PreyRange:              60,
		PreyToPredatorCoeff:    2,
		SeparationCoeff:        0.05,
		CohesionCoeff:          0.01,
		AlignmentCoeff:         0.05,
		PursuitCoeff:           0.002,
		RepelRange:             80,
		RepelCoeff:             1.5,
		PredatorAvoidanceCoeff: 0.8,
		DeltaTBoid:             1,
		DeltaTPredator:         1,
		MaxSpeed:               4,
		PredatorMaxSpeed:       3.5,
		Boundary:               BoundaryWrap,
		EdgeMargin:             100,
		TurnFactor:             0.2,
		MinRandVelocity:        -2,
		MaxRandVelocity:        2,
		SpawnMargin:            50,
	}
}

// Region is the area indexed by the quadtree, the whole world.
func (c *Config) Region() geometry.Rectangle {
	return geometry.RectangleFromSize(c.WorldWidth, c.WorldHeight)
}

// PredatorRange derives the pursuit radius of predators from the prey range.
func (c *Config) PredatorRange(preyRange float64) float64 {
	return c.PreyToPredatorCoeff * preyRange
}

// Params returns the per tick parameters matching this config, with no
// cursor interaction.
func (c *Config) Params() Params {
	return Params{
		DeltaTBoid:      c.DeltaTBoid,
		DeltaTPredator:  c.DeltaTPredator,
		Range:           c.Range,
		SeparationRange: c.SeparationRange,
		PreyRange:       c.PreyRange,
		Coefficients: behavior.Coefficients{
			Separation: c.SeparationCoeff,
			Cohesion:   c.CohesionCoeff,
			Alignment:  c.AlignmentCoeff,
		},
		NumBoids:     c.NumBoids,
		NumPredators: c.NumPredators,
	}
}

// Validate checks the invariants the engine relies on. LoadConfig already
// enforces them through the schema, this covers configs built in code.
func (c *Config) Validate() error {
	var errs []error
	if !c.Region().Valid() {
		errs = append(errs, fmt.Errorf("world size %vx%v must be positive", c.WorldWidth, c.WorldHeight))
	}
	if c.CellCapacity < 1 {
		errs = append(errs, fmt.Errorf("cellCapacity %d must be at least 1", c.CellCapacity))
	}
	if c.MaxTreeDepth < 1 {
		errs = append(errs, fmt.Errorf("maxTreeDepth %d must be at least 1", c.MaxTreeDepth))
	}
	if c.NumBoids < 0 || c.NumPredators < 0 {
		errs = append(errs, fmt.Errorf("populations must not be negative (%d boids, %d predators)", c.NumBoids, c.NumPredators))
	}
	if c.DeltaTBoid <= 0 || c.DeltaTPredator <= 0 {
		errs = append(errs, fmt.Errorf("time steps must be positive (%v, %v)", c.DeltaTBoid, c.DeltaTPredator))
	}
	if c.MinRandVelocity > c.MaxRandVelocity {
		errs = append(errs, fmt.Errorf("minRandVelocity %v above maxRandVelocity %v", c.MinRandVelocity, c.MaxRandVelocity))
	}
	if 2*c.SpawnMargin >= c.WorldWidth || 2*c.SpawnMargin >= c.WorldHeight {
		errs = append(errs, fmt.Errorf("spawnMargin %v leaves no room to spawn", c.SpawnMargin))
	}
	switch c.Boundary {
	case BoundaryWrap, BoundaryTurn, BoundaryNone:
	default:
		errs = append(errs, fmt.Errorf("unknown boundary %q", c.Boundary))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("config.schema.json", configSchema)
	})
	return compiledSchema, schemaErr
}

// LoadConfig reads a JSON or TOML (by extension) config file, validates it
// against the embedded schema and overlays it on DefaultConfig.
func LoadConfig(configFile string) (*Config, error) {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(b, filepath.Ext(configFile))
}

// ParseConfig is LoadConfig on an in-memory document. format is a file
// extension, ".toml" selects TOML and anything else JSON.
func ParseConfig(data []byte, format string) (*Config, error) {
	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	if strings.EqualFold(format, ".toml") {
		var doc map[string]interface{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode config toml: %w", err)
		}
		// The schema validator works on JSON values, so TOML goes through JSON.
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to convert config toml: %w", err)
		}
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
