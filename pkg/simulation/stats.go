package simulation

import (
	"gonum.org/v1/gonum/stat"

	"github.com/lao-tseu-is-alive/go-boids/pkg/behavior"
)

// Stats describes the flock for display: distances are measured from the
// world origin, speeds are velocity norms.
type Stats struct {
	MeanDistance   float64 `json:"meanDistance"`
	StdDevDistance float64 `json:"stdDevDistance"`
	MeanSpeed      float64 `json:"meanSpeed"`
	StdDevSpeed    float64 `json:"stdDevSpeed"`
}

// computeStats reuses the two scratch slices to avoid allocating every tick.
func computeStats(boids []behavior.Boid, distances, speeds []float64) (Stats, []float64, []float64) {
	distances, speeds = distances[:0], speeds[:0]
	for i := range boids {
		distances = append(distances, boids[i].Pos.Len())
		speeds = append(speeds, boids[i].Vel.Len())
	}

	var s Stats
	switch len(boids) {
	case 0:
	case 1:
		s.MeanDistance, s.MeanSpeed = distances[0], speeds[0]
	default:
		s.MeanDistance, s.StdDevDistance = stat.MeanStdDev(distances, nil)
		s.MeanSpeed, s.StdDevSpeed = stat.MeanStdDev(speeds, nil)
	}
	return s, distances, speeds
}
