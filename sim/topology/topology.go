// Package topology places nodes on a plane and derives who can hear whom.
// Partner sets are computed once before a run and never change during it.
package topology

import (
	"fmt"
	"math"
	"math/rand"
)

// Coordinate is a point on the simulation plane.
type Coordinate struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between c and o.
func (c Coordinate) Distance(o Coordinate) float64 {
	return math.Hypot(c.X-o.X, c.Y-o.Y)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", c.X, c.Y)
}

// PointProcess generates node locations.
type PointProcess interface {
	Points(rng *rand.Rand) []Coordinate
}

// Grid places nodes on a regular lattice covering Width x Height.
type Grid struct {
	Spacing float64
	Width   float64
	Height  float64
}

// Points returns lattice points row by row, starting at the origin.
func (g Grid) Points(_ *rand.Rand) []Coordinate {
	if g.Spacing <= 0 {
		return nil
	}
	var pts []Coordinate
	for y := 0.0; y <= g.Height+1e-9; y += g.Spacing {
		for x := 0.0; x <= g.Width+1e-9; x += g.Spacing {
			pts = append(pts, Coordinate{X: x, Y: y})
		}
	}
	return pts
}

// Poisson scatters a Poisson-distributed number of nodes uniformly over Width x Height.
type Poisson struct {
	Density float64 // expected nodes per unit area
	Width   float64
	Height  float64
}

// Points draws the node count and positions from rng.
func (p Poisson) Points(rng *rand.Rand) []Coordinate {
	n := poissonCount(rng, p.Density*p.Width*p.Height)
	pts := make([]Coordinate, n)
	for i := range pts {
		pts[i] = Coordinate{X: rng.Float64() * p.Width, Y: rng.Float64() * p.Height}
	}
	return pts
}

// poissonCount samples a Poisson variate by summing exponential gaps.
func poissonCount(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	n := 0
	for acc := rng.ExpFloat64(); acc < lambda; acc += rng.ExpFloat64() {
		n++
	}
	return n
}

// Partners returns, for every point, the indices of the other points within
// radius. The relation is symmetric and excludes self. Indices are ascending.
func Partners(points []Coordinate, radius float64) [][]int {
	partners := make([][]int, len(points))
	for i := range points {
		for j := range points {
			if i == j {
				continue
			}
			if points[i].Distance(points[j]) <= radius {
				partners[i] = append(partners[i], j)
			}
		}
	}
	return partners
}

// LogDistance returns ln(distance) between a and b when they are transmit
// partners, and +Inf otherwise. The cost is negative for links shorter than 1.
func LogDistance(a, b Coordinate, partners bool) float64 {
	if !partners {
		return math.Inf(1)
	}
	return math.Log(a.Distance(b))
}

// MeanLinkCost averages LogDistance over every directed partner link.
// Returns 0 when there are no links.
func MeanLinkCost(points []Coordinate, partners [][]int) float64 {
	total, links := 0.0, 0
	for i, ps := range partners {
		for _, j := range ps {
			total += LogDistance(points[i], points[j], true)
			links++
		}
	}
	if links == 0 {
		return 0
	}
	return total / float64(links)
}
