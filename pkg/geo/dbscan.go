// Package geo holds the planar geometry used when clustering runs outside PostGIS.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Noise is the label DBSCAN assigns to points that belong to no cluster.
const Noise = -1

const unvisited = -2

// ToMercator projects a WGS84 lon/lat point into EPSG:3857 meters.
func ToMercator(p orb.Point) orb.Point {
	return project.WGS84.ToMercator(p)
}

// DBSCAN labels planar points with density-based clustering. eps is the neighborhood
// radius in the points' units and minPoints counts the point itself. Labels are
// 0..k-1 in discovery order, or Noise. Border points go to the first cluster that
// reaches them, so input order decides ties.
func DBSCAN(points []orb.Point, eps float64, minPoints int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}
	if len(points) == 0 {
		return labels
	}

	idx := newGridIndex(points, eps)
	cluster := 0

	for i := range points {
		if labels[i] != unvisited {
			continue
		}

		neighbors := idx.neighbors(i)
		if len(neighbors) < minPoints {
			labels[i] = Noise
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), neighbors...)
		for q := 0; q < len(queue); q++ {
			j := queue[q]
			if labels[j] == Noise {
				labels[j] = cluster
				continue
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster

			if jn := idx.neighbors(j); len(jn) >= minPoints {
				queue = append(queue, jn...)
			}
		}
		cluster++
	}

	return labels
}

type cellKey struct{ x, y int64 }

// gridIndex buckets points into eps-sized cells so a neighborhood query only
// inspects the 3x3 block around a point.
type gridIndex struct {
	points []orb.Point
	eps    float64
	size   float64
	cells  map[cellKey][]int
}

func newGridIndex(points []orb.Point, eps float64) *gridIndex {
	size := eps
	if size <= 0 {
		size = 1
	}
	g := &gridIndex{
		points: points,
		eps:    eps,
		size:   size,
		cells:  make(map[cellKey][]int),
	}
	for i, p := range points {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *gridIndex) key(p orb.Point) cellKey {
	return cellKey{
		x: int64(math.Floor(p[0] / g.size)),
		y: int64(math.Floor(p[1] / g.size)),
	}
}

// neighbors returns every index within eps of point i, including i.
func (g *gridIndex) neighbors(i int) []int {
	p := g.points[i]
	k := g.key(p)
	eps2 := g.eps * g.eps

	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, j := range g.cells[cellKey{k.x + dx, k.y + dy}] {
				q := g.points[j]
				ddx, ddy := p[0]-q[0], p[1]-q[1]
				if ddx*ddx+ddy*ddy <= eps2 {
					out = append(out, j)
				}
			}
		}
	}
	return out
}
