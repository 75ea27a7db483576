package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func mercator(pts ...orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = ToMercator(p)
	}
	return out
}

func TestDBSCAN(t *testing.T) {
	tests := []struct {
		name      string
		points    []orb.Point
		eps       float64
		minPoints int
		want      []int
	}{
		{
			name:      "pair and distant outlier",
			points:    mercator(orb.Point{0, 0}, orb.Point{0, 0}, orb.Point{0.45, 0}),
			eps:       10000,
			minPoints: 2,
			want:      []int{0, 0, Noise},
		},
		{
			name:      "single point is noise",
			points:    mercator(orb.Point{10, 10}),
			eps:       10000,
			minPoints: 2,
			want:      []int{Noise},
		},
		{
			name:      "minPoints one makes every point a cluster",
			points:    mercator(orb.Point{0, 0}, orb.Point{5, 5}),
			eps:       10000,
			minPoints: 1,
			want:      []int{0, 1},
		},
		{
			name:      "chain grows through core points",
			points:    []orb.Point{{0, 0}, {8, 0}, {16, 0}, {24, 0}, {100, 0}},
			eps:       10,
			minPoints: 2,
			want:      []int{0, 0, 0, 0, Noise},
		},
		{
			name:      "two separate groups",
			points:    []orb.Point{{0, 0}, {1, 0}, {50, 50}, {51, 50}, {52, 50}},
			eps:       2,
			minPoints: 2,
			want:      []int{0, 0, 1, 1, 1},
		},
		{
			name:      "border point joins cluster",
			points:    []orb.Point{{0, 0}, {1, 0}, {2, 0}, {3.5, 0}},
			eps:       1.5,
			minPoints: 3,
			want:      []int{0, 0, 0, 0},
		},
		{
			name:      "empty",
			points:    nil,
			eps:       1,
			minPoints: 2,
			want:      []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DBSCAN(tt.points, tt.eps, tt.minPoints)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDBSCANIdempotent(t *testing.T) {
	pts := mercator(orb.Point{100.5, 13.7}, orb.Point{100.51, 13.71}, orb.Point{100.9, 14.2}, orb.Point{100.91, 14.2})
	first := DBSCAN(pts, 10000, 2)
	second := DBSCAN(pts, 10000, 2)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("labels changed between runs: %v vs %v", first, second)
		}
	}
}

func TestConvexHull(t *testing.T) {
	t.Run("square with interior point", func(t *testing.T) {
		g := ConvexHull([]orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}})
		poly, ok := g.(orb.Polygon)
		if !ok {
			t.Fatalf("got %T, want orb.Polygon", g)
		}
		ring := poly[0]
		if len(ring) != 5 || !ring.Closed() {
			t.Fatalf("ring = %v", ring)
		}
		if ring.Orientation() != orb.CCW {
			t.Errorf("ring orientation = %v, want CCW", ring.Orientation())
		}
		if c := Centroid(g); math.Abs(c[0]-1) > 1e-9 || math.Abs(c[1]-1) > 1e-9 {
			t.Errorf("centroid = %v", c)
		}
	})

	t.Run("duplicates collapse to point", func(t *testing.T) {
		g := ConvexHull([]orb.Point{{3, 4}, {3, 4}})
		if p, ok := g.(orb.Point); !ok || p != (orb.Point{3, 4}) {
			t.Fatalf("got %#v", g)
		}
		if c := Centroid(g); c != (orb.Point{3, 4}) {
			t.Errorf("centroid = %v", c)
		}
	})

	t.Run("collinear gives segment", func(t *testing.T) {
		g := ConvexHull([]orb.Point{{0, 0}, {2, 2}, {1, 1}})
		ls, ok := g.(orb.LineString)
		if !ok || len(ls) != 2 {
			t.Fatalf("got %#v", g)
		}
		if c := Centroid(g); c != (orb.Point{1, 1}) {
			t.Errorf("centroid = %v", c)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if g := ConvexHull(nil); g != nil {
			t.Fatalf("got %#v", g)
		}
	})
}

func TestSphereDistance(t *testing.T) {
	// One degree of longitude at the equator on the PostGIS sphere.
	want := SphereRadius * math.Pi / 180
	got := SphereDistance(orb.Point{0, 0}, orb.Point{1, 0})
	if math.Abs(got-want) > 0.01 {
		t.Errorf("SphereDistance = %f, want %f", got, want)
	}
	if d := SphereDistance(orb.Point{0, 0}, orb.Point{0, 0.03}); d > 4000 {
		t.Errorf("~3.3km apart measured %f", d)
	}
}

func TestValidLonLat(t *testing.T) {
	if !ValidLonLat(100.5, 13.7) {
		t.Error("Bangkok rejected")
	}
	if ValidLonLat(181, 0) || ValidLonLat(0, -91) || ValidLonLat(math.NaN(), 0) {
		t.Error("out-of-range accepted")
	}
}
