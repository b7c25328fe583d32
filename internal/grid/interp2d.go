package grid

import (
	"fmt"
	"sort"
)

// Surface is a table of values on a rectangular grid of control points,
// Z[i][j] sampled at (Xs[i], Ys[j]). Both coordinate slices must be strictly
// increasing. It backs the angle-resolved optics tables (energy x off-axis
// angle) and the atmospheric transmission table (energy x time).
type Surface struct {
	Xs []float64
	Ys []float64
	Z  [][]float64
}

// NewSurface validates the control-point grid.
func NewSurface(xs, ys []float64, z [][]float64) (*Surface, error) {
	if len(xs) < 2 || len(ys) < 2 {
		return nil, fmt.Errorf("surface needs at least a 2x2 grid, got %dx%d", len(xs), len(ys))
	}
	if !sort.Float64sAreSorted(xs) || !sort.Float64sAreSorted(ys) {
		return nil, fmt.Errorf("surface control points must be sorted ascending")
	}
	if len(z) != len(xs) {
		return nil, fmt.Errorf("surface has %d value rows for %d x control points", len(z), len(xs))
	}
	for i, row := range z {
		if len(row) != len(ys) {
			return nil, fmt.Errorf("surface row %d has %d values for %d y control points", i, len(row), len(ys))
		}
	}
	return &Surface{Xs: xs, Ys: ys, Z: z}, nil
}

// InHull reports whether (x, y) lies inside the rectangular hull of the
// control points.
func (s *Surface) InHull(x, y float64) bool {
	return x >= s.Xs[0] && x <= s.Xs[len(s.Xs)-1] &&
		y >= s.Ys[0] && y <= s.Ys[len(s.Ys)-1]
}

// Bilinear evaluates the surface at (x, y) by bilinear interpolation on the
// enclosing cell. Points outside the hull are evaluated against the nearest
// cell (a linear extension) and flagged: the second return is false when the
// query point required extrapolation. Callers decide what an out-of-hull
// value means for their family; the surface does not silently zero-fill.
func (s *Surface) Bilinear(x, y float64) (float64, bool) {
	i := cellIndex(s.Xs, x)
	j := cellIndex(s.Ys, y)

	x0, x1 := s.Xs[i], s.Xs[i+1]
	y0, y1 := s.Ys[j], s.Ys[j+1]
	tx := (x - x0) / (x1 - x0)
	ty := (y - y0) / (y1 - y0)

	v := s.Z[i][j]*(1-tx)*(1-ty) +
		s.Z[i+1][j]*tx*(1-ty) +
		s.Z[i][j+1]*(1-tx)*ty +
		s.Z[i+1][j+1]*tx*ty
	return v, s.InHull(x, y)
}

// Nearest evaluates the surface at (x, y) by nearest-neighbour lookup. Used
// where the control grid is fine enough that interpolation order does not
// matter (the flight atmosphere table).
func (s *Surface) Nearest(x, y float64) float64 {
	return s.Z[nearestIndex(s.Xs, x)][nearestIndex(s.Ys, y)]
}

// cellIndex returns the index of the grid cell [vs[i], vs[i+1]] that should
// be used to evaluate at v, clamping to the first/last cell outside the grid.
func cellIndex(vs []float64, v float64) int {
	i := sort.SearchFloat64s(vs, v)
	switch {
	case i <= 0:
		return 0
	case i >= len(vs):
		return len(vs) - 2
	case vs[i] == v && i < len(vs)-1:
		return i
	default:
		return i - 1
	}
}

func nearestIndex(vs []float64, v float64) int {
	i := sort.SearchFloat64s(vs, v)
	if i <= 0 {
		return 0
	}
	if i >= len(vs) {
		return len(vs) - 1
	}
	if v-vs[i-1] <= vs[i]-v {
		return i - 1
	}
	return i
}
