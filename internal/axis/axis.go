// Package axis implements the energy/angle/time axes that response elements
// are defined on: an ordered slice of values with an explicit unit, used
// either as bin edges (length N+1 for N bins) or bin midpoints (length N).
package axis

import (
	"fmt"
	"math"

	"github.com/tamarlowe/respkit/internal/units"
)

// Axis is an ordered sequence of values tagged with a physical unit.
// Axes are value objects: operations return new axes and never modify the
// receiver's backing slice.
type Axis struct {
	Values []float64
	Unit   units.Unit
}

// New builds an axis from values and a unit. The values slice is used as-is;
// callers hand over ownership.
func New(values []float64, unit units.Unit) Axis {
	return Axis{Values: values, Unit: unit}
}

// Native is the "use the calibration file's own grid" sentinel: an axis whose
// every element is NaN. Callers pass it to request the native resolution of
// whatever table backs the element being built.
func Native(unit units.Unit) Axis {
	return Axis{Values: []float64{math.NaN()}, Unit: unit}
}

// IsNative reports whether the axis is the all-NaN sentinel.
func (a Axis) IsNative() bool {
	if len(a.Values) == 0 {
		return false
	}
	for _, v := range a.Values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Len returns the number of values on the axis.
func (a Axis) Len() int { return len(a.Values) }

// ConvertTo returns the axis expressed in a different unit of the same
// dimension. A dimension mismatch is a units.MismatchError.
func (a Axis) ConvertTo(u units.Unit) (Axis, error) {
	vs, err := units.ConvertSlice(a.Values, a.Unit, u)
	if err != nil {
		return Axis{}, err
	}
	return Axis{Values: vs, Unit: u}, nil
}

// ValidateEdges checks the bin-edge invariant: at least two values, strictly
// monotonically increasing.
func ValidateEdges(a Axis) error {
	if len(a.Values) < 2 {
		return fmt.Errorf("edge axis needs at least 2 values, got %d", len(a.Values))
	}
	for i := 1; i < len(a.Values); i++ {
		if !(a.Values[i] > a.Values[i-1]) {
			return fmt.Errorf("edge axis not strictly increasing at index %d: %v >= %v",
				i, a.Values[i-1], a.Values[i])
		}
	}
	return nil
}

// Midpoints derives bin midpoints from bin edges as the pairwise average of
// adjacent edges. This is an exact derivation, not a resample: consumers that
// need "the energies this product is defined at" get bit-identical values
// every time.
func Midpoints(edges Axis) Axis {
	mids := make([]float64, len(edges.Values)-1)
	for i := range mids {
		mids[i] = (edges.Values[i] + edges.Values[i+1]) / 2
	}
	return Axis{Values: mids, Unit: edges.Unit}
}

// EdgesFromLoHi joins the per-bin (lo, hi) pair arrays of a calibration file
// into one edge array of length N+1 by appending the final hi value to the
// lo values.
func EdgesFromLoHi(lo, hi []float64, unit units.Unit) (Axis, error) {
	if len(lo) == 0 || len(lo) != len(hi) {
		return Axis{}, fmt.Errorf("lo/hi edge arrays must be equal non-zero length, got %d and %d", len(lo), len(hi))
	}
	vs := make([]float64, len(lo)+1)
	copy(vs, lo)
	vs[len(lo)] = hi[len(hi)-1]
	a := Axis{Values: vs, Unit: unit}
	if err := ValidateEdges(a); err != nil {
		return Axis{}, err
	}
	return a, nil
}

// Equal reports exact element-wise equality of two axes, unit included.
// Composition uses exact comparison deliberately: an ARF is built at an RMF's
// own midpoints, so anything short of bitwise agreement means the caller
// resampled somewhere they should not have.
func Equal(a, b Axis) bool {
	if a.Unit != b.Unit || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return false
		}
	}
	return true
}

// Flight grid constants: the default energy binning used when building
// products that are not tied to a specific RMF.
const (
	flightGridLo    = 0.5
	flightGridHi    = 100.0
	flightGridPitch = 0.0445
)

// FlightEdges returns the default flight energy bin edges, 0.5 keV upward in
// 0.0445 keV steps to just below 100 keV.
func FlightEdges() Axis {
	var vs []float64
	for i := 0; ; i++ {
		v := flightGridLo + float64(i)*flightGridPitch
		if v >= flightGridHi {
			break
		}
		vs = append(vs, v)
	}
	return Axis{Values: vs, Unit: units.KeV}
}

// FlightMidpoints returns the midpoints of FlightEdges.
func FlightMidpoints() Axis {
	return Midpoints(FlightEdges())
}
