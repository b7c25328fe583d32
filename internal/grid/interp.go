package grid

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Fill holds the extrapolation values substituted outside a table's native
// domain. Each response family fixes its own policy: an absorber that is
// opaque below its measured band and transparent above it uses {0, 1}, a
// table with no physical basis for extrapolation uses {0, 0}, and so on.
type Fill struct {
	Left  float64 // used for targets below the native minimum
	Right float64 // used for targets above the native maximum
}

var (
	// AbsorbBelowPassAbove: opaque below the table, transparent above it.
	// Thermal blanket, uniform Al, Al-mylar and the CMOS filters.
	AbsorbBelowPassAbove = Fill{Left: 0, Right: 1}
	// ZeroOutside: zero throughput anywhere off the table. Pixelated
	// attenuators, collimator ratios, quantum efficiencies.
	ZeroOutside = Fill{Left: 0, Right: 0}
)

// FlatBelowZeroAbove is the effective-area policy: flat below the lowest
// tabulated energy (first native value) and zero above the optic's band.
func FlatBelowZeroAbove(nativeY []float64) Fill {
	if len(nativeY) == 0 {
		return Fill{}
	}
	return Fill{Left: nativeY[0], Right: 0}
}

// Linear1D interpolates nativeY, sampled at strictly increasing nativeX,
// onto targetX. Targets below the native range get fill.Left, targets above
// get fill.Right, and a target exactly on a knot returns that knot's value.
func Linear1D(nativeX, nativeY, targetX []float64, fill Fill) ([]float64, error) {
	if len(nativeX) != len(nativeY) {
		return nil, fmt.Errorf("native curve length mismatch: %d x-values, %d y-values", len(nativeX), len(nativeY))
	}
	if len(nativeX) == 0 {
		return nil, fmt.Errorf("native curve is empty")
	}

	out := make([]float64, len(targetX))

	if len(nativeX) == 1 {
		for i, x := range targetX {
			switch {
			case x < nativeX[0]:
				out[i] = fill.Left
			case x > nativeX[0]:
				out[i] = fill.Right
			default:
				out[i] = nativeY[0]
			}
		}
		return out, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(nativeX, nativeY); err != nil {
		return nil, fmt.Errorf("fitting native curve: %w", err)
	}

	lo, hi := nativeX[0], nativeX[len(nativeX)-1]
	for i, x := range targetX {
		switch {
		case x < lo:
			out[i] = fill.Left
		case x > hi:
			out[i] = fill.Right
		default:
			out[i] = pl.Predict(x)
		}
	}
	return out, nil
}

// ClampNonNegative zeroes any negative entries in place and returns how many
// were clamped. Interpolation overshoot can push physically non-negative
// quantities slightly below zero.
func ClampNonNegative(vs []float64) int {
	n := 0
	for i, v := range vs {
		if v < 0 {
			vs[i] = 0
			n++
		}
	}
	return n
}
