// Package element defines the immutable response-element value objects that
// the composition engine consumes: named, unit-tagged 1D curves
// (transmissions, effective areas, quantum efficiencies) and the 2D
// redistribution matrix.
//
// Every element family is an explicit Kind tag, so handling is exhaustive
// per variant rather than guessed from which fields happen to be present.
// Elements are never mutated after construction; the one exception is the
// function path, an append-only audit trail of the producing call chain.
package element

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/units"
)

// Kind tags a response-element family.
type Kind string

const (
	Transmission         Kind = "transmission"
	EffectiveArea        Kind = "effective-area"
	QuantumEfficiency    Kind = "quantum-efficiency"
	RedistributionMatrix Kind = "redistribution-matrix"
)

// SyntheticSource is the source identifier for elements computed from an
// analytic model rather than a calibration file.
const SyntheticSource = "synthetic"

// Meta carries the per-element bookkeeping that is not part of the numeric
// contract: which off-axis angle was used, whether the curve is a model or a
// measurement, and any out-of-hull diagnostics from 2D interpolation.
type Meta struct {
	// OffAxisAngle in arcmin; NaN when the family is not angle-resolved.
	OffAxisAngle float64
	// Model is true when the values come from a modelled curve rather than
	// a measurement.
	Model bool
	// ExtrapolatedPoints counts queried points that fell outside the convex
	// hull of a 2D control grid. Non-zero values are surfaced as a warning
	// by the constructors; they are never silently zero-filled.
	ExtrapolatedPoints int
}

// NoAngle is the Meta for families without an off-axis-angle dependence.
func NoAngle(model bool) Meta {
	return Meta{OffAxisAngle: math.NaN(), Model: model}
}

// Element1D is a named, unit-tagged 1D response curve sampled at energy (or
// angle) midpoints.
type Element1D struct {
	Kind     Kind
	Name     string // family label, e.g. "Thermal-Blanket"
	Energies axis.Axis
	Values   []float64
	Unit     units.Unit
	Source   string // producing filename, or SyntheticSource
	Meta     Meta

	functionPath []string
}

// New1D validates and builds a 1D element. Transmissions and quantum
// efficiencies must lie in [0, 1]; the extrapolation fills of 0 and 1 are the
// permitted edge values. Effective areas must be non-negative (interpolation
// overshoot is clamped before construction).
func New1D(kind Kind, name string, energies axis.Axis, values []float64, unit units.Unit, source, producer string, meta Meta) (*Element1D, error) {
	if kind == RedistributionMatrix {
		return nil, fmt.Errorf("element %q: redistribution matrices are 2D", name)
	}
	if len(values) != energies.Len() {
		return nil, fmt.Errorf("element %q: %d values on a %d-point grid", name, len(values), energies.Len())
	}
	switch kind {
	case Transmission, QuantumEfficiency:
		for i, v := range values {
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("element %q: %s value %v at index %d outside [0, 1]", name, kind, v, i)
			}
		}
	case EffectiveArea:
		for i, v := range values {
			if v < 0 {
				return nil, fmt.Errorf("element %q: negative effective area %v at index %d", name, v, i)
			}
		}
	}
	return &Element1D{
		Kind:         kind,
		Name:         name,
		Energies:     energies,
		Values:       values,
		Unit:         unit,
		Source:       source,
		Meta:         meta,
		functionPath: []string{producer},
	}, nil
}

// AppendFunction records a wrapper in the element's producing call chain.
// The audit trail is append-only.
func (e *Element1D) AppendFunction(name string) {
	e.functionPath = append(e.functionPath, name)
}

// FunctionPath returns a copy of the producing call chain, outermost last.
func (e *Element1D) FunctionPath() []string {
	out := make([]string, len(e.functionPath))
	copy(out, e.functionPath)
	return out
}

// Element2D is a decoded redistribution matrix together with its two
// energy-edge axes: input (photon) rows by output (count) columns.
type Element2D struct {
	Name        string
	InputEdges  axis.Axis // photon axis, length N+1
	OutputEdges axis.Axis // count axis, length M+1
	Matrix      *mat.Dense // shape (N, M), counts per incident photon
	Unit        units.Unit
	Source      string
	Telescope   string

	functionPath []string
}

// New2D validates and builds a redistribution-matrix element. The matrix
// shape must match the two edge axes and every entry must be non-negative.
func New2D(name string, inputEdges, outputEdges axis.Axis, m *mat.Dense, source, producer string) (*Element2D, error) {
	if err := axis.ValidateEdges(inputEdges); err != nil {
		return nil, fmt.Errorf("element %q input edges: %w", name, err)
	}
	if err := axis.ValidateEdges(outputEdges); err != nil {
		return nil, fmt.Errorf("element %q output edges: %w", name, err)
	}
	r, c := m.Dims()
	if r != inputEdges.Len()-1 || c != outputEdges.Len()-1 {
		return nil, fmt.Errorf("element %q: matrix is %dx%d for %d photon bins and %d count bins",
			name, r, c, inputEdges.Len()-1, outputEdges.Len()-1)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) < 0 {
				return nil, fmt.Errorf("element %q: negative response %v at (%d, %d)", name, m.At(i, j), i, j)
			}
		}
	}
	return &Element2D{
		Name:         name,
		InputEdges:   inputEdges,
		OutputEdges:  outputEdges,
		Matrix:       m,
		Unit:         units.CtPerPh,
		Source:       source,
		functionPath: []string{producer},
	}, nil
}

// AppendFunction records a wrapper in the element's producing call chain.
func (e *Element2D) AppendFunction(name string) {
	e.functionPath = append(e.functionPath, name)
}

// FunctionPath returns a copy of the producing call chain, outermost last.
func (e *Element2D) FunctionPath() []string {
	out := make([]string, len(e.functionPath))
	copy(out, e.functionPath)
	return out
}

// MidEnergies returns the photon-axis bin midpoints the matrix rows are
// defined at. Derived exactly from the edges on every call.
func (e *Element2D) MidEnergies() axis.Axis {
	return axis.Midpoints(e.InputEdges)
}

// Mix linearly combines redistribution matrices sharing identical axes:
// sum_i w[i]*m[i]. Used to blend event-type responses (e.g. 1-hit and 2-hit
// triggers) into one effective matrix.
func Mix(weights []float64, elems []*Element2D) (*Element2D, error) {
	if len(weights) != len(elems) || len(elems) == 0 {
		return nil, fmt.Errorf("mix needs equal non-zero numbers of weights and matrices, got %d and %d", len(weights), len(elems))
	}
	first := elems[0]
	for _, e := range elems[1:] {
		if !axis.Equal(first.InputEdges, e.InputEdges) || !axis.Equal(first.OutputEdges, e.OutputEdges) {
			return nil, fmt.Errorf("mix: matrices %q and %q are on different energy axes", first.Name, e.Name)
		}
	}
	r, c := first.Matrix.Dims()
	sum := mat.NewDense(r, c, nil)
	var scaled mat.Dense
	for i, e := range elems {
		scaled.Scale(weights[i], e.Matrix)
		sum.Add(sum, &scaled)
	}
	mixed, err := New2D(first.Name+"-mixed", first.InputEdges, first.OutputEdges, sum, first.Source, "Mix")
	if err != nil {
		return nil, err
	}
	mixed.Telescope = first.Telescope
	return mixed, nil
}
