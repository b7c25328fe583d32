// Package telescope wires calibration files into the concrete response
// chains of the payload's seven focal-plane positions.
//
// A Set binds a manifest.Context (which telescope uses which files) to the
// composition engine. Family constructors build single 1D elements with the
// extrapolation fill of their family; the position-level methods assemble
// them into ARF, RMF and DRM products.
//
// Manifest family keys consumed here:
//
//	thermal_blanket, uniform_al, al_mylar, pixelated, pixelated_model,
//	prefilter, obfilter, collimator, qe, optics, optics_model, optics_nagoya,
//	optics_nagoya_model, optics_tilt, optics_pan, atmosphere,
//	rmf (CMOS), rmf_<side>_<pitch>um_<event> (CdTe variants)
package telescope

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/caldb"
	"github.com/tamarlowe/respkit/internal/compose"
	"github.com/tamarlowe/respkit/internal/element"
	"github.com/tamarlowe/respkit/internal/grid"
	"github.com/tamarlowe/respkit/internal/units"
)

// Manifest resolves telescope names to positions and calibration file
// paths. *manifest.Context satisfies it; tests substitute a stub.
type Manifest interface {
	Path(telescope, family string) (string, error)
	Position(telescope string) (int, error)
	Telescopes() []string
}

// Set builds response products for the telescopes of one manifest.
type Set struct {
	man  Manifest
	log  zerolog.Logger
	comp *compose.Composer
}

// New binds a Set to a manifest with a no-op logger.
func New(man Manifest) *Set {
	return &Set{man: man, log: zerolog.Nop(), comp: compose.New()}
}

// WithLogger returns a copy of the Set that logs diagnostics to l.
func (s *Set) WithLogger(l zerolog.Logger) *Set {
	return &Set{man: s.man, log: l, comp: s.comp.WithLogger(l)}
}

// Telescopes lists the telescopes of the bound manifest, sorted.
func (s *Set) Telescopes() []string { return s.man.Telescopes() }

// curve1D loads a family's native CSV curve, resolves the target grid and
// interpolates with the family's fill.
func (s *Set) curve1D(kind element.Kind, name, tel, family string, mid axis.Axis, fill grid.Fill, yUnit units.Unit, meta element.Meta) (*element.Element1D, error) {
	path, err := s.man.Path(tel, family)
	if err != nil {
		return nil, err
	}
	c, err := caldb.LoadCSVCurve(path, units.KeV, yUnit)
	if err != nil {
		return nil, err
	}
	native := axis.New(c.X, c.XUnit)
	target, err := grid.Resolve(native, mid)
	if err != nil {
		return nil, err
	}
	values, err := grid.Linear1D(c.X, c.Y, target.Values, fill)
	if err != nil {
		return nil, err
	}
	if kind == element.EffectiveArea {
		grid.ClampNonNegative(values)
	}
	e, err := element.New1D(kind, name, target, values, yUnit, c.File, name, meta)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// constant1D builds an element holding one value across a grid, used to
// broadcast an angle-resolved scalar (the collimator ratio at one off-axis
// angle) onto an energy grid.
func constant1D(name string, mid axis.Axis, v float64, source string, meta element.Meta) (*element.Element1D, error) {
	values := make([]float64, mid.Len())
	for i := range values {
		values[i] = v
	}
	return element.New1D(element.Transmission, name, mid, values, units.Fraction, source, name, meta)
}

// Sigmoid is the analytic attenuator model l/(1+exp(-k*(E-x0))) + b,
// evaluated on the given midpoint grid. It has no backing file.
func Sigmoid(mid axis.Axis, l, x0, k, b float64) (*element.Element1D, error) {
	if mid.IsNative() {
		return nil, fmt.Errorf("sigmoid attenuator has no native grid; pass explicit energies")
	}
	values := make([]float64, mid.Len())
	for i, e := range mid.Values {
		values[i] = l/(1+math.Exp(-k*(e-x0))) + b
	}
	return element.New1D(element.Transmission, "Analytical-Sigmoid-Model", mid, values,
		units.Fraction, element.SyntheticSource, "Sigmoid", element.NoAngle(true))
}
