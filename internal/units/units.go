// Package units provides the minimal physical-unit tagging needed by the
// response products: every axis and value array carries a Unit, and converting
// between units of different dimensions is an error, not a silent cast.
//
// This is deliberately not a general unit system. The response chain only
// ever deals in energies, angles, areas, times and dimensionless fractions,
// so a unit is a named scale factor on one of those dimensions.
package units

import (
	"errors"
	"fmt"
)

// Dimension identifies the physical dimension of a Unit.
type Dimension string

const (
	Energy          Dimension = "energy"
	Angle           Dimension = "angle"
	Area            Dimension = "area"
	Time            Dimension = "time"
	Dimensionless   Dimension = "dimensionless"
	CountsPerPhoton Dimension = "counts-per-photon"
	// AreaCountsPerPhoton is the dimension of a full detector response
	// matrix, an effective area folded through a redistribution matrix.
	AreaCountsPerPhoton Dimension = "area-counts-per-photon"
)

// Unit is a named scale on a Dimension. Two units are convertible iff their
// dimensions match; conversion multiplies by the ratio of the scale factors.
type Unit struct {
	Name  string
	Dim   Dimension
	Scale float64 // size of this unit in the dimension's base unit
}

// The units used by the calibration files in scope. Energies are based in
// keV, angles in arcmin, areas in cm^2, times in seconds.
var (
	KeV = Unit{Name: "keV", Dim: Energy, Scale: 1}
	EV  = Unit{Name: "eV", Dim: Energy, Scale: 1e-3}
	MeV = Unit{Name: "MeV", Dim: Energy, Scale: 1e3}

	Arcmin = Unit{Name: "arcmin", Dim: Angle, Scale: 1}
	Arcsec = Unit{Name: "arcsec", Dim: Angle, Scale: 1.0 / 60.0}
	Degree = Unit{Name: "deg", Dim: Angle, Scale: 60}

	Cm2 = Unit{Name: "cm2", Dim: Area, Scale: 1}
	Mm2 = Unit{Name: "mm2", Dim: Area, Scale: 1e-2}

	Second = Unit{Name: "s", Dim: Time, Scale: 1}

	Fraction   = Unit{Name: "", Dim: Dimensionless, Scale: 1}
	CtPerPh    = Unit{Name: "ct/ph", Dim: CountsPerPhoton, Scale: 1}
	Cm2CtPerPh = Unit{Name: "cm2 ct/ph", Dim: AreaCountsPerPhoton, Scale: 1}
)

// ByName returns the declared unit with the given name. Cached products
// store units by name and rebuild them through this lookup.
func ByName(name string) (Unit, bool) {
	for _, u := range []Unit{KeV, EV, MeV, Arcmin, Arcsec, Degree, Cm2, Mm2, Second, Fraction, CtPerPh, Cm2CtPerPh} {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

// MismatchError reports an attempted conversion between incompatible units.
// It is raised before any numeric work is done on the offending grid.
type MismatchError struct {
	From Unit
	To   Unit
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("UNIT_MISMATCH: cannot convert %q (%s) to %q (%s)",
		e.From.Name, e.From.Dim, e.To.Name, e.To.Dim)
}

// IsMismatch returns true if err is a unit mismatch, unwrapping as needed.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

// Convert converts v from one unit to another, failing if the dimensions
// differ.
func Convert(v float64, from, to Unit) (float64, error) {
	if from.Dim != to.Dim {
		return 0, &MismatchError{From: from, To: to}
	}
	return v * from.Scale / to.Scale, nil
}

// ConvertSlice converts every value of vs from one unit to another. The input
// slice is not modified.
func ConvertSlice(vs []float64, from, to Unit) ([]float64, error) {
	if from.Dim != to.Dim {
		return nil, &MismatchError{From: from, To: to}
	}
	ratio := from.Scale / to.Scale
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v * ratio
	}
	return out, nil
}

// Mul returns the unit of a product of two values. Dimensionless factors
// vanish; a dimensioned factor survives. The response chain only multiplies
// fractions into at most one dimensioned quantity (an area or a
// counts-per-photon matrix), so anything else is a programming error.
func Mul(a, b Unit) (Unit, error) {
	switch {
	case a.Dim == Dimensionless:
		return b, nil
	case b.Dim == Dimensionless:
		return a, nil
	case a.Dim == Area && b.Dim == CountsPerPhoton,
		a.Dim == CountsPerPhoton && b.Dim == Area:
		return Cm2CtPerPh, nil
	default:
		return Unit{}, fmt.Errorf("unsupported unit product %q * %q", a.Name, b.Name)
	}
}
