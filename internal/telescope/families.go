package telescope

import (
	"fmt"
	"math"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/caldb"
	"github.com/tamarlowe/respkit/internal/element"
	"github.com/tamarlowe/respkit/internal/grid"
	"github.com/tamarlowe/respkit/internal/units"
)

// Attenuation families. Foil-type filters absorb everything below their
// table and pass everything above it, so their fills are (0, 1). The
// pixelated attenuator's table covers its full passband and anything
// outside is opaque, hence (0, 0).

// ThermalBlanket builds the thermal-blanket transmission.
func (s *Set) ThermalBlanket(tel string, mid axis.Axis) (*element.Element1D, error) {
	return s.curve1D(element.Transmission, "Thermal-Blanket", tel, "thermal_blanket",
		mid, grid.AbsorbBelowPassAbove, units.Fraction, element.NoAngle(false))
}

// UniformAl builds the uniform aluminum filter transmission.
func (s *Set) UniformAl(tel string, mid axis.Axis) (*element.Element1D, error) {
	return s.curve1D(element.Transmission, "Uniform-Al", tel, "uniform_al",
		mid, grid.AbsorbBelowPassAbove, units.Fraction, element.NoAngle(false))
}

// AlMylar builds the aluminized-mylar transmission.
func (s *Set) AlMylar(tel string, mid axis.Axis) (*element.Element1D, error) {
	return s.curve1D(element.Transmission, "Al-Mylar", tel, "al_mylar",
		mid, grid.AbsorbBelowPassAbove, units.Fraction, element.NoAngle(false))
}

// PixelatedAttenuator builds the pixelated-attenuator transmission, from
// the measured table or the modelled one.
func (s *Set) PixelatedAttenuator(tel string, mid axis.Axis, model bool) (*element.Element1D, error) {
	family := "pixelated"
	if model {
		family = "pixelated_model"
	}
	return s.curve1D(element.Transmission, "Pixelated-Attenuator", tel, family,
		mid, grid.ZeroOutside, units.Fraction, element.NoAngle(model))
}

// Prefilter builds a CMOS telescope's optics pre-filter transmission.
func (s *Set) Prefilter(tel string, mid axis.Axis) (*element.Element1D, error) {
	return s.curve1D(element.Transmission, "CMOS-Prefilter", tel, "prefilter",
		mid, grid.AbsorbBelowPassAbove, units.Fraction, element.NoAngle(false))
}

// OBFilter builds a CMOS telescope's optical blocking filter transmission.
func (s *Set) OBFilter(tel string, mid axis.Axis) (*element.Element1D, error) {
	return s.curve1D(element.Transmission, "CMOS-OBFilter", tel, "obfilter",
		mid, grid.AbsorbBelowPassAbove, units.Fraction, element.NoAngle(false))
}

// CollimatorRatio builds the collimator aperture ratio at one off-axis
// angle, broadcast onto the given energy grid. The native table is sampled
// over angle, not energy, so the grid only sizes the output.
func (s *Set) CollimatorRatio(tel string, mid axis.Axis, offAxisArcmin float64) (*element.Element1D, error) {
	path, err := s.man.Path(tel, "collimator")
	if err != nil {
		return nil, err
	}
	c, err := caldb.LoadCSVCurve(path, units.Arcmin, units.Fraction)
	if err != nil {
		return nil, err
	}
	ratio, err := grid.Linear1D(c.X, c.Y, []float64{offAxisArcmin}, grid.ZeroOutside)
	if err != nil {
		return nil, err
	}
	meta := element.Meta{OffAxisAngle: offAxisArcmin}
	e, err := constant1D("Collimator-Ratio", mid, ratio[0], c.File, meta)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// QuantumEfficiency builds a CMOS sensor's quantum efficiency.
func (s *Set) QuantumEfficiency(tel string, mid axis.Axis) (*element.Element1D, error) {
	return s.curve1D(element.QuantumEfficiency, "CMOS-QE", tel, "qe",
		mid, grid.ZeroOutside, units.Fraction, element.NoAngle(false))
}

// Atmosphere builds the atmospheric transmission averaged over the flight
// window [t0, t1] seconds. A NaN bound means the whole flight.
func (s *Set) Atmosphere(tel string, mid axis.Axis, t0, t1 float64) (*element.Element1D, error) {
	path, err := s.man.Path(tel, "atmosphere")
	if err != nil {
		return nil, err
	}
	table, err := caldb.LoadTimeTable(path, units.KeV)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(t0) || math.IsNaN(t1) {
		t0, t1 = table.Times[0], table.Times[len(table.Times)-1]
	}
	c, err := table.MeanOver(t0, t1)
	if err != nil {
		return nil, err
	}
	native := axis.New(c.X, c.XUnit)
	target, err := grid.Resolve(native, mid)
	if err != nil {
		return nil, err
	}
	values, err := grid.Linear1D(c.X, c.Y, target.Values, grid.ZeroOutside)
	if err != nil {
		return nil, err
	}
	return element.New1D(element.Transmission, "Atmosphere", target, values,
		units.Fraction, c.File, "Atmosphere", element.NoAngle(false))
}

// HiResOptics builds the effective area of a high-resolution electroformed
// optic, from the measured table or the modelled one. The table is not
// angle-resolved; below its range the first native value holds, above it
// the area is zero.
func (s *Set) HiResOptics(tel string, mid axis.Axis, model bool) (*element.Element1D, error) {
	family := "optics"
	if model {
		family = "optics_model"
	}
	path, err := s.man.Path(tel, family)
	if err != nil {
		return nil, err
	}
	c, err := caldb.LoadCSVCurve(path, units.KeV, units.Cm2)
	if err != nil {
		return nil, err
	}
	native := axis.New(c.X, c.XUnit)
	target, err := grid.Resolve(native, mid)
	if err != nil {
		return nil, err
	}
	values, err := grid.Linear1D(c.X, c.Y, target.Values, grid.FlatBelowZeroAbove(c.Y))
	if err != nil {
		return nil, err
	}
	grid.ClampNonNegative(values)
	return element.New1D(element.EffectiveArea, "Hi-Res-Optics", target, values,
		units.Cm2, c.File, "HiResOptics", element.NoAngle(model))
}

// NagoyaOptics builds the effective area of a Nagoya-built optic. Measured
// tables are whitespace columns in mm2; the modelled variant is a FITS
// SPECRESP table already in cm2. The tables cover the optic's designed band
// and the area is zero outside it.
func (s *Set) NagoyaOptics(tel string, mid axis.Axis, model bool) (*element.Element1D, error) {
	family := "optics_nagoya"
	if model {
		family = "optics_nagoya_model"
	}
	path, err := s.man.Path(tel, family)
	if err != nil {
		return nil, err
	}
	var c caldb.Curve
	if model {
		c, err = caldb.LoadFITSCurve(path, units.Cm2)
	} else {
		c, err = caldb.LoadColumnsCurve(path, 0, 2, units.KeV, units.Mm2)
	}
	if err != nil {
		return nil, err
	}
	ys, err := units.ConvertSlice(c.Y, c.YUnit, units.Cm2)
	if err != nil {
		return nil, err
	}
	native := axis.New(c.X, c.XUnit)
	target, err := grid.Resolve(native, mid)
	if err != nil {
		return nil, err
	}
	values, err := grid.Linear1D(c.X, ys, target.Values, grid.ZeroOutside)
	if err != nil {
		return nil, err
	}
	grid.ClampNonNegative(values)
	return element.New1D(element.EffectiveArea, "Nagoya-Optics", target, values,
		units.Cm2, c.File, "NagoyaOptics", element.NoAngle(model))
}

// TenShellOptics builds the effective area of a heritage 10-shell optic at
// one off-axis angle. The measured control points form an (energy, angle)
// surface; the tilt and pan scans are averaged and interpolated. Points
// outside the measured hull are extended linearly, counted in the element
// metadata and logged, never zero-filled. Negative artifacts clamp to zero.
func (s *Set) TenShellOptics(tel string, mid axis.Axis, offAxisArcmin float64) (*element.Element1D, error) {
	tilt, err := s.opticsScan(tel, "optics_tilt")
	if err != nil {
		return nil, err
	}
	pan, err := s.opticsScan(tel, "optics_pan")
	if err != nil {
		return nil, err
	}
	if len(tilt.Energies) != len(pan.Energies) || len(tilt.Times) != len(pan.Times) {
		return nil, fmt.Errorf("tilt and pan scans of %s disagree on grid shape", tel)
	}

	// Z[i][j] is the tilt/pan mean at energy i, angle j.
	z := make([][]float64, len(tilt.Energies))
	for i := range z {
		z[i] = make([]float64, len(tilt.Times))
		for j := range z[i] {
			z[i][j] = (tilt.Values[j][i] + pan.Values[j][i]) / 2
		}
	}
	surf, err := grid.NewSurface(tilt.Energies, tilt.Times, z)
	if err != nil {
		return nil, err
	}

	native := axis.New(tilt.Energies, units.KeV)
	target, err := grid.Resolve(native, mid)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(offAxisArcmin) {
		offAxisArcmin = 0
	}

	values := make([]float64, target.Len())
	outside := 0
	for i, e := range target.Values {
		v, in := surf.Bilinear(e, offAxisArcmin)
		if !in {
			outside++
		}
		values[i] = v
	}
	grid.ClampNonNegative(values)
	if outside > 0 {
		s.log.Warn().
			Str("telescope", tel).
			Int("points", outside).
			Float64("off_axis_arcmin", offAxisArcmin).
			Msg("optics query outside measured hull")
	}

	meta := element.Meta{OffAxisAngle: offAxisArcmin, ExtrapolatedPoints: outside}
	return element.New1D(element.EffectiveArea, "10-Shell-Optics", target, values,
		units.Cm2, tilt.File+","+pan.File, "TenShellOptics", meta)
}

// opticsScan loads one 10-shell scan table: header energies, one row per
// off-axis angle.
func (s *Set) opticsScan(tel, family string) (caldb.TimeTable, error) {
	path, err := s.man.Path(tel, family)
	if err != nil {
		return caldb.TimeTable{}, err
	}
	return caldb.LoadTimeTable(path, units.KeV)
}
