package telescope

import (
	"fmt"
	"math"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/compose"
	"github.com/tamarlowe/respkit/internal/element"
)

// chain assembles the 1D element chain of a telescope's focal-plane
// position, on the given midpoint grid at the given off-axis angle. The
// chains use the modelled variant of every optic and of the pixelated
// attenuator; the measured variants stay reachable through the family
// methods.
func (s *Set) chain(tel string, mid axis.Axis, offAxisArcmin float64) ([]*element.Element1D, error) {
	pos, err := s.man.Position(tel)
	if err != nil {
		return nil, err
	}

	var parts []*element.Element1D
	add := func(e *element.Element1D, err error) error {
		if err != nil {
			return err
		}
		e.AppendFunction(fmt.Sprintf("position%dChain", pos))
		parts = append(parts, e)
		return nil
	}

	switch pos {
	case 0, 1:
		// CMOS telescopes: prefilter, collimator, optic, OBF, QE. Seat 0
		// carries a hi-res optic, seat 1 a Nagoya one.
		if err := add(s.Prefilter(tel, mid)); err != nil {
			return nil, err
		}
		if err := add(s.CollimatorRatio(tel, mid, offAxisArcmin)); err != nil {
			return nil, err
		}
		if pos == 0 {
			err = add(s.HiResOptics(tel, mid, true))
		} else {
			err = add(s.NagoyaOptics(tel, mid, true))
		}
		if err != nil {
			return nil, err
		}
		if err := add(s.OBFilter(tel, mid)); err != nil {
			return nil, err
		}
		if err := add(s.QuantumEfficiency(tel, mid)); err != nil {
			return nil, err
		}
	case 2, 4:
		// Blanket, 10-shell (pos 2) or Nagoya (pos 4) optic, uniform Al.
		if err := add(s.ThermalBlanket(tel, mid)); err != nil {
			return nil, err
		}
		if pos == 2 {
			err = add(s.TenShellOptics(tel, mid, offAxisArcmin))
		} else {
			err = add(s.NagoyaOptics(tel, mid, true))
		}
		if err != nil {
			return nil, err
		}
		if err := add(s.UniformAl(tel, mid)); err != nil {
			return nil, err
		}
	case 3, 5:
		// Blanket, hi-res (pos 3) or 10-shell (pos 5) optic, Al-mylar,
		// pixelated attenuator.
		if err := add(s.ThermalBlanket(tel, mid)); err != nil {
			return nil, err
		}
		if pos == 5 {
			err = add(s.TenShellOptics(tel, mid, offAxisArcmin))
		} else {
			err = add(s.HiResOptics(tel, mid, true))
		}
		if err != nil {
			return nil, err
		}
		if err := add(s.AlMylar(tel, mid)); err != nil {
			return nil, err
		}
		if err := add(s.PixelatedAttenuator(tel, mid, true)); err != nil {
			return nil, err
		}
	case 6:
		// Blanket, hi-res optic, Al-mylar. No detector behind this seat.
		if err := add(s.ThermalBlanket(tel, mid)); err != nil {
			return nil, err
		}
		if err := add(s.HiResOptics(tel, mid, true)); err != nil {
			return nil, err
		}
		if err := add(s.AlMylar(tel, mid)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("telescope %s has unknown position %d", tel, pos)
	}
	return parts, nil
}

// ARF composes a telescope's ancillary response on the given midpoint grid.
// It does not include atmospheric attenuation; see FlightARF. A native
// sentinel grid is resolved against the chain's first element, so the whole
// chain lands on one concrete grid.
func (s *Set) ARF(tel string, mid axis.Axis, offAxisArcmin float64) (*compose.Product, error) {
	parts, err := s.chain(tel, mid, offAxisArcmin)
	if err != nil {
		return nil, err
	}
	if mid.IsNative() && len(parts) > 0 {
		// Re-evaluate every element on the first element's native grid.
		return s.ARF(tel, parts[0].Energies, offAxisArcmin)
	}
	p, err := s.comp.ARF(tel, parts...)
	if err != nil {
		return nil, err
	}
	p.AppendFunction("telescope.ARF")
	return p, nil
}

// FlightARF composes the ARF including atmospheric attenuation averaged
// over the flight window [t0, t1] seconds. NaN bounds mean the full flight.
func (s *Set) FlightARF(tel string, mid axis.Axis, offAxisArcmin, t0, t1 float64) (*compose.Product, error) {
	parts, err := s.chain(tel, mid, offAxisArcmin)
	if err != nil {
		return nil, err
	}
	if mid.IsNative() && len(parts) > 0 {
		return s.FlightARF(tel, parts[0].Energies, offAxisArcmin, t0, t1)
	}
	atm, err := s.Atmosphere(tel, mid, t0, t1)
	if err != nil {
		return nil, err
	}
	p, err := s.comp.ARF(tel, append(parts, atm)...)
	if err != nil {
		return nil, err
	}
	p.AppendFunction("telescope.FlightARF")
	return p, nil
}

// RMF wraps a telescope's decoded detector response as a product. CdTe
// telescopes need a variant; CMOS telescopes ignore it.
func (s *Set) RMF(tel string, v *CdTeVariant) (*compose.Product, error) {
	pos, err := s.man.Position(tel)
	if err != nil {
		return nil, err
	}
	var e *element.Element2D
	switch {
	case pos == 6:
		return nil, fmt.Errorf("telescope %s has no detector response", tel)
	case pos <= 1:
		e, err = s.CMOSResponse(tel)
	case v != nil:
		e, err = s.CdTeResponse(tel, *v)
	default:
		return nil, fmt.Errorf("telescope %s needs a CdTe variant", tel)
	}
	if err != nil {
		return nil, err
	}
	p, err := s.comp.RMF(tel, e)
	if err != nil {
		return nil, err
	}
	p.AppendFunction("telescope.RMF")
	return p, nil
}

// DRM composes a telescope's full detector response matrix: the RMF's own
// photon-edge midpoints fix the grid, the ARF is evaluated exactly there,
// and the two are folded. With a non-NaN flight window the flight ARF is
// used instead.
func (s *Set) DRM(tel string, v *CdTeVariant, offAxisArcmin, t0, t1 float64) (*compose.Product, error) {
	rmfProd, err := s.RMF(tel, v)
	if err != nil {
		return nil, err
	}
	mid := axis.Midpoints(rmfProd.InputEdges)

	var arf *compose.Product
	if math.IsNaN(t0) && math.IsNaN(t1) {
		arf, err = s.ARF(tel, mid, offAxisArcmin)
	} else {
		arf, err = s.FlightARF(tel, mid, offAxisArcmin, t0, t1)
	}
	if err != nil {
		return nil, err
	}

	p, err := s.comp.DRM(arf, rmfProd)
	if err != nil {
		return nil, err
	}
	p.AppendFunction("telescope.DRM")
	return p, nil
}
