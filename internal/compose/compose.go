// Package compose builds the user-facing response products: ARFs from
// chains of 1D elements, RMFs from decoded redistribution matrices, and
// DRMs from an ARF/RMF pair.
//
// Composition enforces the grid contract strictly. Every element of an ARF
// chain must sit on exactly the same energy axis, and an ARF can only be
// folded with an RMF whose photon-edge midpoints equal the ARF energies
// bit for bit. Nothing is resampled here; a mismatch means the caller built
// the ARF on the wrong grid and must re-derive it at the RMF's midpoints.
package compose

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/element"
	"github.com/tamarlowe/respkit/internal/resperr"
	"github.com/tamarlowe/respkit/internal/units"
)

// Kind tags a composed product.
type Kind string

const (
	KindARF Kind = "ARF"
	KindRMF Kind = "RMF"
	// KindDRM is the detector response matrix, ARF folded into RMF. Some
	// communities call the same product an SRM; this package uses one tag.
	KindDRM Kind = "DRM"
)

// Product is a composed response. ARFs populate the 1D fields, RMFs and
// DRMs the 2D fields; DRMs additionally carry both parents as provenance.
type Product struct {
	ID        uuid.UUID
	Kind      Kind
	Telescope string

	// 1D payload (ARF).
	Energies axis.Axis
	Values   []float64
	Unit     units.Unit
	Elements []*element.Element1D

	// 2D payload (RMF, DRM).
	InputEdges  axis.Axis
	OutputEdges axis.Axis
	Matrix      *mat.Dense
	Source      *element.Element2D

	// DRM parents.
	ARF *Product
	RMF *Product

	functionPath []string
}

// AppendFunction records a wrapper in the product's producing call chain.
func (p *Product) AppendFunction(name string) {
	p.functionPath = append(p.functionPath, name)
}

// FunctionPath returns a copy of the producing call chain, outermost last.
func (p *Product) FunctionPath() []string {
	out := make([]string, len(p.functionPath))
	copy(out, p.functionPath)
	return out
}

// Composer builds products. The zero value is usable and logs nowhere;
// inject a logger to surface telescope-mismatch warnings.
type Composer struct {
	log zerolog.Logger
}

// New returns a Composer with a no-op logger.
func New() *Composer {
	return &Composer{log: zerolog.Nop()}
}

// WithLogger returns a copy of the Composer that logs diagnostics to l.
func (c *Composer) WithLogger(l zerolog.Logger) *Composer {
	return &Composer{log: l}
}

// ARF multiplies an ordered chain of 1D elements elementwise. All elements
// must sit on exactly the same energy axis; anything else is a grid
// mismatch, since the chain is built by evaluating every family at one
// caller-supplied grid. Units multiply accordingly, so a chain of
// transmissions times one effective area yields an area.
func (c *Composer) ARF(telescope string, chain ...*element.Element1D) (*Product, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("ARF composition needs at least one element")
	}
	grid := chain[0].Energies
	values := make([]float64, grid.Len())
	copy(values, chain[0].Values)
	unit := chain[0].Unit

	for _, e := range chain[1:] {
		if !axis.Equal(grid, e.Energies) {
			return nil, resperr.NewGridMismatch("ARF",
				fmt.Sprintf("element %q is not on the grid of element %q", e.Name, chain[0].Name),
				map[string]string{"first": chain[0].Name, "offending": e.Name})
		}
		u, err := units.Mul(unit, e.Unit)
		if err != nil {
			return nil, fmt.Errorf("ARF composition: %w", err)
		}
		unit = u
		for i, v := range e.Values {
			values[i] *= v
		}
	}

	return &Product{
		ID:           uuid.New(),
		Kind:         KindARF,
		Telescope:    telescope,
		Energies:     grid,
		Values:       values,
		Unit:         unit,
		Elements:     chain,
		functionPath: []string{"ARF"},
	}, nil
}

// RMF wraps a decoded redistribution matrix, unchanged, as a product.
func (c *Composer) RMF(telescope string, e *element.Element2D) (*Product, error) {
	if e == nil || e.Matrix == nil {
		return nil, fmt.Errorf("RMF composition needs a decoded matrix")
	}
	return &Product{
		ID:           uuid.New(),
		Kind:         KindRMF,
		Telescope:    telescope,
		InputEdges:   e.InputEdges,
		OutputEdges:  e.OutputEdges,
		Matrix:       e.Matrix,
		Unit:         e.Unit,
		Source:       e,
		functionPath: []string{"RMF"},
	}, nil
}

// DRM folds an ARF into an RMF. The ARF must be defined at exactly the
// midpoints of the RMF's photon edges; each matrix row is then scaled by
// that bin's ancillary response. Differing telescope identifiers are a
// warning, not an error, and the product's tag records both.
func (c *Composer) DRM(arf, rmf *Product) (*Product, error) {
	if arf == nil || arf.Kind != KindARF {
		return nil, fmt.Errorf("DRM composition needs an ARF, got %v", kindOf(arf))
	}
	if rmf == nil || rmf.Kind != KindRMF {
		return nil, fmt.Errorf("DRM composition needs an RMF, got %v", kindOf(rmf))
	}

	mids := axis.Midpoints(rmf.InputEdges)
	if !axis.Equal(arf.Energies, mids) {
		return nil, resperr.NewGridMismatch("DRM",
			fmt.Sprintf("ARF %s energies differ from the photon-edge midpoints of RMF %s; re-derive the ARF at the RMF midpoints", arf.ID, rmf.ID),
			map[string]string{"arf": arf.ID.String(), "rmf": rmf.ID.String()})
	}

	telescope := rmf.Telescope
	if arf.Telescope != rmf.Telescope {
		telescope = fmt.Sprintf("ARF:%s,RMF:%s", arf.Telescope, rmf.Telescope)
		c.log.Warn().
			Str("arf_telescope", arf.Telescope).
			Str("rmf_telescope", rmf.Telescope).
			Msg("composing DRM across telescopes")
	}

	unit, err := units.Mul(arf.Unit, rmf.Unit)
	if err != nil {
		return nil, fmt.Errorf("DRM composition: %w", err)
	}

	rows, cols := rmf.Matrix.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		a := arf.Values[i]
		src := rmf.Matrix.RawRowView(i)
		dst := out.RawRowView(i)
		for j := 0; j < cols; j++ {
			dst[j] = a * src[j]
		}
	}

	return &Product{
		ID:           uuid.New(),
		Kind:         KindDRM,
		Telescope:    telescope,
		InputEdges:   rmf.InputEdges,
		OutputEdges:  rmf.OutputEdges,
		Matrix:       out,
		Unit:         unit,
		ARF:          arf,
		RMF:          rmf,
		functionPath: []string{"DRM"},
	}, nil
}

func kindOf(p *Product) Kind {
	if p == nil {
		return "nil"
	}
	return p.Kind
}
