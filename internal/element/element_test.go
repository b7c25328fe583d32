package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/units"
)

// TestNew1D checks the per-kind value invariants at construction time.
func TestNew1D(t *testing.T) {
	grid := axis.New([]float64{1, 2, 3}, units.KeV)

	tests := []struct {
		name    string
		kind    Kind
		values  []float64
		unit    units.Unit
		wantErr string
	}{
		{
			name:   "transmission in range",
			kind:   Transmission,
			values: []float64{0, 0.5, 1},
			unit:   units.Fraction,
		},
		{
			name:    "transmission above one",
			kind:    Transmission,
			values:  []float64{0, 0.5, 1.2},
			unit:    units.Fraction,
			wantErr: "outside [0, 1]",
		},
		{
			name:    "quantum efficiency negative",
			kind:    QuantumEfficiency,
			values:  []float64{-0.1, 0.5, 1},
			unit:    units.Fraction,
			wantErr: "outside [0, 1]",
		},
		{
			name:   "effective area non-negative",
			kind:   EffectiveArea,
			values: []float64{0, 12.5, 40},
			unit:   units.Cm2,
		},
		{
			name:    "effective area negative",
			kind:    EffectiveArea,
			values:  []float64{0, -0.01, 40},
			unit:    units.Cm2,
			wantErr: "negative effective area",
		},
		{
			name:    "length mismatch",
			kind:    Transmission,
			values:  []float64{0.5, 1},
			unit:    units.Fraction,
			wantErr: "2 values on a 3-point grid",
		},
		{
			name:    "matrix kind rejected",
			kind:    RedistributionMatrix,
			values:  []float64{0, 0, 0},
			unit:    units.CtPerPh,
			wantErr: "2D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New1D(tt.kind, "Test-Element", grid, tt.values, tt.unit, SyntheticSource, "New1D", NoAngle(false))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.values, e.Values)
		})
	}
}

// TestFunctionPathAppendOnly checks that the audit trail grows in call order
// and that the accessor returns a defensive copy.
func TestFunctionPathAppendOnly(t *testing.T) {
	grid := axis.New([]float64{1, 2}, units.KeV)
	e, err := New1D(Transmission, "Blanket", grid, []float64{0.2, 0.9}, units.Fraction, "blanket.csv", "ThermalBlanket", NoAngle(false))
	require.NoError(t, err)

	e.AppendFunction("Position2ARF")
	e.AppendFunction("ComposeDRM")

	path := e.FunctionPath()
	assert.Equal(t, []string{"ThermalBlanket", "Position2ARF", "ComposeDRM"}, path)

	path[0] = "mutated"
	assert.Equal(t, []string{"ThermalBlanket", "Position2ARF", "ComposeDRM"}, e.FunctionPath())
}

func edges(vs ...float64) axis.Axis { return axis.New(vs, units.KeV) }

// TestNew2D checks the shape and non-negativity invariants.
func TestNew2D(t *testing.T) {
	in := edges(1, 2, 3)
	out := edges(1, 2, 3)

	m := mat.NewDense(2, 2, []float64{0.1, 0.2, 0, 0.3})
	e, err := New2D("cdte2", in, out, m, "cdte2.rmf", "LoadRMF")
	require.NoError(t, err)
	assert.Equal(t, units.CtPerPh, e.Unit)
	assert.Equal(t, []string{"LoadRMF"}, e.FunctionPath())

	_, err = New2D("cdte2", in, edges(1, 2, 3, 4), m, "cdte2.rmf", "LoadRMF")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix is 2x2 for 2 photon bins and 3 count bins")

	neg := mat.NewDense(2, 2, []float64{0.1, -0.2, 0, 0.3})
	_, err = New2D("cdte2", in, out, neg, "cdte2.rmf", "LoadRMF")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative response")
}

// TestMidEnergies checks that the photon midpoints are exact edge averages.
func TestMidEnergies(t *testing.T) {
	m := mat.NewDense(2, 2, nil)
	e, err := New2D("cdte1", edges(4, 5, 6.2), edges(1, 2, 3), m, "cdte1.rmf", "LoadRMF")
	require.NoError(t, err)

	mids := e.MidEnergies()
	assert.Equal(t, []float64{4.5, 5.6}, mids.Values)
	assert.Equal(t, units.KeV, mids.Unit)
}

// TestMix checks the weighted sum and the shared-axes requirement.
func TestMix(t *testing.T) {
	in, out := edges(1, 2, 3), edges(1, 2, 3)
	a, err := New2D("1hit", in, out, mat.NewDense(2, 2, []float64{1, 0, 0, 1}), "a.rmf", "LoadRMF")
	require.NoError(t, err)
	b, err := New2D("2hit", in, out, mat.NewDense(2, 2, []float64{0, 2, 2, 0}), "b.rmf", "LoadRMF")
	require.NoError(t, err)

	mixed, err := Mix([]float64{0.5, 0.25}, []*Element2D{a, b})
	require.NoError(t, err)
	assert.Equal(t, 0.5, mixed.Matrix.At(0, 0))
	assert.Equal(t, 0.5, mixed.Matrix.At(0, 1))
	assert.Equal(t, 0.5, mixed.Matrix.At(1, 0))
	assert.Equal(t, 0.5, mixed.Matrix.At(1, 1))

	c, err := New2D("other", edges(1, 2, 4), out, mat.NewDense(2, 2, nil), "c.rmf", "LoadRMF")
	require.NoError(t, err)
	_, err = Mix([]float64{0.5, 0.5}, []*Element2D{a, c})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different energy axes")

	_, err = Mix([]float64{0.5}, []*Element2D{a, b})
	require.Error(t, err)
}
