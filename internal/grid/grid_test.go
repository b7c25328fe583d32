package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/units"
)

func TestResolve_NativeSentinel(t *testing.T) {
	native := axis.New([]float64{1, 2, 3}, units.KeV)

	got, err := Resolve(native, axis.Native(units.KeV))
	require.NoError(t, err)
	assert.True(t, axis.Equal(native, got))
}

func TestResolve_CallerGridWins(t *testing.T) {
	native := axis.New([]float64{1, 2, 3}, units.KeV)
	requested := axis.New([]float64{1.5, 2.5}, units.KeV)

	got, err := Resolve(native, requested)
	require.NoError(t, err)
	assert.True(t, axis.Equal(requested, got))
}

func TestResolve_ConvertsRequestedUnit(t *testing.T) {
	native := axis.New([]float64{1, 2, 3}, units.KeV)
	requested := axis.New([]float64{0.001, 0.002}, units.MeV)

	got, err := Resolve(native, requested)
	require.NoError(t, err)
	assert.Equal(t, units.KeV, got.Unit)
	assert.InDeltaSlice(t, []float64{1, 2}, got.Values, 1e-12)
}

func TestResolve_UnitMismatch(t *testing.T) {
	native := axis.New([]float64{1, 2, 3}, units.KeV)
	requested := axis.New([]float64{1, 2}, units.Arcmin)

	_, err := Resolve(native, requested)
	require.Error(t, err)
	assert.True(t, units.IsMismatch(err))
}

func TestLinear1D_FillsAndKnots(t *testing.T) {
	nx := []float64{1, 2, 3}
	ny := []float64{10, 20, 30}
	fill := Fill{Left: -1, Right: -2}

	got, err := Linear1D(nx, ny, []float64{0.5, 1, 1.5, 2, 3, 3.5}, fill)
	require.NoError(t, err)
	assert.Equal(t, -1.0, got[0], "below range returns left fill exactly")
	assert.Equal(t, 10.0, got[1], "exact at first knot")
	assert.Equal(t, 15.0, got[2], "linear between knots")
	assert.Equal(t, 20.0, got[3], "exact at middle knot")
	assert.Equal(t, 30.0, got[4], "exact at last knot")
	assert.Equal(t, -2.0, got[5], "above range returns right fill exactly")
}

func TestLinear1D_SinglePointCurve(t *testing.T) {
	got, err := Linear1D([]float64{5}, []float64{0.7}, []float64{4, 5, 6}, AbsorbBelowPassAbove)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.7, 1}, got)
}

func TestLinear1D_LengthMismatch(t *testing.T) {
	_, err := Linear1D([]float64{1, 2}, []float64{1}, []float64{1}, ZeroOutside)
	assert.Error(t, err)

	_, err = Linear1D(nil, nil, []float64{1}, ZeroOutside)
	assert.Error(t, err)
}

func TestFlatBelowZeroAbove(t *testing.T) {
	f := FlatBelowZeroAbove([]float64{42, 17})
	assert.Equal(t, 42.0, f.Left)
	assert.Equal(t, 0.0, f.Right)
}

func TestClampNonNegative(t *testing.T) {
	vs := []float64{1, -0.25, 0, -3}
	n := ClampNonNegative(vs)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{1, 0, 0, 0}, vs)
}

func TestSurface_Bilinear(t *testing.T) {
	s, err := NewSurface(
		[]float64{0, 1},
		[]float64{0, 1},
		[][]float64{{0, 1}, {1, 2}},
	)
	require.NoError(t, err)

	v, in := s.Bilinear(0.5, 0.5)
	assert.True(t, in)
	assert.InDelta(t, 1.0, v, 1e-12)

	// corners reproduce control values
	v, in = s.Bilinear(0, 0)
	assert.True(t, in)
	assert.Equal(t, 0.0, v)
	v, in = s.Bilinear(1, 1)
	assert.True(t, in)
	assert.Equal(t, 2.0, v)

	// outside the hull is flagged, not zero-filled
	_, in = s.Bilinear(2, 0.5)
	assert.False(t, in)
}

func TestSurface_Nearest(t *testing.T) {
	s, err := NewSurface(
		[]float64{0, 10},
		[]float64{0, 10},
		[][]float64{{1, 2}, {3, 4}},
	)
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.Nearest(2, 3))
	assert.Equal(t, 4.0, s.Nearest(9, 8))
	assert.Equal(t, 3.0, s.Nearest(100, -5))
}

func TestNewSurface_Validation(t *testing.T) {
	_, err := NewSurface([]float64{1}, []float64{1, 2}, nil)
	assert.Error(t, err)

	_, err = NewSurface([]float64{2, 1}, []float64{1, 2}, [][]float64{{1, 2}, {3, 4}})
	assert.Error(t, err)

	_, err = NewSurface([]float64{1, 2}, []float64{1, 2}, [][]float64{{1, 2}})
	assert.Error(t, err)

	_, err = NewSurface([]float64{1, 2}, []float64{1, 2}, [][]float64{{1}, {2}})
	assert.Error(t, err)
}
