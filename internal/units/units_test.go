package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_SameDimension(t *testing.T) {
	v, err := Convert(2.0, MeV, KeV)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, v)

	v, err = Convert(1500.0, EV, KeV)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-12)

	v, err = Convert(120.0, Arcsec, Arcmin)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)
}

func TestConvert_Identity(t *testing.T) {
	v, err := Convert(3.25, KeV, KeV)
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)
}

func TestConvert_Mismatch(t *testing.T) {
	_, err := Convert(1.0, Arcmin, KeV)
	require.Error(t, err)
	assert.True(t, IsMismatch(err))
	assert.Contains(t, err.Error(), "UNIT_MISMATCH")
}

func TestConvertSlice(t *testing.T) {
	out, err := ConvertSlice([]float64{1, 2, 3}, MeV, KeV)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 2000, 3000}, out)

	_, err = ConvertSlice([]float64{1}, Cm2, KeV)
	assert.True(t, IsMismatch(err))
}

func TestMul(t *testing.T) {
	u, err := Mul(Fraction, Cm2)
	require.NoError(t, err)
	assert.Equal(t, Cm2, u)

	u, err = Mul(Cm2, Fraction)
	require.NoError(t, err)
	assert.Equal(t, Cm2, u)

	u, err = Mul(Fraction, Fraction)
	require.NoError(t, err)
	assert.Equal(t, Fraction, u)

	u, err = Mul(Cm2, CtPerPh)
	require.NoError(t, err)
	assert.Equal(t, Cm2CtPerPh, u)

	_, err = Mul(Cm2, Mm2)
	assert.Error(t, err)
}

func TestByName(t *testing.T) {
	u, ok := ByName("cm2")
	require.True(t, ok)
	assert.Equal(t, Cm2, u)

	_, ok = ByName("furlong")
	assert.False(t, ok)
}
