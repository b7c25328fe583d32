package respcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/compose"
	"github.com/tamarlowe/respkit/internal/element"
	"github.com/tamarlowe/respkit/internal/units"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "resp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func buildARF(t *testing.T) *compose.Product {
	t.Helper()
	grid := axis.New([]float64{4, 5, 6}, units.KeV)
	e, err := element.New1D(element.EffectiveArea, "optics", grid,
		[]float64{10, 20, 30}, units.Cm2, element.SyntheticSource, "test", element.NoAngle(false))
	require.NoError(t, err)
	arf, err := compose.New().ARF("cdte1", e)
	require.NoError(t, err)
	return arf
}

// TestPutGetARF checks the 1D round trip, identity included.
func TestPutGetARF(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()
	arf := buildARF(t)

	require.NoError(t, c.Put(ctx, "cdte1/arf/grid-a", arf))

	got, ok, err := c.Get(ctx, "cdte1/arf/grid-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, arf.ID, got.ID)
	assert.Equal(t, compose.KindARF, got.Kind)
	assert.Equal(t, "cdte1", got.Telescope)
	assert.Equal(t, arf.Values, got.Values)
	assert.Equal(t, arf.Energies.Values, got.Energies.Values)
	assert.Equal(t, units.Cm2, got.Unit)
	assert.Contains(t, got.FunctionPath(), "respcache.Get")
}

// TestPutGet2D checks the matrix round trip through a cached RMF.
func TestPutGet2D(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	in := axis.New([]float64{3.5, 4.5, 5.5}, units.KeV)
	out := axis.New([]float64{1, 2, 3}, units.KeV)
	e, err := element.New2D("cdte1", in, out,
		mat.NewDense(2, 2, []float64{0.1, 0.2, 0, 0.3}), "cdte1.rmf", "Decode")
	require.NoError(t, err)
	rmfProd, err := compose.New().RMF("cdte1", e)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "cdte1/rmf/r1", rmfProd))

	got, ok, err := c.Get(ctx, "cdte1/rmf/r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, compose.KindRMF, got.Kind)
	assert.True(t, mat.Equal(rmfProd.Matrix, got.Matrix))
	assert.True(t, axis.Equal(in, got.InputEdges))
	assert.True(t, axis.Equal(out, got.OutputEdges))
	assert.Equal(t, units.CtPerPh, got.Unit)
}

// TestAxisUnitRoundTrip checks that axes come back on their stored unit
// rather than an assumed one.
func TestAxisUnitRoundTrip(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	p := &compose.Product{
		ID:        uuid.New(),
		Kind:      compose.KindARF,
		Telescope: "cmos0",
		Unit:      units.Fraction,
		Energies:  axis.New([]float64{1, 2, 3}, units.Arcmin),
		Values:    []float64{0.1, 0.2, 0.3},
	}
	require.NoError(t, c.Put(ctx, "cmos0/scan", p))

	got, ok, err := c.Get(ctx, "cmos0/scan")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, units.Arcmin, got.Energies.Unit)
	assert.True(t, axis.Equal(p.Energies, got.Energies))
}

// TestGetMiss checks that a miss is not an error.
func TestGetMiss(t *testing.T) {
	c := openCache(t)
	_, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestPutReplaces checks that re-putting a key overwrites the entry.
func TestPutReplaces(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	first := buildARF(t)
	require.NoError(t, c.Put(ctx, "k", first))

	second := buildARF(t)
	require.NoError(t, c.Put(ctx, "k", second))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
}
