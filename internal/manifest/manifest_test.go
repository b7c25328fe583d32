package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamarlowe/respkit/internal/resperr"
)

const validManifest = `
version: 1
base_dir: /caldb
telescopes:
  cdte1:
    position: 2
    files:
      thermal_blanket: attenuation/blanket.csv
      rmf: detector/cdte1_pt_80um_all.rmf
  cmos1:
    position: 0
    files:
      obfilter: /absolute/obf.csv
`

// TestParse checks schema acceptance and path resolution.
func TestParse(t *testing.T) {
	ctx, err := Parse([]byte(validManifest), "manifest.yaml")
	require.NoError(t, err)

	path, err := ctx.Path("cdte1", "rmf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/caldb", "detector/cdte1_pt_80um_all.rmf"), path)

	abs, err := ctx.Path("cmos1", "obfilter")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/obf.csv", abs)

	pos, err := ctx.Position("cdte1")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	assert.Equal(t, []string{"cdte1", "cmos1"}, ctx.Telescopes())
}

// TestParseRejectsInvalid checks that the schema catches shape errors
// before any path is resolved.
func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong version", "version: 2\nbase_dir: /caldb\ntelescopes: {}\n"},
		{"missing base_dir", "version: 1\ntelescopes: {}\n"},
		{"position out of range", "version: 1\nbase_dir: /c\ntelescopes:\n  t:\n    position: 9\n    files: {}\n"},
		{"non-string file", "version: 1\nbase_dir: /c\ntelescopes:\n  t:\n    position: 1\n    files:\n      rmf: 7\n"},
		{"not yaml", ": ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "manifest.yaml")
			assert.Error(t, err)
		})
	}
}

// TestPathMissing checks the unmapped-telescope and unmapped-family errors.
func TestPathMissing(t *testing.T) {
	ctx, err := Parse([]byte(validManifest), "manifest.yaml")
	require.NoError(t, err)

	_, err = ctx.Path("cdte9", "rmf")
	require.Error(t, err)
	assert.True(t, resperr.IsDataSourceUnavailable(err))

	_, err = ctx.Path("cdte1", "optics")
	require.Error(t, err)
	assert.True(t, resperr.IsDataSourceUnavailable(err))
}

// TestLoad checks the file round trip and the missing-file error.
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validManifest), 0o644))

	ctx, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, ctx.Telescopes(), "cdte1")

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, resperr.IsDataSourceUnavailable(err))
}
