package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamarlowe/respkit/internal/fitstest"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFixtures lays out a manifest plus synthetic calibration curves for a
// Nagoya telescope at position 4.
func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	curve := func(name string, ys ...float64) {
		content := ""
		for i, y := range ys {
			content += fmt.Sprintf("%d.0,%v\n", i+1, y)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	curve("blanket.csv", 0.5, 0.5, 0.5)
	curve("al.csv", 0.8, 0.8, 0.8)
	fitstest.WriteTable(t, dir, "nagoya_model.fits", nil,
		fitstest.Column{Name: "ENERG_LO", Values: []float64{0.5, 1.5, 2.5}},
		fitstest.Column{Name: "ENERG_HI", Values: []float64{1.5, 2.5, 3.5}},
		fitstest.Column{Name: "SPECRESP", Values: []float64{10, 20, 30}},
	)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atm.txt"),
		[]byte("# 1.0 2.0 3.0\n0 0.5 0.5 0.5\n10 0.5 0.5 0.5\n"), 0o644))

	manifest := fmt.Sprintf(`version: 1
base_dir: %s
telescopes:
  cdte4:
    position: 4
    files:
      thermal_blanket: blanket.csv
      optics_nagoya_model: nagoya_model.fits
      uniform_al: al.csv
      atmosphere: atm.txt
  cmos1:
    position: 0
    files: {}
`, dir)
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return path
}

// TestRootRejectsBadFormat checks the persistent format validation.
func TestRootRejectsBadFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "telescopes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// TestParseEnergies covers the grid flag grammar.
func TestParseEnergies(t *testing.T) {
	native, err := parseEnergies("native")
	require.NoError(t, err)
	assert.True(t, native.IsNative())

	grid, err := parseEnergies("4:6:0.5")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4.5, 5, 5.5}, grid.Values)

	flight, err := parseEnergies("flight")
	require.NoError(t, err)
	assert.Greater(t, flight.Len(), 1000)

	for _, bad := range []string{"4:6", "a:b:c", "6:4:1", "4:6:0"} {
		_, err := parseEnergies(bad)
		assert.Error(t, err, bad)
	}
}

// TestParseTimeRange covers the flight window grammar.
func TestParseTimeRange(t *testing.T) {
	_, _, flight, err := parseTimeRange("")
	require.NoError(t, err)
	assert.False(t, flight)

	_, _, flight, err = parseTimeRange("full")
	require.NoError(t, err)
	assert.True(t, flight)

	t0, t1, flight, err := parseTimeRange("100:250")
	require.NoError(t, err)
	assert.True(t, flight)
	assert.Equal(t, 100.0, t0)
	assert.Equal(t, 250.0, t1)

	_, _, _, err = parseTimeRange("100")
	assert.Error(t, err)
}

// TestValidateCommand checks both verdicts.
func TestValidateCommand(t *testing.T) {
	manifest := writeFixtures(t)

	out, _, err := execute(t, "--manifest", manifest, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (2 telescopes)")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: 2\n"), 0o644))
	out, _, err = execute(t, "--manifest", bad, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_MANIFEST")
}

// TestTelescopesCommand pins the text output and checks the JSON shape.
func TestTelescopesCommand(t *testing.T) {
	manifest := writeFixtures(t)

	out, _, err := execute(t, "--manifest", manifest, "telescopes")
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "telescopes", []byte(out))

	out, _, err = execute(t, "--manifest", manifest, "--format", "json", "telescopes")
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

// TestARFCommand runs the full composition through the CLI.
func TestARFCommand(t *testing.T) {
	manifest := writeFixtures(t)

	out, _, err := execute(t, "--manifest", manifest, "arf", "cdte4", "--energies", "native")
	require.NoError(t, err)
	assert.Contains(t, out, "ARF cdte4")
	assert.Contains(t, out, "3 points over 1.000-3.000 keV")
	assert.Contains(t, out, "Thermal-Blanket x Nagoya-Optics x Uniform-Al")

	out, _, err = execute(t, "--manifest", manifest, "arf", "cdte4", "--flight", "0:10")
	require.NoError(t, err)
	assert.Contains(t, out, "includes flight atmosphere")

	out, _, err = execute(t, "--manifest", manifest, "arf", "cmos1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [DATA_SOURCE_UNAVAILABLE]")
}

// TestARFCommandErrorJSON checks that a composition failure keeps the
// taxonomy code in the JSON envelope.
func TestARFCommandErrorJSON(t *testing.T) {
	manifest := writeFixtures(t)

	out, _, err := execute(t, "--manifest", manifest, "--format", "json", "arf", "cmos1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DATA_SOURCE_UNAVAILABLE", resp.Error.Code)
}

// TestARFCommandJSON checks the machine-readable payload.
func TestARFCommandJSON(t *testing.T) {
	manifest := writeFixtures(t)

	out, _, err := execute(t, "--manifest", manifest, "--format", "json", "arf", "cdte4")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   ARFResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cdte4", resp.Data.Telescope)
	assert.Equal(t, 3, resp.Data.Points)
	assert.Equal(t, 12.0, resp.Data.Peak)
	assert.Equal(t, 3.0, resp.Data.PeakAt)
	assert.Equal(t, "cm2", resp.Data.Unit)
}

// TestMissingManifest checks the command-error exit code.
func TestMissingManifest(t *testing.T) {
	_, _, err := execute(t, "--manifest", filepath.Join(t.TempDir(), "nope.yaml"), "telescopes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
