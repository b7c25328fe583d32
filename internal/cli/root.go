// Package cli implements the respkit command line: composing ARF, RMF and
// DRM products for the telescopes of a calibration manifest, plus manifest
// validation and a telescope summary.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/manifest"
	"github.com/tamarlowe/respkit/internal/telescope"
	"github.com/tamarlowe/respkit/internal/units"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Manifest string // calibration manifest path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the respkit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "respkit",
		Short: "respkit - instrument response products",
		Long:  "Compose ARF, RMF and DRM/SRM response products from a calibration manifest.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Manifest, "manifest", "manifest.yaml", "calibration manifest path")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTelescopesCommand(opts))
	cmd.AddCommand(NewARFCommand(opts))
	cmd.AddCommand(NewRMFCommand(opts))
	cmd.AddCommand(NewDRMCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the command's output formatter.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadSet opens the manifest and binds a telescope set to it. Verbose runs
// log composition warnings to stderr.
func loadSet(opts *RootOptions, cmd *cobra.Command) (*telescope.Set, *manifest.Context, error) {
	ctx, err := manifest.Load(opts.Manifest)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "loading manifest", err)
	}
	set := telescope.New(ctx)
	if opts.Verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
		set = set.WithLogger(logger)
	}
	return set, ctx, nil
}

// parseEnergies parses the --energies flag: "lo:hi:step" in keV builds a
// midpoint grid, "native" (or empty) requests each element's native grid,
// and "flight" is the default flight grid.
func parseEnergies(s string) (axis.Axis, error) {
	switch s {
	case "", "native":
		return axis.Native(units.KeV), nil
	case "flight":
		return axis.FlightMidpoints(), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return axis.Axis{}, fmt.Errorf("energies must be lo:hi:step, native or flight, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return axis.Axis{}, fmt.Errorf("energies component %q: %w", p, err)
		}
		v[i] = f
	}
	lo, hi, step := v[0], v[1], v[2]
	if step <= 0 || hi <= lo {
		return axis.Axis{}, fmt.Errorf("energies need lo < hi and step > 0, got %q", s)
	}
	var vals []float64
	for e := lo; e < hi; e += step {
		vals = append(vals, e)
	}
	return axis.New(vals, units.KeV), nil
}

// parseTimeRange parses the --flight flag "t0:t1" in seconds. Empty means
// no atmosphere; "full" averages the whole flight.
func parseTimeRange(s string) (t0, t1 float64, flight bool, err error) {
	switch s {
	case "":
		return math.NaN(), math.NaN(), false, nil
	case "full":
		return math.NaN(), math.NaN(), true, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false, fmt.Errorf("flight window must be t0:t1 or full, got %q", s)
	}
	if t0, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return 0, 0, false, fmt.Errorf("flight window start %q: %w", parts[0], err)
	}
	if t1, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return 0, 0, false, fmt.Errorf("flight window end %q: %w", parts[1], err)
	}
	return t0, t1, true, nil
}

// cdteVariant assembles the CdTe selection flags; returns nil when none is
// set so CMOS telescopes need no flags.
func cdteVariant(region, pitch int, side, event string) *telescope.CdTeVariant {
	if region < 0 && pitch == 0 && side == "" && event == "" {
		return nil
	}
	return &telescope.CdTeVariant{Region: region, PitchUM: pitch, Side: side, EventType: event}
}
