package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamarlowe/respkit/internal/respcache"
	"github.com/tamarlowe/respkit/internal/telescope"
)

// NewDRMCommand creates the drm command.
func NewDRMCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		region  int
		pitch   int
		side    string
		event   string
		offAxis float64
		flight  string
		cache   string
	)

	cmd := &cobra.Command{
		Use:   "drm <telescope>",
		Short: "Compose a telescope's detector response matrix",
		Long: `Compose a telescope's Detector Response Matrix (DRM/SRM).

The RMF fixes the energy grid: the ARF is evaluated at the RMF's own
photon-edge midpoints and folded in row by row. With --cache, composed
products are persisted to a SQLite database and reused on later runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDRM(rootOpts, cmd, args[0],
				cdteVariant(region, pitch, side, event), offAxis, flight, cache)
		},
	}

	addCdTeFlags(cmd, &region, &pitch, &side, &event)
	cmd.Flags().Float64Var(&offAxis, "off-axis", 0, "off-axis angle in arcmin")
	cmd.Flags().StringVar(&flight, "flight", "", "atmosphere window t0:t1 in seconds, or full")
	cmd.Flags().StringVar(&cache, "cache", "", "path to a product cache database")

	return cmd
}

func runDRM(opts *RootOptions, cmd *cobra.Command, tel string, v *telescope.CdTeVariant, offAxis float64, flightWindow, cachePath string) error {
	formatter := newFormatter(opts, cmd)

	set, _, err := loadSet(opts, cmd)
	if err != nil {
		return err
	}
	t0, t1, _, err := parseTimeRange(flightWindow)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing --flight", err)
	}

	key := drmKey(tel, v, offAxis, flightWindow)
	var cache *respcache.Cache
	if cachePath != "" {
		if cache, err = respcache.Open(cachePath); err != nil {
			return WrapExitError(ExitCommandError, "opening cache", err)
		}
		defer cache.Close()

		if cached, ok, err := cache.Get(cmd.Context(), key); err != nil {
			return WrapExitError(ExitCommandError, "reading cache", err)
		} else if ok {
			result := summarizeMatrix(cached)
			result.CacheStatus = "hit"
			return formatter.Success(result)
		}
	}

	drm, err := set.DRM(tel, v, offAxis, t0, t1)
	if err != nil {
		return formatter.Fail("composing DRM", err)
	}

	result := summarizeMatrix(drm)
	if cache != nil {
		if err := cache.Put(cmd.Context(), key, drm); err != nil {
			return WrapExitError(ExitCommandError, "writing cache", err)
		}
		result.CacheStatus = "stored"
	}
	return formatter.Success(result)
}

// drmKey builds the cache key of one DRM request.
func drmKey(tel string, v *telescope.CdTeVariant, offAxis float64, flightWindow string) string {
	variant := "cmos"
	if v != nil {
		variant = fmt.Sprintf("r%d-p%d-%s-%s", v.Region, v.PitchUM, v.Side, v.EventType)
	}
	return fmt.Sprintf("%s/drm/%s/offaxis=%g/flight=%s", tel, variant, offAxis, flightWindow)
}
