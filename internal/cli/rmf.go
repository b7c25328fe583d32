package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tamarlowe/respkit/internal/compose"
	"github.com/tamarlowe/respkit/internal/telescope"
)

// MatrixResult summarizes a composed 2D product (RMF or DRM).
type MatrixResult struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Telescope   string  `json:"telescope"`
	PhotonBins  int     `json:"photon_bins"`
	CountBins   int     `json:"count_bins"`
	EnergyLo    float64 `json:"energy_lo_kev"`
	EnergyHi    float64 `json:"energy_hi_kev"`
	Unit        string  `json:"unit"`
	Peak        float64 `json:"peak"`
	NonZero     int     `json:"non_zero"`
	CacheStatus string  `json:"cache,omitempty"`
}

func (r MatrixResult) String() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	p.Fprintf(&b, "%s %s (%s)\n", r.Kind, r.Telescope, r.ID)
	p.Fprintf(&b, "  %d photon bins x %d count bins over %.3f-%.3f keV\n",
		r.PhotonBins, r.CountBins, r.EnergyLo, r.EnergyHi)
	p.Fprintf(&b, "  %d non-zero entries, peak %.4g %s", r.NonZero, r.Peak, r.Unit)
	if r.CacheStatus != "" {
		p.Fprintf(&b, "\n  cache: %s", r.CacheStatus)
	}
	return b.String()
}

func summarizeMatrix(prod *compose.Product) MatrixResult {
	r := MatrixResult{
		ID:        prod.ID.String(),
		Kind:      string(prod.Kind),
		Telescope: prod.Telescope,
		Unit:      prod.Unit.Name,
	}
	rows, cols := prod.Matrix.Dims()
	r.PhotonBins, r.CountBins = rows, cols
	if n := prod.InputEdges.Len(); n > 0 {
		r.EnergyLo = prod.InputEdges.Values[0]
		r.EnergyHi = prod.InputEdges.Values[n-1]
	}
	for i := 0; i < rows; i++ {
		for _, v := range prod.Matrix.RawRowView(i) {
			if v != 0 {
				r.NonZero++
			}
			if v > r.Peak {
				r.Peak = v
			}
		}
	}
	return r
}

// NewRMFCommand creates the rmf command.
func NewRMFCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		region int
		pitch  int
		side   string
		event  string
	)

	cmd := &cobra.Command{
		Use:   "rmf <telescope>",
		Short: "Decode a telescope's redistribution matrix",
		Long: `Decode a telescope's Redistribution Matrix Function (RMF).

CdTe telescopes select a stored response by --region or --pitch plus
--side and --event; CMOS telescopes have a single response and take no
selection flags.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRMF(rootOpts, cmd, args[0], cdteVariant(region, pitch, side, event))
		},
	}

	addCdTeFlags(cmd, &region, &pitch, &side, &event)
	return cmd
}

func addCdTeFlags(cmd *cobra.Command, region, pitch *int, side, event *string) {
	cmd.Flags().IntVar(region, "region", -1, "CdTe detector region (0, 1 or 2)")
	cmd.Flags().IntVar(pitch, "pitch", 0, "CdTe strip pitch in um (60, 80 or 100), alternative to --region")
	cmd.Flags().StringVar(side, "side", "", "CdTe detector side (pt or merged)")
	cmd.Flags().StringVar(event, "event", "", "CdTe event type (1hit, 2hit or all)")
}

func runRMF(opts *RootOptions, cmd *cobra.Command, tel string, v *telescope.CdTeVariant) error {
	formatter := newFormatter(opts, cmd)

	set, _, err := loadSet(opts, cmd)
	if err != nil {
		return err
	}
	prod, err := set.RMF(tel, v)
	if err != nil {
		return formatter.Fail("decoding RMF", err)
	}
	return formatter.Success(summarizeMatrix(prod))
}
