package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tamarlowe/respkit/internal/compose"
)

// ARFResult summarizes a composed ancillary response.
type ARFResult struct {
	ID        string   `json:"id"`
	Telescope string   `json:"telescope"`
	Points    int      `json:"points"`
	EnergyLo  float64  `json:"energy_lo_kev"`
	EnergyHi  float64  `json:"energy_hi_kev"`
	Unit      string   `json:"unit"`
	Peak      float64  `json:"peak"`
	PeakAt    float64  `json:"peak_kev"`
	Flight    bool     `json:"flight"`
	Elements  []string `json:"elements"`
}

func (r ARFResult) String() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	p.Fprintf(&b, "ARF %s (%s)\n", r.Telescope, r.ID)
	p.Fprintf(&b, "  %d points over %.3f-%.3f keV\n", r.Points, r.EnergyLo, r.EnergyHi)
	p.Fprintf(&b, "  peak %.4g %s at %.3f keV\n", r.Peak, r.Unit, r.PeakAt)
	if r.Flight {
		b.WriteString("  includes flight atmosphere\n")
	}
	p.Fprintf(&b, "  elements: %s", strings.Join(r.Elements, " x "))
	return b.String()
}

func summarizeARF(arf *compose.Product, flight bool) ARFResult {
	r := ARFResult{
		ID:        arf.ID.String(),
		Telescope: arf.Telescope,
		Points:    arf.Energies.Len(),
		Unit:      arf.Unit.Name,
		Flight:    flight,
	}
	if n := arf.Energies.Len(); n > 0 {
		r.EnergyLo = arf.Energies.Values[0]
		r.EnergyHi = arf.Energies.Values[n-1]
	}
	for i, v := range arf.Values {
		if v >= r.Peak {
			r.Peak = v
			r.PeakAt = arf.Energies.Values[i]
		}
	}
	for _, e := range arf.Elements {
		r.Elements = append(r.Elements, e.Name)
	}
	return r
}

// NewARFCommand creates the arf command.
func NewARFCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		energies string
		offAxis  float64
		flight   string
	)

	cmd := &cobra.Command{
		Use:   "arf <telescope>",
		Short: "Compose a telescope's ancillary response",
		Long: `Compose a telescope's Ancillary Response Function (ARF).

The element chain of the telescope's focal-plane position is evaluated on
the requested midpoint energy grid and multiplied together. With --flight,
the atmospheric transmission averaged over the window is folded in.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runARF(rootOpts, cmd, args[0], energies, offAxis, flight)
		},
	}

	cmd.Flags().StringVar(&energies, "energies", "native", "midpoint grid: lo:hi:step (keV), native or flight")
	cmd.Flags().Float64Var(&offAxis, "off-axis", 0, "off-axis angle in arcmin")
	cmd.Flags().StringVar(&flight, "flight", "", "atmosphere window t0:t1 in seconds, or full")

	return cmd
}

func runARF(opts *RootOptions, cmd *cobra.Command, tel, energies string, offAxis float64, flightWindow string) error {
	formatter := newFormatter(opts, cmd)

	set, _, err := loadSet(opts, cmd)
	if err != nil {
		return err
	}
	mid, err := parseEnergies(energies)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing --energies", err)
	}
	t0, t1, flight, err := parseTimeRange(flightWindow)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing --flight", err)
	}

	var arf *compose.Product
	if flight {
		arf, err = set.FlightARF(tel, mid, offAxis, t0, t1)
	} else {
		arf, err = set.ARF(tel, mid, offAxis)
	}
	if err != nil {
		return formatter.Fail("composing ARF", err)
	}

	formatter.VerboseLog("function path: %s", strings.Join(arf.FunctionPath(), " -> "))
	return formatter.Success(summarizeARF(arf, flight))
}
