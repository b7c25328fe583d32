package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tamarlowe/respkit/internal/manifest"
)

// TelescopeSummary lists one telescope of the manifest.
type TelescopeSummary struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// TelescopesResult is the telescopes command payload.
type TelescopesResult struct {
	Telescopes []TelescopeSummary `json:"telescopes"`
}

func (r TelescopesResult) String() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	p.Fprintf(&b, "%d telescope(s)\n", len(r.Telescopes))
	for _, t := range r.Telescopes {
		fmt.Fprintf(&b, "  position %d  %s\n", t.Position, t.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewTelescopesCommand creates the telescopes command.
func NewTelescopesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "telescopes",
		Short:         "List the manifest's telescopes and positions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTelescopes(rootOpts, cmd)
		},
	}
}

func runTelescopes(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ctx, err := manifest.Load(opts.Manifest)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading manifest", err)
	}

	var result TelescopesResult
	for _, name := range ctx.Telescopes() {
		pos, err := ctx.Position(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "reading manifest", err)
		}
		result.Telescopes = append(result.Telescopes, TelescopeSummary{Name: name, Position: pos})
	}
	return formatter.Success(result)
}
