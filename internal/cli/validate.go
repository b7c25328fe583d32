package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamarlowe/respkit/internal/manifest"
)

// ValidationResult holds manifest validation results.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Manifest   string   `json:"manifest"`
	Telescopes []string `json:"telescopes,omitempty"`
	Message    string   `json:"message,omitempty"`
}

func (r ValidationResult) String() string {
	if !r.Valid {
		return fmt.Sprintf("manifest %s is invalid: %s", r.Manifest, r.Message)
	}
	return fmt.Sprintf("manifest %s is valid (%d telescopes)", r.Manifest, len(r.Telescopes))
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the calibration manifest",
		Long: `Validate the calibration manifest against its schema.

Checks the document shape (version, base_dir, telescope positions and file
maps) without touching any calibration file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ctx, err := manifest.Load(opts.Manifest)
	if err != nil {
		body := &ResponseError{Code: "INVALID_MANIFEST", Message: err.Error()}
		if ferr := formatter.Error(body); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "manifest validation failed", err)
	}

	return formatter.Success(ValidationResult{
		Valid:      true,
		Manifest:   opts.Manifest,
		Telescopes: ctx.Telescopes(),
	})
}
