package lookup

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/platewatch/internal/analysis"
	"github.com/tphakala/platewatch/internal/conf"
)

// Command creates a new command that looks up the owner of a plate.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lookup [plate]",
		Short:   "Look up the registered owner of a plate",
		Example: "  platewatch lookup ABC-123\n  platewatch lookup abc123 --format json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Plate = args[0]
			return analysis.LookupPlate(settings)
		},
	}

	cmd.Flags().StringVarP(&settings.Input.Format, "format", "f", analysis.FormatText, "Output format: text, json")

	return cmd
}
