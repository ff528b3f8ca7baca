package seed

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/platewatch/internal/analysis"
	"github.com/tphakala/platewatch/internal/conf"
)

// Command creates a new command that loads owners and vehicles from a
// YAML fixture file.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [fixtures.yaml]",
		Short: "Load owners and vehicles into the registry",
		Long: "Create the owners and vehicles listed in a YAML fixture file. " +
			"Plates that are already registered are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			return analysis.SeedFixtures(settings)
		},
	}
}
