package file

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/platewatch/internal/analysis"
	"github.com/tphakala/platewatch/internal/conf"
)

// Command creates a new file command for recognizing the plate in a single image.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file [image]",
		Short: "Recognize the plate in an image file",
		Long:  "Detect and read the license plate in a single image and look up its owner.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			return analysis.FileAnalysis(settings)
		},
	}

	cmd.Flags().StringVarP(&settings.Input.Annotate, "annotate", "o", "", "Write the image with the plate overlay to this path")

	return cmd
}
