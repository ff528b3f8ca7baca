package realtime

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/platewatch/internal/analysis"
	"github.com/tphakala/platewatch/internal/conf"
)

// Command creates a new command for real-time plate recognition.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Recognize plates from a camera or video stream",
		Long: "Read frames from the configured camera, video file or stream, recognize " +
			"license plates and report the registered owner of every new plate.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.RealtimeAnalysis(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		cmd.PrintErrf("error setting up flags: %v\n", err)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Camera.Device, "device", viper.GetString("camera.device"), "Camera index, video file or stream URL")
	cmd.Flags().BoolVar(&settings.Camera.Window, "window", viper.GetBool("camera.window"), "Show the annotated preview window")
	cmd.Flags().IntVar(&settings.Camera.FrameSkip, "frameskip", viper.GetInt("camera.frameskip"), "Run detection on every Nth frame")
	cmd.Flags().IntVar(&settings.Camera.DetectWidth, "detectwidth", viper.GetInt("camera.detectwidth"), "Width frames are scaled to before detection")
	cmd.Flags().BoolVar(&settings.WebServer.Enabled, "api", viper.GetBool("webserver.enabled"), "Serve the lookup API and metrics endpoint")
	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", viper.GetString("webserver.listen"), "Listen address of the lookup API")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
