// Package cmd defines the platewatch command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/platewatch/cmd/file"
	"github.com/tphakala/platewatch/cmd/lookup"
	"github.com/tphakala/platewatch/cmd/realtime"
	"github.com/tphakala/platewatch/cmd/seed"
	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "platewatch",
		Short:   "License plate recognition and owner lookup",
		Version: fmt.Sprintf("%s (built %s)", settings.Version, settings.BuildDate),
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		rootCmd.PrintErrf("error setting up flags: %v\n", err)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initLogging(settings)
	}

	rootCmd.AddCommand(
		realtime.Command(settings),
		file.Command(settings),
		lookup.Command(settings),
		seed.Command(settings),
	)

	return rootCmd
}

// initLogging replaces the default console logger with the configured one.
// --debug lowers the console level to debug.
func initLogging(settings *conf.Settings) error {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}

	central, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Detector.ModelPath, "model", viper.GetString("detector.modelpath"), "Path to the plate detection model")
	flags.Float64VarP(&settings.Detector.Threshold, "threshold", "t", viper.GetFloat64("detector.threshold"), "Minimum plate detection confidence, 0.0 to 1.0")
	flags.StringVar(&settings.OCR.Engine, "ocr", viper.GetString("ocr.engine"), "OCR engine: tesseract or azure")
	flags.StringVar(&settings.OCR.PlateFormat, "plateformat", viper.GetString("ocr.plateformat"), "Regular expression a plate must match, empty accepts any")

	if err := viper.BindPFlags(flags); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
