package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/camera"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// folder overrides the watched folder.
	folder string
	// pollInterval overrides the scan interval.
	pollInterval time.Duration

	// rootCmd represents the base command for the camera poller.
	rootCmd = &cobra.Command{
		Use:   "catpoint-camera [server-address]",
		Short: "Upload camera pictures for cat detection.",
		Long: `Background service that watches a folder for camera pictures.

Every new or modified PNG, JPEG, GIF, BMP or WebP file is uploaded to the server,
which runs cat detection on it and updates the alarm status.
Folder and interval come from the camera section of the configuration file unless overridden.
Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use server address argument if provided, otherwise rely on config.
			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			return camera.Run(ctx, &camera.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Folder:        folder,
				PollInterval:  pollInterval,
			})
		},
	}
)

// Execute runs the catpoint-camera CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&folder, "folder", "f", "", "folder with camera pictures")
	rootCmd.Flags().DurationVarP(&pollInterval, "interval", "i", 0, "delay between folder scans")
}
