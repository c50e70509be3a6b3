package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/client"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath stores the configuration file path.
	configPath string
	// serverAddress overrides the server address from the config.
	serverAddress string
	// retry keeps pushing a command until the server confirms it.
	retry bool
	// verbose keeps info logs on the console.
	verbose bool

	// rootCmd represents the base command for controlling the security system.
	rootCmd = &cobra.Command{
		Use:   "catpoint-ctl",
		Short: "Control the catpoint security system.",
		Long: `Command line control panel for the catpoint security server.

Arm or disarm the system, manage sensors, report sensor activity,
upload camera pictures and watch alarm notifications.
Every command prints the system status reported by the server.`,
		SilenceUsage: true,
	}
)

// Execute runs the catpoint-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runAction performs action with the shared flags until it completes or the process is interrupted.
func runAction(cmd *cobra.Command, action client.Action) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, options(cmd), action)
}

func options(cmd *cobra.Command) *client.Options {
	return &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Retry:         retry,
		Verbose:       verbose,
		Out:           cmd.OutOrStdout(),
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "override the server address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests and responses")
	rootCmd.PersistentFlags().BoolVarP(&retry, "retry", "r", false, "repeat the command until the server confirms it")

	rootCmd.AddCommand(statusCmd, armCmd, disarmCmd, sensorCmd, imageCmd, recoverCmd, watchCmd)
}
