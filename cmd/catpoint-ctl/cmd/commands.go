package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/service/client"
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the current system status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, client.ShowStatus())
		},
	}

	armCmd = &cobra.Command{
		Use:       "arm home|away",
		Short:     "Arm the system at home or away.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"home", "away"},
		RunE: func(cmd *cobra.Command, args []string) error {
			armingStatus, err := domain.ParseArmingStatus(args[0])
			if err != nil {
				return err
			}

			if armingStatus == domain.Disarmed {
				return fmt.Errorf("%w: use disarm", domain.ErrUnknownArmingStatus)
			}

			return runAction(cmd, client.SetArming(armingStatus))
		},
	}

	disarmCmd = &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the system and clear the alarm.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, client.SetArming(domain.Disarmed))
		},
	}

	sensorCmd = &cobra.Command{
		Use:   "sensor",
		Short: "Manage sensors and report their activity.",
	}

	recoverCmd = &cobra.Command{
		Use:   "recover",
		Short: "Step a triggered alarm back to pending.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, client.RecoverAlarm())
		},
	}

	imageCmd = &cobra.Command{
		Use:   "image <file>",
		Short: "Upload a camera picture for cat detection.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			picture, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("read picture: %w", err)
			}

			return runAction(cmd, client.ProcessImage(picture))
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print alarm and camera notifications as they happen.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Watch(ctx, options(cmd))
		},
	}
)

// sensorCommand builds a "sensor <verb> NAME TYPE" subcommand.
func sensorCommand(verb, short string, action func(sensor *domain.Sensor) client.Action) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name> door|window|motion",
		Short: short,
		Args:  cobra.ExactArgs(2), //nolint:mnd // Name and type.
		RunE: func(cmd *cobra.Command, args []string) error {
			sensorType, err := domain.ParseSensorType(args[1])
			if err != nil {
				return err
			}

			return runAction(cmd, action(domain.NewSensor(args[0], sensorType)))
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	sensorCmd.AddCommand(
		sensorCommand("add", "Register a sensor.", client.AddSensor),
		sensorCommand("remove", "Unregister a sensor.", client.RemoveSensor),
		sensorCommand("activate", "Report that a sensor fired.", func(sensor *domain.Sensor) client.Action {
			return client.ChangeSensorActivation(sensor.Key(), true)
		}),
		sensorCommand("deactivate", "Report that a sensor calmed down.", func(sensor *domain.Sensor) client.Action {
			return client.ChangeSensorActivation(sensor.Key(), false)
		}),
	)
}
