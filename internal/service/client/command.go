package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/catpoint/internal/api/message"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// Options configures how catpoint-ctl reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Retry keeps pushing the operation until it succeeds and Confirm accepts the result.
	Retry bool

	// Out receives the human-readable status. Nothing is printed when nil.
	Out io.Writer

	// Verbose keeps info logs; otherwise only warnings and errors are logged next to Out.
	Verbose bool
}

// Action is one operation performed against the server.
type Action struct {
	// Name is used in logs.
	Name string
	// Do performs the call and returns the resulting status.
	Do func(ctx context.Context, client *common.Client) (*domain.Snapshot, error)
	// Confirm reports whether the returned status is the desired one. Nil accepts any status.
	Confirm func(snapshot *domain.Snapshot) bool
}

// defaultPushInterval defines retry delay when pushing an operation to the server.
const defaultPushInterval = 1 * time.Second

// Run connects to the server and performs action, retrying when opts.Retry is set.
func Run(ctx context.Context, opts *Options, action Action) error {
	ctx = scopeLogger(ctx, opts)

	client, serverAddress, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	ctx = logger.WithKV(ctx, "server_address", serverAddress)
	ctx = logger.WithKV(ctx, "action", action.Name)

	// attempt tries once, returns (completed, error).
	attempt := func() (bool, error) {
		snapshot, err := action.Do(ctx, client)
		if err != nil {
			if !opts.Retry {
				return false, err
			}

			logger.ErrorKV(ctx, "Request failed", "error", err)

			return false, nil
		}

		if action.Confirm != nil && !action.Confirm(snapshot) {
			if !opts.Retry {
				return false, fmt.Errorf("%s: server did not apply the change: %s", action.Name, FormatStatus(snapshot))
			}

			return false, nil
		}

		logger.Infof(ctx, "Status: %s", FormatStatus(snapshot))
		printStatus(opts.Out, snapshot)

		return true, nil
	}

	if done, err := attempt(); err != nil || done {
		return err
	}

	ticker := time.NewTicker(defaultPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// Watch prints listener notifications until ctx is canceled.
func Watch(ctx context.Context, opts *Options) error {
	ctx = scopeLogger(ctx, opts)

	client, serverAddress, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching events", "server_address", serverAddress)

	return client.WatchEvents(ctx, func(event message.Event) error {
		line := FormatEvent(event)
		logger.Info(ctx, line)

		if opts.Out != nil {
			_, err := fmt.Fprintln(opts.Out, line)

			return err
		}

		return nil
	})
}

// SetArming builds an action switching the arming mode.
func SetArming(armingStatus domain.ArmingStatus) Action {
	return Action{
		Name: "set arming status",
		Do: func(ctx context.Context, client *common.Client) (*domain.Snapshot, error) {
			return client.SetArmingStatus(ctx, armingStatus)
		},
		Confirm: func(snapshot *domain.Snapshot) bool {
			return snapshot.ArmingStatus == armingStatus
		},
	}
}

// ShowStatus builds an action reading the current status.
func ShowStatus() Action {
	return Action{
		Name: "get status",
		Do: func(ctx context.Context, client *common.Client) (*domain.Snapshot, error) {
			return client.GetStatus(ctx)
		},
	}
}

// AddSensor builds an action registering a sensor.
func AddSensor(sensor *domain.Sensor) Action {
	return Action{
		Name: "add sensor",
		Do: func(ctx context.Context, client *common.Client) (*domain.Snapshot, error) {
			return client.AddSensor(ctx, sensor)
		},
	}
}

// RemoveSensor builds an action unregistering a sensor.
func RemoveSensor(sensor *domain.Sensor) Action {
	return Action{
		Name: "remove sensor",
		Do: func(ctx context.Context, client *common.Client) (*domain.Snapshot, error) {
			return client.RemoveSensor(ctx, sensor)
		},
	}
}

// ChangeSensorActivation builds an action reporting a sensor state change.
func ChangeSensorActivation(key domain.SensorKey, active bool) Action {
	return Action{
		Name: "change sensor activation",
		Do: func(ctx context.Context, client *common.Client) (*domain.Snapshot, error) {
			return client.ChangeSensorActivation(ctx, key, active)
		},
	}
}

// ProcessImage builds an action uploading a camera picture.
func ProcessImage(picture []byte) Action {
	return Action{
		Name: "process image",
		Do: func(ctx context.Context, client *common.Client) (*domain.Snapshot, error) {
			return client.ProcessImage(ctx, picture)
		},
	}
}

// RecoverAlarm builds an action stepping a triggered alarm back to pending.
func RecoverAlarm() Action {
	return Action{
		Name: "recover alarm",
		Do: func(ctx context.Context, client *common.Client) (*domain.Snapshot, error) {
			return client.RecoverAlarm(ctx)
		},
	}
}

// FormatStatus converts a status snapshot to a one-line summary.
func FormatStatus(snapshot *domain.Snapshot) string {
	if snapshot == nil {
		return "<nil status>"
	}

	sensors := make([]string, 0, len(snapshot.Sensors))

	for _, sensor := range snapshot.Sensors {
		state := "inactive"
		if sensor.Active {
			state = "active"
		}

		sensors = append(sensors, fmt.Sprintf("%s=%s", sensor.Key(), state))
	}

	return fmt.Sprintf(
		"%s, %s, cat detected: %t, sensors: [%s]",
		snapshot.ArmingStatus.Description(),
		snapshot.AlarmStatus.Description(),
		snapshot.CatDetected,
		strings.Join(sensors, ", "),
	)
}

// FormatEvent converts a notification to a readable line.
func FormatEvent(event message.Event) string {
	switch event.Kind {
	case message.KindAlarmStatus:
		return fmt.Sprintf("alarm status: %s (%s)", event.AlarmStatus, event.AlarmStatus.Description())
	case message.KindCatDetected:
		return fmt.Sprintf("cat detected: %t", event.CatDetected)
	default:
		return "unknown event " + event.Kind
	}
}

func connect(ctx context.Context, opts *Options) (*common.Client, string, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, "", err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return nil, "", err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout), common.WithActor(actor))
	if err != nil {
		return nil, "", err
	}

	return client, serverAddress, nil
}

func scopeLogger(ctx context.Context, opts *Options) context.Context {
	ctx = logger.WithName(ctx, "catpoint-ctl")
	if opts.Verbose {
		return ctx
	}

	return logger.WithMinLevel(ctx, zapcore.WarnLevel)
}

func printStatus(out io.Writer, snapshot *domain.Snapshot) {
	if out == nil {
		return
	}

	_, _ = fmt.Fprintln(out, FormatStatus(snapshot))
}
