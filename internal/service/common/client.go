//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/api/message"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/version"
)

// Client wraps the gRPC SecurityService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the catpoint server.
	conn *grpc.ClientConn
	// api is the SecurityService client interface.
	api api.SecurityServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is attached to every call as request metadata.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor tags every call with the given actor for the server audit log.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor.String()
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errSensorRequired is returned when a sensor argument is nil.
	errSensorRequired = errors.New("sensor must be provided")
)

// Dial establishes a gRPC connection to the catpoint server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(
		address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial catpoint server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewSecurityServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the current status snapshot.
func (c *Client) GetStatus(ctx context.Context) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return decodeSnapshot("get status")(c.api.GetStatus(callCtx, new(emptypb.Empty)))
}

// SetArmingStatus changes the arming mode.
func (c *Client) SetArmingStatus(ctx context.Context, armingStatus domain.ArmingStatus) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return decodeSnapshot("set arming status")(
		c.api.SetArmingStatus(callCtx, wrapperspb.String(armingStatus.String())),
	)
}

// AddSensor registers a sensor.
func (c *Client) AddSensor(ctx context.Context, sensor *domain.Sensor) (*domain.Snapshot, error) {
	request, err := sensorRequest(sensor)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return decodeSnapshot("add sensor")(c.api.AddSensor(callCtx, request))
}

// RemoveSensor unregisters a sensor.
func (c *Client) RemoveSensor(ctx context.Context, sensor *domain.Sensor) (*domain.Snapshot, error) {
	request, err := sensorRequest(sensor)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return decodeSnapshot("remove sensor")(c.api.RemoveSensor(callCtx, request))
}

// ChangeSensorActivation reports that the sensor identified by key became active or inactive.
func (c *Client) ChangeSensorActivation(
	ctx context.Context,
	key domain.SensorKey,
	active bool,
) (*domain.Snapshot, error) {
	request, err := sensorRequest(&domain.Sensor{Name: key.Name, Type: key.Type, Active: active})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return decodeSnapshot("change sensor activation")(c.api.ChangeSensorActivation(callCtx, request))
}

// ProcessImage uploads an encoded camera picture.
func (c *Client) ProcessImage(ctx context.Context, picture []byte) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return decodeSnapshot("process image")(c.api.ProcessImage(callCtx, wrapperspb.Bytes(picture)))
}

// RecoverAlarm steps a triggered alarm back to pending.
func (c *Client) RecoverAlarm(ctx context.Context) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return decodeSnapshot("recover alarm")(c.api.RecoverAlarm(callCtx, new(emptypb.Empty)))
}

// WatchEvents streams listener notifications into handle until ctx is done or the server ends the stream.
// The call timeout does not apply to the stream.
func (c *Client) WatchEvents(ctx context.Context, handle func(message.Event) error) error {
	stream, err := c.api.WatchEvents(c.withActor(ctx), new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("watch events: %w", err)
	}

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("receive event: %w", err)
		}

		event, err := message.EventFromStruct(response)
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}

		if err = handle(event); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = c.withActor(ctx)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Client) withActor(ctx context.Context) context.Context {
	if c.actor == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, api.ActorMetadataKey, c.actor)
}

func sensorRequest(sensor *domain.Sensor) (*structpb.Struct, error) {
	if sensor == nil {
		return nil, errSensorRequired
	}

	request, err := message.SensorToStruct(sensor)
	if err != nil {
		return nil, fmt.Errorf("encode sensor: %w", err)
	}

	return request, nil
}

// decodeSnapshot wraps a raw RPC result into a decoded snapshot.
func decodeSnapshot(operation string) func(*structpb.Struct, error) (*domain.Snapshot, error) {
	return func(response *structpb.Struct, err error) (*domain.Snapshot, error) {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}

		snapshot, err := message.SnapshotFromStruct(response)
		if err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", operation, err)
		}

		return snapshot, nil
	}
}
