//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/api/message"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// stubServer answers GetStatus and SetArmingStatus and records the caller.
type stubServer struct {
	api.UnimplementedSecurityServiceServer

	actors chan string
}

func (s *stubServer) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.actors <- api.ActorFromContext(ctx)

	return message.SnapshotToStruct(&domain.Snapshot{
		ArmingStatus: domain.ArmedHome,
		AlarmStatus:  domain.PendingAlarm,
		Sensors:      []*domain.Sensor{domain.NewSensor("Front door", domain.Door)},
	})
}

func (s *stubServer) SetArmingStatus(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == domain.ArmedAway.String() {
		return nil, status.Error(codes.FailedPrecondition, "nope")
	}

	return message.SnapshotToStruct(&domain.Snapshot{ArmingStatus: domain.Disarmed})
}

func newTestClient(t *testing.T, srv api.SecurityServiceServer, opts ...Option) *Client {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	api.RegisterSecurityServiceServer(grpcServer, srv)

	go func() {
		_ = grpcServer.Serve(listener)
	}()

	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := &Client{
		conn:        conn,
		api:         api.NewSecurityServiceClient(conn),
		callTimeout: time.Second,
	}

	for _, opt := range opts {
		opt(client)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	_, ok := metadata.FromOutgoingContext(ctx)
	require.False(t, ok)

	c.callTimeout = 10 * time.Millisecond
	c.actor = "cat@home"

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	require.Equal(t, []string{"cat@home"}, md.Get(api.ActorMetadataKey))
}

// TestClient_NilSensor asserts that nil sensors are rejected before any call.
func TestClient_NilSensor(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.AddSensor(context.Background(), nil)
	require.ErrorIs(t, err, errSensorRequired)

	_, err = c.RemoveSensor(context.Background(), nil)
	require.ErrorIs(t, err, errSensorRequired)
}

// TestClient_GetStatus decodes the snapshot and forwards the actor.
func TestClient_GetStatus(t *testing.T) {
	t.Parallel()

	srv := &stubServer{actors: make(chan string, 1)}
	client := newTestClient(t, srv, WithActor(Actor{Hostname: "kitchen", Username: "tabby"}))

	snapshot, err := client.GetStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.ArmedHome, snapshot.ArmingStatus)
	require.Equal(t, domain.PendingAlarm, snapshot.AlarmStatus)
	require.Len(t, snapshot.Sensors, 1)
	require.Equal(t, "Front door", snapshot.Sensors[0].Name)
	require.Equal(t, "tabby@kitchen", <-srv.actors)
}

// TestClient_ErrorsKeepStatus checks the server status survives error wrapping.
func TestClient_ErrorsKeepStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &stubServer{actors: make(chan string, 1)})

	snapshot, err := client.SetArmingStatus(context.Background(), domain.Disarmed)
	require.NoError(t, err)
	require.Equal(t, domain.Disarmed, snapshot.ArmingStatus)

	_, err = client.SetArmingStatus(context.Background(), domain.ArmedAway)
	require.Error(t, err)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.RecoverAlarm(context.Background())
	require.Equal(t, codes.Unimplemented, status.Code(err))
}
