package security

import (
	"context"
	"errors"
	"image"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/catpoint/internal/api/message"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/imaging"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/repository/state"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Status(ctx context.Context) (*domain.Snapshot, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (*domain.Snapshot, error)
	AddSensor(ctx context.Context, sensor *domain.Sensor) (*domain.Snapshot, error)
	RemoveSensor(ctx context.Context, sensor *domain.Sensor) (*domain.Snapshot, error)
	ChangeSensorActivation(ctx context.Context, key domain.SensorKey, active bool) (*domain.Snapshot, error)
	ProcessImage(ctx context.Context, img image.Image) (*domain.Snapshot, error)
	RecoverAlarm(ctx context.Context) (*domain.Snapshot, error)
	Subscribe() (<-chan message.Event, func())
}

// Server implements the SecurityService gRPC API.
type Server struct {
	UnimplementedSecurityServiceServer

	// service provides the business logic for security operations.
	service Service
}

var _ SecurityServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns the current status snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return respond(s.service.Status(ctx))
}

// SetArmingStatus changes the arming mode.
func (s *Server) SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	armingStatus, err := domain.ParseArmingStatus(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return respond(s.service.SetArmingStatus(ctx, armingStatus))
}

// AddSensor registers a sensor.
func (s *Server) AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, err
	}

	return respond(s.service.AddSensor(ctx, sensor))
}

// RemoveSensor unregisters a sensor.
func (s *Server) RemoveSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, err
	}

	return respond(s.service.RemoveSensor(ctx, sensor))
}

// ChangeSensorActivation reports a sensor activation change.
func (s *Server) ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, err
	}

	if _, ok := req.GetFields()[message.FieldActive]; !ok {
		return nil, status.Error(codes.InvalidArgument, "active is required")
	}

	return respond(s.service.ChangeSensorActivation(ctx, sensor.Key(), sensor.Active))
}

// ProcessImage decodes the uploaded picture and hands it to the controller.
func (s *Server) ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	img, format, err := imaging.DecodeBytes(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	logger.DebugKV(ctx, "Image received", "format", format, "bytes", len(req.GetValue()))

	return respond(s.service.ProcessImage(ctx, img))
}

// RecoverAlarm steps a triggered alarm back to pending.
func (s *Server) RecoverAlarm(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return respond(s.service.RecoverAlarm(ctx))
}

// WatchEvents streams listener notifications until the client goes away.
func (s *Server) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	events, cancel := s.service.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			response, err := message.EventToStruct(event)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}

			if err = stream.Send(response); err != nil {
				return err
			}
		}
	}
}

// sensorFromRequest decodes a sensor or returns an InvalidArgument status.
func sensorFromRequest(req *structpb.Struct) (*domain.Sensor, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	sensor, err := message.SensorFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return sensor, nil
}

// respond converts a service result into a snapshot message or a status error.
func respond(snapshot *domain.Snapshot, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatusError(err)
	}

	response, err := message.SnapshotToStruct(snapshot)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return response, nil
}

// toStatusError maps service errors to gRPC status codes.
func toStatusError(err error) error {
	switch {
	case errors.Is(err, state.ErrSensorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
