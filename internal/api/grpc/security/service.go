package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "catpoint.security.v1.SecurityService"

// Full method names.
const (
	GetStatusFullMethod              = "/" + ServiceName + "/GetStatus"
	SetArmingStatusFullMethod        = "/" + ServiceName + "/SetArmingStatus"
	AddSensorFullMethod              = "/" + ServiceName + "/AddSensor"
	RemoveSensorFullMethod           = "/" + ServiceName + "/RemoveSensor"
	ChangeSensorActivationFullMethod = "/" + ServiceName + "/ChangeSensorActivation"
	ProcessImageFullMethod           = "/" + ServiceName + "/ProcessImage"
	RecoverAlarmFullMethod           = "/" + ServiceName + "/RecoverAlarm"
	WatchEventsFullMethod            = "/" + ServiceName + "/WatchEvents"
)

// SecurityServiceServer is the server API for the security service.
// Every unary call answers with the status snapshot after the operation.
type SecurityServiceServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
	RecoverAlarm(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	WatchEvents(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedSecurityServiceServer answers every call with codes.Unimplemented.
type UnimplementedSecurityServiceServer struct{}

// GetStatus is not implemented.
func (UnimplementedSecurityServiceServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

// SetArmingStatus is not implemented.
func (UnimplementedSecurityServiceServer) SetArmingStatus(
	context.Context,
	*wrapperspb.StringValue,
) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SetArmingStatus not implemented")
}

// AddSensor is not implemented.
func (UnimplementedSecurityServiceServer) AddSensor(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddSensor not implemented")
}

// RemoveSensor is not implemented.
func (UnimplementedSecurityServiceServer) RemoveSensor(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveSensor not implemented")
}

// ChangeSensorActivation is not implemented.
func (UnimplementedSecurityServiceServer) ChangeSensorActivation(
	context.Context,
	*structpb.Struct,
) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangeSensorActivation not implemented")
}

// ProcessImage is not implemented.
func (UnimplementedSecurityServiceServer) ProcessImage(
	context.Context,
	*wrapperspb.BytesValue,
) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ProcessImage not implemented")
}

// RecoverAlarm is not implemented.
func (UnimplementedSecurityServiceServer) RecoverAlarm(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RecoverAlarm not implemented")
}

// WatchEvents is not implemented.
func (UnimplementedSecurityServiceServer) WatchEvents(
	*emptypb.Empty,
	grpc.ServerStreamingServer[structpb.Struct],
) error {
	return status.Error(codes.Unimplemented, "method WatchEvents not implemented")
}

// RegisterSecurityServiceServer registers srv on the provided gRPC registrar.
func RegisterSecurityServiceServer(registrar grpc.ServiceRegistrar, srv SecurityServiceServer) {
	registrar.RegisterService(&SecurityServiceDesc, srv)
}

// SecurityServiceDesc is the grpc.ServiceDesc for the security service.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var SecurityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod[emptypb.Empty]("GetStatus", GetStatusFullMethod, SecurityServiceServer.GetStatus),
		unaryMethod[wrapperspb.StringValue]("SetArmingStatus", SetArmingStatusFullMethod, SecurityServiceServer.SetArmingStatus),
		unaryMethod[structpb.Struct]("AddSensor", AddSensorFullMethod, SecurityServiceServer.AddSensor),
		unaryMethod[structpb.Struct]("RemoveSensor", RemoveSensorFullMethod, SecurityServiceServer.RemoveSensor),
		unaryMethod[structpb.Struct](
			"ChangeSensorActivation",
			ChangeSensorActivationFullMethod,
			SecurityServiceServer.ChangeSensorActivation,
		),
		unaryMethod[wrapperspb.BytesValue]("ProcessImage", ProcessImageFullMethod, SecurityServiceServer.ProcessImage),
		unaryMethod[emptypb.Empty]("RecoverAlarm", RecoverAlarmFullMethod, SecurityServiceServer.RecoverAlarm),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "catpoint/security/v1/security.proto",
}

// unaryMethod builds a method descriptor that decodes a Req and dispatches to call.
func unaryMethod[Req any](
	name string,
	fullMethod string,
	call func(SecurityServiceServer, context.Context, *Req) (*structpb.Struct, error),
) grpc.MethodDesc {
	handler := func(
		srv any,
		ctx context.Context,
		dec func(any) error,
		interceptor grpc.UnaryServerInterceptor,
	) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(SecurityServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		})
	}

	return grpc.MethodDesc{
		MethodName: name,
		Handler:    handler,
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(SecurityServiceServer)

	return server.WatchEvents(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// SecurityServiceClient is the client API for the security service.
type SecurityServiceClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	AddSensor(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RemoveSensor(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ChangeSensorActivation(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	RecoverAlarm(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	WatchEvents(
		ctx context.Context,
		in *emptypb.Empty,
		opts ...grpc.CallOption,
	) (grpc.ServerStreamingClient[structpb.Struct], error)
}

// securityServiceClient implements SecurityServiceClient over a client connection.
type securityServiceClient struct {
	// cc is the underlying connection.
	cc grpc.ClientConnInterface
}

// NewSecurityServiceClient creates a client bound to cc.
//
//nolint:ireturn // Mirrors generated gRPC clients.
func NewSecurityServiceClient(cc grpc.ClientConnInterface) SecurityServiceClient {
	return &securityServiceClient{cc: cc}
}

// GetStatus returns the status snapshot.
func (c *securityServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, GetStatusFullMethod, in, opts)
}

// SetArmingStatus changes the arming mode.
func (c *securityServiceClient) SetArmingStatus(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, SetArmingStatusFullMethod, in, opts)
}

// AddSensor registers a sensor.
func (c *securityServiceClient) AddSensor(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, AddSensorFullMethod, in, opts)
}

// RemoveSensor unregisters a sensor.
func (c *securityServiceClient) RemoveSensor(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RemoveSensorFullMethod, in, opts)
}

// ChangeSensorActivation reports a sensor activation change.
func (c *securityServiceClient) ChangeSensorActivation(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, ChangeSensorActivationFullMethod, in, opts)
}

// ProcessImage submits a camera picture.
func (c *securityServiceClient) ProcessImage(
	ctx context.Context,
	in *wrapperspb.BytesValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, ProcessImageFullMethod, in, opts)
}

// RecoverAlarm steps a triggered alarm back to pending.
func (c *securityServiceClient) RecoverAlarm(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RecoverAlarmFullMethod, in, opts)
}

// WatchEvents streams listener notifications.
//
//nolint:ireturn // Mirrors generated gRPC clients.
func (c *securityServiceClient) WatchEvents(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &SecurityServiceDesc.Streams[0], WatchEventsFullMethod, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err = x.SendMsg(in); err != nil {
		return nil, err
	}

	if err = x.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

func invoke(
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in any,
	opts []grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
