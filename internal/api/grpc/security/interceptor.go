package security

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/logger"
)

// ActorMetadataKey carries "username@hostname" of the caller for the audit log.
const ActorMetadataKey = "x-catpoint-actor"

// UnaryLoggingInterceptor scopes the request logger with the caller and logs the outcome of every call.
func UnaryLoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx = withActor(ctx)
	started := time.Now()

	resp, err := handler(ctx, req)

	logger.DebugKV(ctx, "RPC finished",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(started).String(),
	)

	return resp, err
}

// StreamLoggingInterceptor logs the start and end of every stream.
func StreamLoggingInterceptor(
	srv any,
	stream grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	ctx := withActor(stream.Context())

	logger.InfoKV(ctx, "Stream opened", "method", info.FullMethod)

	err := handler(srv, stream)

	logger.InfoKV(ctx, "Stream closed", "method", info.FullMethod, "code", status.Code(err).String())

	return err
}

// ActorFromContext returns the caller identity sent in the request metadata.
func ActorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(ActorMetadataKey)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

func withActor(ctx context.Context) context.Context {
	actor := ActorFromContext(ctx)
	if actor == "" {
		return ctx
	}

	return logger.WithKV(ctx, "actor", actor)
}
