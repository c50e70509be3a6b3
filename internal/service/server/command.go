package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/imaging"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/repository/sqlstore"
	"github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/service/controller"
	"github.com/oshokin/catpoint/internal/version"
)

// Analyzer names accepted by Options.Analyzer.
const (
	AnalyzerColor = "color"
	AnalyzerFake  = "fake"
)

// Options controls the catpoint-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StoragePath overrides the storage path from the settings file.
	StoragePath string
	// Analyzer selects the cat detector: AnalyzerColor (default) or AnalyzerFake.
	Analyzer string
	// Seed seeds the fake analyzer.
	Seed uint64
}

// messageOverhead leaves room for protobuf framing around an uploaded picture.
const messageOverhead = 1 << 10

var (
	// ErrNoServerAddress indicates missing server configuration.
	ErrNoServerAddress = errors.New("no server address configured")
	// ErrUnknownAnalyzer indicates an unsupported analyzer name.
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
)

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "catpoint-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.ApplyLevel(settings.LogLevel); err != nil {
		return err
	}

	// Storage path from config unless overridden by command line option.
	if opts.StoragePath != "" {
		settings.Storage.Path = opts.StoragePath
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	analyzer, err := newAnalyzer(opts.Analyzer, opts.Seed)
	if err != nil {
		return err
	}

	repo, closer, err := openRepository(ctx, &settings.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close storage", "error", closeErr)
		}
	}()

	svc, err := newService(repo, analyzer)
	if err != nil {
		return err
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with the security service.
	grpcServer := grpc.NewServer(
		// Camera pictures exceed the default 4 MiB receive limit.
		grpc.MaxRecvMsgSize(imaging.MaxImageBytes+messageOverhead),
		grpc.ChainUnaryInterceptor(api.UnaryLoggingInterceptor),
		grpc.ChainStreamInterceptor(api.StreamLoggingInterceptor),
	)
	api.RegisterSecurityServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Security server listening",
		"listen_address", listenAddress,
		"storage_driver", settings.Storage.Driver,
		"storage_path", settings.Storage.Path,
		"version", version.Full(),
	)

	// Done channel is closed after Stop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		// Watch streams never end on their own.
		grpcServer.Stop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}

// openRepository creates the storage backend named in settings.
func openRepository(ctx context.Context, storage *config.StorageConfig) (state.Repository, io.Closer, error) {
	switch storage.Driver {
	case config.StorageDriverSQLite:
		store, err := sqlstore.Open(ctx, storage.Path)
		if err != nil {
			return nil, nil, err
		}

		return store, store, nil
	case config.StorageDriverMemory:
		return state.NewMemoryRepository(nil), nopCloser{}, nil
	default:
		return state.NewFileRepository(storage.Path), nopCloser{}, nil
	}
}

// nopCloser is the closer of backends that hold no resources.
type nopCloser struct{}

// Close does nothing.
func (nopCloser) Close() error { return nil }

// newAnalyzer creates the cat detector by name.
//
//nolint:ireturn // The controller only needs the port.
func newAnalyzer(name string, seed uint64) (controller.ImageAnalyzer, error) {
	switch name {
	case "", AnalyzerColor:
		return imaging.NewColorAnalyzer(), nil
	case AnalyzerFake:
		return imaging.NewFakeAnalyzer(seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, name)
	}
}
