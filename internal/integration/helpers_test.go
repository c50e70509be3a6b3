package integration

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/common"
	"github.com/oshokin/catpoint/internal/service/server"
)

var (
	// ginger is classified as cat fur by the color analyzer.
	ginger = color.RGBA{R: 214, G: 120, B: 40, A: 255}
	// concrete is a neutral grey with no fur in it.
	concrete = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// reservePort returns a free local address for a test server.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// writeSettings saves a settings file pointing at addr with the given storage.
func writeSettings(t *testing.T, addr string, storage config.StorageConfig) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, &config.Config{
		ServerAddress: addr,
		Timeout:       3 * time.Second,
		LogLevel:      "error",
		Storage:       storage,
	}))

	return cfgPath
}

// startGRPC runs the real server until the returned stop function is called.
func startGRPC(t *testing.T, addr string, storage config.StorageConfig) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfgPath := writeSettings(t, addr, storage)
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath: cfgPath,
			Analyzer:   server.AnalyzerColor,
		})
	}()

	// Wait until the server answers.
	probe := dial(t, addr)
	require.Eventually(t, func() bool {
		_, err := probe.GetStatus(context.Background())
		return err == nil
	}, 10*time.Second, 20*time.Millisecond)

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// dial connects a client that is closed with the test.
func dial(t *testing.T, addr string) *common.Client {
	t.Helper()

	c, err := common.Dial(
		context.Background(),
		addr,
		common.WithCallTimeout(3*time.Second),
		common.WithActor(common.Actor{Hostname: "test-host", Username: "test-user"}),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

// solidPNG encodes a single-color picture.
func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for y := range 60 {
		for x := range 80 {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}
