package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/imaging"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// Options controls the camera poller.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// Folder overrides the watched folder from the config.
	Folder string
	// PollInterval overrides the scan interval from the config.
	PollInterval time.Duration
}

// Uploader sends a picture to the server.
type Uploader interface {
	ProcessImage(ctx context.Context, picture []byte) (*domain.Snapshot, error)
}

// errFolderRequired is returned when neither the flags nor the config name a folder.
var errFolderRequired = errors.New("camera folder must be provided")

// imageExtensions lists the file extensions picked up by the scanner.
var imageExtensions = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".webp"}

// Run scans the folder every poll interval until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "catpoint-camera")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = logger.ApplyLevel(cfg.LogLevel); err != nil {
		return err
	}

	folder := cfg.Camera.Folder
	if opts.Folder != "" {
		folder = opts.Folder
	}

	if folder == "" {
		return errFolderRequired
	}

	pollInterval := cfg.Camera.PollInterval
	if opts.PollInterval > 0 {
		pollInterval = opts.PollInterval
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout), common.WithActor(actor))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching camera folder",
		"server_address", serverAddress,
		"folder", folder,
		"interval", pollInterval.String(),
	)

	scanner := NewScanner(folder, client)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			if _, err = scanner.Scan(ctx); err != nil {
				logger.ErrorKV(ctx, "Scan failed", "error", err)
			}
		}
	}
}

// Scanner uploads pictures it has not seen yet. It is not safe for concurrent use.
type Scanner struct {
	// folder is the directory being scanned.
	folder string
	// uploader receives the picture bytes.
	uploader Uploader
	// seen maps file names to the modification time that was uploaded.
	seen map[string]time.Time
}

// NewScanner creates a scanner over folder.
func NewScanner(folder string, uploader Uploader) *Scanner {
	return &Scanner{
		folder:   folder,
		uploader: uploader,
		seen:     make(map[string]time.Time),
	}
}

// Scan uploads every new or modified image in the folder, oldest first, and
// returns the number of uploads. Failed uploads are retried on the next scan and
// files that disappeared from the folder are forgotten.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.folder)
	if err != nil {
		return 0, fmt.Errorf("read camera folder: %w", err)
	}

	type pending struct {
		name    string
		modTime time.Time
	}

	var files []pending

	present := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}

		present[entry.Name()] = struct{}{}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if seen, ok := s.seen[entry.Name()]; ok && !info.ModTime().After(seen) {
			continue
		}

		files = append(files, pending{name: entry.Name(), modTime: info.ModTime()})
	}

	// Forget pictures that were removed from the folder.
	for name := range s.seen {
		if _, ok := present[name]; !ok {
			delete(s.seen, name)
		}
	}

	slices.SortFunc(files, func(a, b pending) int {
		return a.modTime.Compare(b.modTime)
	})

	uploaded := 0

	for _, file := range files {
		if err = ctx.Err(); err != nil {
			return uploaded, err
		}

		if err = s.upload(ctx, file.name); err != nil {
			logger.ErrorKV(ctx, "Upload failed", "file", file.name, "error", err)
			continue
		}

		s.seen[file.name] = file.modTime
		uploaded++
	}

	return uploaded, nil
}

func (s *Scanner) upload(ctx context.Context, name string) error {
	path := filepath.Join(s.folder, name)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.Size() > imaging.MaxImageBytes {
		return fmt.Errorf("%s: %w", name, imaging.ErrImageTooLarge)
	}

	picture, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	snapshot, err := s.uploader.ProcessImage(ctx, picture)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Picture processed",
		"file", name,
		"cat_detected", snapshot.CatDetected,
		"alarm_status", snapshot.AlarmStatus.String(),
	)

	return nil
}

func isImage(name string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(name)))
}
