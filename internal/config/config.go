package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the catpoint binaries.
type Config struct {
	// ServerAddress is the gRPC server address for security service connections.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written by the logger (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// Storage selects where the server keeps sensors and statuses.
	Storage StorageConfig `yaml:"storage"`
	// Camera configures the folder poller.
	Camera CameraConfig `yaml:"camera"`
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Driver is one of StorageDriverFile, StorageDriverSQLite or StorageDriverMemory.
	Driver string `yaml:"driver"`
	// Path is the JSON state file or the SQLite database file.
	Path string `yaml:"path"`
}

// CameraConfig configures the camera folder poller.
type CameraConfig struct {
	// Folder is scanned for new image files.
	Folder string `yaml:"folder"`
	// PollInterval is the delay between two scans.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Storage drivers understood by the server.
const (
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
	StorageDriverMemory = "memory"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default filename for the JSON state file.
	DefaultStateFilename = "catpoint-state.json"

	// DefaultDatabaseFilename is the default filename for the SQLite database.
	DefaultDatabaseFilename = "catpoint.db"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultPollInterval is the default delay between camera folder scans.
	DefaultPollInterval = 2 * time.Second

	// DefaultFilePermissions is the default file permission for settings and state files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownStorageDriver is returned for an unsupported storage driver.
	errUnknownStorageDriver = errors.New("unknown storage driver")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if settings.Camera.PollInterval <= 0 {
		settings.Camera.PollInterval = DefaultPollInterval
	}

	return validateStorage(&settings.Storage)
}

// validateStorage defaults the driver to file storage and picks the matching default path.
func validateStorage(storage *StorageConfig) error {
	if storage.Driver == "" {
		storage.Driver = StorageDriverFile
	}

	switch storage.Driver {
	case StorageDriverFile:
		if storage.Path == "" {
			storage.Path = DefaultStateFilename
		}
	case StorageDriverSQLite:
		if storage.Path == "" {
			storage.Path = DefaultDatabaseFilename
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("%w: %q", errUnknownStorageDriver, storage.Driver)
	}

	return nil
}
