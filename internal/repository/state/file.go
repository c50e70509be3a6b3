package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/catpoint/internal/api/message"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// FileRepository persists the security state to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) so the file
// matches the snapshot messages served over gRPC.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// snapshot caches the file contents after the first read.
	snapshot *domain.Snapshot
	// mu protects the cache and concurrent access to the state file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the state from disk.
// It returns ErrNotFound when the file does not exist yet.
func (r *FileRepository) Load(_ context.Context) (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, err := r.readFile()
	if err != nil {
		return nil, err
	}

	r.snapshot = snapshot

	return snapshot.Clone(), nil
}

// Snapshot returns a copy of the whole state, falling back to defaults for a missing file.
func (r *FileRepository) Snapshot(_ context.Context) (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, err := r.current()
	if err != nil {
		return nil, err
	}

	return snapshot.Clone(), nil
}

// ArmingStatus returns the stored arming status.
func (r *FileRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		return domain.Disarmed, err
	}

	return snapshot.ArmingStatus, nil
}

// SetArmingStatus stores the arming status.
func (r *FileRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	return r.mutate(func(s *domain.Snapshot) error {
		s.ArmingStatus = status

		return nil
	})
}

// AlarmStatus returns the stored alarm status.
func (r *FileRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		return domain.NoAlarm, err
	}

	return snapshot.AlarmStatus, nil
}

// SetAlarmStatus stores the alarm status.
func (r *FileRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	return r.mutate(func(s *domain.Snapshot) error {
		s.AlarmStatus = status

		return nil
	})
}

// Sensors returns copies of all sensors.
func (r *FileRepository) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return snapshot.Sensors, nil
}

// AddSensor stores a sensor, replacing one with the same key.
func (r *FileRepository) AddSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	return r.mutate(func(s *domain.Snapshot) error {
		s.Sensors = upsertSensor(s.Sensors, sensor)

		return nil
	})
}

// RemoveSensor deletes a sensor; unknown sensors are ignored.
func (r *FileRepository) RemoveSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	return r.mutate(func(s *domain.Snapshot) error {
		s.Sensors = deleteSensor(s.Sensors, sensor.Key())

		return nil
	})
}

// UpdateSensor overwrites a known sensor.
func (r *FileRepository) UpdateSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	return r.mutate(func(s *domain.Snapshot) error {
		return replaceSensor(s.Sensors, sensor)
	})
}

// IsCatDetected returns the cached image analysis verdict.
func (r *FileRepository) IsCatDetected(ctx context.Context) (bool, error) {
	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	return snapshot.CatDetected, nil
}

// SetCatDetected caches the image analysis verdict.
func (r *FileRepository) SetCatDetected(_ context.Context, detected bool) error {
	return r.mutate(func(s *domain.Snapshot) error {
		s.CatDetected = detected

		return nil
	})
}

// mutate applies change to a copy of the state, writes it and only then swaps the cache.
func (r *FileRepository) mutate(change func(*domain.Snapshot) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.current()
	if err != nil {
		return err
	}

	next := current.Clone()
	if err = change(next); err != nil {
		return err
	}

	if err = r.writeFile(next); err != nil {
		return err
	}

	r.snapshot = next

	return nil
}

// current returns the cached state, reading the file on first use. Caller holds mu.
func (r *FileRepository) current() (*domain.Snapshot, error) {
	if r.snapshot != nil {
		return r.snapshot, nil
	}

	snapshot, err := r.readFile()

	switch {
	case err == nil:
		r.snapshot = snapshot
	case errors.Is(err, ErrNotFound):
		r.snapshot = DefaultSnapshot()
	default:
		return nil, err
	}

	return r.snapshot, nil
}

func (r *FileRepository) readFile() (*domain.Snapshot, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var protoState structpb.Struct
	if err = protojson.Unmarshal(contents, &protoState); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	snapshot, err := message.SnapshotFromStruct(&protoState)
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return snapshot, nil
}

func (r *FileRepository) writeFile(snapshot *domain.Snapshot) error {
	protoState, err := message.SnapshotToStruct(snapshot)
	if err != nil {
		return err
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(protoState)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}
