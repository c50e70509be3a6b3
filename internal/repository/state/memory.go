package state

import (
	"context"
	"slices"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// MemoryRepository keeps the security state in process memory.
// The zero value is not usable; create it with NewMemoryRepository.
type MemoryRepository struct {
	// snapshot is the current state; sensors keep insertion order.
	snapshot *domain.Snapshot
	// mu protects snapshot.
	mu sync.RWMutex
}

// NewMemoryRepository creates a repository seeded with the provided snapshot.
// A nil snapshot starts from DefaultSnapshot.
func NewMemoryRepository(initial *domain.Snapshot) *MemoryRepository {
	if initial == nil {
		initial = DefaultSnapshot()
	}

	return &MemoryRepository{
		snapshot: initial.Clone(),
	}
}

// Snapshot returns a copy of the whole state.
func (r *MemoryRepository) Snapshot(context.Context) (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.Clone(), nil
}

// ArmingStatus returns the stored arming status.
func (r *MemoryRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.ArmingStatus, nil
}

// SetArmingStatus stores the arming status.
func (r *MemoryRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot.ArmingStatus = status

	return nil
}

// AlarmStatus returns the stored alarm status.
func (r *MemoryRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.AlarmStatus, nil
}

// SetAlarmStatus stores the alarm status.
func (r *MemoryRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot.AlarmStatus = status

	return nil
}

// Sensors returns copies of all sensors.
func (r *MemoryRepository) Sensors(context.Context) ([]*domain.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.Clone().Sensors, nil
}

// AddSensor stores a sensor, replacing one with the same key.
func (r *MemoryRepository) AddSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot.Sensors = upsertSensor(r.snapshot.Sensors, sensor)

	return nil
}

// RemoveSensor deletes a sensor; unknown sensors are ignored.
func (r *MemoryRepository) RemoveSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot.Sensors = deleteSensor(r.snapshot.Sensors, sensor.Key())

	return nil
}

// UpdateSensor overwrites a known sensor.
func (r *MemoryRepository) UpdateSensor(_ context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return replaceSensor(r.snapshot.Sensors, sensor)
}

// IsCatDetected returns the cached image analysis verdict.
func (r *MemoryRepository) IsCatDetected(context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot.CatDetected, nil
}

// SetCatDetected caches the image analysis verdict.
func (r *MemoryRepository) SetCatDetected(_ context.Context, detected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot.CatDetected = detected

	return nil
}

// upsertSensor replaces the sensor with the same key or appends a copy.
func upsertSensor(sensors []*domain.Sensor, sensor *domain.Sensor) []*domain.Sensor {
	if err := replaceSensor(sensors, sensor); err == nil {
		return sensors
	}

	return append(sensors, sensor.Clone())
}

// replaceSensor overwrites the sensor with the same key in place.
func replaceSensor(sensors []*domain.Sensor, sensor *domain.Sensor) error {
	key := sensor.Key()

	for i, existing := range sensors {
		if existing.Key() == key {
			sensors[i] = sensor.Clone()

			return nil
		}
	}

	return ErrSensorNotFound
}

// deleteSensor removes the sensor with the given key, keeping order.
func deleteSensor(sensors []*domain.Sensor, key domain.SensorKey) []*domain.Sensor {
	return slices.DeleteFunc(sensors, func(s *domain.Sensor) bool {
		return s.Key() == key
	})
}
