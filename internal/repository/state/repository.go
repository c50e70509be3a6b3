package state

import (
	"context"
	"errors"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Repository defines persistence operations for sensors, statuses and the cat flag.
// Sensors returns copies; callers change a sensor through UpdateSensor.
type Repository interface {
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	Sensors(ctx context.Context) ([]*domain.Sensor, error)
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor *domain.Sensor) error
	UpdateSensor(ctx context.Context, sensor *domain.Sensor) error
	IsCatDetected(ctx context.Context) (bool, error)
	SetCatDetected(ctx context.Context, detected bool) error
}

var (
	// ErrNotFound is returned when the state file does not exist yet.
	ErrNotFound = errors.New("state not found")
	// ErrSensorNotFound is returned when updating a sensor the repository does not know.
	ErrSensorNotFound = errors.New("sensor not found")
	// ErrNilSensor is returned when a nil sensor is passed to a repository.
	ErrNilSensor = errors.New("sensor is nil")
)

// DefaultSnapshot is the state of a freshly installed system.
func DefaultSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		ArmingStatus: domain.Disarmed,
		AlarmStatus:  domain.NoAlarm,
	}
}
