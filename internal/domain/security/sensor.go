package security

import (
	"errors"
	"fmt"
	"strings"
)

// SensorType is the kind of physical detector.
type SensorType int

const (
	// Door is a contact sensor on a door.
	Door SensorType = iota
	// Window is a contact sensor on a window.
	Window
	// Motion is a passive infrared motion detector.
	Motion
)

// ErrUnknownSensorType is returned when a sensor type name cannot be parsed.
var ErrUnknownSensorType = errors.New("unknown sensor type")

// String returns the canonical upper-case name of the sensor type.
func (t SensorType) String() string {
	switch t {
	case Door:
		return "DOOR"
	case Window:
		return "WINDOW"
	case Motion:
		return "MOTION"
	default:
		return fmt.Sprintf("SensorType(%d)", int(t))
	}
}

// ParseSensorType converts a case-insensitive name into a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DOOR":
		return Door, nil
	case "WINDOW":
		return Window, nil
	case "MOTION":
		return Motion, nil
	default:
		return Door, fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
	}
}

// SensorKey identifies a sensor. Two sensors with the same name and type are the same sensor.
type SensorKey struct {
	// Name is the human readable sensor name.
	Name string
	// Type is the kind of detector.
	Type SensorType
}

// String renders the key as "NAME/TYPE".
func (k SensorKey) String() string {
	return k.Name + "/" + k.Type.String()
}

// Sensor is a named detector with an activation flag.
type Sensor struct {
	// Name is the human readable sensor name.
	Name string
	// Type is the kind of detector.
	Type SensorType
	// Active is true while the sensor reports an open door, window or motion.
	Active bool
}

// NewSensor creates an inactive sensor.
func NewSensor(name string, sensorType SensorType) *Sensor {
	return &Sensor{
		Name: name,
		Type: sensorType,
	}
}

// Key returns the identity of the sensor.
func (s *Sensor) Key() SensorKey {
	return SensorKey{
		Name: s.Name,
		Type: s.Type,
	}
}

// Clone returns a copy of the sensor.
func (s *Sensor) Clone() *Sensor {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Snapshot represents the whole security system state at a specific point in time.
type Snapshot struct {
	// ArmingStatus is the current arming mode.
	ArmingStatus ArmingStatus
	// AlarmStatus is the current escalation level.
	AlarmStatus AlarmStatus
	// CatDetected is the last image analysis verdict.
	CatDetected bool
	// Sensors holds every known sensor.
	Sensors []*Sensor
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	sensors := make([]*Sensor, 0, len(s.Sensors))
	for _, sensor := range s.Sensors {
		sensors = append(sensors, sensor.Clone())
	}

	return &Snapshot{
		ArmingStatus: s.ArmingStatus,
		AlarmStatus:  s.AlarmStatus,
		CatDetected:  s.CatDetected,
		Sensors:      sensors,
	}
}

// AllSensorsInactive reports whether no sensor in the list is active.
// An empty list counts as all inactive.
func AllSensorsInactive(sensors []*Sensor) bool {
	for _, sensor := range sensors {
		if sensor.Active {
			return false
		}
	}

	return true
}
