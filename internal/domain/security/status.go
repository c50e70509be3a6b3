package security

import (
	"errors"
	"fmt"
	"strings"
)

// ArmingStatus describes whether the system is disarmed or armed in home/away mode.
type ArmingStatus int

const (
	// Disarmed means sensor activations are ignored.
	Disarmed ArmingStatus = iota
	// ArmedHome means the owners are at home; a detected cat raises the alarm.
	ArmedHome
	// ArmedAway means the house is empty.
	ArmedAway
)

// AlarmStatus is the three-level escalation state derived from sensors and camera.
type AlarmStatus int

const (
	// NoAlarm means nothing is happening.
	NoAlarm AlarmStatus = iota
	// PendingAlarm means a sensor fired and the system waits for confirmation.
	PendingAlarm
	// Alarm means the alarm is triggered.
	Alarm
)

var (
	// ErrUnknownArmingStatus is returned when an arming status name cannot be parsed.
	ErrUnknownArmingStatus = errors.New("unknown arming status")
	// ErrUnknownAlarmStatus is returned when an alarm status name cannot be parsed.
	ErrUnknownAlarmStatus = errors.New("unknown alarm status")
)

// String returns the canonical upper-case name of the arming status.
func (s ArmingStatus) String() string {
	switch s {
	case Disarmed:
		return "DISARMED"
	case ArmedHome:
		return "ARMED_HOME"
	case ArmedAway:
		return "ARMED_AWAY"
	default:
		return fmt.Sprintf("ArmingStatus(%d)", int(s))
	}
}

// Description returns the text shown to a person looking at the panel.
func (s ArmingStatus) Description() string {
	switch s {
	case Disarmed:
		return "Disarmed"
	case ArmedHome:
		return "Armed - At Home"
	case ArmedAway:
		return "Armed - Away"
	default:
		return s.String()
	}
}

// IsArmed reports whether the system is armed in any mode.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmedHome || s == ArmedAway
}

// ParseArmingStatus converts a name such as "armed_home" or "home" into an ArmingStatus.
func ParseArmingStatus(s string) (ArmingStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DISARMED", "DISARM", "OFF":
		return Disarmed, nil
	case "ARMED_HOME", "HOME":
		return ArmedHome, nil
	case "ARMED_AWAY", "AWAY":
		return ArmedAway, nil
	default:
		return Disarmed, fmt.Errorf("%w: %q", ErrUnknownArmingStatus, s)
	}
}

// String returns the canonical upper-case name of the alarm status.
func (s AlarmStatus) String() string {
	switch s {
	case NoAlarm:
		return "NO_ALARM"
	case PendingAlarm:
		return "PENDING_ALARM"
	case Alarm:
		return "ALARM"
	default:
		return fmt.Sprintf("AlarmStatus(%d)", int(s))
	}
}

// Description returns the text shown to a person looking at the panel.
func (s AlarmStatus) Description() string {
	switch s {
	case NoAlarm:
		return "Cool and Good"
	case PendingAlarm:
		return "I'm in Danger..."
	case Alarm:
		return "Awooga!"
	default:
		return s.String()
	}
}

// ParseAlarmStatus converts a canonical name into an AlarmStatus.
func ParseAlarmStatus(s string) (AlarmStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NO_ALARM":
		return NoAlarm, nil
	case "PENDING_ALARM":
		return PendingAlarm, nil
	case "ALARM":
		return Alarm, nil
	default:
		return NoAlarm, fmt.Errorf("%w: %q", ErrUnknownAlarmStatus, s)
	}
}
