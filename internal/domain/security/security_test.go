package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSensorClone verifies that Clone returns a copy and handles nil safely.
func TestSensorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Sensor)(nil).Clone())

	a := &Sensor{
		Name:   "Front door",
		Type:   Door,
		Active: true,
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
	require.Equal(t, a.Key(), b.Key())
}

// TestSnapshotClone verifies that Snapshot.Clone deep-copies sensors.
func TestSnapshotClone(t *testing.T) {
	t.Parallel()

	s := &Snapshot{
		ArmingStatus: ArmedHome,
		AlarmStatus:  PendingAlarm,
		CatDetected:  true,
		Sensors: []*Sensor{
			{Name: "Kitchen", Type: Motion, Active: true},
		},
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s.Sensors[0], c.Sensors[0])

	c.Sensors[0].Active = false
	require.True(t, s.Sensors[0].Active)
}

// TestParseStatuses checks round trips through String and the Parse helpers.
func TestParseStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []ArmingStatus{Disarmed, ArmedHome, ArmedAway} {
		got, err := ParseArmingStatus(status.String())
		require.NoError(t, err)
		require.Equal(t, status, got)
	}

	got, err := ParseArmingStatus("home")
	require.NoError(t, err)
	require.Equal(t, ArmedHome, got)

	_, err = ParseArmingStatus("armed_sideways")
	require.ErrorIs(t, err, ErrUnknownArmingStatus)

	for _, status := range []AlarmStatus{NoAlarm, PendingAlarm, Alarm} {
		parsed, err := ParseAlarmStatus(status.String())
		require.NoError(t, err)
		require.Equal(t, status, parsed)
	}

	_, err = ParseAlarmStatus("")
	require.ErrorIs(t, err, ErrUnknownAlarmStatus)

	sensorType, err := ParseSensorType("window")
	require.NoError(t, err)
	require.Equal(t, Window, sensorType)

	_, err = ParseSensorType("smoke")
	require.ErrorIs(t, err, ErrUnknownSensorType)
}

// TestAllSensorsInactive covers the empty, inactive and mixed cases.
func TestAllSensorsInactive(t *testing.T) {
	t.Parallel()

	require.True(t, AllSensorsInactive(nil))
	require.True(t, AllSensorsInactive([]*Sensor{NewSensor("a", Door), NewSensor("b", Window)}))
	require.False(t, AllSensorsInactive([]*Sensor{NewSensor("a", Door), {Name: "b", Type: Motion, Active: true}}))
	require.False(t, ArmingStatus(Disarmed).IsArmed())
	require.True(t, ArmedAway.IsArmed())
}
