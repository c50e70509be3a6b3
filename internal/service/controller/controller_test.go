package controller

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/repository/state"
)

var errTestAnalyzer = errors.New("test analyzer error")

// recordingRepository wraps the memory repository and records every write in order.
type recordingRepository struct {
	*state.MemoryRepository

	// writes lists the writes as "kind:value" strings.
	writes []string
	// alarmWrites lists the stored alarm statuses.
	alarmWrites []domain.AlarmStatus
	// sensorUpdates lists copies of the updated sensors.
	sensorUpdates []*domain.Sensor
	// catWrites lists the stored cat flags.
	catWrites []bool
}

func newRecordingRepository(snapshot *domain.Snapshot) *recordingRepository {
	return &recordingRepository{
		MemoryRepository: state.NewMemoryRepository(snapshot),
	}
}

// SetAlarmStatus records the alarm status and stores it.
func (r *recordingRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	r.writes = append(r.writes, "alarm:"+status.String())
	r.alarmWrites = append(r.alarmWrites, status)

	return r.MemoryRepository.SetAlarmStatus(ctx, status)
}

// SetArmingStatus records the arming status and stores it.
func (r *recordingRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	r.writes = append(r.writes, "arming:"+status.String())

	return r.MemoryRepository.SetArmingStatus(ctx, status)
}

// UpdateSensor records the sensor and stores it.
func (r *recordingRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	r.writes = append(r.writes, "sensor:"+sensor.Key().String())
	r.sensorUpdates = append(r.sensorUpdates, sensor.Clone())

	return r.MemoryRepository.UpdateSensor(ctx, sensor)
}

// SetCatDetected records the cat flag and stores it.
func (r *recordingRepository) SetCatDetected(ctx context.Context, detected bool) error {
	r.writes = append(r.writes, "cat")
	r.catWrites = append(r.catWrites, detected)

	return r.MemoryRepository.SetCatDetected(ctx, detected)
}

// fakeAnalyzer returns a fixed verdict and remembers the threshold it was called with.
type fakeAnalyzer struct {
	// result is the verdict returned by DetectCat.
	result bool
	// err is returned by DetectCat when set.
	err error
	// threshold is the last confidence threshold received.
	threshold float32
}

// DetectCat returns the configured verdict.
func (f *fakeAnalyzer) DetectCat(_ context.Context, _ image.Image, confidenceThreshold float32) (bool, error) {
	f.threshold = confidenceThreshold

	return f.result, f.err
}

// recordingListener collects notifications.
type recordingListener struct {
	// statuses lists received alarm statuses.
	statuses []domain.AlarmStatus
	// cats lists received cat verdicts.
	cats []bool
}

// AlarmStatusChanged records the status.
func (l *recordingListener) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	l.statuses = append(l.statuses, status)
}

// CatDetected records the verdict.
func (l *recordingListener) CatDetected(_ context.Context, detected bool) {
	l.cats = append(l.cats, detected)
}

// testImage is a tiny non-nil image.
func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

// testSensors returns count inactive sensors with distinct names.
func testSensors(count int, active bool) []*domain.Sensor {
	names := []string{"Front door", "Back door", "Kitchen window", "Hall", "Garage", "Bedroom"}
	types := []domain.SensorType{domain.Door, domain.Door, domain.Window, domain.Motion, domain.Door, domain.Window}

	sensors := make([]*domain.Sensor, 0, count)
	for i := range count {
		sensors = append(sensors, &domain.Sensor{Name: names[i], Type: types[i], Active: active})
	}

	return sensors
}

func newTestController(snapshot *domain.Snapshot, analyzer *fakeAnalyzer) (*Controller, *recordingRepository) {
	repo := newRecordingRepository(snapshot)
	if analyzer == nil {
		analyzer = new(fakeAnalyzer)
	}

	return New(repo, analyzer), repo
}

func requireAlarmStatus(t *testing.T, c *Controller, want domain.AlarmStatus) {
	t.Helper()

	got, err := c.AlarmStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestSetArmingStatus_DisarmClearsAlarm checks disarming yields NO_ALARM from any state.
func TestSetArmingStatus_DisarmClearsAlarm(t *testing.T) {
	t.Parallel()

	for _, alarm := range []domain.AlarmStatus{domain.NoAlarm, domain.PendingAlarm, domain.Alarm} {
		for _, cat := range []bool{false, true} {
			c, repo := newTestController(&domain.Snapshot{
				ArmingStatus: domain.ArmedHome,
				AlarmStatus:  alarm,
				CatDetected:  cat,
				Sensors:      testSensors(2, true),
			}, nil)

			require.NoError(t, c.SetArmingStatus(context.Background(), domain.Disarmed))

			requireAlarmStatus(t, c, domain.NoAlarm)
			require.Equal(t, []string{"alarm:NO_ALARM", "arming:DISARMED"}, repo.writes)
		}
	}
}

// TestSetArmingStatus_HomeWithCatRaisesAlarm checks a cat on camera triggers the alarm when arming at home.
func TestSetArmingStatus_HomeWithCatRaisesAlarm(t *testing.T) {
	t.Parallel()

	for _, active := range []bool{false, true} {
		c, repo := newTestController(&domain.Snapshot{
			ArmingStatus: domain.Disarmed,
			AlarmStatus:  domain.NoAlarm,
			CatDetected:  true,
			Sensors:      testSensors(3, active),
		}, nil)

		listener := new(recordingListener)
		require.NoError(t, c.AddStatusListener(listener))

		require.NoError(t, c.SetArmingStatus(context.Background(), domain.ArmedHome))

		requireAlarmStatus(t, c, domain.Alarm)
		require.Equal(t, []domain.AlarmStatus{domain.Alarm}, listener.statuses)
		require.Empty(t, repo.sensorUpdates)

		// The alarm status is stored before the arming status.
		require.Equal(t, []string{"alarm:ALARM", "arming:ARMED_HOME"}, repo.writes)
	}
}

// TestSetArmingStatus_ResetsSensors checks arming without the cat condition deactivates every sensor.
func TestSetArmingStatus_ResetsSensors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status domain.ArmingStatus
		cat    bool
	}{
		{name: "home without cat", status: domain.ArmedHome, cat: false},
		{name: "away without cat", status: domain.ArmedAway, cat: false},
		{name: "away with cat", status: domain.ArmedAway, cat: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, repo := newTestController(&domain.Snapshot{
				ArmingStatus: domain.Disarmed,
				AlarmStatus:  domain.NoAlarm,
				CatDetected:  tc.cat,
				Sensors:      append(testSensors(2, true), testSensors(4, false)[2:]...),
			}, nil)

			require.NoError(t, c.SetArmingStatus(context.Background(), tc.status))

			require.Empty(t, repo.alarmWrites)
			require.Len(t, repo.sensorUpdates, 4)

			sensors, err := c.Sensors(context.Background())
			require.NoError(t, err)
			require.True(t, domain.AllSensorsInactive(sensors))

			armed, err := c.ArmingStatus(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.status, armed)
			require.Equal(t, "arming:"+tc.status.String(), repo.writes[len(repo.writes)-1])
		})
	}
}

// TestChangeSensorActivation_NoAlarmToPending checks each activation from NO_ALARM yields one pending write.
func TestChangeSensorActivation_NoAlarmToPending(t *testing.T) {
	t.Parallel()

	for _, arming := range []domain.ArmingStatus{domain.ArmedHome, domain.ArmedAway} {
		sensors := testSensors(3, false)

		for _, sensor := range sensors {
			c, repo := newTestController(&domain.Snapshot{
				ArmingStatus: arming,
				AlarmStatus:  domain.NoAlarm,
				Sensors:      sensors,
			}, nil)

			require.NoError(t, c.ChangeSensorActivation(context.Background(), sensor.Clone(), true))

			require.Equal(t, []domain.AlarmStatus{domain.PendingAlarm}, repo.alarmWrites)
			requireAlarmStatus(t, c, domain.PendingAlarm)
		}
	}
}

// TestChangeSensorActivation_PendingToAlarm checks a sensor activation while pending escalates to ALARM.
func TestChangeSensorActivation_PendingToAlarm(t *testing.T) {
	t.Parallel()

	for _, previouslyActive := range []bool{true, false} {
		sensors := testSensors(2, previouslyActive)
		c, repo := newTestController(&domain.Snapshot{
			ArmingStatus: domain.ArmedAway,
			AlarmStatus:  domain.PendingAlarm,
			Sensors:      sensors,
		}, nil)

		require.NoError(t, c.ChangeSensorActivation(context.Background(), sensors[0], true))

		require.Equal(t, []domain.AlarmStatus{domain.Alarm}, repo.alarmWrites)
		requireAlarmStatus(t, c, domain.Alarm)
	}
}

// TestChangeSensorActivation_PendingToNoAlarm checks NO_ALARM is reached only when every sensor is inactive.
func TestChangeSensorActivation_PendingToNoAlarm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sensors := testSensors(3, true)
	c, repo := newTestController(&domain.Snapshot{
		ArmingStatus: domain.ArmedHome,
		AlarmStatus:  domain.PendingAlarm,
		Sensors:      sensors,
	}, nil)

	require.NoError(t, c.ChangeSensorActivation(ctx, sensors[0], false))
	require.NoError(t, c.ChangeSensorActivation(ctx, sensors[1], false))
	require.Empty(t, repo.alarmWrites)
	requireAlarmStatus(t, c, domain.PendingAlarm)

	require.NoError(t, c.ChangeSensorActivation(ctx, sensors[2], false))
	require.Equal(t, []domain.AlarmStatus{domain.NoAlarm}, repo.alarmWrites)
	requireAlarmStatus(t, c, domain.NoAlarm)
}

// TestChangeSensorActivation_AlarmIgnoresSensors checks a triggered alarm is insensitive to sensor churn.
func TestChangeSensorActivation_AlarmIgnoresSensors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sensors := testSensors(3, false)
	c, repo := newTestController(&domain.Snapshot{
		ArmingStatus: domain.ArmedAway,
		AlarmStatus:  domain.Alarm,
		Sensors:      sensors,
	}, nil)

	for _, active := range []bool{true, true, false, true, false, false} {
		for _, sensor := range sensors {
			require.NoError(t, c.ChangeSensorActivation(ctx, sensor, active))
		}
	}

	require.Empty(t, repo.alarmWrites)
	requireAlarmStatus(t, c, domain.Alarm)

	// Every report is still written through to the repository.
	require.Len(t, repo.sensorUpdates, 18)
}

// TestChangeSensorActivation_NoOps covers the disarmed system and the already inactive sensor.
func TestChangeSensorActivation_NoOps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	sensors := testSensors(1, false)
	c, repo := newTestController(&domain.Snapshot{
		ArmingStatus: domain.Disarmed,
		AlarmStatus:  domain.NoAlarm,
		Sensors:      sensors,
	}, nil)

	require.NoError(t, c.ChangeSensorActivation(ctx, sensors[0], true))
	require.Empty(t, repo.alarmWrites)

	stored, err := c.Sensors(ctx)
	require.NoError(t, err)
	require.True(t, stored[0].Active)

	for _, alarm := range []domain.AlarmStatus{domain.NoAlarm, domain.PendingAlarm} {
		sensors = testSensors(2, false)
		c, repo = newTestController(&domain.Snapshot{
			ArmingStatus: domain.ArmedHome,
			AlarmStatus:  alarm,
			Sensors:      sensors,
		}, nil)

		require.NoError(t, c.ChangeSensorActivation(ctx, sensors[0], false))
		require.Empty(t, repo.alarmWrites)
		requireAlarmStatus(t, c, alarm)
	}
}

// TestChangeSensorActivation_UnknownSensor checks repository errors are propagated.
func TestChangeSensorActivation_UnknownSensor(t *testing.T) {
	t.Parallel()

	c, repo := newTestController(&domain.Snapshot{ArmingStatus: domain.ArmedAway}, nil)

	err := c.ChangeSensorActivation(context.Background(), domain.NewSensor("Ghost", domain.Motion), true)
	require.ErrorIs(t, err, state.ErrSensorNotFound)
	require.Empty(t, repo.alarmWrites)

	require.ErrorIs(t, c.ChangeSensorActivation(context.Background(), nil, true), ErrNilSensor)
}

// TestScenario_EscalationAndRecovery walks a sensor through pending, alarm and the recovery rule.
func TestScenario_EscalationAndRecovery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sensor := domain.NewSensor("Front door", domain.Door)
	c, repo := newTestController(&domain.Snapshot{
		ArmingStatus: domain.ArmedAway,
		AlarmStatus:  domain.NoAlarm,
		Sensors:      []*domain.Sensor{sensor.Clone()},
	}, nil)

	require.NoError(t, c.ChangeSensorActivation(ctx, sensor, true))
	requireAlarmStatus(t, c, domain.PendingAlarm)

	// The sensor fires again while already active.
	require.NoError(t, c.ChangeSensorActivation(ctx, sensor, true))
	requireAlarmStatus(t, c, domain.Alarm)

	// Through the guarded entry point the alarm stays triggered.
	require.NoError(t, c.ChangeSensorActivation(ctx, sensor, false))
	requireAlarmStatus(t, c, domain.Alarm)

	// The deactivation rule itself steps the alarm back to pending.
	require.NoError(t, c.HandleSensorDeactivated(ctx, true))
	requireAlarmStatus(t, c, domain.PendingAlarm)

	require.Equal(t, []domain.AlarmStatus{domain.PendingAlarm, domain.Alarm, domain.PendingAlarm}, repo.alarmWrites)
}

// TestHandleSensorDeactivated covers each branch of the deactivation rule.
func TestHandleSensorDeactivated(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		alarm         domain.AlarmStatus
		previousState bool
		sensors       []*domain.Sensor
		want          domain.AlarmStatus
		wantWrites    int
	}{
		{name: "inactive sensor is a no-op", alarm: domain.Alarm, previousState: false, want: domain.Alarm},
		{name: "alarm steps back to pending", alarm: domain.Alarm, previousState: true, want: domain.PendingAlarm, wantWrites: 1},
		{name: "pending clears when all inactive", alarm: domain.PendingAlarm, previousState: true, sensors: testSensors(2, false), want: domain.NoAlarm, wantWrites: 1},
		{name: "pending holds while a sensor is active", alarm: domain.PendingAlarm, previousState: true, sensors: testSensors(2, true), want: domain.PendingAlarm},
		{name: "no alarm stays", alarm: domain.NoAlarm, previousState: true, want: domain.NoAlarm},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, repo := newTestController(&domain.Snapshot{
				ArmingStatus: domain.ArmedHome,
				AlarmStatus:  tc.alarm,
				Sensors:      tc.sensors,
			}, nil)

			require.NoError(t, c.HandleSensorDeactivated(context.Background(), tc.previousState))
			requireAlarmStatus(t, c, tc.want)
			require.Len(t, repo.alarmWrites, tc.wantWrites)
		})
	}
}

// TestProcessImage_CatWhileArmedHome checks a cat raises the alarm exactly once and is cached last.
func TestProcessImage_CatWhileArmedHome(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{result: true}
	c, repo := newTestController(&domain.Snapshot{
		ArmingStatus: domain.ArmedHome,
		AlarmStatus:  domain.NoAlarm,
		Sensors:      testSensors(2, false),
	}, analyzer)

	listener := new(recordingListener)
	require.NoError(t, c.AddStatusListener(listener))

	require.NoError(t, c.ProcessImage(context.Background(), testImage()))

	require.InDelta(t, 50, analyzer.threshold, 0.001)
	require.Equal(t, []domain.AlarmStatus{domain.Alarm}, repo.alarmWrites)
	require.Equal(t, []domain.AlarmStatus{domain.Alarm}, listener.statuses)
	require.Equal(t, []bool{true}, listener.cats)
	require.Equal(t, []string{"alarm:ALARM", "cat"}, repo.writes)

	cat, err := c.IsCatDetected(context.Background())
	require.NoError(t, err)
	require.True(t, cat)
}

// TestProcessImage_CatWhileAway checks a cat does not raise the alarm outside ARMED_HOME.
func TestProcessImage_CatWhileAway(t *testing.T) {
	t.Parallel()

	for _, arming := range []domain.ArmingStatus{domain.Disarmed, domain.ArmedAway} {
		c, repo := newTestController(&domain.Snapshot{
			ArmingStatus: arming,
			AlarmStatus:  domain.PendingAlarm,
			Sensors:      testSensors(1, true),
		}, &fakeAnalyzer{result: true})

		listener := new(recordingListener)
		require.NoError(t, c.AddStatusListener(listener))

		require.NoError(t, c.ProcessImage(context.Background(), testImage()))

		require.Empty(t, repo.alarmWrites)
		require.Equal(t, []bool{true}, listener.cats)
		require.Equal(t, []bool{true}, repo.catWrites)
	}
}

// TestProcessImage_NoCat checks NO_ALARM is set only when every sensor is inactive.
func TestProcessImage_NoCat(t *testing.T) {
	t.Parallel()

	c, repo := newTestController(&domain.Snapshot{
		ArmingStatus: domain.ArmedHome,
		AlarmStatus:  domain.PendingAlarm,
		CatDetected:  true,
		Sensors:      testSensors(3, false),
	}, &fakeAnalyzer{result: false})

	listener := new(recordingListener)
	require.NoError(t, c.AddStatusListener(listener))

	require.NoError(t, c.ProcessImage(context.Background(), testImage()))
	require.Equal(t, []domain.AlarmStatus{domain.NoAlarm}, repo.alarmWrites)
	require.Equal(t, []bool{false}, listener.cats)
	require.Equal(t, []bool{false}, repo.catWrites)

	sensors := testSensors(3, false)
	sensors[1].Active = true

	c, repo = newTestController(&domain.Snapshot{
		ArmingStatus: domain.ArmedHome,
		AlarmStatus:  domain.PendingAlarm,
		Sensors:      sensors,
	}, &fakeAnalyzer{result: false})

	require.NoError(t, c.ProcessImage(context.Background(), testImage()))
	require.Empty(t, repo.alarmWrites)
	requireAlarmStatus(t, c, domain.PendingAlarm)
}

// TestProcessImage_AnalyzerFailure checks a failed analysis leaves the state untouched.
func TestProcessImage_AnalyzerFailure(t *testing.T) {
	t.Parallel()

	c, repo := newTestController(&domain.Snapshot{
		ArmingStatus: domain.ArmedHome,
		AlarmStatus:  domain.NoAlarm,
	}, &fakeAnalyzer{result: true, err: errTestAnalyzer})

	listener := new(recordingListener)
	require.NoError(t, c.AddStatusListener(listener))

	err := c.ProcessImage(context.Background(), testImage())
	require.ErrorIs(t, err, errTestAnalyzer)
	require.Empty(t, repo.writes)
	require.Empty(t, listener.cats)

	require.ErrorIs(t, c.ProcessImage(context.Background(), nil), ErrNilImage)
}

// TestStatusListeners checks set semantics of listener registration.
func TestStatusListeners(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, _ := newTestController(&domain.Snapshot{ArmingStatus: domain.ArmedAway}, nil)

	first := new(recordingListener)
	second := new(recordingListener)

	require.NoError(t, c.AddStatusListener(first))
	require.NoError(t, c.AddStatusListener(first))
	require.NoError(t, c.AddStatusListener(second))
	require.NoError(t, c.AddStatusListener(nil))
	c.RemoveStatusListener(new(recordingListener))

	require.NoError(t, c.SetArmingStatus(ctx, domain.Disarmed))
	require.Equal(t, []domain.AlarmStatus{domain.NoAlarm}, first.statuses)
	require.Equal(t, []domain.AlarmStatus{domain.NoAlarm}, second.statuses)

	c.RemoveStatusListener(first)

	require.NoError(t, c.SetArmingStatus(ctx, domain.Disarmed))
	require.Len(t, first.statuses, 1)
	require.Len(t, second.statuses, 2)
}

// sliceListener is a value listener whose type cannot be a map key.
type sliceListener struct {
	seen []domain.AlarmStatus
}

func (sliceListener) AlarmStatusChanged(context.Context, domain.AlarmStatus) {}

func (sliceListener) CatDetected(context.Context, bool) {}

// TestStatusListeners_NotComparable rejects listeners that would panic as set members.
func TestStatusListeners_NotComparable(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(nil, nil)

	require.NotPanics(t, func() {
		err := c.AddStatusListener(sliceListener{})
		require.ErrorIs(t, err, ErrListenerNotComparable)

		c.RemoveStatusListener(sliceListener{})
	})

	require.NoError(t, c.SetArmingStatus(context.Background(), domain.Disarmed))
}

// TestStatus_AndSensorMembership checks the snapshot accessor and add/remove pass-throughs.
func TestStatus_AndSensorMembership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, _ := newTestController(nil, nil)

	door := domain.NewSensor("Front door", domain.Door)
	require.NoError(t, c.AddSensor(ctx, door))
	require.NoError(t, c.AddSensor(ctx, domain.NewSensor("Hall", domain.Motion)))
	require.NoError(t, c.RemoveSensor(ctx, door))
	require.ErrorIs(t, c.AddSensor(ctx, nil), ErrNilSensor)

	snapshot, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Disarmed, snapshot.ArmingStatus)
	require.Equal(t, domain.NoAlarm, snapshot.AlarmStatus)
	require.False(t, snapshot.CatDetected)
	require.Equal(t, []*domain.Sensor{domain.NewSensor("Hall", domain.Motion)}, snapshot.Sensors)
}
