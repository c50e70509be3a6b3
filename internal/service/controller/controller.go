package controller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/repository/state"
)

// CatConfidenceThreshold is the confidence in percent the image analyzer must reach.
const CatConfidenceThreshold float32 = 50

var (
	// ErrNilSensor is returned when a sensor operation receives nil.
	ErrNilSensor = errors.New("sensor is nil")
	// ErrListenerNotComparable is returned for listeners that cannot be kept in a set.
	ErrListenerNotComparable = errors.New("status listener is not comparable")
	// ErrNilImage is returned when ProcessImage receives nil.
	ErrNilImage = errors.New("image is nil")
)

// Controller holds the alarm status transition rules.
type Controller struct {
	// repo stores sensors, statuses and the cat flag.
	repo state.Repository
	// analyzer looks for cats in camera images.
	analyzer ImageAnalyzer
	// listeners is the set of registered status listeners.
	listeners map[StatusListener]struct{}
}

// New creates a controller backed by the provided repository and image analyzer.
func New(repo state.Repository, analyzer ImageAnalyzer) *Controller {
	return &Controller{
		repo:      repo,
		analyzer:  analyzer,
		listeners: make(map[StatusListener]struct{}),
	}
}

// AddStatusListener registers a listener. Adding the same listener twice has no effect,
// nil is ignored and listeners of a non-comparable type are rejected.
func (c *Controller) AddStatusListener(listener StatusListener) error {
	if listener == nil {
		return nil
	}

	if !isComparable(listener) {
		return fmt.Errorf("%w: %T", ErrListenerNotComparable, listener)
	}

	c.listeners[listener] = struct{}{}

	return nil
}

// RemoveStatusListener unregisters a listener. Unknown listeners are ignored.
func (c *Controller) RemoveStatusListener(listener StatusListener) {
	if listener == nil || !isComparable(listener) {
		return
	}

	delete(c.listeners, listener)
}

// isComparable reports whether listener can be used as a map key without panicking.
func isComparable(listener StatusListener) bool {
	return reflect.TypeOf(listener).Comparable()
}

// SetArmingStatus changes the arming mode.
// Disarming clears the alarm, arming at home while a cat is on camera raises it,
// any other arming resets every sensor to inactive. The new mode is stored last.
func (c *Controller) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if err := c.applyArmingStatus(ctx, status); err != nil {
		return err
	}

	if err := c.repo.SetArmingStatus(ctx, status); err != nil {
		return fmt.Errorf("store arming status: %w", err)
	}

	logger.InfoKV(ctx, "Arming status changed", "arming_status", status.String())

	return nil
}

// ChangeSensorActivation records a sensor report and updates the alarm status if necessary.
// The sensor's Active field is overwritten; its previous value drives the decision.
func (c *Controller) ChangeSensorActivation(ctx context.Context, sensor *domain.Sensor, active bool) error {
	if sensor == nil {
		return ErrNilSensor
	}

	previousState := sensor.Active
	sensor.Active = active

	if err := c.repo.UpdateSensor(ctx, sensor); err != nil {
		return fmt.Errorf("store sensor %s: %w", sensor.Key(), err)
	}

	logger.DebugKV(ctx, "Sensor activation changed",
		"sensor", sensor.Key().String(),
		"previous", previousState,
		"active", active,
	)

	alarmStatus, err := c.repo.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("read alarm status: %w", err)
	}

	// A triggered alarm ignores sensor churn until the system is disarmed.
	if alarmStatus == domain.Alarm {
		return nil
	}

	if active {
		return c.handleSensorActivated(ctx, previousState)
	}

	return c.HandleSensorDeactivated(ctx, previousState)
}

// ProcessImage asks the analyzer whether img shows a cat and updates the alarm status.
// The cat flag is stored only after the decision succeeded.
func (c *Controller) ProcessImage(ctx context.Context, img image.Image) error {
	if img == nil {
		return ErrNilImage
	}

	catPresent, err := c.analyzer.DetectCat(ctx, img, CatConfidenceThreshold)
	if err != nil {
		return fmt.Errorf("analyze image: %w", err)
	}

	if err = c.catDetected(ctx, catPresent); err != nil {
		return err
	}

	if err = c.repo.SetCatDetected(ctx, catPresent); err != nil {
		return fmt.Errorf("store cat flag: %w", err)
	}

	return nil
}

// HandleSensorDeactivated applies the deactivation rule for a sensor that was
// previously in previousState. Besides the regular path through
// ChangeSensorActivation, recovery tooling calls it directly to step a
// triggered alarm back to pending.
func (c *Controller) HandleSensorDeactivated(ctx context.Context, previousState bool) error {
	if !previousState {
		return nil
	}

	alarmStatus, err := c.repo.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("read alarm status: %w", err)
	}

	switch alarmStatus {
	case domain.PendingAlarm:
		allInactive, err := c.allSensorsInactive(ctx)
		if err != nil {
			return err
		}

		if allInactive {
			return c.setAlarmStatus(ctx, domain.NoAlarm)
		}
	case domain.Alarm:
		return c.setAlarmStatus(ctx, domain.PendingAlarm)
	case domain.NoAlarm:
	}

	return nil
}

// Status returns the current state of the whole system.
func (c *Controller) Status(ctx context.Context) (*domain.Snapshot, error) {
	armingStatus, err := c.repo.ArmingStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("read arming status: %w", err)
	}

	alarmStatus, err := c.repo.AlarmStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("read alarm status: %w", err)
	}

	catDetected, err := c.repo.IsCatDetected(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cat flag: %w", err)
	}

	sensors, err := c.repo.Sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sensors: %w", err)
	}

	return &domain.Snapshot{
		ArmingStatus: armingStatus,
		AlarmStatus:  alarmStatus,
		CatDetected:  catDetected,
		Sensors:      sensors,
	}, nil
}

// ArmingStatus returns the stored arming status.
func (c *Controller) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	return c.repo.ArmingStatus(ctx)
}

// AlarmStatus returns the stored alarm status.
func (c *Controller) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	return c.repo.AlarmStatus(ctx)
}

// IsCatDetected returns the last image analysis verdict.
func (c *Controller) IsCatDetected(ctx context.Context) (bool, error) {
	return c.repo.IsCatDetected(ctx)
}

// Sensors returns copies of all known sensors.
func (c *Controller) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	return c.repo.Sensors(ctx)
}

// AddSensor hands a new sensor to the repository.
func (c *Controller) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	if err := c.repo.AddSensor(ctx, sensor); err != nil {
		return fmt.Errorf("add sensor %s: %w", sensor.Key(), err)
	}

	logger.InfoKV(ctx, "Sensor added", "sensor", sensor.Key().String())

	return nil
}

// RemoveSensor removes a sensor from the repository.
func (c *Controller) RemoveSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrNilSensor
	}

	if err := c.repo.RemoveSensor(ctx, sensor); err != nil {
		return fmt.Errorf("remove sensor %s: %w", sensor.Key(), err)
	}

	logger.InfoKV(ctx, "Sensor removed", "sensor", sensor.Key().String())

	return nil
}

// applyArmingStatus runs exactly one of the arming branches before the new mode is stored.
func (c *Controller) applyArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if status == domain.Disarmed {
		return c.setAlarmStatus(ctx, domain.NoAlarm)
	}

	catDetected, err := c.repo.IsCatDetected(ctx)
	if err != nil {
		return fmt.Errorf("read cat flag: %w", err)
	}

	if catDetected && status == domain.ArmedHome {
		return c.setAlarmStatus(ctx, domain.Alarm)
	}

	return c.resetSensors(ctx)
}

// catDetected applies the camera verdict and always notifies listeners about it.
func (c *Controller) catDetected(ctx context.Context, catPresent bool) error {
	armingStatus, err := c.repo.ArmingStatus(ctx)
	if err != nil {
		return fmt.Errorf("read arming status: %w", err)
	}

	switch {
	case catPresent && armingStatus == domain.ArmedHome:
		err = c.setAlarmStatus(ctx, domain.Alarm)
	case !catPresent:
		allInactive, checkErr := c.allSensorsInactive(ctx)
		if checkErr != nil {
			return checkErr
		}

		if allInactive {
			err = c.setAlarmStatus(ctx, domain.NoAlarm)
		}
	}

	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Camera verdict", "cat_detected", catPresent)

	for listener := range c.listeners {
		listener.CatDetected(ctx, catPresent)
	}

	return nil
}

// handleSensorActivated escalates the alarm status for an armed system.
func (c *Controller) handleSensorActivated(ctx context.Context, previousState bool) error {
	armingStatus, err := c.repo.ArmingStatus(ctx)
	if err != nil {
		return fmt.Errorf("read arming status: %w", err)
	}

	// A disarmed system ignores activations.
	if armingStatus == domain.Disarmed {
		return nil
	}

	alarmStatus, err := c.repo.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("read alarm status: %w", err)
	}

	switch alarmStatus {
	case domain.NoAlarm:
		return c.setAlarmStatus(ctx, domain.PendingAlarm)
	case domain.PendingAlarm:
		// The armed check repeats the guard above on purpose; it stays in case the guard changes.
		if previousState || armingStatus.IsArmed() {
			return c.setAlarmStatus(ctx, domain.Alarm)
		}
	case domain.Alarm:
	}

	return nil
}

// setAlarmStatus stores the alarm status and notifies every listener.
func (c *Controller) setAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if err := c.repo.SetAlarmStatus(ctx, status); err != nil {
		return fmt.Errorf("store alarm status: %w", err)
	}

	logger.InfoKV(ctx, "Alarm status changed", "alarm_status", status.String())

	for listener := range c.listeners {
		listener.AlarmStatusChanged(ctx, status)
	}

	return nil
}

// resetSensors writes every known sensor back as inactive, one update per sensor.
func (c *Controller) resetSensors(ctx context.Context) error {
	sensors, err := c.repo.Sensors(ctx)
	if err != nil {
		return fmt.Errorf("read sensors: %w", err)
	}

	for _, sensor := range sensors {
		sensor.Active = false

		if err = c.repo.UpdateSensor(ctx, sensor); err != nil {
			return fmt.Errorf("reset sensor %s: %w", sensor.Key(), err)
		}
	}

	return nil
}

func (c *Controller) allSensorsInactive(ctx context.Context) (bool, error) {
	sensors, err := c.repo.Sensors(ctx)
	if err != nil {
		return false, fmt.Errorf("read sensors: %w", err)
	}

	return domain.AllSensorsInactive(sensors), nil
}
