package server

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/oshokin/catpoint/internal/api/message"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/notify"
	"github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/service/controller"
)

// service encapsulates the security controller and orchestrates access to it.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// controller holds the alarm decision rules.
	controller *controller.Controller
	// events fans controller notifications out to gRPC watchers.
	events *notify.Broadcaster
	// mu serialises every controller call.
	mu sync.Mutex
}

// newService creates a service backed by the provided repository and image analyzer.
func newService(repo state.Repository, analyzer controller.ImageAnalyzer) (*service, error) {
	s := &service{
		controller: controller.New(repo, analyzer),
		events:     notify.NewBroadcaster(notify.DefaultSubscriberBuffer),
	}

	for _, listener := range []controller.StatusListener{new(notify.LogListener), s.events} {
		if err := s.controller.AddStatusListener(listener); err != nil {
			return nil, fmt.Errorf("register listener: %w", err)
		}
	}

	return s, nil
}

// Status returns the current status snapshot.
func (s *service) Status(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.controller.Status(ctx)
}

// SetArmingStatus changes the arming mode.
func (s *service) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (*domain.Snapshot, error) {
	return s.apply(ctx, func(ctx context.Context) error {
		return s.controller.SetArmingStatus(ctx, status)
	})
}

// AddSensor registers a sensor.
func (s *service) AddSensor(ctx context.Context, sensor *domain.Sensor) (*domain.Snapshot, error) {
	return s.apply(ctx, func(ctx context.Context) error {
		return s.controller.AddSensor(ctx, sensor)
	})
}

// RemoveSensor unregisters a sensor.
func (s *service) RemoveSensor(ctx context.Context, sensor *domain.Sensor) (*domain.Snapshot, error) {
	return s.apply(ctx, func(ctx context.Context) error {
		return s.controller.RemoveSensor(ctx, sensor)
	})
}

// ChangeSensorActivation looks the sensor up by key and reports its new activation.
func (s *service) ChangeSensorActivation(
	ctx context.Context,
	key domain.SensorKey,
	active bool,
) (*domain.Snapshot, error) {
	return s.apply(ctx, func(ctx context.Context) error {
		sensor, err := s.findSensor(ctx, key)
		if err != nil {
			return err
		}

		return s.controller.ChangeSensorActivation(ctx, sensor, active)
	})
}

// ProcessImage analyses a camera picture.
func (s *service) ProcessImage(ctx context.Context, img image.Image) (*domain.Snapshot, error) {
	return s.apply(ctx, func(ctx context.Context) error {
		return s.controller.ProcessImage(ctx, img)
	})
}

// RecoverAlarm applies the deactivation rule for a previously active sensor,
// which steps a triggered alarm back to pending.
func (s *service) RecoverAlarm(ctx context.Context) (*domain.Snapshot, error) {
	return s.apply(ctx, func(ctx context.Context) error {
		return s.controller.HandleSensorDeactivated(ctx, true)
	})
}

// Subscribe registers a watcher for controller notifications.
func (s *service) Subscribe() (<-chan message.Event, func()) {
	return s.events.Subscribe()
}

// apply runs op under the lock and returns the resulting snapshot.
func (s *service) apply(ctx context.Context, op func(context.Context) error) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := op(ctx); err != nil {
		logger.ErrorKV(ctx, "Security operation failed", "error", err)

		return nil, err
	}

	return s.controller.Status(ctx)
}

// findSensor returns the stored sensor with the given key. Caller holds mu.
func (s *service) findSensor(ctx context.Context, key domain.SensorKey) (*domain.Sensor, error) {
	sensors, err := s.controller.Sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sensors: %w", err)
	}

	for _, sensor := range sensors {
		if sensor.Key() == key {
			return sensor, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", state.ErrSensorNotFound, key)
}
