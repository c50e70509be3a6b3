package message

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Field names shared by requests, responses, events and the state file.
const (
	FieldArmingStatus = "arming_status"
	FieldAlarmStatus  = "alarm_status"
	FieldCatDetected  = "cat_detected"
	FieldSensors      = "sensors"
	FieldName         = "name"
	FieldType         = "type"
	FieldActive       = "active"
	FieldKind         = "kind"
)

// Event kinds emitted on the watch stream.
const (
	KindAlarmStatus = "alarm_status"
	KindCatDetected = "cat_detected"
)

var (
	// ErrNilMessage is returned when a nil struct is decoded.
	ErrNilMessage = errors.New("message is nil")
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing field")
	// ErrBadField is returned when a field has the wrong type.
	ErrBadField = errors.New("malformed field")
)

// Event is a listener notification as carried over the wire.
type Event struct {
	// Kind is KindAlarmStatus or KindCatDetected.
	Kind string
	// AlarmStatus is set for KindAlarmStatus events.
	AlarmStatus domain.AlarmStatus
	// CatDetected is set for KindCatDetected events.
	CatDetected bool
}

// SensorToStruct converts a sensor into a protobuf struct.
func SensorToStruct(sensor *domain.Sensor) (*structpb.Struct, error) {
	return structpb.NewStruct(sensorToMap(sensor))
}

// SensorFromStruct converts a protobuf struct into a sensor.
// The active flag is optional and defaults to false.
func SensorFromStruct(st *structpb.Struct) (*domain.Sensor, error) {
	if st == nil {
		return nil, ErrNilMessage
	}

	return sensorFromMap(st.AsMap())
}

// SnapshotToStruct converts a snapshot into a protobuf struct.
func SnapshotToStruct(snapshot *domain.Snapshot) (*structpb.Struct, error) {
	sensors := make([]any, 0, len(snapshot.Sensors))
	for _, sensor := range snapshot.Sensors {
		sensors = append(sensors, sensorToMap(sensor))
	}

	st, err := structpb.NewStruct(map[string]any{
		FieldArmingStatus: snapshot.ArmingStatus.String(),
		FieldAlarmStatus:  snapshot.AlarmStatus.String(),
		FieldCatDetected:  snapshot.CatDetected,
		FieldSensors:      sensors,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return st, nil
}

// SnapshotFromStruct converts a protobuf struct into a snapshot.
func SnapshotFromStruct(st *structpb.Struct) (*domain.Snapshot, error) {
	if st == nil {
		return nil, ErrNilMessage
	}

	fields := st.AsMap()

	armingName, err := stringField(fields, FieldArmingStatus)
	if err != nil {
		return nil, err
	}

	armingStatus, err := domain.ParseArmingStatus(armingName)
	if err != nil {
		return nil, err
	}

	alarmName, err := stringField(fields, FieldAlarmStatus)
	if err != nil {
		return nil, err
	}

	alarmStatus, err := domain.ParseAlarmStatus(alarmName)
	if err != nil {
		return nil, err
	}

	catDetected, _ := fields[FieldCatDetected].(bool)

	snapshot := &domain.Snapshot{
		ArmingStatus: armingStatus,
		AlarmStatus:  alarmStatus,
		CatDetected:  catDetected,
	}

	rawSensors, ok := fields[FieldSensors]
	if !ok || rawSensors == nil {
		return snapshot, nil
	}

	list, ok := rawSensors.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadField, FieldSensors)
	}

	for _, item := range list {
		sensorFields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadField, FieldSensors)
		}

		sensor, err := sensorFromMap(sensorFields)
		if err != nil {
			return nil, err
		}

		snapshot.Sensors = append(snapshot.Sensors, sensor)
	}

	return snapshot, nil
}

// EventToStruct converts a listener event into a protobuf struct.
func EventToStruct(event Event) (*structpb.Struct, error) {
	fields := map[string]any{
		FieldKind: event.Kind,
	}

	switch event.Kind {
	case KindAlarmStatus:
		fields[FieldAlarmStatus] = event.AlarmStatus.String()
	case KindCatDetected:
		fields[FieldCatDetected] = event.CatDetected
	default:
		return nil, fmt.Errorf("%w: %s %q", ErrBadField, FieldKind, event.Kind)
	}

	return structpb.NewStruct(fields)
}

// EventFromStruct converts a protobuf struct into a listener event.
func EventFromStruct(st *structpb.Struct) (Event, error) {
	if st == nil {
		return Event{}, ErrNilMessage
	}

	fields := st.AsMap()

	kind, err := stringField(fields, FieldKind)
	if err != nil {
		return Event{}, err
	}

	event := Event{Kind: kind}

	switch kind {
	case KindAlarmStatus:
		name, err := stringField(fields, FieldAlarmStatus)
		if err != nil {
			return Event{}, err
		}

		if event.AlarmStatus, err = domain.ParseAlarmStatus(name); err != nil {
			return Event{}, err
		}
	case KindCatDetected:
		event.CatDetected, _ = fields[FieldCatDetected].(bool)
	default:
		return Event{}, fmt.Errorf("%w: %s %q", ErrBadField, FieldKind, kind)
	}

	return event, nil
}

func sensorToMap(sensor *domain.Sensor) map[string]any {
	return map[string]any{
		FieldName:   sensor.Name,
		FieldType:   sensor.Type.String(),
		FieldActive: sensor.Active,
	}
}

func sensorFromMap(fields map[string]any) (*domain.Sensor, error) {
	name, err := stringField(fields, FieldName)
	if err != nil {
		return nil, err
	}

	typeName, err := stringField(fields, FieldType)
	if err != nil {
		return nil, err
	}

	sensorType, err := domain.ParseSensorType(typeName)
	if err != nil {
		return nil, err
	}

	active, _ := fields[FieldActive].(bool)

	return &domain.Sensor{
		Name:   name,
		Type:   sensorType,
		Active: active,
	}, nil
}

func stringField(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}

	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrBadField, key)
	}

	return value, nil
}
