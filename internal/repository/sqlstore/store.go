package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/repository/state"
)

const (
	// snapshotCacheKey is the cache entry holding the whole state.
	snapshotCacheKey = "snapshot"
	// snapshotTTL bounds how long a cached snapshot may be served.
	snapshotTTL = time.Minute
	// cleanupInterval is how often expired cache entries are purged.
	cleanupInterval = 5 * time.Minute
)

// Store implements state.Repository using GORM and SQLite.
type Store struct {
	// db is the GORM handle.
	db *gorm.DB
	// snapshots caches whole-state reads.
	snapshots *cache.Cache
}

var _ state.Repository = (*Store)(nil)

// Open connects to the SQLite database at path, runs migrations and seeds the state row.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return New(ctx, db)
}

// New wraps an existing GORM handle, runs migrations and seeds the state row.
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&sensorRecord{}, &systemStateRecord{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	defaults := state.DefaultSnapshot()
	seed := systemStateRecord{
		ID:           systemStateID,
		ArmingStatus: defaults.ArmingStatus.String(),
		AlarmStatus:  defaults.AlarmStatus.String(),
	}

	if err := db.WithContext(ctx).FirstOrCreate(&seed, systemStateRecord{ID: systemStateID}).Error; err != nil {
		return nil, fmt.Errorf("seed system state: %w", err)
	}

	return &Store{
		db:        db,
		snapshots: cache.New(snapshotTTL, cleanupInterval),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	return sqlDB.Close()
}

// Snapshot returns a copy of the whole state, served from cache when possible.
func (s *Store) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	if cached, ok := s.snapshots.Get(snapshotCacheKey); ok {
		if snapshot, ok := cached.(*domain.Snapshot); ok {
			return snapshot.Clone(), nil
		}
	}

	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.snapshots.Set(snapshotCacheKey, snapshot, cache.DefaultExpiration)

	return snapshot.Clone(), nil
}

// ArmingStatus returns the stored arming status.
func (s *Store) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Disarmed, err
	}

	return snapshot.ArmingStatus, nil
}

// SetArmingStatus stores the arming status.
func (s *Store) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	return s.updateState(ctx, "arming_status", status.String())
}

// AlarmStatus returns the stored alarm status.
func (s *Store) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return domain.NoAlarm, err
	}

	return snapshot.AlarmStatus, nil
}

// SetAlarmStatus stores the alarm status.
func (s *Store) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	return s.updateState(ctx, "alarm_status", status.String())
}

// IsCatDetected returns the cached image analysis verdict.
func (s *Store) IsCatDetected(ctx context.Context) (bool, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	return snapshot.CatDetected, nil
}

// SetCatDetected caches the image analysis verdict.
func (s *Store) SetCatDetected(ctx context.Context, detected bool) error {
	return s.updateState(ctx, "cat_detected", detected)
}

// Sensors returns copies of all sensors in insertion order.
func (s *Store) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return snapshot.Sensors, nil
}

// AddSensor stores a sensor, replacing the activation flag of one with the same key.
func (s *Store) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return state.ErrNilSensor
	}

	defer s.snapshots.Delete(snapshotCacheKey)

	record := toRecord(sensor)

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sensor %s: %w", sensor.Key(), err)
	}

	return nil
}

// RemoveSensor deletes a sensor; unknown sensors are ignored.
func (s *Store) RemoveSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return state.ErrNilSensor
	}

	defer s.snapshots.Delete(snapshotCacheKey)

	err := s.db.WithContext(ctx).
		Where("name = ? AND type = ?", sensor.Name, sensor.Type.String()).
		Delete(&sensorRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete sensor %s: %w", sensor.Key(), err)
	}

	return nil
}

// UpdateSensor overwrites the activation flag of a known sensor.
func (s *Store) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return state.ErrNilSensor
	}

	defer s.snapshots.Delete(snapshotCacheKey)

	result := s.db.WithContext(ctx).
		Model(&sensorRecord{}).
		Where("name = ? AND type = ?", sensor.Name, sensor.Type.String()).
		Update("active", sensor.Active)
	if result.Error != nil {
		return fmt.Errorf("failed to update sensor %s: %w", sensor.Key(), result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", state.ErrSensorNotFound, sensor.Key())
	}

	return nil
}

// updateState changes one column of the system state row and drops the cache.
func (s *Store) updateState(ctx context.Context, column string, value any) error {
	defer s.snapshots.Delete(snapshotCacheKey)

	err := s.db.WithContext(ctx).
		Model(&systemStateRecord{ID: systemStateID}).
		Update(column, value).Error
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}

	return nil
}

// loadSnapshot reads both tables in one transaction.
func (s *Store) loadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	var (
		stateRow systemStateRecord
		rows     []sensorRecord
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&stateRow, systemStateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return state.ErrNotFound
			}

			return fmt.Errorf("failed to read system state: %w", err)
		}

		if err := tx.Order("created_at, name, type").Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to read sensors: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return toSnapshot(&stateRow, rows)
}

func toRecord(sensor *domain.Sensor) sensorRecord {
	return sensorRecord{
		Name:   sensor.Name,
		Type:   sensor.Type.String(),
		Active: sensor.Active,
	}
}

func toSnapshot(row *systemStateRecord, rows []sensorRecord) (*domain.Snapshot, error) {
	armingStatus, err := domain.ParseArmingStatus(row.ArmingStatus)
	if err != nil {
		return nil, err
	}

	alarmStatus, err := domain.ParseAlarmStatus(row.AlarmStatus)
	if err != nil {
		return nil, err
	}

	sensors := make([]*domain.Sensor, 0, len(rows))

	for _, r := range rows {
		sensorType, err := domain.ParseSensorType(r.Type)
		if err != nil {
			return nil, err
		}

		sensors = append(sensors, &domain.Sensor{
			Name:   r.Name,
			Type:   sensorType,
			Active: r.Active,
		})
	}

	return &domain.Snapshot{
		ArmingStatus: armingStatus,
		AlarmStatus:  alarmStatus,
		CatDetected:  row.CatDetected,
		Sensors:      sensors,
	}, nil
}
