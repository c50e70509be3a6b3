package sqlstore

import "time"

// sensorRecord is a row of the sensors table.
type sensorRecord struct {
	Name      string    `gorm:"primaryKey"`
	Type      string    `gorm:"primaryKey"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (sensorRecord) TableName() string {
	return "sensors"
}

// systemStateRecord is the single row holding statuses and the cat flag.
type systemStateRecord struct {
	ID           uint   `gorm:"primaryKey"`
	ArmingStatus string `gorm:"not null"`
	AlarmStatus  string `gorm:"not null"`
	CatDetected  bool   `gorm:"not null"`
	UpdatedAt    time.Time
}

// TableName pins the table name.
func (systemStateRecord) TableName() string {
	return "system_states"
}

// systemStateID is the primary key of the only system_states row.
const systemStateID = 1
