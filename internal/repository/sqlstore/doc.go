// Package sqlstore implements the state Repository on top of SQLite via GORM.
//
// Sensors live in the "sensors" table keyed by name and type, statuses and
// the cat flag in a single "system_states" row. Whole-state reads are cached
// in memory and dropped on every write.
package sqlstore
