// Package security contains core domain types for the home security business logic.
//
// It defines the arming and alarm enumerations, Sensor (a named detector with
// an activation flag) and Snapshot (the whole system state at a point in time)
// with Clone helpers to avoid leaking internal references.
package security
