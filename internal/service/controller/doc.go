// Package controller implements the alarm status decision engine.
//
// Controller receives arming changes, sensor activation reports and camera
// images, forwards updates to the state Repository and decides how the alarm
// status changes. It is the only place where those rules live.
//
// A Controller performs no locking of its own: every operation reads and then
// writes shared state across several steps, so callers running on several
// goroutines must serialise access (see the server service for an example).
package controller
