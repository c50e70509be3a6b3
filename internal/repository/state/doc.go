// Package state implements persistence for the security system state.
//
// Repository is the port the security controller depends on. MemoryRepository
// keeps everything in process; FileRepository stores the whole snapshot as
// JSON on disk and rewrites it after every change.
package state
