// Package server runs the catpoint gRPC server.
//
// It loads settings, opens the configured storage backend, builds the security
// controller and serialises every call into it behind one mutex.
package server
