// Package config defines settings shared by the catpoint binaries and provides
// helpers to load, validate and save them in YAML format.
//
// The Config type holds the gRPC server address, the storage backend used by
// the server and the camera folder watched by the poller.
package config
