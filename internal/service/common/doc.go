// Package common holds helpers shared by several services.
//
// It provides a typed gRPC client for the security service with call timeouts
// and detection of the current system actor (hostname/username) for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
