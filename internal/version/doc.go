// Package version exposes build metadata for the catpoint binaries.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Full is printed by the version subcommand of every CLI and
// UserAgent tags outgoing gRPC connections.
package version
