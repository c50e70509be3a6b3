// Package message converts domain types to and from protobuf well-known types.
//
// The gRPC transport and the JSON state file share one representation: a
// structpb.Struct with snake_case keys and enum values rendered by name.
package message
