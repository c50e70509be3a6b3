// Package security implements the gRPC transport for the security service.
//
// The service is described by hand with protobuf well-known types
// (structpb, wrapperspb, emptypb) as messages, so no generated code is needed.
// Server adapts domain types to those messages and calls into a provided
// business-service interface; NewSecurityServiceClient is the matching client.
package security
