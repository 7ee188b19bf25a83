// Package errors defines error types for the purity client.
//
// This package provides structured error types that wrap the different failure
// scenarios of talking to a Pure Data peer: codec misuse, registry misuse,
// endpoint lifecycle violations, connect and handshake failures, and launcher
// failures. All error types support error unwrapping and can be checked using
// errors.Is, errors.As, and errors.AsType.
package errors
