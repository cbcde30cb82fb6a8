// Package errors provides error handling for psq.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for users (printed by the CLI)
//   - Marks, so an error can carry a category without changing its message
//
// Usage:
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Categorise a failure for callers
//	return errors.Mark(errors.Wrap(err, "ExecuteQuery request failed"), errors.ErrTransport)
//
//	// Check category
//	if errors.IsTransportError(err) {
//	    // network problem, nothing came back from PeopleSoft
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails

	GetReportableStackTrace = crdb.GetReportableStackTrace
)

// Error categories for an ExecuteQuery round trip.
// Errors returned by the peoplesoft package are marked with exactly one of
// ErrTransport, ErrRemoteRejection or ErrParse; test with errors.Is.
var (
	// ErrTransport indicates no HTTP response was received
	// (DNS, connection refused, TLS handshake, timeout).
	ErrTransport = New("transport error")

	// ErrRemoteRejection indicates PeopleSoft answered with a non-2xx status.
	ErrRemoteRejection = New("remote rejection")

	// ErrParse indicates the response body was not well-formed XML.
	ErrParse = New("parse error")

	// ErrTimeout indicates the request did not complete within the client timeout.
	// Always combined with ErrTransport.
	ErrTimeout = New("operation timed out")

	// ErrInvalidConfig indicates configuration that cannot produce a working client
	ErrInvalidConfig = New("invalid configuration")
)

// IsTransportError checks if an error is or wraps ErrTransport
func IsTransportError(err error) bool {
	return err != nil && Is(err, ErrTransport)
}

// IsRemoteRejection checks if an error is or wraps ErrRemoteRejection
func IsRemoteRejection(err error) bool {
	return err != nil && Is(err, ErrRemoteRejection)
}

// IsParseError checks if an error is or wraps ErrParse
func IsParseError(err error) bool {
	return err != nil && Is(err, ErrParse)
}

// IsTimeout checks if an error is or wraps ErrTimeout
func IsTimeout(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// NewInvalidConfigError creates an invalid-configuration error with a formatted message
func NewInvalidConfigError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidConfig)
}
