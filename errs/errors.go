// Package errs provides the unified error type used across the sink.
//
// Every subsystem (objectstore drivers, keypath, the sink façade, the
// gateway) wraps its native errors into *errs.Error before returning them to
// callers. Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver — wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "upload stalled", sdkErr)
//
//	// In a handler — check error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// All drivers (MinIO, S3, …) map their native errors to one of these kinds,
// giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no object, no bucket
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPathTraversal            // path would escape the storage root
	ErrKindTimeout                  // stream stalled past its deadline, or context expired
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindBackendFailed            // any other storage operation error
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPathTraversal:
		return "path_traversal"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindBackendFailed:
		return "backend_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all sink subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original backend-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a missing object or bucket.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPathTraversal reports whether err was caused by a path that would
// escape the storage root.
func IsPathTraversal(err error) bool {
	return KindOf(err) == ErrKindPathTraversal
}

// IsTimeout reports whether err was caused by a stalled stream or an
// expired context deadline.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsBackendFailed reports whether err is a storage backend operation failure
// not covered by a more specific kind.
func IsBackendFailed(err error) bool {
	return KindOf(err) == ErrKindBackendFailed
}

// KindOf extracts the ErrKind from any error in the chain.
// Errors that do not carry an *Error are reported as ErrKindUnknown.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
