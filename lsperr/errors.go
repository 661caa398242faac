// Package lsperr defines the error taxonomy shared by every layer of the
// protocol engine: transport, dispatch, capability negotiation, document
// sync, pooling and configuration all report failures through the same
// small set of kinds so callers can branch with errors.Is rather than
// string matching.
package lsperr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed. It is not a concrete error type;
// wrap it in an Error to attach context.
type Kind int

const (
	Unknown Kind = iota
	FramingError
	ProtocolError
	CapabilityUnsupported
	MethodNotFound
	InvalidParams
	InternalError
	Cancelled
	Timeout
	Terminated
	FileNotFound
	PoolSaturated
)

func (k Kind) String() string {
	switch k {
	case FramingError:
		return "FramingError"
	case ProtocolError:
		return "ProtocolError"
	case CapabilityUnsupported:
		return "CapabilityUnsupported"
	case MethodNotFound:
		return "MethodNotFound"
	case InvalidParams:
		return "InvalidParams"
	case InternalError:
		return "InternalError"
	case Cancelled:
		return "Cancelled"
	case Timeout:
		return "Timeout"
	case Terminated:
		return "Terminated"
	case FileNotFound:
		return "FileNotFound"
	case PoolSaturated:
		return "PoolSaturated"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with the method/feature it occurred on and an
// optional cause, following the %w-wrapping style used throughout the
// method implementations this package's callers are adapted from.
type Error struct {
	Kind    Kind
	Method  string
	Feature string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Feature != "" && e.Method != "":
		return fmt.Sprintf("%s: feature %q method %q: %v", e.Kind, e.Feature, e.Method, e.Cause)
	case e.Method != "":
		return fmt.Sprintf("%s: method %q: %v", e.Kind, e.Method, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is match any *Error of the same Kind, so both
// errors.Is(err, lsperr.ErrCancelled) (see the sentinels below) and
// errors.Is(err, &Error{Kind: Timeout}) work.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an Error of the given kind wrapping cause, for the given method.
func New(kind Kind, method string, cause error) *Error {
	return &Error{Kind: kind, Method: method, Cause: cause}
}

// NewFeature builds an Error attributing the failure to a specific feature.
func NewFeature(kind Kind, feature, method string, cause error) *Error {
	return &Error{Kind: kind, Feature: feature, Method: method, Cause: cause}
}

// sentinel values usable with errors.Is(err, lsperr.ErrCancelled) etc.
var (
	ErrCancelled  = &Error{Kind: Cancelled}
	ErrTimeout    = &Error{Kind: Timeout}
	ErrTerminated = &Error{Kind: Terminated}
)

// KindOf extracts the Kind of err if it is (or wraps) an *Error, else Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
