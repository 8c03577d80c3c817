// Package status defines the closed set of failure kinds the transform engine reports.
package status

import (
	"github.com/pkg/errors"
)

// Code is the error enumeration seen by callers of the registry.
type Code int

const (
	OK Code = iota
	NotInitialized
	InvalidHandle
	Unsupported
	InsufficientPoints
	AllocationFailure
	SingularSystem
	DegenerateControlPoints
	Unknown
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case NotInitialized:
		return "not initialized"
	case InvalidHandle:
		return "invalid handle"
	case Unsupported:
		return "unsupported operation"
	case InsufficientPoints:
		return "insufficient points"
	case AllocationFailure:
		return "allocation failure"
	case SingularSystem:
		return "singular system"
	case DegenerateControlPoints:
		return "degenerate control points"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Code. Wrap them with errors.Wrapf to add context.
var (
	ErrNotInitialized     = errors.New("registry not initialized")
	ErrInvalidHandle      = errors.New("invalid model handle")
	ErrUnsupported        = errors.New("unsupported operation")
	ErrInsufficientPoints = errors.New("insufficient active control points")
	ErrAllocation         = errors.New("allocation failure")
	ErrSingular           = errors.New("singular system")
	ErrDegenerate         = errors.New("degenerate control points")
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrNotInitialized, NotInitialized},
	{ErrInvalidHandle, InvalidHandle},
	{ErrUnsupported, Unsupported},
	{ErrInsufficientPoints, InsufficientPoints},
	{ErrAllocation, AllocationFailure},
	{ErrSingular, SingularSystem},
	{ErrDegenerate, DegenerateControlPoints},
}

// CodeOf maps err onto the enumeration. A nil error is OK; anything not derived
// from one of the sentinels is Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return Unknown
}

// Err returns the sentinel for a code, or nil for OK and Unknown.
func (c Code) Err() error {
	for _, e := range codes {
		if e.code == c {
			return e.err
		}
	}
	return nil
}
