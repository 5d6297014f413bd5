// Package errors defines the controller's error taxonomy (kinds, not just
// strings), per the error handling design in the specification: a malformed
// RTMP frame is handled locally and never surfaces as an error, an
// unexpected role observation is fatal for that switch's session, and a
// missing southbound capability is logged without retry.
package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"
)

// controllerMarker is implemented by every error kind below so callers can
// classify an error chain with errors.As without caring about the concrete type.
type controllerMarker interface {
	error
	isController()
}

// FrameError indicates a malformed or truncated RTMP frame observed by the
// chunk parser. The caller's response is always the same regardless of the
// cause: forward the packet unchanged and leave brain state untouched.
type FrameError struct {
	Op  string
	Err error
}

func (e *FrameError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("frame error: %s", e.Op)
	}
	return fmt.Sprintf("frame error: %s: %v", e.Op, e.Err)
}
func (e *FrameError) Unwrap() error { return e.Err }
func (e *FrameError) isController() {}

// RoleConsistencyError indicates a role/phase transition that violates the
// per-switch invariants (e.g. a publish-start observed from a port other
// than the already-learned service port). Per §7 this is fatal for the
// switch's brain: state mutation stops but packet forwarding continues via
// the plain path.
type RoleConsistencyError struct {
	Op  string
	Err error
}

func (e *RoleConsistencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("role consistency error: %s", e.Op)
	}
	return fmt.Sprintf("role consistency error: %s: %v", e.Op, e.Err)
}
func (e *RoleConsistencyError) Unwrap() error { return e.Err }
func (e *RoleConsistencyError) isController() {}

// CapabilityError indicates the southbound session rejected an action (the
// switch does not support a requested flow-mod or packet-out). No retry is
// attempted because control decisions are not idempotent with respect to
// partial installation.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capability error: %s", e.Op)
	}
	return fmt.Sprintf("capability error: %s: %v", e.Op, e.Err)
}
func (e *CapabilityError) Unwrap() error { return e.Err }
func (e *CapabilityError) isController() {}

// TimeoutError indicates an operation exceeded a deadline (e.g. a southbound
// session write deadline).
type TimeoutError struct {
	Op       string
	Duration time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (after %s)", e.Op, e.Duration)
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}
func (e *TimeoutError) Unwrap() error { return e.Err }
func (e *TimeoutError) isController() {}

// IsTimeout returns true if err is (or wraps) a TimeoutError, a context
// deadline exceeded, or any error exposing Timeout() bool that returns true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if stdErrors.As(err, &te) {
		return true
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var toErr interface{ Timeout() bool }
	if stdErrors.As(err, &toErr) && toErr.Timeout() {
		return true
	}
	return false
}

// IsFatalForSwitch reports whether err should stop the brain from mutating
// further state for its switch (currently only RoleConsistencyError).
func IsFatalForSwitch(err error) bool {
	if err == nil {
		return false
	}
	var rce *RoleConsistencyError
	return stdErrors.As(err, &rce)
}

// Constructors (encourage contextual wrapping with %w when used by callers).
func NewFrameError(op string, cause error) error { return &FrameError{Op: op, Err: cause} }
func NewRoleConsistencyError(op string, cause error) error {
	return &RoleConsistencyError{Op: op, Err: cause}
}
func NewCapabilityError(op string, cause error) error { return &CapabilityError{Op: op, Err: cause} }
func NewTimeoutError(op string, d time.Duration, cause error) error {
	return &TimeoutError{Op: op, Duration: d, Err: cause}
}
