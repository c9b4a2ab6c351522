// Package errkind defines the stable error taxonomy used at every kernel API
// boundary (§7). Unlike a bare string error, a Kind lets callers branch on
// the category of failure (authority denial vs resource exhaustion vs
// infrastructure failure) without parsing messages.
package errkind

import (
	"fmt"

	"lion.run/lion/ids"
)

// Kind is a stable, comparable error category. New values may be added
// but existing ones never change meaning.
type Kind string

const (
	// KindInput covers invalid manifests, invalid workflow definitions, and
	// malformed events — reported synchronously, never logged as a system failure.
	KindInput Kind = "input"
	// KindCapabilityDenied covers a capability gate rejection — a normal,
	// expected outcome, never an escalation.
	KindCapabilityDenied Kind = "capability_denied"
	// KindPolicyDenied covers a policy engine rejection.
	KindPolicyDenied Kind = "policy_denied"
	// KindResourceExceeded covers timeouts, OOM, and rate limiting.
	KindResourceExceeded Kind = "resource_exceeded"
	// KindSandbox covers traps/panics/crashes isolated to one execution.
	KindSandbox Kind = "sandbox"
	// KindKernelBug covers invariant violations fatal to one instance but not
	// the kernel.
	KindKernelBug Kind = "kernel_bug"
	// KindInfrastructure covers durable-store failures that are fatal to the
	// kernel as a whole (e.g. event log append failure).
	KindInfrastructure Kind = "infrastructure"
)

// Error is the structured, user-visible failure value returned from every
// kernel API boundary. It always carries a stable Kind, a human
// Description, and the CorrelationID of the originating request (empty
// when the failure occurred outside any correlated chain).
type Error struct {
	Kind          Kind
	Description   string
	CorrelationID ids.CorrelationID
	Cause         error
}

// New constructs an Error of the given kind with no correlation id set.
func New(kind Kind, description string) *Error {
	return &Error{Kind: kind, Description: description}
}

// Wrap constructs an Error that chains an underlying cause.
func Wrap(kind Kind, description string, cause error) *Error {
	return &Error{Kind: kind, Description: description, Cause: cause}
}

// WithCorrelation returns a copy of e stamped with a correlation id.
func (e *Error) WithCorrelation(c ids.CorrelationID) *Error {
	if e == nil {
		return nil
	}
	out := *e
	out.CorrelationID = c
	return &out
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Description, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, errkind.New(errkind.KindCapabilityDenied, "")) style checks
// that ignore Description/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
