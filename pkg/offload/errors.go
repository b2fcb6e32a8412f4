package offload

import "errors"

// The five error kinds spec.md §7 defines. Every component returns one
// of these (wrapped with context via fmt.Errorf's %w) rather than an ad
// hoc error; pkg/core translates them to the EINVAL/ENOMEM/ENODEV/
// EOPNOTSUPP surface at the public API boundary.
var (
	// ErrUnsupported: the validator or classifier rejected the flow.
	// Nothing is installed, no state is mutated.
	ErrUnsupported = errors.New("offload: unsupported")

	// ErrExhausted: an identifier pool had no free id. Any partial
	// allocation from the same flow_put is rolled back.
	ErrExhausted = errors.New("offload: exhausted")

	// ErrDriverFailure: the NIC driver rejected a rule.
	ErrDriverFailure = errors.New("offload: driver failure")

	// ErrNotFound: a referenced port or flow-id does not exist.
	ErrNotFound = errors.New("offload: not found")

	// ErrInvariantViolated: a bug, not a failure — double free of an
	// id, refcount underflow, offload-record overflow past capacity.
	// Callers that detect this must call corelog's Fatalw, not return
	// this error up the stack for normal handling.
	ErrInvariantViolated = errors.New("offload: invariant violated")
)
