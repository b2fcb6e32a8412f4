package core

import (
	"errors"
	"fmt"

	"github.com/flowcore/nicoffload/pkg/offload"
)

// The four-value surface spec.md §6 gives each public operation:
// port_add → ok|ENOMEM, port_del → ok|ENODEV, flow_put →
// ok|EINVAL|ENOMEM|ENODEV|EOPNOTSUPP, flow_del → ok|EINVAL|ENODEV. Every
// Core method error wraps one of these so a caller can dispatch on
// errors.Is without depending on the offload.Err* kinds the engines
// return internally.
var (
	EINVAL     = errors.New("core: invalid argument")
	ENOMEM     = errors.New("core: exhausted")
	ENODEV     = errors.New("core: no such device")
	EOPNOTSUPP = errors.New("core: operation not supported")
)

// notFoundErrno is EINVAL or ENODEV depending on which operation
// produced the offload.ErrNotFound — spec.md §7's "not-found → EINVAL
// or ENODEV" is deliberately call-site-dependent, not a fixed mapping.
func toErrno(err error, notFoundErrno error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, offload.ErrUnsupported):
		return fmt.Errorf("%w: %v", EOPNOTSUPP, err)
	case errors.Is(err, offload.ErrExhausted):
		return fmt.Errorf("%w: %v", ENOMEM, err)
	case errors.Is(err, offload.ErrDriverFailure):
		return fmt.Errorf("%w: %v", ENODEV, err)
	case errors.Is(err, offload.ErrNotFound):
		return fmt.Errorf("%w: %v", notFoundErrno, err)
	case errors.Is(err, offload.ErrInvariantViolated):
		// Invariant violations abort the process inside the engine that
		// detected them (corelog.Fatalw); reaching here at all means the
		// detector chose to propagate instead, which is itself a bug.
		return fmt.Errorf("%w: %v", EINVAL, err)
	default:
		return err
	}
}

// errnoLabel names the errno class for the metrics counter label,
// since the *Metrics sink cares which of the four values came back,
// not the wrapped offload.Err* detail.
func errnoLabel(err error) string {
	switch {
	case errors.Is(err, EINVAL):
		return "EINVAL"
	case errors.Is(err, ENOMEM):
		return "ENOMEM"
	case errors.Is(err, ENODEV):
		return "ENODEV"
	case errors.Is(err, EOPNOTSUPP):
		return "EOPNOTSUPP"
	default:
		return "unknown"
	}
}
