// Package simerrors defines the sentinel errors shared across the
// configuration, simulation, and reporting layers.
package simerrors

import "errors"

var (
	// ErrInvalidConfig is wrapped by configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvariantViolation is wrapped when a simulation detects that one of
	// its structural invariants no longer holds. The run that produced it is
	// aborted; sibling runs in a batch are unaffected.
	ErrInvariantViolation = errors.New("simulation invariant violated")

	// ErrResource is wrapped by the report writers' write and flush failures.
	ErrResource = errors.New("resource error")
)
