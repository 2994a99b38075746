package kiwi

import "github.com/pkg/errors"

// The solver's error taxonomy: eight sentinels covering seven kinds
// (duplicate and unknown edit variable form one kind), each a terminal
// failure of the call that raised it. Every error a public Solver method
// returns satisfies errors.Is(err, one-of-these).
var (
	// ErrDuplicateConstraint is returned by AddConstraint for a Constraint
	// already present in the Solver.
	ErrDuplicateConstraint = errors.New("duplicate constraint")
	// ErrUnknownConstraint is returned by RemoveConstraint for a Constraint
	// not present in the Solver.
	ErrUnknownConstraint = errors.New("unknown constraint")
	// ErrDuplicateEditVariable is returned by AddEditVariable for a Variable
	// that is already an edit variable.
	ErrDuplicateEditVariable = errors.New("duplicate edit variable")
	// ErrUnknownEditVariable is returned by RemoveEditVariable / SuggestValue
	// for a Variable that is not an edit variable.
	ErrUnknownEditVariable = errors.New("unknown edit variable")
	// ErrRequiredStrength is returned by AddEditVariable when called with
	// strength Required.
	ErrRequiredStrength = errors.New("edit variable strength must not be required")
	// ErrUnsatisfiableConstraint is returned when no pivot can make a new
	// constraint's row feasible.
	ErrUnsatisfiableConstraint = errors.New("unsatisfiable constraint")
	// ErrInternalInvariant covers unbounded objectives, a dual-optimize step
	// with no entering symbol, or a missing leaving row on removal — all
	// indicate a solver bug or a precondition violated by the caller.
	ErrInternalInvariant = errors.New("internal solver invariant violated")
	// ErrIterationLimit is returned when a pivot loop exceeds MaxIterations.
	ErrIterationLimit = errors.New("iteration limit exceeded")
)

// wrapf attaches call-specific context to a sentinel error without losing
// errors.Is compatibility with it.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
