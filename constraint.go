package kiwi

import "sync/atomic"

// Operator is the relation a Constraint's expression is held to, against an
// implicit right-hand side of zero.
type Operator int

const (
	// LessOrEqual constrains the expression to be <= 0.
	LessOrEqual Operator = iota
	// GreaterOrEqual constrains the expression to be >= 0.
	GreaterOrEqual
	// Equal constrains the expression to be exactly 0.
	Equal
)

func (op Operator) String() string {
	switch op {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "=="
	default:
		return "?"
	}
}

var constraintIDs int64

func nextConstraintID() int {
	return int(atomic.AddInt64(&constraintIDs, 1))
}

// ConstraintOption configures optional arguments to NewConstraint, following
// the functional-options pattern used throughout this module for
// multi-optional-argument constructors.
type ConstraintOption func(*constraintConfig)

type constraintConfig struct {
	rhs      interface{}
	strength Strength
	hasRHS   bool
}

// WithRHS supplies a right-hand side (a number, *Variable, or Expression)
// that is subtracted from lhs before the Constraint's expression is fixed.
// Without WithRHS, lhs is used as-is (its own right-hand side is implicitly
// zero already).
func WithRHS(rhs interface{}) ConstraintOption {
	return func(c *constraintConfig) {
		c.rhs = rhs
		c.hasRHS = true
	}
}

// WithStrength sets the Constraint's strength. Defaults to Required.
func WithStrength(s Strength) ConstraintOption {
	return func(c *constraintConfig) {
		c.strength = s
	}
}

// Constraint pairs an Expression with an Operator and a Strength. The
// right-hand side of the held equation/inequation is always implicitly
// zero: any rhs supplied at construction is folded into the expression via
// subtraction. Two Constraints are distinct if they are different pointers,
// even if otherwise identical — this is what makes adding the same
// Constraint instance twice an error while adding two independently
// constructed, textually-identical constraints is not.
type Constraint struct {
	id       int
	expr     Expression
	op       Operator
	strength Strength
}

// NewConstraint builds a Constraint holding lhs (minus WithRHS's value, if
// given) against op, at Required strength unless WithStrength overrides it.
func NewConstraint(lhs Expression, op Operator, opts ...ConstraintOption) (*Constraint, error) {
	cfg := constraintConfig{strength: Required}
	for _, opt := range opts {
		opt(&cfg)
	}

	expr := lhs
	if cfg.hasRHS {
		var err error
		expr, err = lhs.Minus(cfg.rhs)
		if err != nil {
			return nil, err
		}
	}

	return &Constraint{
		id:       nextConstraintID(),
		expr:     expr,
		op:       op,
		strength: Clip(cfg.strength),
	}, nil
}

// ID returns the Constraint's stable id, useful for logging; it does not
// participate in equality (identity is by pointer, per the doc comment on
// Constraint).
func (c *Constraint) ID() int { return c.id }

// Expression returns the Constraint's held expression (lhs - rhs).
func (c *Constraint) Expression() Expression { return c.expr }

// Op returns the Constraint's operator.
func (c *Constraint) Op() Operator { return c.op }

// Strength returns the Constraint's strength.
func (c *Constraint) Strength() Strength { return c.strength }

// Tag records the bookkeeping symbols the Solver attached to a Constraint
// when it was added: the marker symbol (always present, used to locate the
// constraint's row) and the other symbol (InvalidSymbol for required
// inequalities, the paired error symbol for non-required equalities).
type Tag struct {
	Marker Symbol
	Other  Symbol
}

// EditInfo is the per-edit-variable bookkeeping the Solver keeps: the Tag of
// the synthesized "v == constant" constraint, the constraint itself (so it
// can be removed), and the last suggested value (needed to compute the
// delta on the next SuggestValue call).
type EditInfo struct {
	Tag        Tag
	Constraint *Constraint
	Constant   float64
}
