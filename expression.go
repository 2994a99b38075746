package kiwi

import "fmt"

// Pair represents a "coefficient times term" construction argument: Term
// must be a *Variable or an Expression, and is multiplied through by
// Coefficient before being folded into the Expression under construction.
type Pair struct {
	Coefficient float64
	Term        interface{}
}

// Expression is an immutable linear combination of Variables plus a
// constant. Construction normalizes its input: duplicate Variables are
// summed into one term, nested Expressions are flattened with their
// constants folded in, and Pair terms are multiplied through.
type Expression struct {
	terms    map[*Variable]float64
	constant float64
}

// NewExpression builds an Expression from any mix of: a number (int or
// float64, folded into the constant), a *Variable (coefficient +1), an
// Expression (terms and constant merged in), or a Pair (multiplied through).
// Any other argument type is an error.
func NewExpression(items ...interface{}) (Expression, error) {
	e := Expression{terms: make(map[*Variable]float64)}
	for _, item := range items {
		if err := e.fold(item, 1); err != nil {
			return Expression{}, err
		}
	}
	e.prune()
	return e, nil
}

func (e *Expression) fold(item interface{}, scale float64) error {
	switch v := item.(type) {
	case int:
		e.constant += float64(v) * scale
	case float64:
		e.constant += v * scale
	case *Variable:
		e.terms[v] += scale
	case Expression:
		e.constant += v.constant * scale
		for term, coeff := range v.terms {
			e.terms[term] += coeff * scale
		}
	case Pair:
		return e.fold(v.Term, scale*v.Coefficient)
	default:
		return wrapf(ErrInternalInvariant, "invalid expression term %T", item)
	}
	return nil
}

// prune drops any term whose combined coefficient fell to (near) zero, so
// that two Expressions built from equivalent but differently-ordered inputs
// compare as structurally equal.
func (e *Expression) prune() {
	for v, c := range e.terms {
		if nearZero(c) {
			delete(e.terms, v)
		}
	}
}

// Constant returns the Expression's constant term.
func (e Expression) Constant() float64 { return e.constant }

// Terms returns a copy of the Expression's Variable -> coefficient mapping.
// Mutating the returned map does not affect e.
func (e Expression) Terms() map[*Variable]float64 {
	out := make(map[*Variable]float64, len(e.terms))
	for v, c := range e.terms {
		out[v] = c
	}
	return out
}

// CoefficientFor returns the coefficient on v, or 0 if v does not appear.
func (e Expression) CoefficientFor(v *Variable) float64 {
	return e.terms[v]
}

// IsConstant reports whether e has no Variable terms.
func (e Expression) IsConstant() bool { return len(e.terms) == 0 }

func (e Expression) String() string {
	s := fmt.Sprintf("%g", e.constant)
	for v, c := range e.terms {
		s += fmt.Sprintf(" + %g*%s", c, v)
	}
	return s
}

// Plus returns the Expression e + other.
func (e Expression) Plus(other interface{}) (Expression, error) {
	return NewExpression(e, other)
}

// Minus returns the Expression e - other.
func (e Expression) Minus(other interface{}) (Expression, error) {
	return NewExpression(e, Pair{Coefficient: -1, Term: other})
}

// Times returns the Expression coefficient*e.
func (e Expression) Times(coefficient float64) Expression {
	out, _ := NewExpression(Pair{Coefficient: coefficient, Term: e})
	return out
}

// Divide returns the Expression e/coefficient.
func (e Expression) Divide(coefficient float64) (Expression, error) {
	if coefficient == 0 {
		return Expression{}, wrapf(ErrInternalInvariant, "divide expression by zero")
	}
	return e.Times(1 / coefficient), nil
}
