package kiwi

import (
	"strconv"
	"sync/atomic"
)

var variableIDs int64

func nextVariableID() int {
	return int(atomic.AddInt64(&variableIDs, 1))
}

// Variable is an external real-valued unknown. Its identity is its id, not
// its name or current value: two Variables with the same name are distinct.
// Variables outlive any Solver they are used with — removing every
// constraint that mentions one does not destroy it.
type Variable struct {
	id      int
	name    string
	context interface{}
	value   float64
}

// NewVariable returns a fresh Variable with the given display name.
func NewVariable(name string) *Variable {
	return &Variable{id: nextVariableID(), name: name}
}

// NewVariableWithContext returns a fresh Variable carrying an opaque,
// solver-unrelated context value (e.g. a UI widget the Variable represents).
func NewVariableWithContext(name string, context interface{}) *Variable {
	return &Variable{id: nextVariableID(), name: name, context: context}
}

// ID returns the Variable's stable identity.
func (v *Variable) ID() int { return v.id }

// Name returns the Variable's display name.
func (v *Variable) Name() string { return v.name }

// SetName changes the Variable's display name.
func (v *Variable) SetName(name string) { v.name = name }

// Context returns the opaque value passed to NewVariableWithContext, or nil.
func (v *Variable) Context() interface{} { return v.context }

// Value returns the Variable's last value computed by Solver.UpdateVariables
// (0 before the first such call).
func (v *Variable) Value() float64 { return v.value }

// SetValue is exported for callers constructing their own update pipelines,
// but ordinary use leaves it to Solver.UpdateVariables.
func (v *Variable) SetValue(value float64) { v.value = value }

func (v *Variable) String() string {
	if v.name != "" {
		return v.name
	}
	return "v" + strconv.Itoa(v.id)
}

// Plus returns the Expression v + other. other must be a number, *Variable,
// or Expression.
func (v *Variable) Plus(other interface{}) (Expression, error) {
	return NewExpression(v, other)
}

// Minus returns the Expression v - other.
func (v *Variable) Minus(other interface{}) (Expression, error) {
	return NewExpression(v, Pair{Coefficient: -1, Term: other})
}

// Times returns the Expression coefficient*v.
func (v *Variable) Times(coefficient float64) Expression {
	e, _ := NewExpression(Pair{Coefficient: coefficient, Term: v})
	return e
}

// Divide returns the Expression v/coefficient.
func (v *Variable) Divide(coefficient float64) (Expression, error) {
	if coefficient == 0 {
		return Expression{}, wrapf(ErrInternalInvariant, "divide variable %s by zero", v)
	}
	return v.Times(1 / coefficient), nil
}
