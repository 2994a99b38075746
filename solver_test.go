package kiwi

import (
	"errors"
	"testing"

	"gotest.tools/assert"
)

const testEpsilon = 1e-6

func approxEqual(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if got-want > testEpsilon || want-got > testEpsilon {
		t.Fatalf("%s: got %v, want %v", msg, got, want)
	}
}

// checkFeasible verifies every basic row whose symbol is not External has
// constant >= -epsilon. An External row's constant is its Variable's value,
// which may be negative.
func checkFeasible(t *testing.T, s *Solver) {
	t.Helper()
	s.rowMap.Each(func(_ int, e rowEntry) {
		if e.sym.Kind() != External && e.row.Constant() < -epsilon {
			t.Fatalf("infeasible: row for %s has constant %v", e.sym, e.row.Constant())
		}
	})
}

// checkOptimal verifies every non-Dummy objective coefficient is >= -epsilon.
func checkOptimal(t *testing.T, s *Solver) {
	t.Helper()
	s.objective.Each(func(sym Symbol, coeff float64) {
		if sym.Kind() != Dummy && coeff < -epsilon {
			t.Fatalf("not optimal: objective coefficient for %s is %v", sym, coeff)
		}
	})
}

func mustVariable(name string) *Variable {
	return NewVariable(name)
}

func mustExpr(t *testing.T, items ...interface{}) Expression {
	t.Helper()
	e, err := NewExpression(items...)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	return e
}

func mustConstraint(t *testing.T, lhs Expression, op Operator, opts ...ConstraintOption) *Constraint {
	t.Helper()
	c, err := NewConstraint(lhs, op, opts...)
	if err != nil {
		t.Fatalf("NewConstraint: %v", err)
	}
	return c
}

// TestWidthArithmetic exercises the classic right = left + width layout
// constraint, re-suggesting edit values to check the solver tracks updates.
func TestWidthArithmetic(t *testing.T) {
	left, width, right := mustVariable("left"), mustVariable("width"), mustVariable("right")

	s := NewSolver()

	expr := mustExpr(t, right, Pair{Coefficient: -1, Term: left}, Pair{Coefficient: -1, Term: width})
	assert.NilError(t, s.AddConstraint(mustConstraint(t, expr, Equal)))

	assert.NilError(t, s.AddEditVariable(left, Strong))
	assert.NilError(t, s.AddEditVariable(width, Strong))

	assert.NilError(t, s.SuggestValue(left, 100))
	assert.NilError(t, s.SuggestValue(width, 400))
	s.UpdateVariables()
	checkFeasible(t, s)
	checkOptimal(t, s)
	approxEqual(t, right.Value(), 500, "right after first suggest")

	assert.NilError(t, s.SuggestValue(left, 200))
	assert.NilError(t, s.SuggestValue(width, 600))
	s.UpdateVariables()
	checkFeasible(t, s)
	checkOptimal(t, s)
	approxEqual(t, right.Value(), 800, "right after second suggest")
}

// TestCenterConstraint checks a derived variable defined in terms of two
// edit variables before either has been suggested a value.
func TestCenterConstraint(t *testing.T) {
	left, width, centerX := mustVariable("left"), mustVariable("width"), mustVariable("centerX")

	s := NewSolver()
	assert.NilError(t, s.AddEditVariable(left, Strong))
	assert.NilError(t, s.AddEditVariable(width, Strong))

	expr := mustExpr(t,
		Pair{Coefficient: -1, Term: centerX},
		left,
		Pair{Coefficient: 0.5, Term: width},
	)
	assert.NilError(t, s.AddConstraint(mustConstraint(t, expr, Equal)))

	assert.NilError(t, s.SuggestValue(left, 0))
	assert.NilError(t, s.SuggestValue(width, 500))
	s.UpdateVariables()

	approxEqual(t, centerX.Value(), 250, "centerX")
}

// TestInfeasibleRequired checks that a second required constraint
// conflicting with an already-installed one is rejected and leaves the
// solver's existing state untouched.
func TestInfeasibleRequired(t *testing.T) {
	x := mustVariable("x")
	s := NewSolver()

	xExpr := mustExpr(t, x)
	lower := mustConstraint(t, xExpr, GreaterOrEqual, WithRHS(10.0))
	upper := mustConstraint(t, xExpr, LessOrEqual, WithRHS(5.0))

	assert.NilError(t, s.AddConstraint(lower))

	err := s.AddConstraint(upper)
	if !errors.Is(err, ErrUnsatisfiableConstraint) {
		t.Fatalf("expected ErrUnsatisfiableConstraint, got %v", err)
	}
	assert.Assert(t, s.HasConstraint(lower))
	assert.Assert(t, !s.HasConstraint(upper))

	s.UpdateVariables()
	if x.Value() < 10-epsilon {
		t.Fatalf("expected x.Value() >= 10-epsilon, got %v", x.Value())
	}
}

// TestWeakVsStrong checks that a strong constraint wins out over a
// conflicting weak one.
func TestWeakVsStrong(t *testing.T) {
	a, b := mustVariable("a"), mustVariable("b")
	s := NewSolver()

	sum := mustExpr(t, a, b)
	assert.NilError(t, s.AddConstraint(mustConstraint(t, sum, Equal, WithRHS(10.0))))

	aExpr := mustExpr(t, a)
	assert.NilError(t, s.AddConstraint(mustConstraint(t, aExpr, Equal, WithRHS(7.0), WithStrength(Strong))))

	bExpr := mustExpr(t, b)
	assert.NilError(t, s.AddConstraint(mustConstraint(t, bExpr, Equal, WithRHS(0.0), WithStrength(Weak))))

	s.UpdateVariables()
	approxEqual(t, a.Value(), 7, "a")
	approxEqual(t, b.Value(), 3, "b")
}

// TestRemoveAndReAdd checks that removing a constraint and adding a
// different one pinning the same variable takes effect cleanly.
func TestRemoveAndReAdd(t *testing.T) {
	x := mustVariable("x")
	s := NewSolver()

	xExpr := mustExpr(t, x)
	c1 := mustConstraint(t, xExpr, Equal, WithRHS(5.0))
	assert.NilError(t, s.AddConstraint(c1))
	s.UpdateVariables()
	approxEqual(t, x.Value(), 5, "x after first add")

	assert.NilError(t, s.RemoveConstraint(c1))

	c2 := mustConstraint(t, xExpr, Equal, WithRHS(9.0))
	assert.NilError(t, s.AddConstraint(c2))
	s.UpdateVariables()
	approxEqual(t, x.Value(), 9, "x after re-add")
}

// TestDuplicateAdd checks that adding the same *Constraint instance twice
// is rejected, and that it can still be removed afterward.
func TestDuplicateAdd(t *testing.T) {
	x := mustVariable("x")
	s := NewSolver()

	xExpr := mustExpr(t, x)
	c := mustConstraint(t, xExpr, Equal, WithRHS(5.0))
	assert.NilError(t, s.AddConstraint(c))

	err := s.AddConstraint(c)
	if !errors.Is(err, ErrDuplicateConstraint) {
		t.Fatalf("expected ErrDuplicateConstraint, got %v", err)
	}

	assert.NilError(t, s.RemoveConstraint(c))
	assert.Assert(t, !s.HasConstraint(c))
	assert.Assert(t, len(s.Constraints()) == 0)
}

// TestEditRoundTrip checks that a lone edit variable tracks any suggested
// value exactly.
func TestEditRoundTrip(t *testing.T) {
	v := mustVariable("v")
	s := NewSolver()
	assert.NilError(t, s.AddEditVariable(v, Strong))

	for _, x := range []float64{0, 42, -17.5, 1e6, -1e6} {
		assert.NilError(t, s.SuggestValue(v, x))
		s.UpdateVariables()
		approxEqual(t, v.Value(), x, "edit round-trip")
		checkFeasible(t, s)
		checkOptimal(t, s)
	}
}

func TestAddEditVariableRequiredStrengthRejected(t *testing.T) {
	v := mustVariable("v")
	s := NewSolver()
	err := s.AddEditVariable(v, Required)
	if !errors.Is(err, ErrRequiredStrength) {
		t.Fatalf("expected ErrRequiredStrength, got %v", err)
	}
}

func TestAddEditVariableDuplicateRejected(t *testing.T) {
	v := mustVariable("v")
	s := NewSolver()
	assert.NilError(t, s.AddEditVariable(v, Strong))
	err := s.AddEditVariable(v, Medium)
	if !errors.Is(err, ErrDuplicateEditVariable) {
		t.Fatalf("expected ErrDuplicateEditVariable, got %v", err)
	}
}

func TestSuggestValueUnknownEditVariable(t *testing.T) {
	v := mustVariable("v")
	s := NewSolver()
	err := s.SuggestValue(v, 1)
	if !errors.Is(err, ErrUnknownEditVariable) {
		t.Fatalf("expected ErrUnknownEditVariable, got %v", err)
	}
}

func TestRemoveUnknownConstraint(t *testing.T) {
	x := mustVariable("x")
	s := NewSolver()
	c := mustConstraint(t, mustExpr(t, x), Equal, WithRHS(1.0))
	err := s.RemoveConstraint(c)
	if !errors.Is(err, ErrUnknownConstraint) {
		t.Fatalf("expected ErrUnknownConstraint, got %v", err)
	}
}

// TestRemoveEditVariableDemotesVariable checks that after RemoveEditVariable
// a Variable is no longer an edit variable, so removing it a second time
// fails with ErrUnknownEditVariable.
func TestRemoveEditVariableDemotesVariable(t *testing.T) {
	v := mustVariable("v")
	s := NewSolver()
	assert.NilError(t, s.AddEditVariable(v, Strong))
	assert.NilError(t, s.SuggestValue(v, 3))
	assert.NilError(t, s.RemoveEditVariable(v))
	assert.Assert(t, !s.HasEditVariable(v))

	err := s.RemoveEditVariable(v)
	if !errors.Is(err, ErrUnknownEditVariable) {
		t.Fatalf("expected ErrUnknownEditVariable, got %v", err)
	}
}

// TestInequalityBasics exercises a simple inequality far from its bound,
// which must be satisfied via a slack variable with no artificial phase.
func TestInequalityBasics(t *testing.T) {
	x := mustVariable("x")
	s := NewSolver()
	assert.NilError(t, s.AddConstraint(mustConstraint(t, mustExpr(t, x), GreaterOrEqual, WithRHS(10.0))))
	assert.NilError(t, s.AddEditVariable(x, Strong))
	assert.NilError(t, s.SuggestValue(x, 100))
	s.UpdateVariables()
	approxEqual(t, x.Value(), 100, "x within bound")
	checkFeasible(t, s)
	checkOptimal(t, s)

	assert.NilError(t, s.SuggestValue(x, 2))
	s.UpdateVariables()
	if x.Value() < 10-epsilon {
		t.Fatalf("expected x clamped to >= 10, got %v", x.Value())
	}
	checkFeasible(t, s)
	checkOptimal(t, s)
}

// TestRequiredSatisfaction checks that required constraints hold exactly
// after every public call that returns successfully.
func TestRequiredSatisfaction(t *testing.T) {
	left, width, right := mustVariable("left"), mustVariable("width"), mustVariable("right")
	s := NewSolver()

	expr := mustExpr(t, right, Pair{Coefficient: -1, Term: left}, Pair{Coefficient: -1, Term: width})
	assert.NilError(t, s.AddConstraint(mustConstraint(t, expr, Equal)))
	assert.NilError(t, s.AddEditVariable(left, Strong))
	assert.NilError(t, s.AddEditVariable(width, Strong))

	for i := 0; i < 20; i++ {
		lv := float64(i * 3)
		wv := float64(i*i + 1)
		assert.NilError(t, s.SuggestValue(left, lv))
		assert.NilError(t, s.SuggestValue(width, wv))
		s.UpdateVariables()
		approxEqual(t, right.Value()-left.Value()-width.Value(), 0, "required satisfaction")
	}
}

func TestSolverMaxIterationsOption(t *testing.T) {
	s := NewSolver(WithMaxIterations(42))
	if s.MaxIterations() != 42 {
		t.Fatalf("expected MaxIterations 42, got %d", s.MaxIterations())
	}

	s = NewSolver(WithMaxIterations(-1))
	if s.MaxIterations() != defaultMaxIterations {
		t.Fatalf("expected non-positive option to be ignored, got %d", s.MaxIterations())
	}
}

func TestConstraintsOrderedByInsertion(t *testing.T) {
	x, y, z := mustVariable("x"), mustVariable("y"), mustVariable("z")
	s := NewSolver()

	c1 := mustConstraint(t, mustExpr(t, x), GreaterOrEqual, WithRHS(0.0))
	c2 := mustConstraint(t, mustExpr(t, y), GreaterOrEqual, WithRHS(0.0))
	c3 := mustConstraint(t, mustExpr(t, z), GreaterOrEqual, WithRHS(0.0))

	assert.NilError(t, s.AddConstraint(c1))
	assert.NilError(t, s.AddConstraint(c2))
	assert.NilError(t, s.AddConstraint(c3))

	got := s.Constraints()
	want := []*Constraint{c1, c2, c3}
	if len(got) != len(want) {
		t.Fatalf("expected %d constraints, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("constraint %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	assert.NilError(t, s.RemoveConstraint(c2))
	got = s.Constraints()
	want = []*Constraint{c1, c3}
	if len(got) != len(want) {
		t.Fatalf("expected %d constraints after removal, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("constraint %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
