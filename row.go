package kiwi

import "github.com/lume/kiwi/internal/omap"

// Row is a symbolic linear form: a constant plus a mapping from Symbol to
// nonzero coefficient. Every tableau row and the objective row are Rows.
type Row struct {
	constant float64
	cells    *omap.Map[rowCell]
}

type rowCell struct {
	sym   Symbol
	coeff float64
}

// NewRow returns a Row with the given constant and no cells.
func NewRow(constant float64) *Row {
	return &Row{constant: constant, cells: omap.New[rowCell]()}
}

// Constant returns the row's constant term.
func (r *Row) Constant() float64 { return r.constant }

// SetConstant overwrites the row's constant term directly. Used by
// SuggestValue's delta updates, which adjust a basic row's constant without
// touching its cells.
func (r *Row) SetConstant(c float64) { r.constant = c }

// CoefficientFor returns the stored coefficient for s, or 0 if s is absent.
func (r *Row) CoefficientFor(s Symbol) float64 {
	if c, ok := r.cells.Get(s.id); ok {
		return c.coeff
	}
	return 0
}

// Each calls fn for every (symbol, coefficient) cell in insertion order.
// fn must not mutate the row.
func (r *Row) Each(fn func(s Symbol, coeff float64)) {
	r.cells.Each(func(_ int, c rowCell) { fn(c.sym, c.coeff) })
}

// Len returns the number of nonzero cells.
func (r *Row) Len() int { return r.cells.Len() }

// InsertSymbol adds coefficient to s's cell, creating it if absent, and
// erases the cell if the result is within epsilon of zero.
func (r *Row) InsertSymbol(s Symbol, coefficient float64) {
	cur := r.CoefficientFor(s)
	next := cur + coefficient
	if nearZero(next) {
		r.cells.Erase(s.id)
		return
	}
	r.cells.Set(s.id, rowCell{sym: s, coeff: next})
}

// InsertRow adds coefficient*other to this row: coefficient*other.constant
// into r's constant, and coefficient*coefficient' for each of other's cells
// into r's matching cell.
func (r *Row) InsertRow(other *Row, coefficient float64) {
	r.constant += coefficient * other.constant
	other.Each(func(s Symbol, c float64) {
		r.InsertSymbol(s, coefficient*c)
	})
}

// ReverseSign negates the constant and every coefficient in place.
func (r *Row) ReverseSign() {
	r.constant = -r.constant
	updated := make([]rowCell, 0, r.cells.Len())
	r.Each(func(s Symbol, c float64) {
		updated = append(updated, rowCell{sym: s, coeff: -c})
	})
	for _, c := range updated {
		r.cells.Set(c.sym.id, c)
	}
}

// SolveFor rewrites the row, which must currently contain s, to express
// s = (everything else): it removes s, then scales the constant and every
// remaining coefficient by -1/coefficient(s).
func (r *Row) SolveFor(s Symbol) {
	cell, ok := r.cells.Get(s.id)
	if !ok {
		return
	}
	r.cells.Erase(s.id)
	coeff := -1.0 / cell.coeff
	r.constant *= coeff
	remaining := make([]rowCell, 0, r.cells.Len())
	r.Each(func(sym Symbol, c float64) {
		remaining = append(remaining, rowCell{sym: sym, coeff: c * coeff})
	})
	for _, c := range remaining {
		r.cells.Set(c.sym.id, c)
	}
}

// SolveForEx inserts lhs with coefficient -1 and then solves for rhs,
// rewriting the row to express rhs in terms of lhs and whatever else was
// present. Used when rotating a basic variable out of the basis in favor of
// a different symbol.
func (r *Row) SolveForEx(lhs, rhs Symbol) {
	r.InsertSymbol(lhs, -1)
	r.SolveFor(rhs)
}

// Substitute replaces every occurrence of s in the row with coefficient
// times other, the way a pivot propagates a new row definition into rows
// that still reference the symbol that was just pivoted out.
func (r *Row) Substitute(s Symbol, other *Row) {
	cell, ok := r.cells.Get(s.id)
	if !ok {
		return
	}
	r.cells.Erase(s.id)
	r.InsertRow(other, cell.coeff)
}

// AllDummies reports whether every cell present is of kind Dummy. A row
// with no cells at all vacuously satisfies this.
func (r *Row) AllDummies() bool {
	all := true
	r.Each(func(s Symbol, _ float64) {
		if s.kind != Dummy {
			all = false
		}
	})
	return all
}

// dropCell unconditionally erases s's cell, with no arithmetic adjustment.
// Used only to discard every remaining reference to a retired artificial
// variable: once that variable is known to be 0 going forward, dropping its
// column is equivalent to substituting 0 for it everywhere.
func (r *Row) dropCell(s Symbol) {
	r.cells.Erase(s.id)
}

// Clone returns a deep copy sharing no storage with r: used whenever a row
// is handed to the artificial-variable phase, or whenever a caller might
// retain a reference to a row this Solver will go on to mutate.
func (r *Row) Clone() *Row {
	return &Row{constant: r.constant, cells: r.cells.Clone()}
}
