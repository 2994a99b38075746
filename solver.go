package kiwi

import (
	"math"

	"github.com/lume/kiwi/internal/omap"
	"github.com/lume/kiwi/kiwilog"
)

// defaultMaxIterations is the pivot-loop ceiling used when no
// WithMaxIterations option is supplied. The upstream implementation this
// module is modeled on defaults to 1000 even though its own documentation
// advertises 10000; this module keeps the ceiling configurable and matches
// the code's actual default rather than the advertised one.
const defaultMaxIterations = 1000

// rowEntry pairs a basic Symbol with its defining Row, the value type
// stored in a Solver's rowMap so that the ordered map can hand back both the
// key's Kind (needed by the Cassowary leaving-row rules, which all
// distinguish External from non-External basic symbols) and its Row without
// a second lookup.
type rowEntry struct {
	sym Symbol
	row *Row
}

// SolverOption configures a Solver at construction time.
type SolverOption func(*Solver)

// WithMaxIterations overrides the pivot-loop iteration ceiling enforced by
// Phase-2 optimization. n must be positive; non-positive values are
// ignored.
func WithMaxIterations(n int) SolverOption {
	return func(s *Solver) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// Solver owns the Cassowary tableau — rowMap (basic Symbol -> Row), varMap
// (Variable -> external Symbol), cnMap (Constraint -> Tag), editMap
// (Variable -> EditInfo) — plus the objective Row, and drives
// AddConstraint/RemoveConstraint/AddEditVariable/SuggestValue through the
// Phase-1 artificial-variable procedure, Phase-2 primal simplex, and the
// dual-simplex path.
//
// A Solver is not safe for concurrent use: callers sharing one across
// goroutines must serialize every public method call with their own
// mutual exclusion.
type Solver struct {
	maxIterations int
	symbols       symbolGenerator

	rowMap  *omap.Map[rowEntry]
	varMap  map[*Variable]Symbol
	cnMap   map[*Constraint]Tag
	cnOrder []*Constraint
	editMap map[*Variable]*EditInfo

	objective  *Row
	artificial *Row

	infeasibleRows []Symbol
}

// NewSolver returns an empty Solver with no constraints, edit variables, or
// Variables mentioned yet.
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{
		maxIterations: defaultMaxIterations,
		rowMap:        omap.New[rowEntry](),
		varMap:        make(map[*Variable]Symbol),
		cnMap:         make(map[*Constraint]Tag),
		editMap:       make(map[*Variable]*EditInfo),
		objective:     NewRow(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxIterations returns the solver's current pivot-loop iteration ceiling.
func (s *Solver) MaxIterations() int { return s.maxIterations }

// Constraints returns the constraints currently installed, in the order
// they were added.
func (s *Solver) Constraints() []*Constraint {
	out := make([]*Constraint, len(s.cnOrder))
	copy(out, s.cnOrder)
	return out
}

// HasConstraint reports whether c is currently installed.
func (s *Solver) HasConstraint(c *Constraint) bool {
	_, exists := s.cnMap[c]
	return exists
}

// HasEditVariable reports whether v is currently an edit variable.
func (s *Solver) HasEditVariable(v *Variable) bool {
	_, exists := s.editMap[v]
	return exists
}

// varSymbol returns v's external Symbol, creating one lazily on first
// mention.
func (s *Solver) varSymbol(v *Variable) Symbol {
	if sym, ok := s.varMap[v]; ok {
		return sym
	}
	sym := s.symbols.make(External)
	s.varMap[v] = sym
	return sym
}

func (s *Solver) rowFor(sym Symbol) (*Row, bool) {
	e, ok := s.rowMap.Get(sym.id)
	if !ok {
		return nil, false
	}
	return e.row, true
}

func (s *Solver) putRow(sym Symbol, row *Row) {
	s.rowMap.Set(sym.id, rowEntry{sym: sym, row: row})
}

func (s *Solver) removeRow(sym Symbol) (*Row, bool) {
	e, ok := s.rowMap.Get(sym.id)
	if !ok {
		return nil, false
	}
	s.rowMap.Erase(sym.id)
	return e.row, true
}

// substitute propagates a newly pivoted row's definition of sym into every
// row of the tableau, the objective, and — if a Phase-1 artificial
// objective is currently alive — that row too.
func (s *Solver) substitute(sym Symbol, row *Row) {
	s.rowMap.Each(func(_ int, e rowEntry) {
		e.row.Substitute(sym, row)
	})
	s.objective.Substitute(sym, row)
	if s.artificial != nil {
		s.artificial.Substitute(sym, row)
	}
}

// AddConstraint installs c into the tableau and re-optimizes. Adding the
// same *Constraint instance twice is an error; two independently
// constructed but textually identical constraints are not duplicates of
// each other.
func (s *Solver) AddConstraint(c *Constraint) error {
	if _, exists := s.cnMap[c]; exists {
		return wrapf(ErrDuplicateConstraint, "constraint %d already present", c.ID())
	}

	row, tag := s.createRow(c)
	subject := s.chooseSubject(row, tag)

	if !subject.IsValid() && row.AllDummies() {
		if nearZero(row.Constant()) {
			subject = tag.Marker
		} else {
			return wrapf(ErrUnsatisfiableConstraint, "constraint %d is unsatisfiable", c.ID())
		}
	}

	if !subject.IsValid() {
		ok, err := s.addWithArtificialVariable(row)
		if err != nil {
			return err
		}
		if !ok {
			return wrapf(ErrUnsatisfiableConstraint, "constraint %d is unsatisfiable", c.ID())
		}
	} else {
		row.SolveFor(subject)
		s.substitute(subject, row)
		s.putRow(subject, row)
	}

	s.cnMap[c] = tag
	s.cnOrder = append(s.cnOrder, c)

	kiwilog.Logger().Debug().Int("constraint", c.ID()).Str("op", c.Op().String()).Msg("constraint added")

	return s.optimize(s.objective)
}

// createRow builds the symbolic Row for a new constraint and the Tag
// recording its marker/other bookkeeping symbols.
func (s *Solver) createRow(c *Constraint) (*Row, Tag) {
	expr := c.Expression()
	row := NewRow(expr.Constant())

	for v, coeff := range expr.Terms() {
		if nearZero(coeff) {
			continue
		}
		sym := s.varSymbol(v)
		if defRow, ok := s.rowFor(sym); ok {
			row.InsertRow(defRow, coeff)
		} else {
			row.InsertSymbol(sym, coeff)
		}
	}

	var tag Tag
	switch c.Op() {
	case LessOrEqual, GreaterOrEqual:
		coeff := 1.0
		if c.Op() == GreaterOrEqual {
			coeff = -1.0
		}
		slack := s.symbols.make(Slack)
		tag.Marker = slack
		row.InsertSymbol(slack, coeff)

		if c.Strength().IsRequired() {
			tag.Other = InvalidSymbol
		} else {
			errSym := s.symbols.make(Error)
			tag.Other = errSym
			row.InsertSymbol(errSym, -coeff)
			s.objective.InsertSymbol(errSym, float64(c.Strength()))
		}

	case Equal:
		if c.Strength().IsRequired() {
			dummy := s.symbols.make(Dummy)
			tag.Marker = dummy
			tag.Other = InvalidSymbol
			row.InsertSymbol(dummy, 1)
		} else {
			errPlus := s.symbols.make(Error)
			errMinus := s.symbols.make(Error)
			tag.Marker = errPlus
			tag.Other = errMinus
			row.InsertSymbol(errPlus, -1)
			row.InsertSymbol(errMinus, 1)
			s.objective.InsertSymbol(errPlus, float64(c.Strength()))
			s.objective.InsertSymbol(errMinus, float64(c.Strength()))
		}
	}

	if row.Constant() < 0 {
		row.ReverseSign()
	}

	return row, tag
}

// chooseSubject picks the symbol that should become basic for a freshly
// built row: the first External symbol present, otherwise the marker or
// other if Slack/Error with a negative coefficient, otherwise
// InvalidSymbol.
func (s *Solver) chooseSubject(row *Row, tag Tag) Symbol {
	subject := InvalidSymbol
	row.Each(func(sym Symbol, _ float64) {
		if subject.IsValid() {
			return
		}
		if sym.Kind() == External {
			subject = sym
		}
	})
	if subject.IsValid() {
		return subject
	}

	if isPivotable(tag.Marker) && row.CoefficientFor(tag.Marker) < 0 {
		return tag.Marker
	}
	if tag.Other.IsValid() && isPivotable(tag.Other) && row.CoefficientFor(tag.Other) < 0 {
		return tag.Other
	}
	return InvalidSymbol
}

func isPivotable(sym Symbol) bool {
	return sym.Kind() == Slack || sym.Kind() == Error
}

// addWithArtificialVariable runs the Phase-1 artificial-variable procedure
// on row, which createRow could not find a natural subject for. It reports
// whether the row was satisfiable. When it was not, or when optimization
// fails, the tableau and the objective are restored to their state before
// the call.
func (s *Solver) addWithArtificialVariable(row *Row) (bool, error) {
	savedRows := omap.New[rowEntry]()
	s.rowMap.Each(func(id int, e rowEntry) {
		savedRows.Set(id, rowEntry{sym: e.sym, row: e.row.Clone()})
	})
	savedObjective := s.objective.Clone()
	success := false
	defer func() {
		if !success {
			s.rowMap = savedRows
			s.objective = savedObjective
		}
	}()

	a := s.symbols.make(Slack)
	s.putRow(a, row.Clone())

	artificialObj := row.Clone()
	s.artificial = artificialObj
	defer func() { s.artificial = nil }()

	if err := s.optimize(artificialObj); err != nil {
		return false, err
	}
	success = nearZero(artificialObj.Constant())

	if aRow, ok := s.rowFor(a); ok {
		s.removeRow(a)

		if aRow.Len() == 0 {
			kiwilog.Logger().Debug().Bool("success", success).Msg("artificial row retired as constant row")
			return success, nil
		}

		entering := InvalidSymbol
		aRow.Each(func(sym Symbol, _ float64) {
			if entering.IsValid() {
				return
			}
			if isPivotable(sym) {
				entering = sym
			}
		})

		if !entering.IsValid() {
			success = false
		} else {
			aRow.SolveForEx(a, entering)
			s.substitute(entering, aRow)
			s.putRow(entering, aRow)
		}
	}

	s.rowMap.Each(func(_ int, e rowEntry) {
		e.row.dropCell(a)
	})
	s.objective.dropCell(a)

	kiwilog.Logger().Debug().Bool("success", success).Msg("artificial variable phase complete")

	return success, nil
}

// optimize repeatedly pivots target toward a minimum, preserving primal
// feasibility throughout. It is used both for ordinary Phase-2 optimization
// of the real objective and, during the artificial-variable phase, for
// Phase-1 optimization of the artificial objective copy.
func (s *Solver) optimize(target *Row) error {
	for i := 0; i < s.maxIterations; i++ {
		entering := s.enteringSymbol(target)
		if !entering.IsValid() {
			return nil
		}

		leaving, leavingRow := s.leavingRow(entering)
		if leavingRow == nil {
			return wrapf(ErrInternalInvariant, "objective is unbounded pivoting in %s", entering)
		}

		kiwilog.Logger().Debug().Str("entering", entering.String()).Str("leaving", leaving.String()).Msg("primal pivot")

		s.removeRow(leaving)
		leavingRow.SolveForEx(leaving, entering)
		s.substitute(entering, leavingRow)
		s.putRow(entering, leavingRow)
	}
	return wrapf(ErrIterationLimit, "exceeded %d pivot iterations", s.maxIterations)
}

// enteringSymbol scans target in insertion order for the first non-Dummy
// symbol with a negative coefficient.
func (s *Solver) enteringSymbol(target *Row) Symbol {
	entering := InvalidSymbol
	target.Each(func(sym Symbol, coeff float64) {
		if entering.IsValid() {
			return
		}
		if sym.Kind() != Dummy && coeff < 0 {
			entering = sym
		}
	})
	return entering
}

// leavingRow finds the tableau row that should leave the basis when
// entering becomes basic: among rows whose basic symbol is not External and
// whose coefficient for entering is strictly negative, the one minimizing
// -constant/coefficient. A nil Row signals an unbounded objective.
func (s *Solver) leavingRow(entering Symbol) (Symbol, *Row) {
	var best Symbol
	var bestRow *Row
	bestRatio := math.Inf(1)

	s.rowMap.Each(func(_ int, e rowEntry) {
		if e.sym.Kind() == External {
			return
		}
		c := e.row.CoefficientFor(entering)
		if c >= 0 {
			return
		}
		ratio := -e.row.Constant() / c
		if ratio < bestRatio {
			bestRatio = ratio
			best = e.sym
			bestRow = e.row
		}
	})

	return best, bestRow
}

// RemoveConstraint uninstalls c from the tableau and re-optimizes. Removing
// a constraint not currently present is an error.
func (s *Solver) RemoveConstraint(c *Constraint) error {
	tag, exists := s.cnMap[c]
	if !exists {
		return wrapf(ErrUnknownConstraint, "constraint %d is not present", c.ID())
	}
	delete(s.cnMap, c)
	s.cnOrder = removeFromOrder(s.cnOrder, c)

	strength := float64(c.Strength())
	s.removeErrorContribution(tag.Marker, strength)
	s.removeErrorContribution(tag.Other, strength)

	if _, ok := s.rowFor(tag.Marker); ok {
		s.removeRow(tag.Marker)
	} else {
		leaving, ok := s.markerLeavingSymbol(tag.Marker)
		if !ok {
			return wrapf(ErrInternalInvariant, "no leaving row found removing constraint %d", c.ID())
		}
		row, _ := s.removeRow(leaving)
		row.SolveForEx(leaving, tag.Marker)
		s.substitute(tag.Marker, row)
	}

	kiwilog.Logger().Debug().Int("constraint", c.ID()).Msg("constraint removed")

	return s.optimize(s.objective)
}

// removeErrorContribution reverses a retiring constraint's contribution to
// the objective before any pivoting happens; doing this after a pivot would
// read stale coefficients. Non-Error symbols (including InvalidSymbol) are
// ignored.
func (s *Solver) removeErrorContribution(sym Symbol, strength float64) {
	if sym.Kind() != Error {
		return
	}
	if row, ok := s.rowFor(sym); ok {
		s.objective.InsertRow(row, -strength)
	} else {
		s.objective.InsertSymbol(sym, -strength)
	}
}

// markerLeavingSymbol implements the marker-leaving rule: scan every row
// containing marker with a nonzero coefficient and return, in
// priority order, (1) the non-External basic symbol minimizing
// -constant/coefficient among negative-coefficient rows, (2) the
// non-External basic symbol minimizing constant/coefficient among
// positive-coefficient rows, or (3) the last External basic symbol seen.
func (s *Solver) markerLeavingSymbol(marker Symbol) (Symbol, bool) {
	r1, r2 := math.Inf(1), math.Inf(1)
	var sym1, sym2, sym3 Symbol
	found1, found2, found3 := false, false, false

	s.rowMap.Each(func(_ int, e rowEntry) {
		coeff := e.row.CoefficientFor(marker)
		if coeff == 0 {
			return
		}
		if e.sym.Kind() == External {
			sym3 = e.sym
			found3 = true
			return
		}
		if coeff < 0 {
			ratio := -e.row.Constant() / coeff
			if ratio < r1 {
				r1 = ratio
				sym1 = e.sym
				found1 = true
			}
		} else {
			ratio := e.row.Constant() / coeff
			if ratio < r2 {
				r2 = ratio
				sym2 = e.sym
				found2 = true
			}
		}
	})

	switch {
	case found1:
		return sym1, true
	case found2:
		return sym2, true
	case found3:
		return sym3, true
	default:
		return InvalidSymbol, false
	}
}

// AddEditVariable marks v as an edit variable at the given strength, which
// must be less than Required, by synthesizing and adding the equality
// constraint "v == 0".
func (s *Solver) AddEditVariable(v *Variable, strength Strength) error {
	if _, exists := s.editMap[v]; exists {
		return wrapf(ErrDuplicateEditVariable, "variable %s is already an edit variable", v)
	}
	if strength.IsRequired() {
		return wrapf(ErrRequiredStrength, "edit variable %s strength must not be required", v)
	}

	expr, err := NewExpression(v)
	if err != nil {
		return err
	}
	c, err := NewConstraint(expr, Equal, WithStrength(strength))
	if err != nil {
		return err
	}
	if err := s.AddConstraint(c); err != nil {
		return err
	}

	s.editMap[v] = &EditInfo{Tag: s.cnMap[c], Constraint: c, Constant: 0}
	return nil
}

// RemoveEditVariable removes v's synthesized edit constraint, demoting it
// back to an ordinary Variable. Removing a Variable that is not currently
// an edit variable is an error.
func (s *Solver) RemoveEditVariable(v *Variable) error {
	info, exists := s.editMap[v]
	if !exists {
		return wrapf(ErrUnknownEditVariable, "variable %s is not an edit variable", v)
	}
	if err := s.RemoveConstraint(info.Constraint); err != nil {
		return err
	}
	delete(s.editMap, v)
	return nil
}

// SuggestValue requests that v take on value x, adjusting the tableau by
// bounded dual-simplex pivots rather than resolving from scratch. v must
// already be an edit variable.
func (s *Solver) SuggestValue(v *Variable, x float64) error {
	info, exists := s.editMap[v]
	if !exists {
		return wrapf(ErrUnknownEditVariable, "variable %s is not an edit variable", v)
	}

	delta := x - info.Constant
	info.Constant = x

	marker := info.Tag.Marker
	other := info.Tag.Other

	switch {
	case s.hasRow(marker):
		row, _ := s.rowFor(marker)
		next := row.Constant() - delta
		row.SetConstant(next)
		if next < 0 {
			s.infeasibleRows = append(s.infeasibleRows, marker)
		}

	case other.IsValid() && s.hasRow(other):
		row, _ := s.rowFor(other)
		next := row.Constant() + delta
		row.SetConstant(next)
		if next < 0 {
			s.infeasibleRows = append(s.infeasibleRows, other)
		}

	default:
		s.rowMap.Each(func(_ int, e rowEntry) {
			coeff := e.row.CoefficientFor(marker)
			if coeff == 0 {
				return
			}
			next := e.row.Constant() + delta*coeff
			e.row.SetConstant(next)
			if next < 0 && e.sym.Kind() != External {
				s.infeasibleRows = append(s.infeasibleRows, e.sym)
			}
		})
	}

	return s.dualOptimize()
}

func (s *Solver) hasRow(sym Symbol) bool {
	_, ok := s.rowFor(sym)
	return ok
}

// dualOptimize restores primal feasibility after SuggestValue has pushed
// basic symbols with negative row constants onto infeasibleRows, preserving
// objective optimality throughout.
func (s *Solver) dualOptimize() error {
	for len(s.infeasibleRows) > 0 {
		n := len(s.infeasibleRows) - 1
		leaving := s.infeasibleRows[n]
		s.infeasibleRows = s.infeasibleRows[:n]

		row, ok := s.rowFor(leaving)
		if !ok || row.Constant() >= 0 {
			continue
		}

		entering := InvalidSymbol
		ratio := math.Inf(1)
		row.Each(func(sym Symbol, coeff float64) {
			if sym.Kind() == Dummy || coeff <= 0 {
				return
			}
			r := s.objective.CoefficientFor(sym) / coeff
			if r < ratio {
				ratio = r
				entering = sym
			}
		})

		if !entering.IsValid() {
			return wrapf(ErrInternalInvariant, "dual optimization found no entering symbol for %s", leaving)
		}

		kiwilog.Logger().Debug().Str("entering", entering.String()).Str("leaving", leaving.String()).Msg("dual pivot")

		s.removeRow(leaving)
		row.SolveForEx(leaving, entering)
		s.substitute(entering, row)
		s.putRow(entering, row)
	}
	return nil
}

// UpdateVariables copies every external symbol's basic row constant back
// into its Variable's value; Variables whose symbol is non-basic are set to
// 0.
func (s *Solver) UpdateVariables() {
	for v, sym := range s.varMap {
		if row, ok := s.rowFor(sym); ok {
			v.SetValue(row.Constant())
		} else {
			v.SetValue(0)
		}
	}
}

func removeFromOrder(order []*Constraint, c *Constraint) []*Constraint {
	for i, cc := range order {
		if cc == c {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
