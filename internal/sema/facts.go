package sema

import (
	"math/big"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// Facts is the ordered vector of boolean predicates proven true at the
// current program point. Order matters only for determinism of error
// dumps; membership is by structural equality (Expr.Eq).
type Facts []*a.Node

// Append inserts f (already type-checked, bool-typed) into the set,
// splitting a top-level "and" into its conjuncts and skipping anything
// already present.
func (fs Facts) Append(f *a.Node) Facts {
	if f == nil {
		return fs
	}
	e := f.AsExpr()
	if e.Operator() == t.IDAnd {
		fs = fs.Append(e.LHSExpr())
		fs = fs.Append(e.RHSExpr())
		return fs
	}
	if e.Operator() == t.IDXAssociativeAnd {
		for _, arg := range e.Args() {
			fs = fs.Append(arg)
		}
		return fs
	}
	for _, g := range fs {
		if g.AsExpr().Eq(e) {
			return fs
		}
	}
	return append(fs, f)
}

// Update rewrites or drops every fact per transform, preserving survivor
// order: used on assignment to discard facts that mention the mutated
// variable.
func (fs Facts) Update(transform func(*a.Node) (*a.Node, bool)) Facts {
	out := make(Facts, 0, len(fs))
	for _, f := range fs {
		if g, keep := transform(f); keep {
			out = append(out, g)
		}
	}
	return out
}

// DropMentioning removes every fact whose free variables intersect
// names: used on entering a yield or an unknown-effect call, which may
// invalidate anything about "in", "out", "this", or pointer locals.
func (fs Facts) DropMentioning(names map[t.ID]bool) Facts {
	return fs.Update(func(f *a.Node) (*a.Node, bool) {
		fv := map[t.ID]bool{}
		freeVars(f, fv)
		for n := range names {
			if fv[n] {
				return nil, false
			}
		}
		return f, true
	})
}

// DropAssigned removes every fact mentioning the just-assigned variable
// ident, whatever the operator: no fact is rewritten, so after "+=" or
// "-=" the prior relationship is lost just as it is after "=". op and
// delta do not change the result.
func (fs Facts) DropAssigned(ident t.ID, op t.ID, delta *a.Node) Facts {
	return fs.Update(func(f *a.Node) (*a.Node, bool) {
		fv := map[t.ID]bool{}
		freeVars(f, fv)
		if !fv[ident] {
			return f, true
		}
		if op != t.IDPlusEq && op != t.IDMinusEq {
			return nil, false
		}
		return nil, false // conservative: compound-assign rewriting is left to re-proving, not fact carry-over.
	})
}

// Reconcile keeps only the facts present (by Eq) in every branch: the
// fact set surviving an if/else chain. A branch that terminates (return,
// or an unconditional jump out) contributes nothing and should be
// omitted from branches by the caller.
func Reconcile(branches []Facts) Facts {
	if len(branches) == 0 {
		return nil
	}
	var out Facts
	for _, f := range branches[0] {
		inAll := true
		for _, br := range branches[1:] {
			found := false
			for _, g := range br {
				if g.AsExpr().Eq(f.AsExpr()) {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, f)
		}
	}
	return out
}

// Refine tightens [lo, hi] (the bounds already known for expr from its
// type and operand propagation) using any fact of the form "expr op
// constant" or "constant op expr". It returns the tightened interval,
// or ok=false if the result would be empty (a contradiction).
func (fs Facts) Refine(expr *a.Node, lo, hi *big.Int) (rlo, rhi *big.Int, ok bool) {
	rlo, rhi = lo, hi
	for _, f := range fs {
		e := f.AsExpr()
		op := e.Operator()
		switch op {
		case t.IDXBinaryLessThan, t.IDXBinaryLessEq, t.IDXBinaryGreaterThan, t.IDXBinaryGreaterEq, t.IDXBinaryEqEq:
		default:
			continue
		}
		l, r := e.LHSExpr(), e.RHSExpr()
		if l.AsExpr().Eq(expr.AsExpr()) && r.ConstValue != nil {
			rlo, rhi = tightenUpper(rlo, rhi, op, r.ConstValue)
		} else if r.AsExpr().Eq(expr.AsExpr()) && l.ConstValue != nil {
			rlo, rhi = tightenUpper(rlo, rhi, flipOp(op), l.ConstValue)
		}
	}
	if rlo != nil && rhi != nil && rlo.Cmp(rhi) > 0 {
		return nil, nil, false
	}
	return rlo, rhi, true
}

// tightenUpper applies "expr op c" to [lo, hi], given op already
// oriented so expr is the left-hand operand.
func tightenUpper(lo, hi *big.Int, op t.ID, c *big.Int) (*big.Int, *big.Int) {
	switch op {
	case t.IDXBinaryLessThan:
		bound := new(big.Int).Sub(c, one)
		if hi == nil || bound.Cmp(hi) < 0 {
			hi = bound
		}
	case t.IDXBinaryLessEq:
		if hi == nil || c.Cmp(hi) < 0 {
			hi = new(big.Int).Set(c)
		}
	case t.IDXBinaryGreaterThan:
		bound := new(big.Int).Add(c, one)
		if lo == nil || bound.Cmp(lo) > 0 {
			lo = bound
		}
	case t.IDXBinaryGreaterEq:
		if lo == nil || c.Cmp(lo) > 0 {
			lo = new(big.Int).Set(c)
		}
	case t.IDXBinaryEqEq:
		lo, hi = new(big.Int).Set(c), new(big.Int).Set(c)
	}
	return lo, hi
}

func flipOp(op t.ID) t.ID {
	switch op {
	case t.IDXBinaryLessThan:
		return t.IDXBinaryGreaterThan
	case t.IDXBinaryLessEq:
		return t.IDXBinaryGreaterEq
	case t.IDXBinaryGreaterThan:
		return t.IDXBinaryLessThan
	case t.IDXBinaryGreaterEq:
		return t.IDXBinaryLessEq
	}
	return op
}

// freeVars collects, into out, the ID of every bare identifier
// referenced by n, including "this", "in" and "out" (DropMentioning's
// yield-time caller relies on finding them).
func freeVars(n *a.Node, out map[t.ID]bool) {
	if n == nil {
		return
	}
	e := n.AsExpr()
	if n.ID0 == 0 && n.ConstValue == nil && n.ID1 != 0 {
		out[n.ID1] = true
		return
	}
	freeVars(e.LHSExpr(), out)
	freeVars(e.MHSExpr(), out)
	freeVars(e.RHSExpr(), out)
	for _, arg := range e.Args() {
		if arg.Kind == a.KArg {
			freeVars(arg.AsArg().Value(), out)
		} else {
			freeVars(arg, out)
		}
	}
}

// Strings renders fs for an error's fact-set dump.
func (fs Facts) Strings(tm *t.Map) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.AsExpr().Str(tm)
	}
	return out
}
