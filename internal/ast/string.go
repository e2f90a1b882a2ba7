package ast

import (
	"strconv"
	"strings"

	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// exprStr renders n (expected to be a KExpr node, or nil) back to
// roughly-canonical source text, for error messages and fact-set dumps.
// It is deliberately simple: operator precedence is made explicit with
// parentheses rather than tracked, since this output is diagnostic, not
// a round-trip target (internal/render owns that).
func exprStr(n *Node, m *t.Map) string {
	if n == nil {
		return "<nil>"
	}
	e := n.AsExpr()
	switch {
	case n.ConstValue != nil && n.LHS == nil && n.RHS == nil && len(n.List0) == 0:
		return n.ConstValue.String()
	case e.IsCall():
		var args []string
		for _, a := range e.Args() {
			args = append(args, m.ByID(a.AsArg().Name())+": "+exprStr(a.AsArg().Value(), m))
		}
		return exprStr(e.LHSExpr(), m) + "(" + strings.Join(args, ", ") + ")"
	case e.IsIndex():
		return exprStr(e.LHSExpr(), m) + "[" + exprStr(e.RHSExpr(), m) + "]"
	case e.IsSlice():
		return exprStr(e.LHSExpr(), m) + "[" + exprStr(e.MHSExpr(), m) + ".." + exprStr(e.RHSExpr(), m) + "]"
	case e.IsSelector():
		return exprStr(e.LHSExpr(), m) + "." + m.ByID(e.Ident())
	case n.ID0 == t.IDAs:
		return "(" + exprStr(e.LHSExpr(), m) + " as " + exprStr(e.RHSExpr(), m) + ")"
	case n.ID0 != 0 && len(n.List0) > 0:
		var parts []string
		for _, a := range n.List0 {
			parts = append(parts, exprStr(a, m))
		}
		return "(" + strings.Join(parts, " "+opStr(n.ID0, m)+" ") + ")"
	case n.ID0 != 0 && n.LHS != nil && n.RHS != nil:
		return "(" + exprStr(n.LHS, m) + " " + opStr(n.ID0, m) + " " + exprStr(n.RHS, m) + ")"
	case n.ID0 != 0 && n.RHS != nil:
		return "(" + opStr(n.ID0, m) + exprStr(n.RHS, m) + ")"
	case n.ID1 != 0:
		return m.ByID(n.ID1)
	default:
		return "<expr>"
	}
}

func opStr(id t.ID, m *t.Map) string {
	if s := m.ByID(id); s != "" {
		return s
	}
	return "op(" + strconv.Itoa(int(id)) + ")"
}

// TypeExprStr renders the type expression n back to source text, e.g.
// "array[4] base.u8[0 ..= 10]".
func TypeExprStr(n *Node, m *t.Map) string {
	if n == nil {
		return "<nil-type>"
	}
	x := &TypeExpr{view{n}}
	switch x.Decorator() {
	case t.IDArray:
		return "array[" + exprStr(x.ArrayLength(), m) + "] " + TypeExprStr(x.Inner(), m)
	case t.IDTable:
		return "table " + TypeExprStr(x.Inner(), m)
	case t.IDSlice:
		return "slice " + TypeExprStr(x.Inner(), m)
	case t.IDNptr:
		return "nptr " + TypeExprStr(x.Inner(), m)
	case t.IDPtr:
		return "ptr " + TypeExprStr(x.Inner(), m)
	}
	s := x.QID().Str(m)
	if x.IsRefined() {
		lo, hi := "", ""
		if x.RefineLo() != nil {
			lo = exprStr(x.RefineLo(), m)
		}
		if x.RefineHi() != nil {
			hi = exprStr(x.RefineHi(), m)
		}
		s += "[" + lo + " ..= " + hi + "]"
	}
	return s
}
