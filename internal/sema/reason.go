package sema

import (
	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// reasonSchema is one entry of the built-in reason catalogue: a named
// axiom that discharges an `assert ... via "<name>"{args}` by reducing
// its condition to simpler premises, each proven through the bounds
// prover's proveBinaryOp.
type reasonSchema struct {
	name  string
	check func(fc *funcChecker, assert *a.Node) error
}

type reasonCatalogue map[string]reasonSchema

// parseBinaryOp splits n into (op, lhs, rhs) if n is a binary-operator
// expression, or returns (0, nil, nil) otherwise.
func parseBinaryOp(n *a.Node) (t.ID, *a.Node, *a.Node) {
	if n == nil {
		return 0, nil, nil
	}
	e := n.AsExpr()
	if e.LHSExpr() == nil || e.RHSExpr() == nil || e.IsCall() || e.IsIndex() || e.IsSlice() || e.IsSelector() {
		return 0, nil, nil
	}
	return e.Operator(), e.LHSExpr(), e.RHSExpr()
}

// argValue looks up the value bound to a named reason argument.
func argValue(tm *t.Map, args []*a.Node, name string) *a.Node {
	id := tm.ByName(name)
	for _, arg := range args {
		al := arg.AsArg()
		if al.Name() == id {
			return al.Value()
		}
	}
	return nil
}

func reasonFailed(fc *funcChecker, assert *a.Node, format string, args ...interface{}) error {
	return errs.New(errs.PremiseNotDischarged, assert.Filename, assert.Line, format, args...).
		WithFacts(fc.facts.Strings(fc.tm))
}

// defaultReasons is the built-in reason catalogue. Each schema's name is
// the literal string an `assert ... via "<name>"` clause must spell
// exactly; adding a reason is a source change here, never a runtime
// registration.
func defaultReasons() reasonCatalogue {
	cat := reasonCatalogue{}
	add := func(name string, check func(fc *funcChecker, assert *a.Node) error) {
		cat[name] = reasonSchema{name: name, check: check}
	}

	add(`a < b: a < c; c <= b`, func(fc *funcChecker, assert *a.Node) error {
		xc := argValue(fc.tm, assert.AsAssert().Args(), "c")
		if xc == nil {
			return reasonFailed(fc, assert, `reason "a < b: a < c; c <= b" requires argument c`)
		}
		op, xa, xb := parseBinaryOp(assert.AsAssert().Cond())
		if op != t.IDXBinaryLessThan {
			return reasonFailed(fc, assert, "condition is not of the form a < b")
		}
		if err := fc.proveBinaryOp(t.IDXBinaryLessThan, xa, xc); err != nil {
			return err
		}
		return fc.proveBinaryOp(t.IDXBinaryLessEq, xc, xb)
	})

	add(`a <= b: a <= c; c <= b`, func(fc *funcChecker, assert *a.Node) error {
		xc := argValue(fc.tm, assert.AsAssert().Args(), "c")
		if xc == nil {
			return reasonFailed(fc, assert, `reason "a <= b: a <= c; c <= b" requires argument c`)
		}
		op, xa, xb := parseBinaryOp(assert.AsAssert().Cond())
		if op != t.IDXBinaryLessEq {
			return reasonFailed(fc, assert, "condition is not of the form a <= b")
		}
		if err := fc.proveBinaryOp(t.IDXBinaryLessEq, xa, xc); err != nil {
			return err
		}
		return fc.proveBinaryOp(t.IDXBinaryLessEq, xc, xb)
	})

	add(`a < (b + c): a < c; 0 <= b`, func(fc *funcChecker, assert *a.Node) error {
		op, xa, xbc := parseBinaryOp(assert.AsAssert().Cond())
		if op != t.IDXBinaryLessThan {
			return reasonFailed(fc, assert, "condition is not of the form a < (b + c)")
		}
		op2, xb, xc := parseBinaryOp(xbc)
		if op2 != t.IDXBinaryPlus {
			return reasonFailed(fc, assert, "condition's right-hand side is not a sum")
		}
		if err := fc.proveBinaryOp(t.IDXBinaryLessThan, xa, xc); err != nil {
			return err
		}
		return fc.proveBinaryOp(t.IDXBinaryLessEq, fc.zeroExpr(), xb)
	})

	add(`(a + b) <= c: a <= (c - b)`, func(fc *funcChecker, assert *a.Node) error {
		op, xab, xc := parseBinaryOp(assert.AsAssert().Cond())
		if op != t.IDXBinaryLessEq {
			return reasonFailed(fc, assert, "condition is not of the form (a + b) <= c")
		}
		op2, xa, xb := parseBinaryOp(xab)
		if op2 != t.IDXBinaryPlus {
			return reasonFailed(fc, assert, "condition's left-hand side is not a sum")
		}
		sub := a.NewExprOp(assert.Filename, assert.Line, t.IDXBinaryMinus, xc, xb).AsNode()
		sub.Flags |= a.FlagsTypeChecked
		sub.SetMType(xc.MType)
		if _, _, err := fc.bcheckExpr(sub); err != nil {
			return err
		}
		return fc.proveBinaryOp(t.IDXBinaryLessEq, xa, sub)
	})

	add(`a < (b + c): a < (b0 + c0); b0 <= b; c0 <= c`, func(fc *funcChecker, assert *a.Node) error {
		xb0 := argValue(fc.tm, assert.AsAssert().Args(), "b0")
		if xb0 == nil {
			return reasonFailed(fc, assert, `reason "a < (b + c): a < (b0 + c0); b0 <= b; c0 <= c" requires argument b0`)
		}
		xc0 := argValue(fc.tm, assert.AsAssert().Args(), "c0")
		if xc0 == nil {
			return reasonFailed(fc, assert, `reason "a < (b + c): a < (b0 + c0); b0 <= b; c0 <= c" requires argument c0`)
		}
		op, xa, xbc := parseBinaryOp(assert.AsAssert().Cond())
		if op != t.IDXBinaryLessThan {
			return reasonFailed(fc, assert, "condition is not of the form a < (b + c)")
		}
		op2, xb, xc := parseBinaryOp(xbc)
		if op2 != t.IDXBinaryPlus {
			return reasonFailed(fc, assert, "condition's right-hand side is not a sum")
		}
		plus := a.NewExprOp(assert.Filename, assert.Line, t.IDXBinaryPlus, xb0, xc0).AsNode()
		plus.Flags |= a.FlagsTypeChecked
		plus.SetMType(xa.MType)
		if _, _, err := fc.bcheckExpr(plus); err != nil {
			return err
		}
		if err := fc.proveBinaryOp(t.IDXBinaryLessThan, xa, plus); err != nil {
			return err
		}
		if err := fc.proveBinaryOp(t.IDXBinaryLessEq, xb0, xb); err != nil {
			return err
		}
		return fc.proveBinaryOp(t.IDXBinaryLessEq, xc0, xc)
	})

	return cat
}

func (fc *funcChecker) zeroExpr() *a.Node {
	n := a.NewExprLiteral(fc.astFunc.Filename, fc.astFunc.Line, t.IDZero).AsNode()
	n.Flags |= a.FlagsTypeChecked
	n.SetMType(typeExprIdeal)
	n.SetConstValue(zero)
	return n
}
