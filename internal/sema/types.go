package sema

import (
	"math/big"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

// numTypeBounds is the canonical [min, max] range of every built-in
// numeric (and bool) base type, indexed by its Key. A zero entry means
// "not a fixed-width numeric type" (structs, pointers, and so on).
var numTypeBounds = map[t.ID][2]*big.Int{
	t.IDI8:   {big.NewInt(-1 << 7), big.NewInt(1<<7 - 1)},
	t.IDI16:  {big.NewInt(-1 << 15), big.NewInt(1<<15 - 1)},
	t.IDI32:  {big.NewInt(-1 << 31), big.NewInt(1<<31 - 1)},
	t.IDI64:  {big.NewInt(-1 << 63), big.NewInt(1<<63 - 1)},
	t.IDU8:   {zero, new(big.Int).SetUint64(1<<8 - 1)},
	t.IDU16:  {zero, new(big.Int).SetUint64(1<<16 - 1)},
	t.IDU32:  {zero, new(big.Int).SetUint64(1<<32 - 1)},
	t.IDU64:  {zero, new(big.Int).SetUint64(1<<64 - 1)},
	t.IDBool: {zero, one},
}

// idealBounds is the notional "unbounded" range used for the ideal
// (untyped literal) type before it widens.
var idealBounds = [2]*big.Int{nil, nil}

// typeExprIdeal and typeExprBool are synthetic, shared type nodes for
// the ideal numeric type and for bool, used when the typer needs to
// hand back a type that has no corresponding TypeExpr in the source
// (an unparenthesized literal, a comparison result).
var (
	typeExprIdeal = &a.Node{Kind: a.KTypeExpr}
	typeExprBool  = typeExprName(0, t.IDBool)
)

func typeExprName(pkg, name t.ID) *a.Node {
	return a.NewTypeExprName(pkg, name, nil, nil).AsNode()
}

// resolveTypeExpr annotates typ in place: it resolves base/user QIDs,
// descends decorators, validates constant refinement bounds against the
// canonical range, and validates constant array lengths.
func (c *Checker) resolveTypeExpr(filename string, typ *a.Node) error {
	if typ == nil {
		return nil
	}
	x := typ.AsTypeExpr()
	switch x.Decorator() {
	case t.IDArray:
		if err := c.resolveTypeExpr(filename, x.Inner()); err != nil {
			return err
		}
		if err := c.tcheckExpr(nil, t.QQID{}, x.ArrayLength()); err != nil {
			return err
		}
		if x.ArrayLength().ConstValue == nil {
			return errs.New(errs.NonConstantRefinement, filename, typ.Line, "array length must be a constant")
		}
		if x.ArrayLength().ConstValue.Sign() < 0 {
			return errs.New(errs.BadRefinement, filename, typ.Line, "array length must be non-negative")
		}
		return nil
	case t.IDTable, t.IDSlice, t.IDNptr, t.IDPtr:
		return c.resolveTypeExpr(filename, x.Inner())
	}

	qid := x.QID()
	if qid[0] == 0 {
		if b, ok := numTypeBounds[qid[1]]; ok {
			return c.resolveRefinement(filename, typ, b)
		}
		switch qid[1] {
		case t.IDIOReader, t.IDIOWriter, t.IDBase, 0:
			return nil
		}
		if _, ok := c.structs[qid]; ok {
			return nil
		}
		if _, ok := c.statuses[qid]; ok {
			return nil
		}
		return errs.New(errs.UnknownType, filename, typ.Line, "unknown type %q", qid.Str(c.tm))
	}
	if !c.useBases[qid[0]] {
		return errs.New(errs.UnknownType, filename, typ.Line, "unknown package %q", c.tm.ByID(qid[0]))
	}
	if b, ok := numTypeBounds[qid[1]]; ok {
		return c.resolveRefinement(filename, typ, b)
	}
	if _, ok := c.structs[qid]; ok {
		return nil
	}
	if _, ok := c.statuses[qid]; ok {
		return nil
	}
	return errs.New(errs.UnknownType, filename, typ.Line, "unknown type %q", qid.Str(c.tm))
}

func (c *Checker) resolveRefinement(filename string, typ *a.Node, canon [2]*big.Int) error {
	x := typ.AsTypeExpr()
	if lo := x.RefineLo(); lo != nil {
		if err := c.tcheckExpr(nil, t.QQID{}, lo); err != nil {
			return err
		}
		if lo.ConstValue == nil {
			return errs.New(errs.NonConstantRefinement, filename, typ.Line, "refinement lower bound must be a constant")
		}
		if canon[0] != nil && lo.ConstValue.Cmp(canon[0]) < 0 {
			return errs.New(errs.BadRefinement, filename, typ.Line, "refinement %v is below the base type's minimum %v", lo.ConstValue, canon[0])
		}
	}
	if hi := x.RefineHi(); hi != nil {
		if err := c.tcheckExpr(nil, t.QQID{}, hi); err != nil {
			return err
		}
		if hi.ConstValue == nil {
			return errs.New(errs.NonConstantRefinement, filename, typ.Line, "refinement upper bound must be a constant")
		}
		if canon[1] != nil && hi.ConstValue.Cmp(canon[1]) > 0 {
			return errs.New(errs.BadRefinement, filename, typ.Line, "refinement %v is above the base type's maximum %v", hi.ConstValue, canon[1])
		}
	}
	if x.RefineLo() != nil && x.RefineHi() != nil && x.RefineLo().ConstValue.Cmp(x.RefineHi().ConstValue) > 0 {
		return errs.New(errs.BadRefinement, filename, typ.Line, "refinement lower bound exceeds upper bound")
	}
	return nil
}

// typeBounds returns the effective [lo, hi] range of typ: the
// refinement if present, otherwise the canonical base-type range.
// Non-numeric types return (nil, nil).
func typeBounds(typ *a.Node) (lo, hi *big.Int) {
	if typ == nil || typ == typeExprIdeal {
		return nil, nil
	}
	x := typ.AsTypeExpr()
	if x.Decorator() != 0 {
		return nil, nil
	}
	canon, ok := numTypeBounds[x.QID()[1]]
	if !ok {
		return nil, nil
	}
	lo, hi = canon[0], canon[1]
	if x.RefineLo() != nil {
		lo = x.RefineLo().ConstValue
	}
	if x.RefineHi() != nil {
		hi = x.RefineHi().ConstValue
	}
	return lo, hi
}

func isNumeric(tm *t.Map, typ *a.Node) bool {
	if typ == typeExprIdeal {
		return true
	}
	if typ == nil {
		return false
	}
	x := typ.AsTypeExpr()
	if x.Decorator() != 0 {
		return false
	}
	if x.QID()[1] == t.IDBool {
		return false
	}
	_, ok := numTypeBounds[x.QID()[1]]
	return ok
}

func isBool(typ *a.Node) bool {
	if typ == nil || typ == typeExprIdeal {
		return false
	}
	x := typ.AsTypeExpr()
	return x.Decorator() == 0 && x.QID()[0] == 0 && x.QID()[1] == t.IDBool
}

func isIdeal(typ *a.Node) bool { return typ == typeExprIdeal }

// eqIgnoringRefinements reports whether x and y name the same type,
// disregarding any numeric refinement bounds: the primary assignability
// and operand-compatibility predicate.
func eqIgnoringRefinements(x, y *a.Node) bool {
	if x == y {
		return true
	}
	if x == nil || y == nil {
		return false
	}
	if x == typeExprIdeal || y == typeExprIdeal {
		return false
	}
	xe, ye := x.AsTypeExpr(), y.AsTypeExpr()
	if xe.Decorator() != ye.Decorator() {
		return false
	}
	if xe.Decorator() != 0 {
		return eqIgnoringRefinements(xe.Inner(), ye.Inner())
	}
	return xe.QID() == ye.QID()
}

// assignable reports whether a value of type src (with the given
// optional constant value) may be assigned to a destination of type
// dst: identical-ignoring-refinements, or an ideal source widening into
// any numeric destination whose range contains the constant.
func assignable(src, dst *a.Node, srcConst *big.Int) bool {
	if isIdeal(src) {
		if !isNumeric(nil, dst) {
			return false
		}
		if srcConst == nil {
			return false
		}
		lo, hi := typeBounds(dst)
		if lo != nil && srcConst.Cmp(lo) < 0 {
			return false
		}
		if hi != nil && srcConst.Cmp(hi) > 0 {
			return false
		}
		return true
	}
	return eqIgnoringRefinements(src, dst)
}
