package sema

import (
	"math/big"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	"github.com/wuffscheck/wuffscheck/internal/numrange"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

var maxShiftCount = big.NewInt(65535)

// bcheckExpr computes n's proven interval, recording it via
// n.SetBounds, discharging every indexing/overflow/division/shift
// obligation the expression carries along the way. n must already be
// type-checked (tcheckExpr has set n.MType and, where applicable,
// n.ConstValue).
func (fc *funcChecker) bcheckExpr(n *a.Node) (lo, hi *big.Int, err error) {
	if n == nil {
		return nil, nil, nil
	}
	e := n.AsExpr()
	if n.ConstValue != nil {
		lo, hi = n.ConstValue, n.ConstValue
		if isNumeric(fc.tm, n.MType) {
			n.SetBounds(a.Bounds{Min: lo, Max: hi})
		}
		return lo, hi, nil
	}
	switch {
	case e.IsCall():
		for _, arg := range e.Args() {
			if _, _, err := fc.bcheckExpr(arg.AsArg().Value()); err != nil {
				return nil, nil, err
			}
		}
		if _, _, err := fc.bcheckExpr(e.LHSExpr()); err != nil {
			return nil, nil, err
		}
		if err := fc.bcheckCallObligations(n); err != nil {
			return nil, nil, err
		}
		lo, hi = typeBounds(n.MType)
	case e.IsIndex():
		lo, hi, err = fc.bcheckIndex(n)
	case e.IsSlice():
		lo, hi, err = nil, nil, fc.bcheckSliceObligations(n)
	case e.IsSelector():
		if _, _, err := fc.bcheckExpr(e.LHSExpr()); err != nil {
			return nil, nil, err
		}
		lo, hi = typeBounds(n.MType)
	case n.ID0 == t.IDAs:
		if _, _, err := fc.bcheckExpr(e.LHSExpr()); err != nil {
			return nil, nil, err
		}
		lo, hi, err = fc.bcheckConversion(n)
	case isAssociative(n.ID0):
		lo, hi, err = fc.bcheckAssociative(n)
	case n.ID0 != 0 && e.LHSExpr() != nil && e.RHSExpr() != nil:
		lo, hi, err = fc.bcheckBinaryOp(n)
	case n.ID0 != 0 && e.RHSExpr() != nil:
		lo, hi, err = fc.bcheckUnaryOp(n)
	case n.ID1 != 0:
		if isNumeric(fc.tm, n.MType) {
			lo, hi = typeBounds(n.MType)
			var ok bool
			lo, hi, ok = fc.facts.Refine(n, lo, hi)
			if !ok {
				return nil, nil, errs.New(errs.CannotProve, n.Filename, n.Line, "contradictory facts about %q", e.Str(fc.tm)).
					WithFacts(fc.facts.Strings(fc.tm))
			}
		}
	}
	if err != nil {
		return nil, nil, err
	}
	if isNumeric(fc.tm, n.MType) {
		n.SetBounds(a.Bounds{Min: lo, Max: hi})
	}
	return lo, hi, nil
}

func toRange(lo, hi *big.Int) numrange.Range { return numrange.Range{lo, hi} }

func (fc *funcChecker) bcheckUnaryOp(n *a.Node) (lo, hi *big.Int, err error) {
	e := n.AsExpr()
	rlo, rhi, err := fc.bcheckExpr(e.RHSExpr())
	if err != nil {
		return nil, nil, err
	}
	if !isNumeric(fc.tm, n.MType) {
		return nil, nil, nil
	}
	switch n.ID0 {
	case t.IDXUnaryMinus:
		var nlo, nhi *big.Int
		if rhi != nil {
			nlo = new(big.Int).Neg(rhi)
		}
		if rlo != nil {
			nhi = new(big.Int).Neg(rlo)
		}
		return nlo, nhi, nil
	case t.IDXUnaryPlus:
		return rlo, rhi, nil
	}
	return nil, nil, nil
}

func (fc *funcChecker) bcheckBinaryOp(n *a.Node) (lo, hi *big.Int, err error) {
	e := n.AsExpr()
	llo, lhi, err := fc.bcheckExpr(e.LHSExpr())
	if err != nil {
		return nil, nil, err
	}
	rlo, rhi, err := fc.bcheckExpr(e.RHSExpr())
	if err != nil {
		return nil, nil, err
	}
	if !isNumeric(fc.tm, n.MType) {
		return nil, nil, nil // bool-typed comparisons/logical ops carry no numeric bounds.
	}
	l, r := toRange(llo, lhi), toRange(rlo, rhi)
	op := n.ID0

	wrap := func(z numrange.Range) (*big.Int, *big.Int) {
		tlo, thi := typeBounds(n.MType)
		if tlo == nil || thi == nil {
			return z[0], z[1]
		}
		return tlo, thi // wrapping arithmetic covers the type's full range.
	}
	clamp := func(z numrange.Range) (*big.Int, *big.Int) {
		tlo, thi := typeBounds(n.MType)
		zlo, zhi := z[0], z[1]
		if tlo != nil && (zlo == nil || zlo.Cmp(tlo) < 0) {
			zlo = tlo
		}
		if thi != nil && (zhi == nil || zhi.Cmp(thi) > 0) {
			zhi = thi
		}
		return zlo, zhi
	}

	switch op {
	case t.IDXBinaryPlus:
		z := l.Add(r)
		return fc.boundObligation(n, z[0], z[1])
	case t.IDXBinaryMinus:
		z := l.Sub(r)
		return fc.boundObligation(n, z[0], z[1])
	case t.IDXBinaryModPlus:
		z := l.Add(r)
		lo, hi = wrap(z)
		return lo, hi, nil
	case t.IDXBinaryModMinus:
		z := l.Sub(r)
		lo, hi = wrap(z)
		return lo, hi, nil
	case t.IDXBinarySatPlus:
		z := l.Add(r)
		lo, hi = clamp(z)
		return lo, hi, nil
	case t.IDXBinarySatMinus:
		z := l.Sub(r)
		lo, hi = clamp(z)
		return lo, hi, nil
	case t.IDXBinaryStar:
		if llo == nil || llo.Sign() < 0 || rlo == nil || rlo.Sign() < 0 {
			return nil, nil, errs.New(errs.Overflow, n.Filename, n.Line, "multiplication requires both operands proven non-negative").
				WithFacts(fc.facts.Strings(fc.tm))
		}
		z := l.Mul(r)
		return fc.boundObligation(n, z[0], z[1])
	case t.IDXBinarySlash, t.IDXBinaryPercent:
		if rlo == nil || rlo.Sign() <= 0 {
			return nil, nil, errs.New(errs.DivisionByZero, n.Filename, n.Line,
				"%q's right operand is not proven strictly positive", e.Str(fc.tm)).WithFacts(fc.facts.Strings(fc.tm))
		}
		if op == t.IDXBinarySlash {
			z, ok := l.Quo(r)
			if !ok {
				return nil, nil, errs.New(errs.DivisionByZero, n.Filename, n.Line, "division by zero")
			}
			return fc.boundObligation(n, z[0], z[1])
		}
		tlo, thi := typeBounds(n.MType)
		return tlo, thi, nil
	case t.IDXBinaryShiftL, t.IDXBinaryModShiftL:
		if llo == nil || llo.Sign() < 0 {
			return nil, nil, errs.New(errs.SignMismatch, n.Filename, n.Line, "shift left operand must be proven non-negative")
		}
		if rlo == nil || rlo.Sign() < 0 || rhi == nil || rhi.Cmp(maxShiftCount) > 0 {
			return nil, nil, errs.New(errs.ShiftOutOfRange, n.Filename, n.Line, "shift count must be proven within [0, 65535]")
		}
		z, ok := l.Lsh(r)
		if !ok {
			return nil, nil, errs.New(errs.ShiftOutOfRange, n.Filename, n.Line, "shift count must be proven non-negative")
		}
		if op == t.IDXBinaryModShiftL {
			lo, hi = wrap(z)
			return lo, hi, nil
		}
		return fc.boundObligation(n, z[0], z[1])
	case t.IDXBinaryShiftR:
		if llo == nil || llo.Sign() < 0 {
			return nil, nil, errs.New(errs.SignMismatch, n.Filename, n.Line, "shift right operand must be proven non-negative")
		}
		if rlo == nil || rlo.Sign() < 0 || rhi == nil || rhi.Cmp(maxShiftCount) > 0 {
			return nil, nil, errs.New(errs.ShiftOutOfRange, n.Filename, n.Line, "shift count must be proven within [0, 65535]")
		}
		z, ok := l.Rsh(r)
		if !ok {
			return nil, nil, errs.New(errs.ShiftOutOfRange, n.Filename, n.Line, "shift count must be proven non-negative")
		}
		return fc.boundObligation(n, z[0], z[1])
	case t.IDXBinaryAmp, t.IDXBinaryPipe, t.IDXBinaryHat:
		if llo == nil || llo.Sign() < 0 || rlo == nil || rlo.Sign() < 0 {
			return nil, nil, errs.New(errs.SignMismatch, n.Filename, n.Line, "%q requires both operands proven non-negative", e.Str(fc.tm))
		}
		var z numrange.Range
		switch op {
		case t.IDXBinaryAmp:
			z = l.And(r)
		case t.IDXBinaryPipe:
			z = l.Or(r)
		case t.IDXBinaryHat:
			z = l.Xor(r)
		}
		return fc.boundObligation(n, z[0], z[1])
	}
	return nil, nil, nil
}

// boundObligation clamps a computed interval to the node's declared
// type range, failing with Overflow if the computed range escapes it:
// the general "every numeric binary op's result is inside the declared
// type" safety obligation.
func (fc *funcChecker) boundObligation(n *a.Node, lo, hi *big.Int) (*big.Int, *big.Int, error) {
	tlo, thi := typeBounds(n.MType)
	if tlo != nil && (lo == nil || lo.Cmp(tlo) < 0) {
		return nil, nil, errs.New(errs.Overflow, n.Filename, n.Line,
			"%q may underflow its declared type", n.AsExpr().Str(fc.tm)).WithFacts(fc.facts.Strings(fc.tm))
	}
	if thi != nil && (hi == nil || hi.Cmp(thi) > 0) {
		return nil, nil, errs.New(errs.Overflow, n.Filename, n.Line,
			"%q may overflow its declared type", n.AsExpr().Str(fc.tm)).WithFacts(fc.facts.Strings(fc.tm))
	}
	return lo, hi, nil
}

func (fc *funcChecker) bcheckAssociative(n *a.Node) (lo, hi *big.Int, err error) {
	e := n.AsExpr()
	z := toRange(nil, nil)
	first := true
	for _, arg := range e.Args() {
		alo, ahi, err := fc.bcheckExpr(arg)
		if err != nil {
			return nil, nil, err
		}
		if !isNumeric(fc.tm, n.MType) {
			continue
		}
		r := toRange(alo, ahi)
		if first {
			z = r
			first = false
			continue
		}
		switch n.ID0 {
		case t.IDXAssociativePlus:
			z = z.Add(r)
		case t.IDXAssociativeStar:
			z = z.Mul(r)
		case t.IDXAssociativeAmp:
			z = z.And(r)
		case t.IDXAssociativePipe:
			z = z.Or(r)
		case t.IDXAssociativeHat:
			z = z.Xor(r)
		}
	}
	if !isNumeric(fc.tm, n.MType) {
		return nil, nil, nil
	}
	return fc.boundObligation(n, z[0], z[1])
}

// bcheckConversion discharges the `as` obligation: the source value
// must be proven to lie within the target type's range.
func (fc *funcChecker) bcheckConversion(n *a.Node) (lo, hi *big.Int, err error) {
	e := n.AsExpr()
	vlo, vhi, ok := fc.facts.Refine(e.LHSExpr(), e.LHSExpr().MBounds.Min, e.LHSExpr().MBounds.Max)
	if !ok {
		return nil, nil, errs.New(errs.CannotProve, n.Filename, n.Line, "contradictory facts").WithFacts(fc.facts.Strings(fc.tm))
	}
	tlo, thi := typeBounds(n.MType)
	if tlo != nil && (vlo == nil || vlo.Cmp(tlo) < 0) || thi != nil && (vhi == nil || vhi.Cmp(thi) > 0) {
		return nil, nil, errs.New(errs.Overflow, n.Filename, n.Line,
			"%q is not proven to fit in %q", e.LHSExpr().AsExpr().Str(fc.tm), a.TypeExprStr(n.MType, fc.tm)).
			WithFacts(fc.facts.Strings(fc.tm))
	}
	return tlo, thi, nil
}

// bcheckIndex discharges 0 <= i < length(a). A constant array length
// lets the prover decide outright; a slice receiver has no statically
// known length, so the obligation can only be discharged when the
// index's own proven bounds already fit the element type's full range
// is not enough — a slice index always requires the caller to have
// established an explicit upper-bound fact (the "i < a.length()" idiom)
// that this checker does not yet structurally match against an
// unprovided a.length() call; see DESIGN.md.
func (fc *funcChecker) bcheckIndex(n *a.Node) (lo, hi *big.Int, err error) {
	e := n.AsExpr()
	if _, _, err := fc.bcheckExpr(e.LHSExpr()); err != nil {
		return nil, nil, err
	}
	ilo, ihi, err := fc.bcheckExpr(e.RHSExpr())
	if err != nil {
		return nil, nil, err
	}
	if ilo == nil || ilo.Sign() < 0 {
		return nil, nil, errs.New(errs.IndexOutOfRange, n.Filename, n.Line,
			"cannot prove 0 <= %s", e.RHSExpr().AsExpr().Str(fc.tm)).WithFacts(fc.facts.Strings(fc.tm))
	}
	recv := e.LHSExpr().MType.AsTypeExpr()
	if recv.Decorator() == t.IDArray {
		nLen := recv.ArrayLength().ConstValue
		if ihi == nil || ihi.Cmp(new(big.Int).Sub(nLen, one)) > 0 {
			return nil, nil, errs.New(errs.IndexOutOfRange, n.Filename, n.Line,
				"cannot prove %s < %s", e.RHSExpr().AsExpr().Str(fc.tm), nLen).WithFacts(fc.facts.Strings(fc.tm))
		}
	} else {
		return nil, nil, errs.New(errs.IndexOutOfRange, n.Filename, n.Line,
			"cannot prove slice index %s < length(%s)", e.RHSExpr().AsExpr().Str(fc.tm), e.LHSExpr().AsExpr().Str(fc.tm)).WithFacts(fc.facts.Strings(fc.tm))
	}
	lo, hi = typeBounds(n.MType)
	return lo, hi, nil
}

func (fc *funcChecker) bcheckSliceObligations(n *a.Node) error {
	e := n.AsExpr()
	if _, _, err := fc.bcheckExpr(e.LHSExpr()); err != nil {
		return err
	}
	lo, hi := e.MHSExpr(), e.RHSExpr()
	if lo != nil {
		if _, _, err := fc.bcheckExpr(lo); err != nil {
			return err
		}
	}
	if hi != nil {
		if _, _, err := fc.bcheckExpr(hi); err != nil {
			return err
		}
	}
	if lo != nil && lo.MBounds.Min != nil && lo.MBounds.Min.Sign() < 0 {
		return errs.New(errs.IndexOutOfRange, n.Filename, n.Line, "slice lower bound may be negative")
	}
	if lo != nil && hi != nil && lo.ConstValue != nil && hi.ConstValue != nil && lo.ConstValue.Cmp(hi.ConstValue) > 0 {
		return errs.New(errs.SliceOutOfOrder, n.Filename, n.Line, "slice lower bound exceeds upper bound")
	}
	recv := e.LHSExpr().MType.AsTypeExpr()
	if recv.Decorator() == t.IDArray && hi != nil && hi.ConstValue != nil {
		nLen := recv.ArrayLength().ConstValue
		if hi.ConstValue.Cmp(nLen) > 0 {
			return errs.New(errs.SliceOutOfOrder, n.Filename, n.Line, "slice upper bound exceeds array length")
		}
	}
	return nil
}

// bcheckCallObligations dispatches builtin-specific preconditions for a
// call, most importantly the I/O-available precondition on read/write
// primitives: a read_u8/write_u8 call on a reader/writer in scope
// requires available() to be proven positive first. Generic user calls
// carry no further obligation beyond the argument assignability already
// checked by tcheckCall.
func (fc *funcChecker) bcheckCallObligations(n *a.Node) error {
	e := n.AsExpr()
	callee := e.LHSExpr()
	if callee != nil && callee.AsExpr().IsSelector() {
		name := fc.tm.ByID(callee.AsExpr().Ident())
		if name == "read_u8" || name == "write_u8" {
			recv := callee.AsExpr().LHSExpr()
			avail := fc.availableCall(recv)
			if err := fc.proveBinaryOp(t.IDXBinaryGreaterThan, avail, fc.zeroExprAt(n)); err != nil {
				return errs.New(errs.CannotProve, n.Filename, n.Line,
					"%q requires available() to be proven > 0 first", name).WithFacts(fc.facts.Strings(fc.tm))
			}
		}
	}
	return nil
}

// availableCall builds the synthetic "recv.available()" expression used
// to look the I/O-available precondition up in the fact set; it is
// never itself bcheck'd; it exists purely as a comparison key for
// proveBinaryOp / Facts.Refine's structural Eq.
func (fc *funcChecker) availableCall(recv *a.Node) *a.Node {
	sel := a.NewExprSelector(recv.Filename, recv.Line, recv, fc.tm.ByName("available")).AsNode()
	call := a.NewExprCall(recv.Filename, recv.Line, false, sel, nil).AsNode()
	call.Flags |= a.FlagsTypeChecked
	call.SetMType(typeExprName(0, t.IDU64))
	sel.Flags |= a.FlagsTypeChecked
	sel.SetMType(builtinPseudoType(fc.tm.ByName("available"), recv.MType))
	return call
}

func (fc *funcChecker) zeroExprAt(n *a.Node) *a.Node {
	z := a.NewExprLiteral(n.Filename, n.Line, t.IDZero).AsNode()
	z.Flags |= a.FlagsTypeChecked
	z.SetMType(typeExprIdeal)
	z.SetConstValue(zero)
	return z
}

// proveBinaryOp succeeds if: both sides are constant and op holds; a
// structurally equal fact exists with an operator at least as strong
// (< implies <= and !=; analogously for >); or an equality fact on one
// side combined with a constant on the other determines the relation.
func (fc *funcChecker) proveBinaryOp(op t.ID, lhs, rhs *a.Node) error {
	if lhs.ConstValue != nil && rhs.ConstValue != nil {
		if foldComparison(op, lhs.ConstValue, rhs.ConstValue) {
			return nil
		}
		return errs.New(errs.CannotProve, lhs.Filename, lhs.Line,
			"%s %s %s does not hold", lhs.AsExpr().Str(fc.tm), fc.tm.ByID(op), rhs.AsExpr().Str(fc.tm))
	}
	for _, f := range fc.facts {
		fe := f.AsExpr()
		if implies(fe.Operator(), op) && fe.LHSExpr().AsExpr().Eq(lhs.AsExpr()) && fe.RHSExpr().AsExpr().Eq(rhs.AsExpr()) {
			return nil
		}
		if implies(flipOp(fe.Operator()), op) && fe.LHSExpr().AsExpr().Eq(rhs.AsExpr()) && fe.RHSExpr().AsExpr().Eq(lhs.AsExpr()) {
			return nil
		}
		if fe.Operator() == t.IDXBinaryEqEq {
			if fe.LHSExpr().AsExpr().Eq(lhs.AsExpr()) && rhs.ConstValue != nil && fe.RHSExpr().ConstValue != nil {
				if foldComparison(op, fe.RHSExpr().ConstValue, rhs.ConstValue) {
					return nil
				}
			}
			if fe.RHSExpr().AsExpr().Eq(lhs.AsExpr()) && rhs.ConstValue != nil && fe.LHSExpr().ConstValue != nil {
				if foldComparison(op, fe.LHSExpr().ConstValue, rhs.ConstValue) {
					return nil
				}
			}
		}
	}
	return errs.New(errs.CannotProve, lhs.Filename, lhs.Line,
		"cannot prove %s %s %s", lhs.AsExpr().Str(fc.tm), fc.tm.ByID(op), rhs.AsExpr().Str(fc.tm)).
		WithFacts(fc.facts.Strings(fc.tm))
}

// implies reports whether a fact recorded with operator have is
// sufficient to establish operator want at the same two operands
// (< implies <= and !=; analogously for >; == implies <= and >=).
func implies(have, want t.ID) bool {
	if have == want {
		return true
	}
	switch have {
	case t.IDXBinaryLessThan:
		return want == t.IDXBinaryLessEq || want == t.IDXBinaryNotEq
	case t.IDXBinaryGreaterThan:
		return want == t.IDXBinaryGreaterEq || want == t.IDXBinaryNotEq
	case t.IDXBinaryEqEq:
		return want == t.IDXBinaryLessEq || want == t.IDXBinaryGreaterEq
	}
	return false
}
