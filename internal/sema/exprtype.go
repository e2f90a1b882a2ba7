package sema

import (
	"math/big"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/builtin"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

const defaultMaxExprDepth = 256

// tcheckExpr assigns n.MType (and n.ConstValue when n folds to a
// compile-time constant). locals is the in-scope name -> declared-type
// map (nil outside a function body, e.g. while checking a const
// initializer or a type refinement bound). qqid identifies the
// enclosing function, for effect checks on calls; it is the zero value
// outside a function body.
func (c *Checker) tcheckExpr(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node) error {
	return c.tcheckExprDepth(locals, qqid, n, 0)
}

func (c *Checker) tcheckExprDepth(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node, depth int) error {
	if n == nil {
		return nil
	}
	if n.Flags.Has(a.FlagsTypeChecked) {
		return nil // already annotated: checking twice is a no-op.
	}
	if depth > c.maxExprDepth {
		return errs.New(errs.Internal, n.Filename, n.Line, "expression nesting exceeds the configured maximum depth")
	}
	e := n.AsExpr()
	next := func(m *a.Node) error { return c.tcheckExprDepth(locals, qqid, m, depth+1) }

	switch {
	case e.IsCall():
		callee := e.LHSExpr()
		if fn, ok := c.funcs[t.QQID{0, 0, callee.ID1}]; ok && callee.ID0 == 0 && callee.ConstValue == nil {
			// A bare identifier naming a free function is not a local or
			// a const: type it as that function's pseudo-type directly.
			callee.Flags |= a.FlagsTypeChecked
			callee.SetMType(funcPseudoType(fn))
		} else if err := next(callee); err != nil {
			return err
		}
		return c.tcheckCall(locals, qqid, n)
	case e.IsIndex():
		if err := next(e.LHSExpr()); err != nil {
			return err
		}
		if err := next(e.RHSExpr()); err != nil {
			return err
		}
		recv := e.LHSExpr().MType.AsTypeExpr()
		if recv.Decorator() != t.IDArray && recv.Decorator() != t.IDSlice {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "%q is not indexable", e.LHSExpr().AsExpr().Str(c.tm))
		}
		if !isNumeric(c.tm, e.RHSExpr().MType) {
			return errs.New(errs.NonNumericIndex, n.Filename, n.Line, "index %q is not numeric", e.RHSExpr().AsExpr().Str(c.tm))
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(recv.Inner())
		return nil
	case e.IsSlice():
		if err := next(e.LHSExpr()); err != nil {
			return err
		}
		if err := next(e.MHSExpr()); err != nil {
			return err
		}
		if err := next(e.RHSExpr()); err != nil {
			return err
		}
		recv := e.LHSExpr().MType.AsTypeExpr()
		if recv.Decorator() != t.IDArray && recv.Decorator() != t.IDSlice {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "%q is not sliceable", e.LHSExpr().AsExpr().Str(c.tm))
		}
		for _, bound := range []*a.Node{e.MHSExpr(), e.RHSExpr()} {
			if bound != nil && !isNumeric(c.tm, bound.MType) {
				return errs.New(errs.NonNumericIndex, n.Filename, n.Line, "slice bound %q is not numeric", bound.AsExpr().Str(c.tm))
			}
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(a.NewTypeExprDecorated(t.IDSlice, recv.Inner(), nil).AsNode())
		return nil
	case e.IsSelector():
		return c.tcheckSelector(locals, qqid, n, next)
	case n.ID0 == t.IDAs:
		if err := next(e.LHSExpr()); err != nil {
			return err
		}
		if err := c.resolveTypeExpr(n.Filename, e.RHSExpr()); err != nil {
			return err
		}
		if !isNumeric(c.tm, e.LHSExpr().MType) || !isNumeric(c.tm, e.RHSExpr()) {
			return errs.New(errs.InvalidConversion, n.Filename, n.Line, "\"as\" requires numeric-to-numeric conversion")
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(e.RHSExpr())
		if cv := e.LHSExpr().ConstValue; cv != nil {
			n.SetConstValue(cv)
		}
		return nil
	case n.ID0 != 0 && len(e.Args()) > 0 && isAssociative(n.ID0):
		var argTypes []*a.Node
		allConst := true
		for _, arg := range e.Args() {
			if err := next(arg); err != nil {
				return err
			}
			argTypes = append(argTypes, arg.MType)
			if arg.ConstValue == nil {
				allConst = false
			}
		}
		common, err := widenAll(n.Filename, n.Line, argTypes)
		if err != nil {
			return err
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(common)
		if allConst {
			n.SetConstValue(foldAssociative(n.ID0, e.Args()))
		}
		return nil
	case n.ID0 != 0 && e.LHSExpr() != nil && e.RHSExpr() != nil:
		return c.tcheckBinaryOp(locals, qqid, n, next)
	case n.ID0 != 0 && e.RHSExpr() != nil:
		return c.tcheckUnaryOp(locals, qqid, n, next)
	case n.ID1 != 0:
		return c.tcheckIdentOrLiteral(locals, qqid, n)
	}
	return errs.New(errs.Internal, n.Filename, n.Line, "tcheckExpr: unrecognised expression shape")
}

func isAssociative(op t.ID) bool {
	switch op {
	case t.IDXAssociativePlus, t.IDXAssociativeStar, t.IDXAssociativeAmp,
		t.IDXAssociativePipe, t.IDXAssociativeHat, t.IDXAssociativeAnd, t.IDXAssociativeOr:
		return true
	}
	return false
}

func (c *Checker) tcheckIdentOrLiteral(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node) error {
	e := n.AsExpr()
	id := e.Ident()
	switch id {
	case t.IDTrue:
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprBool)
		n.SetConstValue(one)
		return nil
	case t.IDFalse:
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprBool)
		n.SetConstValue(zero)
		return nil
	case t.IDZero:
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprIdeal)
		n.SetConstValue(zero)
		return nil
	case t.IDNullptr:
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(a.NewTypeExprDecorated(t.IDNptr, typeExprName(0, 0), nil).AsNode())
		return nil
	case t.IDOK:
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprName(0, t.IDOK))
		return nil
	}
	if c.tm.IsNumLiteral(id) {
		v, ok := new(big.Int).SetString(c.tm.ByID(id), 0)
		if !ok {
			return errs.New(errs.Internal, n.Filename, n.Line, "malformed numeric literal %q", c.tm.ByID(id))
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprIdeal)
		n.SetConstValue(v)
		return nil
	}
	if c.tm.IsStrLiteral(id) {
		msg := builtin.TrimQuotes(c.tm.ByID(id))
		if st, ok := builtin.StatusMap[msg]; ok {
			n.Flags |= a.FlagsTypeChecked
			n.SetMType(typeExprName(0, st.Keyword))
			return nil
		}
		if sn, ok := c.statuses[t.QID{0, id}]; ok {
			n.Flags |= a.FlagsTypeChecked
			n.SetMType(typeExprName(0, sn.AsStatus().Keyword()))
			return nil
		}
		return errs.New(errs.UnknownIdent, n.Filename, n.Line, "unknown status %q", msg)
	}
	if id == t.IDThis {
		if locals == nil {
			return errs.New(errs.UnknownIdent, n.Filename, n.Line, "\"this\" used outside a method body")
		}
	}
	if locals != nil {
		if typ, ok := locals[id]; ok {
			n.Flags |= a.FlagsTypeChecked
			n.SetMType(typ)
			return nil
		}
	}
	if cn, ok := c.consts[t.QID{0, id}]; ok {
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(cn.AsConst().XType())
		if cv := cn.AsConst().Value().ConstValue; cv != nil {
			n.SetConstValue(cv)
		}
		return nil
	}
	return errs.New(errs.UnknownIdent, n.Filename, n.Line, "unknown identifier %q", c.tm.ByID(id))
}

func (c *Checker) tcheckUnaryOp(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node, next func(*a.Node) error) error {
	e := n.AsExpr()
	if err := next(e.RHSExpr()); err != nil {
		return err
	}
	operand := e.RHSExpr()
	switch n.ID0 {
	case t.IDXUnaryMinus:
		if !isNumeric(c.tm, operand.MType) {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "unary \"-\" requires a numeric operand")
		}
		lo, hi := typeBounds(operand.MType)
		if !isIdeal(operand.MType) && lo != nil && lo.Sign() >= 0 {
			return errs.New(errs.SignMismatch, n.Filename, n.Line, "unary \"-\" requires a signed or ideal operand")
		}
		_ = hi
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(operand.MType)
		if cv := operand.ConstValue; cv != nil {
			n.SetConstValue(new(big.Int).Neg(cv))
		}
	case t.IDXUnaryPlus:
		if !isNumeric(c.tm, operand.MType) {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "unary \"+\" requires a numeric operand")
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(operand.MType)
		n.SetConstValue(operand.ConstValue)
	case t.IDXUnaryNot:
		if !isBool(operand.MType) {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "\"not\" requires a bool operand")
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprBool)
		if cv := operand.ConstValue; cv != nil {
			n.SetConstValue(big.NewInt(0).Sub(one, cv))
		}
	default:
		return errs.New(errs.Internal, n.Filename, n.Line, "tcheckUnaryOp: unrecognised operator")
	}
	return nil
}

var comparisonOps = map[t.ID]bool{
	t.IDXBinaryNotEq: true, t.IDXBinaryLessThan: true, t.IDXBinaryLessEq: true,
	t.IDXBinaryEqEq: true, t.IDXBinaryGreaterEq: true, t.IDXBinaryGreaterThan: true,
}

var unsignedOnlyOps = map[t.ID]bool{
	t.IDXBinaryModPlus: true, t.IDXBinaryModMinus: true, t.IDXBinarySatPlus: true,
	t.IDXBinarySatMinus: true, t.IDXBinaryModShiftL: true,
}

func (c *Checker) tcheckBinaryOp(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node, next func(*a.Node) error) error {
	e := n.AsExpr()
	if err := next(e.LHSExpr()); err != nil {
		return err
	}
	if err := next(e.RHSExpr()); err != nil {
		return err
	}
	lhs, rhs := e.LHSExpr(), e.RHSExpr()
	op := n.ID0

	if op == t.IDAnd || op == t.IDOr {
		if !isBool(lhs.MType) || !isBool(rhs.MType) {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "%q requires bool operands", c.tm.ByID(op))
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprBool)
		return nil
	}
	if comparisonOps[op] {
		if !isNumeric(c.tm, lhs.MType) || !isNumeric(c.tm, rhs.MType) {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "%q requires numeric operands", c.tm.ByID(op))
		}
		if !isIdeal(lhs.MType) && !isIdeal(rhs.MType) && !eqIgnoringRefinements(lhs.MType, rhs.MType) {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "%q operands have incompatible types", c.tm.ByID(op))
		}
		n.Flags |= a.FlagsTypeChecked
		n.SetMType(typeExprBool)
		if lhs.ConstValue != nil && rhs.ConstValue != nil {
			if foldComparison(op, lhs.ConstValue, rhs.ConstValue) {
				n.SetConstValue(one)
			} else {
				n.SetConstValue(zero)
			}
		}
		return nil
	}

	if !isNumeric(c.tm, lhs.MType) || !isNumeric(c.tm, rhs.MType) {
		return errs.New(errs.BadOperand, n.Filename, n.Line, "%q requires numeric operands", c.tm.ByID(op))
	}
	if unsignedOnlyOps[op] {
		lo, _ := typeBounds(lhs.MType)
		if !isIdeal(lhs.MType) && (lo == nil || lo.Sign() < 0) {
			return errs.New(errs.SignMismatch, n.Filename, n.Line, "%q requires an unsigned left operand", c.tm.ByID(op))
		}
	}
	common := lhs.MType
	if isIdeal(common) {
		common = rhs.MType
	}
	if x := common.AsTypeExpr(); x.Decorator() == 0 && x.IsRefined() {
		// The result ranges over the operands' base type, not over
		// either operand's refinement.
		common = typeExprName(x.QID()[0], x.QID()[1])
	}
	if !isIdeal(lhs.MType) && !isIdeal(rhs.MType) && !eqIgnoringRefinements(lhs.MType, rhs.MType) {
		return errs.New(errs.BadOperand, n.Filename, n.Line, "%q operands have incompatible types", c.tm.ByID(op))
	}
	n.Flags |= a.FlagsTypeChecked
	n.SetMType(common)
	if lhs.ConstValue != nil && rhs.ConstValue != nil {
		if v, ok := foldArith(op, lhs.ConstValue, rhs.ConstValue); ok {
			n.SetConstValue(v)
		} else if op == t.IDXBinarySlash || op == t.IDXBinaryPercent {
			return errs.New(errs.DivisionByZero, n.Filename, n.Line, "division by zero in constant expression")
		}
	}
	return nil
}

func foldComparison(op t.ID, l, r *big.Int) bool {
	c := l.Cmp(r)
	switch op {
	case t.IDXBinaryNotEq:
		return c != 0
	case t.IDXBinaryLessThan:
		return c < 0
	case t.IDXBinaryLessEq:
		return c <= 0
	case t.IDXBinaryEqEq:
		return c == 0
	case t.IDXBinaryGreaterEq:
		return c >= 0
	case t.IDXBinaryGreaterThan:
		return c > 0
	}
	return false
}

func foldArith(op t.ID, l, r *big.Int) (*big.Int, bool) {
	switch op {
	case t.IDXBinaryPlus, t.IDXBinaryModPlus, t.IDXBinarySatPlus:
		return new(big.Int).Add(l, r), true
	case t.IDXBinaryMinus, t.IDXBinaryModMinus, t.IDXBinarySatMinus:
		return new(big.Int).Sub(l, r), true
	case t.IDXBinaryStar:
		return new(big.Int).Mul(l, r), true
	case t.IDXBinarySlash:
		if r.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Quo(l, r), true
	case t.IDXBinaryPercent:
		if r.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Rem(l, r), true
	case t.IDXBinaryAmp:
		return new(big.Int).And(l, r), true
	case t.IDXBinaryPipe:
		return new(big.Int).Or(l, r), true
	case t.IDXBinaryHat:
		return new(big.Int).Xor(l, r), true
	case t.IDXBinaryShiftL, t.IDXBinaryModShiftL:
		return new(big.Int).Lsh(l, uint(r.Int64())), true
	case t.IDXBinaryShiftR:
		return new(big.Int).Rsh(l, uint(r.Int64())), true
	}
	return nil, false
}

func foldAssociative(op t.ID, args []*a.Node) *big.Int {
	acc := new(big.Int)
	switch op {
	case t.IDXAssociativeStar:
		acc.SetInt64(1)
	}
	for i, arg := range args {
		v := arg.ConstValue
		switch op {
		case t.IDXAssociativePlus:
			acc.Add(acc, v)
		case t.IDXAssociativeStar:
			acc.Mul(acc, v)
		case t.IDXAssociativeAmp:
			if i == 0 {
				acc.Set(v)
			} else {
				acc.And(acc, v)
			}
		case t.IDXAssociativePipe:
			acc.Or(acc, v)
		case t.IDXAssociativeHat:
			acc.Xor(acc, v)
		case t.IDXAssociativeAnd:
			if v.Sign() == 0 {
				return zero
			}
			acc.SetInt64(1)
		case t.IDXAssociativeOr:
			if v.Sign() != 0 {
				return one
			}
			acc.SetInt64(0)
		}
	}
	return acc
}

// widenAll computes the common type of a list of associative-operator
// operand types: every concrete type must agree (ignoring refinements);
// ideal operands widen to whatever concrete type, if any, is present.
func widenAll(filename string, line uint32, types []*a.Node) (*a.Node, error) {
	var common *a.Node
	for _, typ := range types {
		if isIdeal(typ) {
			continue
		}
		if common == nil {
			common = typ
			continue
		}
		if !eqIgnoringRefinements(common, typ) {
			return nil, errs.New(errs.BadOperand, filename, line, "associative operator operands have incompatible types")
		}
	}
	if common == nil {
		return typeExprIdeal, nil
	}
	return common, nil
}

// tcheckSelector resolves x.f: built-in slice/table/integer methods
// first, then the receiver struct's own field list, then its declared
// methods. A method (built-in or user) resolves to a "func"-decorated
// pseudo-type that tcheckCall later unwraps.
func (c *Checker) tcheckSelector(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node, next func(*a.Node) error) error {
	e := n.AsExpr()
	if err := next(e.LHSExpr()); err != nil {
		return err
	}
	recv := e.LHSExpr().MType
	pierced := recv
	for pierced.AsTypeExpr().Decorator() == t.IDPtr || pierced.AsTypeExpr().Decorator() == t.IDNptr {
		pierced = pierced.AsTypeExpr().Inner()
	}
	fieldName := c.tm.ByID(e.Ident())
	decorator := pierced.AsTypeExpr().Decorator()

	if sig, ok := builtin.Methods[fieldName]; ok {
		applies := (sig.Receiver == 0 && isNumeric(c.tm, pierced)) ||
			(sig.Receiver == t.IDSlice && (decorator == t.IDSlice || decorator == t.IDTable))
		if applies {
			n.Flags |= a.FlagsTypeChecked
			n.SetMType(builtinPseudoType(e.Ident(), pierced))
			return nil
		}
	}
	if decorator == 0 {
		qid := pierced.AsTypeExpr().QID()
		if sn, ok := c.structs[qid]; ok {
			for _, f := range sn.AsStruct().Fields() {
				if f.AsField().Name() == e.Ident() {
					n.Flags |= a.FlagsTypeChecked
					n.SetMType(f.AsField().XType())
					return nil
				}
			}
			if fn, ok := c.funcs[t.QQID{qid[0], qid[1], e.Ident()}]; ok {
				n.Flags |= a.FlagsTypeChecked
				n.SetMType(funcPseudoType(fn))
				return nil
			}
		}
	}
	return errs.New(errs.UnknownIdent, n.Filename, n.Line, "no field or method %q on %q", fieldName, a.TypeExprStr(recv, c.tm))
}

// funcPseudoType wraps a func node in a `func` decorator TypeExpr so a
// method-selector expression (before it is called) carries a type; the
// call typer (tcheckCall) unwraps it back to the func node via Extra.
func funcPseudoType(fn *a.Node) *a.Node {
	x := a.NewTypeExprDecorated(t.IDFunc, nil, nil).AsNode()
	x.Extra = fn
	return x
}

// builtinPseudoType is funcPseudoType's counterpart for a built-in
// slice/table/integer method, which has no *a.Node Func to point to:
// ID1 names the method, MHS carries the (pierced) receiver type so
// tcheckCall can compute a receiver-dependent return type.
func builtinPseudoType(method t.ID, receiver *a.Node) *a.Node {
	x := a.NewTypeExprDecorated(t.IDFunc, nil, nil).AsNode()
	x.ID1 = method
	x.MHS = receiver
	return x
}

// tcheckCall resolves a call expression: the callee must be a
// func-pseudo-typed selector (or a bare identifier naming a free
// function); arity, argument names, and per-argument assignability are
// checked against the declared parameter list, and the call-site effect
// marker is checked against the callee's declared effect.
func (c *Checker) tcheckCall(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node) error {
	e := n.AsExpr()
	callee := e.LHSExpr()
	if callee.MType != nil && callee.MType.AsTypeExpr().Decorator() == t.IDFunc && callee.MType.Extra == nil && callee.MType.ID1 != 0 {
		return c.tcheckBuiltinCall(locals, qqid, n, callee.MType)
	}
	var fn *a.Node
	if callee.MType != nil && callee.MType.AsTypeExpr().Decorator() == t.IDFunc {
		fn = callee.MType.Extra
	} else if callee.Kind == a.KExpr && callee.AsExpr().Operator() == 0 && callee.ID1 != 0 {
		fn = c.funcs[t.QQID{0, 0, callee.ID1}]
	}
	if fn == nil {
		return errs.New(errs.UnknownIdent, n.Filename, n.Line, "call to a non-function")
	}
	fl := fn.AsFunc()
	if fl.Suspendible() != e.CalleeSuspendible() {
		return errs.New(errs.EffectMismatch, n.Filename, n.Line,
			"call-site suspend marker does not match %q's declared effect", c.tm.ByID(fl.Name()))
	}
	if fl.Suspendible() && qqid == (t.QQID{}) {
		return errs.New(errs.EffectMismatch, n.Filename, n.Line, "coroutine call outside a coroutine body")
	}
	if fl.Suspendible() {
		if caller, ok := c.funcs[qqid]; !ok || !caller.AsFunc().Suspendible() {
			return errs.New(errs.EffectMismatch, n.Filename, n.Line, "coroutine call site must itself be inside a coroutine body")
		}
	}
	params := fl.In()
	args := e.Args()
	if len(args) != len(params) {
		return errs.New(errs.ArityMismatch, n.Filename, n.Line,
			"%q expects %d argument(s), got %d", c.tm.ByID(fl.Name()), len(params), len(args))
	}
	for i, arg := range args {
		al := arg.AsArg()
		pl := params[i].AsArg()
		if al.Name() != pl.Name() {
			return errs.New(errs.ArityMismatch, n.Filename, n.Line,
				"argument %d: expected name %q, got %q", i, c.tm.ByID(pl.Name()), c.tm.ByID(al.Name()))
		}
		if err := c.tcheckExpr(locals, qqid, al.Value()); err != nil {
			return err
		}
		want := pl.XType()
		if !assignable(al.Value().MType, want, al.Value().ConstValue) {
			return errs.New(errs.IncompatibleAssign, n.Filename, n.Line,
				"argument %q: cannot assign %q to %q", c.tm.ByID(al.Name()),
				a.TypeExprStr(al.Value().MType, c.tm), a.TypeExprStr(want, c.tm))
		}
	}
	n.Flags |= a.FlagsTypeChecked
	out := fl.Out()
	if out == nil {
		out = typeExprName(0, 0)
	}
	n.SetMType(out)
	return nil
}

// tcheckBuiltinCall resolves a call through a built-in slice/table/
// integer method (length, available, low_bits, high_bits, suffix,
// copy_from_slice): arity against builtin.Methods' parameter-name list,
// and a receiver-dependent return type.
func (c *Checker) tcheckBuiltinCall(locals map[t.ID]*a.Node, qqid t.QQID, n *a.Node, calleeType *a.Node) error {
	e := n.AsExpr()
	methodName := c.tm.ByID(calleeType.ID1)
	sig := builtin.Methods[methodName]
	args := e.Args()
	if len(args) != len(sig.ParamName) {
		return errs.New(errs.ArityMismatch, n.Filename, n.Line,
			"%q expects %d argument(s), got %d", methodName, len(sig.ParamName), len(args))
	}
	for i, arg := range args {
		al := arg.AsArg()
		wantName := c.tm.ByName(sig.ParamName[i])
		if al.Name() != wantName {
			return errs.New(errs.ArityMismatch, n.Filename, n.Line,
				"argument %d: expected name %q, got %q", i, sig.ParamName[i], c.tm.ByID(al.Name()))
		}
		if err := c.tcheckExpr(locals, qqid, al.Value()); err != nil {
			return err
		}
		if methodName == "copy_from_slice" && sig.ParamName[i] == "s" {
			argType := al.Value().MType.AsTypeExpr()
			if argType.Decorator() != t.IDSlice {
				return errs.New(errs.BadOperand, n.Filename, n.Line,
					"argument %q must be a slice, got %q", sig.ParamName[i], a.TypeExprStr(al.Value().MType, c.tm))
			}
			continue
		}
		if !isNumeric(c.tm, al.Value().MType) {
			return errs.New(errs.BadOperand, n.Filename, n.Line, "argument %q must be numeric", sig.ParamName[i])
		}
	}
	n.Flags |= a.FlagsTypeChecked
	receiver := calleeType.MHS
	switch methodName {
	case "suffix":
		n.SetMType(receiver)
	case "low_bits", "high_bits":
		n.SetMType(receiver)
	default: // "length", "available", "copy_from_slice"
		n.SetMType(typeExprName(0, t.IDU64))
	}
	return nil
}
