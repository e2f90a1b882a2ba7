package sema

import (
	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/builtin"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// funcChecker holds the per-function-body state threaded through the
// statement typer, the bounds prover, and the reason catalogue: the
// function being checked, its in-scope locals, the fact set proven true
// at the current program point, and the stack of enclosing loops (for
// break/continue target resolution).
type funcChecker struct {
	c       *Checker
	tm      *t.Map
	astFunc *a.Node // KFunc
	qqid    t.QQID
	locals  map[t.ID]*a.Node
	facts   Facts
	reasons reasonCatalogue

	loopStack []*a.Node // enclosing KWhile/KIterate, innermost last

	// ioBindLoopBase records, for each enclosing io_bind, the
	// len(loopStack) at the point that io_bind was entered. A
	// break/continue resolving to a loop index below the innermost
	// entry targets a loop outside that io_bind's scope; a
	// return/yield while this stack is non-empty always does, since a
	// function return can only ever exit past every enclosing scope.
	ioBindLoopBase []int
}

func (fc *funcChecker) inIOBind() bool {
	return len(fc.ioBindLoopBase) > 0
}

// checkFuncBody type-checks and proves every statement of n's body, in
// one pass: the statement typer threads the fact set forward itself,
// since the bounds prover needs whatever facts are in scope at each
// obligation as it goes.
func (c *Checker) checkFuncBody(n *a.Node) error {
	fn := n.AsFunc()
	qqid := t.QQID{0, fn.Receiver(), fn.Name()}
	locals := map[t.ID]*a.Node{}
	for k, v := range c.localVars[qqid] {
		locals[k] = v
	}
	fc := &funcChecker{c: c, tm: c.tm, astFunc: n, qqid: qqid, locals: locals, reasons: c.reasons}

	for _, pre := range fn.PreAsserts() {
		if err := fc.tcheckAssertCond(pre); err != nil {
			return err
		}
		fc.facts = fc.facts.Append(pre.AsAssert().Cond())
	}

	term, err := fc.checkBlock(fn.Body())
	if err != nil {
		return err
	}
	if !term {
		for _, post := range fn.PostAsserts() {
			if err := fc.proveAssert(post); err != nil {
				return err
			}
		}
	}
	return analyzeLiveness(fc, n)
}

// checkBlock checks each statement of stmts in turn, threading fc.facts
// forward, and reports whether the block is terminal: control never
// falls off its end (every path returns, yields terminally, or jumps).
func (fc *funcChecker) checkBlock(stmts []*a.Node) (terminal bool, err error) {
	for _, s := range stmts {
		terminal, err = fc.checkStmt(s)
		if err != nil {
			return false, err
		}
	}
	return terminal, nil
}

func (fc *funcChecker) checkStmt(s *a.Node) (terminal bool, err error) {
	switch s.Kind {
	case a.KVar:
		return false, fc.checkVar(s)
	case a.KAssign:
		return false, fc.checkAssign(s)
	case a.KIf:
		return fc.checkIf(s)
	case a.KWhile, a.KIterate:
		return fc.checkWhile(s)
	case a.KJump:
		return true, fc.checkJump(s)
	case a.KReturn, a.KYield:
		return fc.checkReturn(s)
	case a.KAssert:
		return false, fc.checkAssert(s)
	case a.KIOBind:
		return fc.checkIOBind(s)
	}
	return false, errs.New(errs.Internal, s.Filename, s.Line, "checkStmt: unrecognised statement kind")
}

func (fc *funcChecker) checkVar(s *a.Node) error {
	v := s.AsVar()
	if err := fc.c.resolveTypeExpr(s.Filename, v.XType()); err != nil {
		return err
	}
	fc.locals[v.Name()] = v.XType()
	if val := v.Value(); val != nil {
		if err := fc.c.tcheckExpr(fc.locals, fc.qqid, val); err != nil {
			return err
		}
		if !assignable(val.MType, v.XType(), val.ConstValue) {
			return errs.New(errs.IncompatibleAssign, s.Filename, s.Line,
				"cannot initialize %q of type %q with %q", fc.tm.ByID(v.Name()),
				a.TypeExprStr(v.XType(), fc.tm), a.TypeExprStr(val.MType, fc.tm))
		}
		if _, _, err := fc.bcheckExpr(val); err != nil {
			return err
		}
		if err := fc.checkFitsDeclared(s, val, v.XType()); err != nil {
			return err
		}
		fc.facts = fc.facts.Append(buildEqFact(s.Filename, s.Line, identOf(s.Filename, s.Line, v.Name(), v.XType()), val))
	}
	return nil
}

// checkFitsDeclared re-checks a value's proven bounds against a
// destination's full (refinement-aware) range: assignable only compares
// types ignoring refinements, so a narrower refinement still needs its
// own bounds obligation discharged.
func (fc *funcChecker) checkFitsDeclared(s *a.Node, val, dstType *a.Node) error {
	if !isNumeric(fc.tm, dstType) {
		return nil
	}
	tlo, thi := typeBounds(dstType)
	rlo, rhi := val.MBounds.Min, val.MBounds.Max
	if tlo != nil && (rlo == nil || rlo.Cmp(tlo) < 0) || thi != nil && (rhi == nil || rhi.Cmp(thi) > 0) {
		return errs.New(errs.Overflow, s.Filename, s.Line,
			"%q is not proven to fit %q", val.AsExpr().Str(fc.tm), a.TypeExprStr(dstType, fc.tm)).
			WithFacts(fc.facts.Strings(fc.tm))
	}
	return nil
}

var compoundBase = map[t.ID]t.ID{
	t.IDPlusEq: t.IDXBinaryPlus, t.IDMinusEq: t.IDXBinaryMinus, t.IDStarEq: t.IDXBinaryStar,
	t.IDSlashEq: t.IDXBinarySlash, t.IDPercentEq: t.IDXBinaryPercent, t.IDAmpEq: t.IDXBinaryAmp,
	t.IDPipeEq: t.IDXBinaryPipe, t.IDHatEq: t.IDXBinaryHat,
	t.IDShiftLEq: t.IDXBinaryShiftL, t.IDShiftREq: t.IDXBinaryShiftR,
}

func (fc *funcChecker) checkAssign(s *a.Node) error {
	asn := s.AsAssign()
	if err := fc.c.tcheckExpr(fc.locals, fc.qqid, asn.LHSExpr()); err != nil {
		return err
	}
	if err := fc.c.tcheckExpr(fc.locals, fc.qqid, asn.RHSExpr()); err != nil {
		return err
	}
	lhs, rhs := asn.LHSExpr(), asn.RHSExpr()
	op := asn.Operator()

	switch {
	case op == t.IDEq || op == t.IDEqQuestion:
		if !assignable(rhs.MType, lhs.MType, rhs.ConstValue) {
			return errs.New(errs.IncompatibleAssign, s.Filename, s.Line,
				"cannot assign %q to %q", a.TypeExprStr(rhs.MType, fc.tm), a.TypeExprStr(lhs.MType, fc.tm))
		}
		if _, _, err := fc.bcheckExpr(lhs); err != nil {
			return err
		}
		if _, _, err := fc.bcheckExpr(rhs); err != nil {
			return err
		}
		if err := fc.checkFitsDeclared(s, rhs, lhs.MType); err != nil {
			return err
		}
	default:
		base, ok := compoundBase[op]
		if !ok {
			return errs.New(errs.Internal, s.Filename, s.Line, "checkAssign: unrecognised operator")
		}
		if !isNumeric(fc.tm, lhs.MType) || !isNumeric(fc.tm, rhs.MType) {
			return errs.New(errs.BadOperand, s.Filename, s.Line, "%q requires numeric operands", fc.tm.ByID(op))
		}
		synth := a.NewExprOp(s.Filename, s.Line, base, lhs, rhs).AsNode()
		synth.Flags |= a.FlagsTypeChecked
		synth.SetMType(lhs.MType)
		if _, _, err := fc.bcheckExpr(synth); err != nil {
			return err
		}
	}

	if ident, ok := isBareIdent(lhs); ok {
		fc.facts = fc.facts.DropAssigned(ident, op, rhs)
		if op == t.IDEq {
			fc.facts = fc.facts.Append(buildEqFact(s.Filename, s.Line, lhs, rhs))
		}
	} else {
		fv := map[t.ID]bool{}
		freeVars(lhs, fv)
		fc.facts = fc.facts.DropMentioning(fv)
	}
	return nil
}

func isBareIdent(n *a.Node) (t.ID, bool) {
	if n.Kind != a.KExpr {
		return 0, false
	}
	e := n.AsExpr()
	if e.Operator() != 0 || e.Ident() == 0 {
		return 0, false
	}
	return e.Ident(), true
}

func identOf(filename string, line uint32, name t.ID, typ *a.Node) *a.Node {
	n := a.NewExprIdent(filename, line, name).AsNode()
	n.Flags |= a.FlagsTypeChecked
	n.SetMType(typ)
	return n
}

func buildEqFact(filename string, line uint32, lhs, rhs *a.Node) *a.Node {
	n := a.NewExprOp(filename, line, t.IDXBinaryEqEq, lhs, rhs).AsNode()
	n.Flags |= a.FlagsTypeChecked
	n.SetMType(typeExprBool)
	return n
}

func negate(cond *a.Node) *a.Node {
	n := a.NewExprOp(cond.Filename, cond.Line, t.IDXUnaryNot, nil, cond).AsNode()
	n.Flags |= a.FlagsTypeChecked
	n.SetMType(typeExprBool)
	return n
}

func (fc *funcChecker) checkIf(s *a.Node) (terminal bool, err error) {
	ifs := s.AsIf()
	if err := fc.c.tcheckExpr(fc.locals, fc.qqid, ifs.Cond()); err != nil {
		return false, err
	}
	if !isBool(ifs.Cond().MType) {
		return false, errs.New(errs.BadOperand, s.Filename, s.Line, "if condition must be bool-typed")
	}
	if _, _, err := fc.bcheckExpr(ifs.Cond()); err != nil {
		return false, err
	}

	saved := fc.facts
	fc.facts = saved.Append(ifs.Cond())
	thenTerm, err := fc.checkBlock(ifs.Body())
	if err != nil {
		return false, err
	}
	thenExit := fc.facts

	neg := negate(ifs.Cond())
	var elseTerm bool
	var elseExit Facts
	switch {
	case ifs.ElseIf() != nil:
		fc.facts = saved.Append(neg)
		elseTerm, err = fc.checkStmt(ifs.ElseIf())
		elseExit = fc.facts
	case ifs.ElseBlock() != nil:
		fc.facts = saved.Append(neg)
		elseTerm, err = fc.checkBlock(ifs.ElseBlock())
		elseExit = fc.facts
	default:
		elseExit = saved.Append(neg)
	}
	if err != nil {
		return false, err
	}

	switch {
	case thenTerm && elseTerm:
		fc.facts = saved
		return true, nil
	case thenTerm:
		fc.facts = elseExit
		return false, nil
	case elseTerm:
		fc.facts = thenExit
		return false, nil
	default:
		fc.facts = Reconcile([]Facts{thenExit, elseExit})
		return false, nil
	}
}

func (fc *funcChecker) checkWhile(s *a.Node) (terminal bool, err error) {
	w := s.AsWhile()
	if !w.Iterate() {
		if err := fc.c.tcheckExpr(fc.locals, fc.qqid, w.Cond()); err != nil {
			return false, err
		}
		if !isBool(w.Cond().MType) {
			return false, errs.New(errs.BadOperand, s.Filename, s.Line, "while condition must be bool-typed")
		}
		if _, _, err := fc.bcheckExpr(w.Cond()); err != nil {
			return false, err
		}
	}
	for _, as := range w.PreAsserts() {
		if err := fc.tcheckAssertCond(as); err != nil {
			return false, err
		}
	}
	for _, as := range w.InvAsserts() {
		if err := fc.tcheckAssertCond(as); err != nil {
			return false, err
		}
	}
	for _, as := range w.PostAsserts() {
		if err := fc.tcheckAssertCond(as); err != nil {
			return false, err
		}
	}
	for _, pre := range w.PreAsserts() {
		if err := fc.proveAssert(pre); err != nil {
			return false, err
		}
	}

	entryFacts := fc.facts
	var bodyFacts Facts
	for _, inv := range w.InvAsserts() {
		bodyFacts = bodyFacts.Append(inv.AsAssert().Cond())
	}
	if !w.Iterate() {
		bodyFacts = bodyFacts.Append(w.Cond())
	}
	fc.facts = bodyFacts
	fc.loopStack = append(fc.loopStack, s)
	bodyTerm, err := fc.checkBlock(w.Body())
	fc.loopStack = fc.loopStack[:len(fc.loopStack)-1]
	if err != nil {
		return false, err
	}
	if !bodyTerm {
		for _, inv := range w.InvAsserts() {
			if err := fc.proveAssert(inv); err != nil {
				return false, err
			}
		}
	}

	exitFacts := entryFacts
	if !w.Iterate() {
		exitFacts = exitFacts.Append(negate(w.Cond()))
	}
	for _, inv := range w.InvAsserts() {
		exitFacts = exitFacts.Append(inv.AsAssert().Cond())
	}
	fc.facts = exitFacts
	return false, nil
}

func (fc *funcChecker) checkJump(s *a.Node) error {
	j := s.AsJump()
	targetIdx := fc.resolveJumpTargetIndex(j.Label())
	if targetIdx < 0 {
		return errs.New(errs.BadJump, s.Filename, s.Line, "no enclosing loop matches this %s", fc.tm.ByID(j.Keyword()))
	}
	if fc.inIOBind() && targetIdx < fc.ioBindLoopBase[len(fc.ioBindLoopBase)-1] {
		return errs.New(errs.BadJump, s.Filename, s.Line,
			"%s may not leave the enclosing io_bind's scope", fc.tm.ByID(j.Keyword()))
	}
	target := fc.loopStack[targetIdx]
	s.JumpTarget = target
	w := target.AsWhile()
	if j.Keyword() == t.IDBreak {
		target.Flags |= a.FlagsHasBreak
		for _, post := range w.PostAsserts() {
			if err := fc.proveAssert(post); err != nil {
				return err
			}
		}
	} else {
		target.Flags |= a.FlagsHasContinue
		for _, pre := range w.PreAsserts() {
			if err := fc.proveAssert(pre); err != nil {
				return err
			}
		}
		for _, inv := range w.InvAsserts() {
			if err := fc.proveAssert(inv); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveJumpTargetIndex returns the loopStack index of the innermost
// enclosing loop matching label (0 for "nearest, unlabelled"), or -1 if
// none match.
func (fc *funcChecker) resolveJumpTargetIndex(label t.ID) int {
	for i := len(fc.loopStack) - 1; i >= 0; i-- {
		w := fc.loopStack[i].AsWhile()
		if label == 0 || w.Label() == label {
			return i
		}
	}
	return -1
}

func (fc *funcChecker) checkReturn(s *a.Node) (terminal bool, err error) {
	r := s.AsReturn()
	if fc.inIOBind() {
		kw := "return"
		if r.Yield() {
			kw = "yield"
		}
		return false, errs.New(errs.BadJump, s.Filename, s.Line,
			"%s may not leave the enclosing io_bind's scope", kw)
	}
	if val := r.Value(); val != nil {
		if err := fc.c.tcheckExpr(fc.locals, fc.qqid, val); err != nil {
			return false, err
		}
		out := fc.astFunc.AsFunc().Out()
		if !assignable(val.MType, out, val.ConstValue) {
			return false, errs.New(errs.ReturnTypeMismatch, s.Filename, s.Line,
				"cannot return %q as %q", a.TypeExprStr(val.MType, fc.tm), a.TypeExprStr(out, fc.tm))
		}
		if _, _, err := fc.bcheckExpr(val); err != nil {
			return false, err
		}
		if err := fc.checkFitsDeclared(s, val, out); err != nil {
			return false, err
		}
	}
	if r.Yield() {
		fc.facts = fc.facts.DropMentioning(map[t.ID]bool{t.IDThis: true, t.IDIn: true, t.IDOut: true})
		return false, nil
	}
	for _, post := range fc.astFunc.AsFunc().PostAsserts() {
		if err := fc.proveAssert(post); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (fc *funcChecker) tcheckAssertCond(as *a.Node) error {
	a2 := as.AsAssert()
	if err := fc.c.tcheckExpr(fc.locals, fc.qqid, a2.Cond()); err != nil {
		return err
	}
	if !isBool(a2.Cond().MType) {
		return errs.New(errs.BadOperand, as.Filename, as.Line, "assert condition must be bool-typed")
	}
	for _, arg := range a2.Args() {
		if err := fc.c.tcheckExpr(fc.locals, fc.qqid, arg.AsArg().Value()); err != nil {
			return err
		}
	}
	return nil
}

func (fc *funcChecker) checkAssert(s *a.Node) error {
	if err := fc.tcheckAssertCond(s); err != nil {
		return err
	}
	if err := fc.proveAssert(s); err != nil {
		return err
	}
	fc.facts = fc.facts.Append(s.AsAssert().Cond())
	return nil
}

// proveAssert discharges an assert (function/loop contract clause or an
// in-body `assert` statement): via its named reason schema if it has
// one, or else directly against the fact set and bounds prover.
func (fc *funcChecker) proveAssert(as *a.Node) error {
	a2 := as.AsAssert()
	if _, _, err := fc.bcheckExpr(a2.Cond()); err != nil {
		return err
	}
	for _, arg := range a2.Args() {
		if _, _, err := fc.bcheckExpr(arg.AsArg().Value()); err != nil {
			return err
		}
	}
	if reason := a2.Reason(); reason != 0 {
		name := builtin.TrimQuotes(fc.tm.ByID(reason))
		schema, ok := fc.reasons[name]
		if !ok {
			return errs.New(errs.NoSuchReason, as.Filename, as.Line, "no such reason %q", name)
		}
		return schema.check(fc, as)
	}
	if op, lhs, rhs := parseBinaryOp(a2.Cond()); op != 0 {
		return fc.proveBinaryOp(op, lhs, rhs)
	}
	if a2.Cond().ConstValue != nil && a2.Cond().ConstValue.Sign() != 0 {
		return nil
	}
	for _, f := range fc.facts {
		if f.AsExpr().Eq(a2.Cond().AsExpr()) {
			return nil
		}
	}
	return errs.New(errs.CannotProve, as.Filename, as.Line, "cannot prove %s", a2.Cond().AsExpr().Str(fc.tm)).
		WithFacts(fc.facts.Strings(fc.tm))
}

func (fc *funcChecker) checkIOBind(s *a.Node) (terminal bool, err error) {
	b := s.AsIOBind()
	if err := fc.c.tcheckExpr(fc.locals, fc.qqid, b.Buffer()); err != nil {
		return false, err
	}
	if b.Limit() != nil {
		if err := fc.c.tcheckExpr(fc.locals, fc.qqid, b.Limit()); err != nil {
			return false, err
		}
		if !isNumeric(fc.tm, b.Limit().MType) {
			return false, errs.New(errs.BadOperand, s.Filename, s.Line, "io_bind limit must be numeric")
		}
		if _, _, err := fc.bcheckExpr(b.Limit()); err != nil {
			return false, err
		}
	}
	if _, _, err := fc.bcheckExpr(b.Buffer()); err != nil {
		return false, err
	}
	prevType, hadPrev := fc.locals[b.Name()]
	fc.locals[b.Name()] = b.Buffer().MType
	fc.ioBindLoopBase = append(fc.ioBindLoopBase, len(fc.loopStack))
	term, err := fc.checkBlock(b.Body())
	fc.ioBindLoopBase = fc.ioBindLoopBase[:len(fc.ioBindLoopBase)-1]
	if hadPrev {
		fc.locals[b.Name()] = prevType
	} else {
		delete(fc.locals, b.Name())
	}
	fc.facts = fc.facts.DropMentioning(map[t.ID]bool{b.Name(): true})
	if err != nil {
		return false, err
	}
	return term, nil
}
