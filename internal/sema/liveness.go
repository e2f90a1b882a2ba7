package sema

import (
	a "github.com/wuffscheck/wuffscheck/internal/ast"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// analyzeLiveness runs the two-pass coroutine liveness check on a
// suspendible function's body: enumerate its `var` locals, then walk the
// body in program order tracking, per local, whether it is read after a
// yield point relative to its last write. A local found live across a
// suspension gets FlagsLivenessStrong set on its declaration, the signal
// a coroutine's save/restore machinery uses to know it must persist that
// local's value across a resume.
//
// Non-suspendible functions have no yield points, so liveness never
// applies to them.
func analyzeLiveness(fc *funcChecker, n *a.Node) error {
	fn := n.AsFunc()
	if !fn.Suspendible() {
		return nil
	}
	decls := map[t.ID]*a.Node{}
	collectVarDecls(fn.Body(), decls)
	if len(decls) == 0 {
		return nil
	}

	var events []livenessEvent
	walkLiveness(fn.Body(), decls, &events)

	written := map[t.ID]bool{}
	crossed := map[t.ID]bool{}
	for _, e := range events {
		switch e.kind {
		case evWrite:
			written[e.name] = true
			crossed[e.name] = false
		case evRead:
			if written[e.name] && crossed[e.name] {
				decls[e.name].Flags |= a.FlagsLivenessStrong
			}
		case evYield:
			for name := range written {
				if written[name] {
					crossed[name] = true
				}
			}
		}
	}
	return nil
}

type livenessEventKind int

const (
	evWrite livenessEventKind = iota
	evRead
	evYield
)

type livenessEvent struct {
	kind livenessEventKind
	name t.ID
}

// collectVarDecls gathers every `var` declaration's name -> node mapping
// reachable from stmts, descending into every nested block.
func collectVarDecls(stmts []*a.Node, out map[t.ID]*a.Node) {
	for _, s := range stmts {
		switch s.Kind {
		case a.KVar:
			out[s.AsVar().Name()] = s
		case a.KIf:
			ifs := s.AsIf()
			collectVarDecls(ifs.Body(), out)
			if ifs.ElseIf() != nil {
				collectVarDecls([]*a.Node{ifs.ElseIf()}, out)
			}
			collectVarDecls(ifs.ElseBlock(), out)
		case a.KWhile, a.KIterate:
			collectVarDecls(s.AsWhile().Body(), out)
		case a.KIOBind:
			collectVarDecls(s.AsIOBind().Body(), out)
		}
	}
}

// readsOf returns the subset of decls' keys that n's expression tree
// references.
func readsOf(n *a.Node, decls map[t.ID]*a.Node) []t.ID {
	if n == nil {
		return nil
	}
	fv := map[t.ID]bool{}
	freeVars(n, fv)
	var out []t.ID
	for id := range fv {
		if _, ok := decls[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func emitReads(n *a.Node, decls map[t.ID]*a.Node, events *[]livenessEvent) {
	for _, id := range readsOf(n, decls) {
		*events = append(*events, livenessEvent{evRead, id})
	}
}

// exprHasSuspendibleCall reports whether n or any of its subexpressions
// calls a suspendible function — a coroutine suspension point exactly
// as real as a literal yield statement, per CalleeSuspendible's own
// doc comment.
func exprHasSuspendibleCall(n *a.Node) bool {
	if n == nil {
		return false
	}
	e := n.AsExpr()
	if e.IsCall() && e.CalleeSuspendible() {
		return true
	}
	if exprHasSuspendibleCall(e.LHSExpr()) || exprHasSuspendibleCall(e.MHSExpr()) || exprHasSuspendibleCall(e.RHSExpr()) {
		return true
	}
	for _, arg := range e.Args() {
		if arg.Kind == a.KArg {
			if exprHasSuspendibleCall(arg.AsArg().Value()) {
				return true
			}
		} else if exprHasSuspendibleCall(arg) {
			return true
		}
	}
	return false
}

// emitReadsAndYield is emitReads plus, when n contains a suspendible
// call, the yield event that call's suspension triggers — in that
// order, since the call's arguments (and any local they read) are
// evaluated before the callee ever gets a chance to suspend.
func emitReadsAndYield(n *a.Node, decls map[t.ID]*a.Node, events *[]livenessEvent) {
	emitReads(n, decls, events)
	if exprHasSuspendibleCall(n) {
		*events = append(*events, livenessEvent{kind: evYield})
	}
}

// walkLiveness appends, in program order, a read event for every local
// referenced by an expression and a write event for every local
// assigned, plus a yield event at every `yield` statement. Branches and
// loop bodies are each visited once, in sequence: a flow-insensitive
// over-approximation that only ever flags more locals strong than a
// fully path-sensitive analysis would, never fewer.
func walkLiveness(stmts []*a.Node, decls map[t.ID]*a.Node, events *[]livenessEvent) {
	for _, s := range stmts {
		switch s.Kind {
		case a.KVar:
			v := s.AsVar()
			emitReadsAndYield(v.Value(), decls, events)
			if _, ok := decls[v.Name()]; ok {
				*events = append(*events, livenessEvent{evWrite, v.Name()})
			}
		case a.KAssign:
			asn := s.AsAssign()
			emitReadsAndYield(asn.RHSExpr(), decls, events)
			if ident, ok := isBareIdent(asn.LHSExpr()); ok {
				if _, declared := decls[ident]; declared {
					*events = append(*events, livenessEvent{evWrite, ident})
					continue
				}
			}
			emitReadsAndYield(asn.LHSExpr(), decls, events)
		case a.KIf:
			ifs := s.AsIf()
			emitReadsAndYield(ifs.Cond(), decls, events)
			walkLiveness(ifs.Body(), decls, events)
			if ifs.ElseIf() != nil {
				walkLiveness([]*a.Node{ifs.ElseIf()}, decls, events)
			}
			walkLiveness(ifs.ElseBlock(), decls, events)
		case a.KWhile, a.KIterate:
			w := s.AsWhile()
			emitReadsAndYield(w.Cond(), decls, events)
			walkLiveness(w.Body(), decls, events)
		case a.KReturn, a.KYield:
			r := s.AsReturn()
			emitReadsAndYield(r.Value(), decls, events)
			if r.Yield() {
				*events = append(*events, livenessEvent{kind: evYield})
			}
		case a.KAssert:
			as := s.AsAssert()
			emitReadsAndYield(as.Cond(), decls, events)
			for _, arg := range as.Args() {
				emitReadsAndYield(arg.AsArg().Value(), decls, events)
			}
		case a.KIOBind:
			b := s.AsIOBind()
			emitReadsAndYield(b.Buffer(), decls, events)
			emitReadsAndYield(b.Limit(), decls, events)
			walkLiveness(b.Body(), decls, events)
		}
	}
}
