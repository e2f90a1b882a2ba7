package ast

import t "github.com/wuffscheck/wuffscheck/internal/token"

// Each typed view below wraps a *Node sharing its kind's convention for
// the generic LHS/MHS/RHS/Extra/List0/List1/Asserts fields. A view is a
// thin accessor layer, not a copy: mutating through AsNode() or through
// a sibling view mutates the same underlying Node.

// File is the root node of one parsed source file.
type File struct{ view }

func NewFile(filename string, decls []*Node) *File {
	return &File{view{&Node{Kind: KFile, Filename: filename, List0: decls}}}
}
func (f *File) TopLevelDecls() []*Node { return f.List0 }

// Use is a `use "pkg/path"` clause. ID0 names the interned path string;
// Name is the basename used to qualify references to the package.
type Use struct{ view }

func NewUse(filename string, line uint32, path t.ID) *Use {
	return &Use{view{&Node{Kind: KUse, Filename: filename, Line: line, ID0: path}}}
}
func (u *Use) Path() t.ID { return u.ID0 }

// Const is a top-level `pub? const NAME TYPE = VALUE` declaration.
type Const struct{ view }

func NewConst(filename string, line uint32, flags Flags, name t.ID, typ *Node, value *Node) *Const {
	return &Const{view{&Node{Kind: KConst, Filename: filename, Line: line, Flags: flags,
		ID0: name, LHS: typ, RHS: value}}}
}
func (c *Const) Public() bool   { return c.Flags.Has(FlagsPublic) }
func (c *Const) Name() t.ID     { return c.ID0 }
func (c *Const) XType() *Node   { return c.LHS }
func (c *Const) Value() *Node   { return c.RHS }

// Status is a top-level status declaration: warning, suspension, or
// error, carrying a keyword and a message string.
type Status struct{ view }

func NewStatus(filename string, line uint32, kind t.ID, keyword t.ID, message t.ID) *Status {
	return &Status{view{&Node{Kind: KStatus, Filename: filename, Line: line,
		ID0: kind, ID1: keyword, ID2: message}}}
}
func (s *Status) StatusKind() t.ID { return s.ID0 } // IDWarning / IDSuspension / IDError
func (s *Status) Keyword() t.ID    { return s.ID1 }
func (s *Status) Message() t.ID    { return s.ID2 }

// Field is a struct field: `NAME TYPE`.
type Field struct{ view }

func NewField(filename string, line uint32, flags Flags, name t.ID, typ *Node) *Field {
	return &Field{view{&Node{Kind: KField, Filename: filename, Line: line, Flags: flags,
		ID0: name, LHS: typ}}}
}
func (f *Field) Public() bool { return f.Flags.Has(FlagsPublic) }
func (f *Field) Name() t.ID   { return f.ID0 }
func (f *Field) XType() *Node { return f.LHS }

// Struct is a top-level struct declaration, with optional interface
// implementation clauses (List1, each a *Node TypeExpr naming an
// interface) and its fields (List0, each a *Field).
type Struct struct{ view }

func NewStruct(filename string, line uint32, flags Flags, name t.ID, fields []*Node, implements []*Node) *Struct {
	return &Struct{view{&Node{Kind: KStruct, Filename: filename, Line: line, Flags: flags,
		ID0: name, List0: fields, List1: implements}}}
}
func (s *Struct) Public() bool         { return s.Flags.Has(FlagsPublic) }
func (s *Struct) Name() t.ID           { return s.ID0 }
func (s *Struct) Fields() []*Node      { return s.List0 }
func (s *Struct) Implements() []*Node  { return s.List1 }

// Interface is a built-in interface signature (not user-declarable in
// the surface language, but represented uniformly so the checker can
// look method signatures up by QID).
type Interface struct{ view }

func NewInterface(name t.ID, methods []*Node) *Interface {
	return &Interface{view{&Node{Kind: KInterface, ID0: name, List0: methods}}}
}
func (i *Interface) Name() t.ID      { return i.ID0 }
func (i *Interface) Methods() []*Node { return i.List0 }

// Arg is either a function parameter (Name + XType) or a call-site named
// argument (Name + Value).
type Arg struct{ view }

func NewArgParam(filename string, line uint32, name t.ID, typ *Node) *Arg {
	return &Arg{view{&Node{Kind: KArg, Filename: filename, Line: line, ID0: name, LHS: typ}}}
}
func NewArgValue(filename string, line uint32, name t.ID, value *Node) *Arg {
	return &Arg{view{&Node{Kind: KArg, Filename: filename, Line: line, ID0: name, RHS: value}}}
}
func (a *Arg) Name() t.ID   { return a.ID0 }
func (a *Arg) XType() *Node { return a.LHS }
func (a *Arg) Value() *Node { return a.RHS }

// Func is a top-level function or method declaration. ID0 is the
// receiver struct name (0 for a free function); ID1 is the func name.
// Flags carries Public/Impure/Suspendible (the "!"/"?" effect markers).
type Func struct{ view }

func NewFunc(filename string, line uint32, flags Flags, receiver, name t.ID,
	in []*Node, out *Node, asserts []*Node, body []*Node) *Func {
	return &Func{view{&Node{Kind: KFunc, Filename: filename, Line: line, Flags: flags,
		ID0: receiver, ID1: name, List0: in, LHS: out, Asserts: asserts, List1: body}}}
}
func (f *Func) Public() bool      { return f.Flags.Has(FlagsPublic) }
func (f *Func) Impure() bool      { return f.Flags.Has(FlagsImpure) }
func (f *Func) Suspendible() bool { return f.Flags.Has(FlagsSuspendible) }
func (f *Func) Pure() bool        { return !f.Impure() && !f.Suspendible() }
func (f *Func) Receiver() t.ID    { return f.ID0 }
func (f *Func) Name() t.ID        { return f.ID1 }
func (f *Func) In() []*Node       { return f.List0 }
func (f *Func) Out() *Node        { return f.LHS }
func (f *Func) PreAsserts() []*Node {
	return filterAsserts(f.Asserts, t.IDPre)
}
func (f *Func) PostAsserts() []*Node {
	return filterAsserts(f.Asserts, t.IDPost)
}
func (f *Func) Body() []*Node { return f.List1 }

func filterAsserts(asserts []*Node, which t.ID) (out []*Node) {
	for _, a := range asserts {
		if a.ID1 == which {
			out = append(out, a)
		}
	}
	return out
}

// TypeExpr is either a base/user QID (optionally refined) or a
// decorator (array/table/slice/nptr/ptr) wrapping an Inner type.
type TypeExpr struct{ view }

func NewTypeExprName(pkg, name t.ID, refineLo, refineHi *Node) *TypeExpr {
	return &TypeExpr{view{&Node{Kind: KTypeExpr, ID1: pkg, ID2: name, MHS: refineLo, Extra: refineHi}}}
}
func NewTypeExprDecorated(decorator t.ID, inner *Node, arrayLength *Node) *TypeExpr {
	return &TypeExpr{view{&Node{Kind: KTypeExpr, ID0: decorator, LHS: inner, RHS: arrayLength}}}
}
func (x *TypeExpr) Decorator() t.ID    { return x.ID0 }
func (x *TypeExpr) QID() t.QID         { return t.QID{x.ID1, x.ID2} }
func (x *TypeExpr) Inner() *Node       { return x.LHS }
func (x *TypeExpr) ArrayLength() *Node { return x.RHS }
func (x *TypeExpr) RefineLo() *Node    { return x.MHS }
func (x *TypeExpr) RefineHi() *Node    { return x.Extra }
func (x *TypeExpr) IsRefined() bool    { return x.MHS != nil || x.Extra != nil }
func (x *TypeExpr) IsArray() bool      { return x.ID0 == t.IDArray }
func (x *TypeExpr) IsTable() bool      { return x.ID0 == t.IDTable }
func (x *TypeExpr) IsSlice() bool      { return x.ID0 == t.IDSlice }
func (x *TypeExpr) IsNptr() bool       { return x.ID0 == t.IDNptr }
func (x *TypeExpr) IsPtr() bool        { return x.ID0 == t.IDPtr }
func (x *TypeExpr) Innermost() *Node {
	n := x.Node
	for n.LHS != nil && (n.ID0 == t.IDArray || n.ID0 == t.IDTable || n.ID0 == t.IDSlice || n.ID0 == t.IDNptr || n.ID0 == t.IDPtr) {
		n = n.LHS
	}
	return n
}

// Var is a `var NAME TYPE` local declaration, optionally with an
// initializer (Value).
type Var struct{ view }

func NewVar(filename string, line uint32, name t.ID, typ *Node, value *Node) *Var {
	return &Var{view{&Node{Kind: KVar, Filename: filename, Line: line, ID0: name, LHS: typ, RHS: value}}}
}
func (v *Var) Name() t.ID   { return v.ID0 }
func (v *Var) XType() *Node { return v.LHS }
func (v *Var) Value() *Node { return v.RHS }

// Assign is `LHS OP RHS` for any of the assignment operators (plain,
// coroutine "=?", or compound).
type Assign struct{ view }

func NewAssign(filename string, line uint32, op t.ID, lhs, rhs *Node) *Assign {
	return &Assign{view{&Node{Kind: KAssign, Filename: filename, Line: line, ID0: op, LHS: lhs, RHS: rhs}}}
}
func (a *Assign) Operator() t.ID { return a.ID0 }
func (a *Assign) LHSExpr() *Node { return a.LHS }
func (a *Assign) RHSExpr() *Node { return a.RHS }

// If is an `if COND { BODY } else ...` statement. Else is either another
// *If (an "else if") or a plain []*Node block (the trailing "else"), so
// it is stored generically as Extra (If-shaped) or List1 (block-shaped);
// ElseIf/ElseBlock disambiguate.
type If struct{ view }

func NewIf(filename string, line uint32, cond *Node, body []*Node, elseIf *Node, elseBlock []*Node) *If {
	return &If{view{&Node{Kind: KIf, Filename: filename, Line: line, RHS: cond, List0: body,
		Extra: elseIf, List1: elseBlock}}}
}
func (i *If) Cond() *Node       { return i.RHS }
func (i *If) Body() []*Node     { return i.List0 }
func (i *If) ElseIf() *Node     { return i.Extra }
func (i *If) ElseBlock() []*Node { return i.List1 }

// While is a `while COND { BODY }` loop, or (Iterate set) an
// `iterate (...) { BODY }` loop; Label names the loop for labeled
// break/continue.
type While struct{ view }

func NewWhile(filename string, line uint32, iterate bool, label t.ID, cond *Node, asserts []*Node, body []*Node) *While {
	k := KWhile
	if iterate {
		k = KIterate
	}
	return &While{view{&Node{Kind: k, Filename: filename, Line: line, ID0: label, RHS: cond,
		Asserts: asserts, List0: body}}}
}
func (w *While) Iterate() bool  { return w.Kind == KIterate }
func (w *While) Label() t.ID    { return w.ID0 }
func (w *While) Cond() *Node    { return w.RHS }
func (w *While) Body() []*Node  { return w.List0 }
func (w *While) HasBreak() bool { return w.Flags.Has(FlagsHasBreak) }
func (w *While) HasContinue() bool { return w.Flags.Has(FlagsHasContinue) }
func (w *While) PreAsserts() []*Node  { return filterAsserts(w.Asserts, t.IDPre) }
func (w *While) InvAsserts() []*Node  { return filterAsserts(w.Asserts, t.IDInv) }
func (w *While) PostAsserts() []*Node { return filterAsserts(w.Asserts, t.IDPost) }

// Jump is a `break` or `continue`, optionally naming a Label; JumpTarget
// (on the embedded Node) is filled in by the statement typer.
type Jump struct{ view }

func NewJump(filename string, line uint32, keyword t.ID, label t.ID) *Jump {
	return &Jump{view{&Node{Kind: KJump, Filename: filename, Line: line, ID0: keyword, ID1: label}}}
}
func (j *Jump) Keyword() t.ID { return j.ID0 } // IDBreak or IDContinue
func (j *Jump) Label() t.ID   { return j.ID1 }

// Return is a `return EXPR?` or `yield EXPR` statement.
type Return struct{ view }

func NewReturn(filename string, line uint32, yield bool, value *Node) *Return {
	k := KReturn
	if yield {
		k = KYield
	}
	return &Return{view{&Node{Kind: k, Filename: filename, Line: line, RHS: value}}}
}
func (r *Return) Yield() bool  { return r.Kind == KYield }
func (r *Return) Value() *Node { return r.RHS }

// Assert is an `assert COND` or `assert COND via "reason"{args}`
// statement, also used (tagged by ID1 = IDPre/IDInv/IDPost) to carry a
// function's or loop's contract clauses.
type Assert struct{ view }

func NewAssert(filename string, line uint32, clause t.ID, cond *Node, reason t.ID, args []*Node) *Assert {
	return &Assert{view{&Node{Kind: KAssert, Filename: filename, Line: line, ID1: clause,
		RHS: cond, ID0: reason, List0: args}}}
}
func (a *Assert) Clause() t.ID  { return a.ID1 } // 0, IDPre, IDInv, or IDPost
func (a *Assert) Cond() *Node   { return a.RHS }
func (a *Assert) Reason() t.ID  { return a.ID0 }
func (a *Assert) Args() []*Node { return a.List0 }

// IOBind is the I/O-scoping statement: it binds a fresh reader/writer
// pair (Name) from an external buffer expression (Buffer) plus an
// optional size-hint expression (Limit), and type-checks Body with that
// pair in scope.
type IOBind struct{ view }

func NewIOBind(filename string, line uint32, name t.ID, buffer *Node, limit *Node, body []*Node) *IOBind {
	return &IOBind{view{&Node{Kind: KIOBind, Filename: filename, Line: line, ID0: name,
		RHS: buffer, Extra: limit, List0: body}}}
}
func (b *IOBind) Name() t.ID    { return b.ID0 }
func (b *IOBind) Buffer() *Node { return b.RHS }
func (b *IOBind) Limit() *Node  { return b.Extra }
func (b *IOBind) Body() []*Node { return b.List0 }

// Expr is the general expression view: literal, identifier, unary,
// binary, associative, call, index, slice, selector, or "as" conversion.
// Operator() is zero for a literal or a plain identifier.
type Expr struct{ view }

func NewExprLiteral(filename string, line uint32, id t.ID) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID1: id}}}
}
func NewExprIdent(filename string, line uint32, id t.ID) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID1: id}}}
}
func NewExprOp(filename string, line uint32, op t.ID, lhs, rhs *Node) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID0: op, LHS: lhs, RHS: rhs}}}
}
func NewExprAssociative(filename string, line uint32, op t.ID, args []*Node) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID0: op, List0: args}}}
}
func NewExprCall(filename string, line uint32, suspendibleCall bool, callee *Node, args []*Node) *Expr {
	flags := Flags(0)
	if suspendibleCall {
		flags = FlagsCallSuspendible
	}
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, Flags: flags,
		ID0: idCall, LHS: callee, List0: args}}}
}
func NewExprIndex(filename string, line uint32, receiver, index *Node) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID0: idIndex, LHS: receiver, RHS: index}}}
}
func NewExprSlice(filename string, line uint32, receiver, lo, hi *Node) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID0: idSlice, LHS: receiver, MHS: lo, RHS: hi}}}
}
func NewExprSelector(filename string, line uint32, receiver *Node, field t.ID) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID0: t.IDDot, ID1: field, LHS: receiver}}}
}
func NewExprAs(filename string, line uint32, value *Node, target *Node) *Expr {
	return &Expr{view{&Node{Kind: KExpr, Filename: filename, Line: line, ID0: t.IDAs, LHS: value, RHS: target}}}
}

// idCall, idIndex, and idSlice are internal pseudo-operators (never
// produced by the lexer) used to tag call/index/slice expression nodes
// without stealing a real operator ID.
const (
	idCall  t.ID = 1<<30 + 1
	idIndex t.ID = 1<<30 + 2
	idSlice t.ID = 1<<30 + 3
)

func (e *Expr) Operator() t.ID { return e.ID0 }
func (e *Expr) Ident() t.ID    { return e.ID1 }
func (e *Expr) LHSExpr() *Node { return e.LHS }
func (e *Expr) MHSExpr() *Node { return e.MHS }
func (e *Expr) RHSExpr() *Node { return e.RHS }
func (e *Expr) Args() []*Node  { return e.List0 }
func (e *Expr) IsCall() bool   { return e.ID0 == idCall }
func (e *Expr) IsIndex() bool  { return e.ID0 == idIndex }
func (e *Expr) IsSlice() bool  { return e.ID0 == idSlice }
func (e *Expr) IsSelector() bool { return e.ID0 == t.IDDot }
func (e *Expr) CalleeSuspendible() bool { return e.Flags.Has(FlagsCallSuspendible) }
func (e *Expr) Str(m *t.Map) string { return exprStr(e.Node, m) }

// AsNode returns the underlying generic node, or nil for a nil *Expr
// (an absent optional sub-expression, such as an omitted slice bound).
func (e *Expr) AsNode() *Node {
	if e == nil {
		return nil
	}
	return e.Node
}

// AsExpr and AsNode convert between the generic Node and the typed Expr
// view: the views share memory, so this is a cast, not a copy.
func (n *Node) AsExpr() *Expr         { return &Expr{view{n}} }
func (n *Node) AsArg() *Arg           { return &Arg{view{n}} }
func (n *Node) AsAssert() *Assert     { return &Assert{view{n}} }
func (n *Node) AsWhile() *While       { return &While{view{n}} }
func (n *Node) AsIf() *If             { return &If{view{n}} }
func (n *Node) AsFunc() *Func         { return &Func{view{n}} }
func (n *Node) AsUse() *Use           { return &Use{view{n}} }
func (n *Node) AsConst() *Const       { return &Const{view{n}} }
func (n *Node) AsStatus() *Status     { return &Status{view{n}} }
func (n *Node) AsStruct() *Struct     { return &Struct{view{n}} }
func (n *Node) AsField() *Field       { return &Field{view{n}} }
func (n *Node) AsInterface() *Interface { return &Interface{view{n}} }
func (n *Node) AsTypeExpr() *TypeExpr { return &TypeExpr{view{n}} }
func (n *Node) AsVar() *Var           { return &Var{view{n}} }
func (n *Node) AsAssign() *Assign     { return &Assign{view{n}} }
func (n *Node) AsReturn() *Return     { return &Return{view{n}} }
func (n *Node) AsIOBind() *IOBind     { return &IOBind{view{n}} }
func (n *Node) AsJump() *Jump         { return &Jump{view{n}} }

// Eq reports whether e and o are structurally identical expressions
// (same operator/ident/const shape and equal subexpressions). Eq ignores
// annotation slots (MType, MBounds) so that a fact recorded before and
// after a later pass still compares equal.
func (e *Expr) Eq(o *Expr) bool {
	var n, m *Node
	if e != nil {
		n = e.Node
	}
	if o != nil {
		m = o.Node
	}
	if n == nil || m == nil {
		return n == m
	}
	if n.ID0 != m.ID0 || n.ID1 != m.ID1 {
		return false
	}
	if (n.ConstValue == nil) != (m.ConstValue == nil) {
		return false
	}
	if n.ConstValue != nil && n.ConstValue.Cmp(m.ConstValue) != 0 {
		return false
	}
	if !n.LHS.AsExpr().Eq(m.LHS.AsExpr()) || !n.MHS.AsExpr().Eq(m.MHS.AsExpr()) || !n.RHS.AsExpr().Eq(m.RHS.AsExpr()) {
		return false
	}
	if len(n.List0) != len(m.List0) {
		return false
	}
	for i := range n.List0 {
		if !n.List0[i].AsExpr().Eq(m.List0[i].AsExpr()) {
			return false
		}
	}
	return true
}
