// Package ast defines the shared abstract syntax tree: a tagged node
// with a common header, wrapped by typed views (Expr, Assign, Func, and
// so on) that expose the fields meaningful for that node kind. Every
// node is created once, during parsing; the checker packages
// (internal/sema) annotate mutable slots on the header in place.
package ast

import (
	"math/big"

	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// Kind identifies the shape of a Node.
type Kind uint32

const (
	KInvalid Kind = iota
	KFile
	KUse
	KPackageID
	KConst
	KStatus
	KStruct
	KField
	KInterface
	KFunc
	KArg
	KTypeExpr
	KVar
	KAssign
	KIf
	KWhile
	KIterate
	KJump // break / continue
	KReturn
	KYield
	KAssert
	KIOBind
	KExpr
)

// Flags records boolean properties discovered or assigned during
// checking.
type Flags uint32

const (
	FlagsPublic Flags = 1 << iota
	FlagsImpure
	FlagsSuspendible
	FlagsCallImpure
	FlagsCallSuspendible
	FlagsHasBreak
	FlagsHasContinue
	FlagsGlobalIdent
	FlagsBoundsCheckOptimized
	FlagsTypeChecked
	FlagsLivenessStrong
)

func (f Flags) Has(x Flags) bool { return f&x != 0 }

// Node is the single, common representation for every AST element. Kind
// says which of the typed "As*" views applies; the generic fields below
// it (LHS/MHS/RHS/List0/List1, ID0/ID1) are interpreted differently by
// each view, exactly as a parser production needs them. The mutable
// annotation slots (MType, MBounds, ConstValue, JumpTarget) are written
// at most once, by the checker passes in internal/sema.
type Node struct {
	Kind     Kind
	Flags    Flags
	Filename string
	Line     uint32

	ID0 t.ID
	ID1 t.ID
	ID2 t.ID

	LHS   *Node
	MHS   *Node
	RHS   *Node
	Extra *Node

	List0   []*Node
	List1   []*Node
	Asserts []*Node

	// Mutable annotation slots, filled by internal/sema.
	MType      *Node // a KTypeExpr node, once resolved.
	MBounds    Bounds
	ConstValue *big.Int
	JumpTarget *Node // the enclosing KWhile/KIterate, for KJump.

	annotated bool // internal: set once MType/MBounds/ConstValue commit.
}

// Bounds is a closed interval [Min, Max] of arbitrary-precision integers.
// A nil bound means unbounded in that direction.
type Bounds struct {
	Min *big.Int
	Max *big.Int
}

func (b Bounds) IsZero() bool { return b.Min == nil && b.Max == nil }

// SetMType commits the node's resolved type. It is an internal error to
// call this twice with differing values.
func (n *Node) SetMType(mtype *Node) {
	if n.MType != nil && n.MType != mtype {
		panic("ast: internal error: mtype already annotated")
	}
	n.MType = mtype
}

// SetConstValue commits the node's compile-time value.
func (n *Node) SetConstValue(v *big.Int) {
	if n.ConstValue != nil && v != nil && n.ConstValue.Cmp(v) != 0 {
		panic("ast: internal error: const_value already annotated")
	}
	n.ConstValue = v
}

// SetBounds commits the node's proven interval.
func (n *Node) SetBounds(b Bounds) {
	n.MBounds = b
}

// Walk visits n and every node reachable from it (LHS, MHS, RHS, then
// List0, List1, in that order), not including JumpTarget, which is a
// non-owning back-pointer and must not participate in ownership walks.
func (n *Node) Walk(f func(*Node)) {
	if n == nil {
		return
	}
	f(n)
	n.LHS.Walk(f)
	n.MHS.Walk(f)
	n.RHS.Walk(f)
	n.Extra.Walk(f)
	for _, x := range n.List0 {
		x.Walk(f)
	}
	for _, x := range n.List1 {
		x.Walk(f)
	}
	for _, x := range n.Asserts {
		x.Walk(f)
	}
}

// view is the common constructor used by every typed wrapper: it embeds
// a *Node so the view exposes AsNode() and shares the mutable slots.
type view struct{ *Node }

// AsNode returns the underlying generic node.
func (v view) AsNode() *Node { return v.Node }
