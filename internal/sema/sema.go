// Package sema is the semantic checker: symbol table, type resolver,
// expression and statement typers, fact engine, bounds prover,
// liveness analyser, and interface/contract checker. It accepts parsed
// files and produces a fully-annotated tree (or the first error).
package sema

import (
	"fmt"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/builtin"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	"github.com/wuffscheck/wuffscheck/internal/parse"
	"github.com/wuffscheck/wuffscheck/internal/pkgid"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// ResolveUse resolves a `use "pkg/path"` clause to that package's
// source bytes. The checker invokes it once per distinct use path
// encountered; internal/resolver provides the production implementation.
type ResolveUse func(path string) ([]byte, error)

// Checker holds the whole-package symbol tables built by the
// top-level-declaration passes and consulted by every later pass.
type Checker struct {
	tm         *t.Map
	resolveUse ResolveUse
	reasons    reasonCatalogue

	// maxExprDepth bounds expression-tree recursion; set from
	// internal/config.Limits by the caller, defaulting to
	// defaultMaxExprDepth when left zero.
	maxExprDepth int

	packageID uint32

	consts     map[t.QID]*a.Node // KConst
	statuses   map[t.QID]*a.Node // KStatus
	structs    map[t.QID]*a.Node // KStruct
	funcs      map[t.QQID]*a.Node
	useBases   map[t.ID]bool
	topLevel   map[t.ID]string // name -> "const"/"status"/"struct"/"func" (same-namespace collision set)

	// localVars maps a func's QQID to its locals: name -> declared
	// KTypeExpr node. Populated by checkFuncSignature, extended by the
	// statement typer as `var` statements are visited.
	localVars map[t.QQID]map[t.ID]*a.Node

	unsortedStructs []*a.Node
}

// NewChecker constructs an empty Checker, ready to check one package
// (a set of files compiled together). maxExprDepth bounds expression
// recursion; 0 selects defaultMaxExprDepth. internal/config supplies
// this value from its Limits; sema itself never imports that package.
func NewChecker(tm *t.Map, resolveUse ResolveUse, maxExprDepth int) *Checker {
	if maxExprDepth <= 0 {
		maxExprDepth = defaultMaxExprDepth
	}
	return &Checker{
		tm:           tm,
		resolveUse:   resolveUse,
		reasons:      defaultReasons(),
		maxExprDepth: maxExprDepth,
		consts:       map[t.QID]*a.Node{},
		statuses:     map[t.QID]*a.Node{},
		structs:      map[t.QID]*a.Node{},
		funcs:        map[t.QQID]*a.Node{},
		useBases:     map[t.ID]bool{},
		topLevel:     map[t.ID]string{},
		localVars:    map[t.QQID]map[t.ID]*a.Node{},
	}
}

// phase pairs a top-level-decl kind with the check function run once
// per matching decl, across every file, before the next phase starts.
type phase struct {
	kind  a.Kind
	check func(c *Checker, n *a.Node) error
}

var phases [4]phase

// init fills phases here rather than in its declaration because
// checkUse itself ranges over phases.
func init() {
	phases = [...]phase{
		{a.KUse, (*Checker).checkUse},
		{a.KStatus, (*Checker).checkStatus},
		{a.KConst, (*Checker).checkConst},
		{a.KStruct, (*Checker).checkStructDecl},
	}
}

// Check runs every pass over files (already parsed, same package) in
// order and returns the populated Checker, or the first error.
// maxExprDepth is forwarded to NewChecker; 0 selects the default.
func Check(tm *t.Map, files []*a.File, resolveUse ResolveUse, maxExprDepth int) (*Checker, error) {
	c := NewChecker(tm, resolveUse, maxExprDepth)

	for _, f := range files {
		for _, n := range f.TopLevelDecls() {
			if n.Kind == a.KPackageID {
				if err := c.checkPackageID(n); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, ph := range phases {
		for _, f := range files {
			for _, n := range f.TopLevelDecls() {
				if n.Kind != ph.kind {
					continue
				}
				if err := ph.check(c, n); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := c.checkStructCycles(); err != nil {
		return nil, err
	}
	for _, s := range c.unsortedStructs {
		if err := c.checkStructFields(s); err != nil {
			return nil, err
		}
	}

	var funcNodes []*a.Node
	for _, f := range files {
		for _, n := range f.TopLevelDecls() {
			if n.Kind == a.KFunc {
				funcNodes = append(funcNodes, n)
			}
		}
	}
	for _, n := range funcNodes {
		if err := c.checkFuncSignature(n); err != nil {
			return nil, err
		}
	}
	for _, n := range funcNodes {
		if err := c.checkFuncContract(n); err != nil {
			return nil, err
		}
	}
	if err := c.checkInterfaceImpls(files); err != nil {
		return nil, err
	}
	for _, n := range funcNodes {
		if err := c.checkFuncBody(n); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		for _, n := range f.TopLevelDecls() {
			if err := c.checkAnnotationsCommitted(n); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Checker) checkPackageID(n *a.Node) error {
	name := c.tm.ByID(n.ID0)
	id, ok := pkgid.Encode(name)
	if !ok {
		return errs.New(errs.UnknownIdent, n.Filename, n.Line, "invalid package id %q", name)
	}
	c.packageID = id
	return nil
}

func (c *Checker) bind(filename string, line uint32, name t.ID, kind string) error {
	if prev, ok := c.topLevel[name]; ok {
		return errs.New(errs.DuplicateTopLevelName, filename, line,
			"%q already declared as a %s", c.tm.ByID(name), prev)
	}
	c.topLevel[name] = kind
	return nil
}

// checkUse resolves and recursively signature-checks a `use "pkg/path"`
// clause: it tokenizes and parses the referenced source, checks its
// uses/statuses/consts/structs/func-signatures (never bodies), and
// merges the result into this package's symbol tables, namespaced
// under the use's basename.
func (c *Checker) checkUse(n *a.Node) error {
	u := n.AsUse()
	path := c.tm.ByID(u.Path())
	base := baseName(path)
	baseID, err := c.tm.Insert(base)
	if err != nil {
		return errs.New(errs.UnresolvedUse, n.Filename, n.Line, "%v", err)
	}
	if c.useBases[baseID] {
		return errs.New(errs.DuplicateTopLevelName, n.Filename, n.Line, "package %q already used", base)
	}
	if c.resolveUse == nil {
		return errs.New(errs.UnresolvedUse, n.Filename, n.Line, "no resolver configured for %q", path)
	}
	src, rerr := c.resolveUse(path)
	if rerr != nil {
		return errs.New(errs.UnresolvedUse, n.Filename, n.Line, "%q: %v", path, rerr)
	}
	tokens, _, terr := t.Tokenize(c.tm, path, src)
	if terr != nil {
		return errs.New(errs.UnresolvedUse, n.Filename, n.Line, "%q: %v", path, terr)
	}
	file, perr := parse.File(c.tm, path, tokens, nil)
	if perr != nil {
		return errs.New(errs.UnresolvedUse, n.Filename, n.Line, "%q: %v", path, perr)
	}
	sub := NewChecker(c.tm, c.resolveUse, c.maxExprDepth)
	for _, ph := range phases {
		if ph.kind == a.KUse {
			continue // a used package's own uses are not re-exported.
		}
		for _, d := range file.TopLevelDecls() {
			if d.Kind != ph.kind {
				continue
			}
			if err := ph.check(sub, d); err != nil {
				return err
			}
		}
	}
	for _, d := range file.TopLevelDecls() {
		if d.Kind == a.KFunc {
			if err := sub.checkFuncSignature(d); err != nil {
				return err
			}
		}
	}
	for qid, cn := range sub.consts {
		c.consts[t.QID{baseID, qid[1]}] = cn
	}
	for qid, sn := range sub.statuses {
		c.statuses[t.QID{baseID, qid[1]}] = sn
	}
	for qid, sn := range sub.structs {
		c.structs[t.QID{baseID, qid[1]}] = sn
	}
	for qqid, fn := range sub.funcs {
		c.funcs[t.QQID{baseID, qqid[1], qqid[2]}] = fn
	}
	c.useBases[baseID] = true
	return nil
}

func baseName(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	return base
}

func (c *Checker) checkStatus(n *a.Node) error {
	s := n.AsStatus()
	if err := c.bind(n.Filename, n.Line, s.Keyword(), "status"); err != nil {
		return err
	}
	c.statuses[t.QID{0, s.Keyword()}] = n
	return nil
}

func (c *Checker) checkConst(n *a.Node) error {
	cn := n.AsConst()
	if err := c.bind(n.Filename, n.Line, cn.Name(), "const"); err != nil {
		return err
	}
	if err := c.resolveTypeExpr(n.Filename, cn.XType()); err != nil {
		return err
	}
	if err := c.tcheckExpr(nil, t.QQID{}, cn.Value()); err != nil {
		return err
	}
	if cn.Value().ConstValue == nil {
		return errs.New(errs.NonConstantRefinement, n.Filename, n.Line,
			"const %q initializer is not a compile-time constant", c.tm.ByID(cn.Name()))
	}
	c.consts[t.QID{0, cn.Name()}] = n
	return nil
}

func (c *Checker) checkStructDecl(n *a.Node) error {
	s := n.AsStruct()
	if err := c.bind(n.Filename, n.Line, s.Name(), "struct"); err != nil {
		return err
	}
	c.structs[t.QID{0, s.Name()}] = n
	c.unsortedStructs = append(c.unsortedStructs, n)
	return nil
}

// checkStructCycles rejects a by-value containment cycle among structs.
// Reference-shaped fields (ptr/nptr/slice/table) do not participate:
// only a field whose innermost type names another struct directly.
func (c *Checker) checkStructCycles() error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := map[t.ID]int{}
	var visit func(name t.ID, path []t.ID) error
	visit = func(name t.ID, path []t.ID) error {
		switch color[name] {
		case black:
			return nil
		case grey:
			return errs.New(errs.Internal, "", 0, "struct cycle involving %q", c.tm.ByID(name))
		}
		color[name] = grey
		sn, ok := c.structs[t.QID{0, name}]
		if ok {
			for _, f := range sn.AsStruct().Fields() {
				ft := f.AsField().XType()
				for ft.AsTypeExpr().IsArray() {
					ft = ft.AsTypeExpr().Inner() // an array holds its elements by value.
				}
				it := ft.AsTypeExpr()
				if it.Decorator() != 0 {
					continue // ptr/nptr/slice/table: not a by-value cycle.
				}
				if it.QID()[0] != 0 {
					continue // foreign package struct: cannot cycle back here.
				}
				if _, isStruct := c.structs[it.QID()]; isStruct {
					if err := visit(it.QID()[1], append(path, name)); err != nil {
						return err
					}
				}
			}
		}
		color[name] = black
		return nil
	}
	for qid := range c.structs {
		if err := visit(qid[1], nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStructFields(n *a.Node) error {
	s := n.AsStruct()
	seen := map[t.ID]bool{}
	for _, f := range s.Fields() {
		fl := f.AsField()
		if seen[fl.Name()] {
			return errs.New(errs.DuplicateTopLevelName, f.Filename, f.Line,
				"duplicate field %q in struct %q", c.tm.ByID(fl.Name()), c.tm.ByID(s.Name()))
		}
		seen[fl.Name()] = true
		if err := c.resolveTypeExpr(f.Filename, fl.XType()); err != nil {
			return err
		}
	}
	for _, impl := range s.Implements() {
		if err := c.resolveTypeExpr(n.Filename, impl); err != nil {
			return err
		}
	}
	return nil
}

// checkFuncSignature resolves in/out types and seeds the function's
// local-variable map with its parameters and, for a method, "this",
// exactly as the statement typer expects to find them when it begins
// checking the body.
func (c *Checker) checkFuncSignature(n *a.Node) error {
	fn := n.AsFunc()
	qqid := t.QQID{0, fn.Receiver(), fn.Name()}
	if prev, ok := c.funcs[qqid]; ok && prev != n {
		return errs.New(errs.DuplicateTopLevelName, n.Filename, n.Line,
			"func %q redeclared", c.tm.ByID(fn.Name()))
	}
	c.funcs[qqid] = n
	if fn.Receiver() == 0 {
		if err := c.bind(n.Filename, n.Line, fn.Name(), "func"); err != nil {
			// Methods share a name with free funcs of that name in other
			// structs; only free-function names occupy the flat namespace.
			return err
		}
	}
	locals := map[t.ID]*a.Node{}
	for _, arg := range fn.In() {
		al := arg.AsArg()
		if err := c.resolveTypeExpr(n.Filename, al.XType()); err != nil {
			return err
		}
		locals[al.Name()] = al.XType()
	}
	if fn.Out() != nil {
		if err := c.resolveTypeExpr(n.Filename, fn.Out()); err != nil {
			return err
		}
	}
	if fn.Receiver() != 0 {
		locals[t.IDThis] = typeExprName(0, fn.Receiver())
	}
	c.localVars[qqid] = locals
	return nil
}

// checkFuncContract type-checks (but does not yet prove) the function's
// pre/post assertion clauses: they are assumed true on entry and must
// be proven, respectively, on entry and at every return/break path.
func (c *Checker) checkFuncContract(n *a.Node) error {
	fn := n.AsFunc()
	qqid := t.QQID{0, fn.Receiver(), fn.Name()}
	for _, assert := range fn.PreAsserts() {
		if err := c.tcheckExpr(c.localVars[qqid], qqid, assert.AsAssert().Cond()); err != nil {
			return err
		}
	}
	for _, assert := range fn.PostAsserts() {
		if err := c.tcheckExpr(c.localVars[qqid], qqid, assert.AsAssert().Cond()); err != nil {
			return err
		}
	}
	return nil
}

// checkInterfaceImpls verifies every `implements` clause on a struct:
// for each method name the interface requires, the struct must declare
// a method of that name. Only the name is compared; the method's
// parameter types, return type and effect are not checked.
func (c *Checker) checkInterfaceImpls(files []*a.File) error {
	for _, f := range files {
		for _, n := range f.TopLevelDecls() {
			if n.Kind != a.KStruct {
				continue
			}
			s := n.AsStruct()
			for _, impl := range s.Implements() {
				ifaceName := impl.AsTypeExpr().QID()[1]
				required, ok := builtin.Interfaces[c.tm.ByID(ifaceName)]
				if !ok {
					return errs.New(errs.UnknownType, n.Filename, n.Line,
						"unknown interface %q", c.tm.ByID(ifaceName))
				}
				for _, methodName := range required {
					mid := c.tm.ByName(methodName)
					qqid := t.QQID{0, s.Name(), mid}
					if _, ok := c.funcs[qqid]; !ok {
						return errs.New(errs.MethodMissing, n.Filename, n.Line,
							"struct %q implements %q but does not define %q",
							c.tm.ByID(s.Name()), c.tm.ByID(ifaceName), methodName)
					}
				}
			}
		}
	}
	return nil
}

// checkAnnotationsCommitted walks n, failing if any KExpr reachable
// from it was never annotated: the final safety net the spec calls the
// annotation-commit pass.
func (c *Checker) checkAnnotationsCommitted(n *a.Node) error {
	var err error
	n.Walk(func(m *a.Node) {
		if err != nil || m.Kind != a.KExpr {
			return
		}
		if !m.Flags.Has(a.FlagsTypeChecked) {
			err = errs.Internalf(m.Filename, m.Line, "expression %q never type-checked", m.AsExpr().Str(c.tm))
			return
		}
		if m.MType == nil {
			err = errs.Internalf(m.Filename, m.Line, "expression %q has no resolved type", m.AsExpr().Str(c.tm))
			return
		}
		if isNumeric(c.tm, m.MType) && m.MBounds.IsZero() && m.ConstValue == nil {
			err = errs.Internalf(m.Filename, m.Line, "numeric expression %q has no bounds", m.AsExpr().Str(c.tm))
		}
	})
	return err
}

func (c *Checker) errf(filename string, line uint32, kind errs.Kind, format string, args ...interface{}) error {
	return errs.New(kind, filename, line, format, args...)
}

var _ = fmt.Sprintf // keep fmt imported for errf-adjacent helpers added later.
