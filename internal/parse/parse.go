// Package parse implements a recursive-descent parser that turns a
// token stream (internal/token) into the abstract syntax tree consumed
// by internal/sema (internal/ast). The grammar mirrors the tokenizer's
// keyword/operator set exactly: every construct the lexer can produce
// an implicit semicolon after is a construct this parser terminates a
// statement on.
package parse

import (
	"fmt"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// Options tunes a handful of restrictions the parser otherwise applies
// by default; tests that exercise the checker directly on synthetic
// trees relax them.
type Options struct {
	AllowBuiltInNames          bool
	AllowDoubleUnderscoreNames bool
}

func isDoubleUnderscore(s string) bool {
	return len(s) >= 2 && s[0] == '_' && s[1] == '_'
}

// File parses a complete token stream into a File node.
func File(tm *t.Map, filename string, src []t.Token, opts *Options) (*a.File, error) {
	p := &parser{tm: tm, filename: filename, src: src}
	if len(src) > 0 {
		p.lastLine = src[len(src)-1].Line
	}
	if opts != nil {
		p.opts = *opts
	}
	return p.parseFile()
}

// Expr parses a single standalone expression, used by tests and by the
// "assert ... via" reason-argument grammar.
func Expr(tm *t.Map, filename string, src []t.Token, opts *Options) (*a.Expr, error) {
	p := &parser{tm: tm, filename: filename, src: src}
	if len(src) > 0 {
		p.lastLine = src[len(src)-1].Line
	}
	if opts != nil {
		p.opts = *opts
	}
	return p.parseExpr()
}

type parser struct {
	tm         *t.Map
	filename   string
	src        []t.Token
	opts       Options
	lastLine   uint32
	funcImpure bool
	funcCoro   bool
	allowVar   bool
}

func (p *parser) line() uint32 {
	if len(p.src) != 0 {
		return p.src[0].Line
	}
	return p.lastLine
}

func (p *parser) peek1() t.ID {
	if len(p.src) > 0 {
		return p.src[0].ID
	}
	return 0
}

func (p *parser) advance() { p.src = p.src[1:] }

func (p *parser) errf(format string, args ...interface{}) error {
	return fmt.Errorf("parse: "+format+" at %s:%d", append(args, p.filename, p.line())...)
}

func (p *parser) expect(id t.ID, what string) error {
	if x := p.peek1(); x != id {
		return p.errf("expected %s, got %q", what, p.tm.ByID(x))
	}
	p.advance()
	return nil
}

func (p *parser) parseFile() (*a.File, error) {
	var decls []*a.Node
	for len(p.src) > 0 {
		d, err := p.parseTopLevelDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return a.NewFile(p.filename, decls), nil
}

func (p *parser) parseIdent() (t.ID, error) {
	if len(p.src) == 0 {
		return 0, p.errf("expected identifier")
	}
	x := p.src[0]
	if !p.tm.IsIdent(x.ID) {
		return 0, p.errf("expected identifier, got %q", p.tm.ByID(x.ID))
	}
	p.advance()
	return x.ID, nil
}

func (p *parser) parseQualifiedIdent() (t.ID, t.ID, error) {
	x, err := p.parseIdent()
	if err != nil {
		return 0, 0, err
	}
	if p.peek1() != t.IDDot {
		return 0, x, nil
	}
	p.advance()
	y, err := p.parseIdent()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (p *parser) parseList(stop t.ID, parseElem func(*parser) (*a.Node, error)) ([]*a.Node, error) {
	if stop == t.IDCloseParen {
		if err := p.expect(t.IDOpenParen, `"("`); err != nil {
			return nil, err
		}
	}
	var ret []*a.Node
	for len(p.src) > 0 {
		if p.src[0].ID == stop {
			if stop == t.IDCloseParen || stop == t.IDCloseBracket {
				p.advance()
			}
			return ret, nil
		}
		elem, err := parseElem(p)
		if err != nil {
			return nil, err
		}
		ret = append(ret, elem)
		switch x := p.peek1(); x {
		case stop:
			if stop == t.IDCloseParen || stop == t.IDCloseBracket {
				p.advance()
			}
			return ret, nil
		case t.IDComma:
			p.advance()
		default:
			return nil, p.errf("expected %q, got %q", p.tm.ByID(stop), p.tm.ByID(x))
		}
	}
	return nil, p.errf("expected %q", p.tm.ByID(stop))
}

func (p *parser) parseTopLevelDecl() (*a.Node, error) {
	flags := a.Flags(0)
	line := p.line()
	switch k := p.peek1(); k {
	case t.IDUse:
		p.advance()
		path := p.peek1()
		if !p.tm.IsStrLiteral(path) {
			return nil, p.errf("expected string literal, got %q", p.tm.ByID(path))
		}
		p.advance()
		if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
			return nil, err
		}
		return a.NewUse(p.filename, line, path).AsNode(), nil

	case t.IDPub, t.IDPri:
		if k == t.IDPub {
			flags |= a.FlagsPublic
		}
		p.advance()
		return p.parseAfterPubPri(flags, line)
	}
	return nil, p.errf("unrecognized top level declaration")
}

func (p *parser) parseAfterPubPri(flags a.Flags, line uint32) (*a.Node, error) {
	switch p.peek1() {
	case t.IDConst:
		p.advance()
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(t.IDEq, `"="`); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
			return nil, err
		}
		return a.NewConst(p.filename, line, flags, name, typ.AsNode(), value.AsNode()).AsNode(), nil

	case t.IDStatus, t.IDWarning, t.IDError, t.IDSuspension:
		kind := p.peek1()
		p.advance()
		message := p.peek1()
		if !p.tm.IsStrLiteral(message) {
			return nil, p.errf("expected string literal, got %q", p.tm.ByID(message))
		}
		p.advance()
		if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
			return nil, err
		}
		return a.NewStatus(p.filename, line, kind, kind, message).AsNode(), nil

	case t.IDFunc:
		p.advance()
		return p.parseFunc(flags, line)

	case t.IDStruct:
		p.advance()
		return p.parseStruct(flags, line)

	case t.IDInterface:
		p.advance()
		return p.parseInterface(line)
	}
	return nil, p.errf("unrecognized top level declaration")
}

func (p *parser) parseFunc(flags a.Flags, line uint32) (*a.Node, error) {
	receiver, name, err := p.parseQualifiedIdent()
	if err != nil {
		return nil, err
	}
	if !p.opts.AllowBuiltInNames {
		switch p.tm.ByID(name) {
		case "initialize", "reset":
			return nil, p.errf("cannot have a method named %q", p.tm.ByID(name))
		}
	}
	if !p.opts.AllowDoubleUnderscoreNames && isDoubleUnderscore(p.tm.ByID(name)) {
		return nil, p.errf("double-underscore %q used for func name", p.tm.ByID(name))
	}

	p.funcImpure, p.funcCoro = false, false
	switch p.peek1() {
	case t.IDExclam:
		p.advance()
		p.funcImpure = true
		flags |= a.FlagsImpure
	case t.IDQuestion:
		p.advance()
		p.funcImpure, p.funcCoro = true, true
		flags |= a.FlagsImpure | a.FlagsSuspendible
	}

	args, err := p.parseList(t.IDCloseParen, (*parser).parseFieldNode)
	if err != nil {
		return nil, err
	}
	var out *a.Node
	if p.peek1() != t.IDOpenCurly && p.peek1() != t.IDComma {
		o, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		out = o.AsNode()
	}
	var asserts []*a.Node
	if p.peek1() == t.IDComma {
		p.advance()
		asserts, err = p.parseList(t.IDOpenCurly, (*parser).parseAssertNode)
		if err != nil {
			return nil, err
		}
		if err := p.assertsSorted(asserts); err != nil {
			return nil, err
		}
	}

	p.allowVar = true
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	p.allowVar = false

	if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
		return nil, err
	}
	p.funcImpure, p.funcCoro = false, false
	return a.NewFunc(p.filename, line, flags, receiver, name, args, out, asserts, body).AsNode(), nil
}

func (p *parser) parseStruct(flags a.Flags, line uint32) (*a.Node, error) {
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if !p.opts.AllowDoubleUnderscoreNames && isDoubleUnderscore(p.tm.ByID(name)) {
		return nil, p.errf("double-underscore %q used for struct name", p.tm.ByID(name))
	}
	fields, err := p.parseList(t.IDCloseParen, (*parser).parseFieldNode)
	if err != nil {
		return nil, err
	}
	var implements []*a.Node
	if p.peek1() == t.IDImplements {
		p.advance()
		for {
			pkg, nm, err := p.parseQualifiedIdent()
			if err != nil {
				return nil, err
			}
			implements = append(implements, a.NewTypeExprName(pkg, nm, nil, nil).AsNode())
			if p.peek1() != t.IDComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
		return nil, err
	}
	return a.NewStruct(p.filename, line, flags, name, fields, implements).AsNode(), nil
}

func (p *parser) parseInterface(line uint32) (*a.Node, error) {
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(t.IDOpenCurly, `"{"`); err != nil {
		return nil, err
	}
	var methods []*a.Node
	for p.peek1() != t.IDCloseCurly {
		if err := p.expect(t.IDFunc, `"func"`); err != nil {
			return nil, err
		}
		mname, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		impure, coro := false, false
		switch p.peek1() {
		case t.IDExclam:
			p.advance()
			impure = true
		case t.IDQuestion:
			p.advance()
			impure, coro = true, true
		}
		in, err := p.parseList(t.IDCloseParen, (*parser).parseFieldNode)
		if err != nil {
			return nil, err
		}
		var out *a.Node
		if p.peek1() != t.IDSemicolon {
			o, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			out = o.AsNode()
		}
		if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
			return nil, err
		}
		flags := a.Flags(0)
		if impure {
			flags |= a.FlagsImpure
		}
		if coro {
			flags |= a.FlagsSuspendible
		}
		methods = append(methods, a.NewFunc(p.filename, line, flags, 0, mname, in, out, nil, nil).AsNode())
	}
	p.advance()
	if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
		return nil, err
	}
	return a.NewInterface(name, methods).AsNode(), nil
}

func (p *parser) parseFieldNode() (*a.Node, error) {
	line := p.line()
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(t.IDColon, `":"`); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	return a.NewField(p.filename, line, 0, name, typ.AsNode()).AsNode(), nil
}

func (p *parser) parseTypeExpr() (*a.TypeExpr, error) {
	if x := p.peek1(); x == t.IDNptr || x == t.IDPtr {
		p.advance()
		rhs, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return a.NewTypeExprDecorated(x, rhs.AsNode(), nil), nil
	}

	decorator, arrayLength := t.ID(0), (*a.Expr)(nil)
	switch p.peek1() {
	case t.IDArray:
		decorator = t.IDArray
		p.advance()
		if err := p.expect(t.IDOpenBracket, `"["`); err != nil {
			return nil, err
		}
		var err error
		arrayLength, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(t.IDCloseBracket, `"]"`); err != nil {
			return nil, err
		}
	case t.IDSlice:
		decorator = t.IDSlice
		p.advance()
	case t.IDTable:
		decorator = t.IDTable
		p.advance()
	}

	if decorator != 0 {
		rhs, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return a.NewTypeExprDecorated(decorator, rhs.AsNode(), arrayLength.AsNode()), nil
	}

	pkg, name, err := p.parseQualifiedIdent()
	if err != nil {
		return nil, err
	}
	var lo, hi *a.Expr
	if p.peek1() == t.IDOpenBracket {
		_, lo, hi, err = p.parseBracket(t.IDDotDotEq)
		if err != nil {
			return nil, err
		}
	}
	return a.NewTypeExprName(pkg, name, lo.AsNode(), hi.AsNode()), nil
}

// parseBracket parses "[i ..= j]", "[i ..]", "[.. j]" and "[..]". If
// sep is t.IDDotDot it also parses the single-expression index form
// "[i]", returning op == t.IDOpenBracket in that case.
func (p *parser) parseBracket(sep t.ID) (op t.ID, ei, ej *a.Expr, err error) {
	if err := p.expect(t.IDOpenBracket, `"["`); err != nil {
		return 0, nil, nil, err
	}
	if p.peek1() != sep {
		ei, err = p.parseExpr()
		if err != nil {
			return 0, nil, nil, err
		}
	}
	switch x := p.peek1(); {
	case x == sep:
		p.advance()
	case x == t.IDCloseBracket && sep == t.IDDotDot:
		p.advance()
		return t.IDOpenBracket, nil, ei, nil
	default:
		extra := ""
		if sep == t.IDDotDot {
			extra = ` or "]"`
		}
		return 0, nil, nil, p.errf("expected %q%s, got %q", p.tm.ByID(sep), extra, p.tm.ByID(x))
	}
	if p.peek1() != t.IDCloseBracket {
		ej, err = p.parseExpr()
		if err != nil {
			return 0, nil, nil, err
		}
	}
	if err := p.expect(t.IDCloseBracket, `"]"`); err != nil {
		return 0, nil, nil, err
	}
	return sep, ei, ej, nil
}

func (p *parser) parseBlock() ([]*a.Node, error) {
	if err := p.expect(t.IDOpenCurly, `"{"`); err != nil {
		return nil, err
	}
	var block []*a.Node
	for len(p.src) > 0 {
		if p.src[0].ID == t.IDCloseCurly {
			p.advance()
			return block, nil
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block = append(block, s)
		if err := p.expect(t.IDSemicolon, `(implicit) ";"`); err != nil {
			return nil, err
		}
	}
	return nil, p.errf(`expected "}"`)
}

func (p *parser) assertsSorted(asserts []*a.Node) error {
	seenInv, seenPost := false, false
	for _, n := range asserts {
		switch n.AsAssert().Clause() {
		case 0:
			return p.errf(`assertion chain cannot contain a bare assert, only "pre", "inv" and "post"`)
		case t.IDPre:
			if seenPost || seenInv {
				return p.errf(`assertion chain not in "pre", "inv", "post" order`)
			}
		case t.IDInv:
			if seenPost {
				return p.errf(`assertion chain not in "pre", "inv", "post" order`)
			}
			seenInv = true
		default:
			seenPost = true
		}
	}
	return nil
}

func (p *parser) parseAssertNode() (*a.Node, error) {
	line := p.line()
	switch x := p.peek1(); x {
	case t.IDAssert, t.IDPre, t.IDInv, t.IDPost:
		p.advance()
		clause := t.ID(0)
		if x != t.IDAssert {
			clause = x
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		reason, args := t.ID(0), []*a.Node(nil)
		if p.peek1() == t.IDVia {
			p.advance()
			reason = p.peek1()
			if !p.tm.IsStrLiteral(reason) {
				return nil, p.errf("expected string literal, got %q", p.tm.ByID(reason))
			}
			p.advance()
			args, err = p.parseList(t.IDCloseParen, (*parser).parseArgNode)
			if err != nil {
				return nil, err
			}
		}
		return a.NewAssert(p.filename, line, clause, cond.AsNode(), reason, args).AsNode(), nil
	}
	return nil, p.errf(`expected "assert", "pre", "inv" or "post"`)
}

func (p *parser) parseStatement() (*a.Node, error) {
	x := p.peek1()
	if x == t.IDVar {
		if !p.allowVar {
			return nil, p.errf("var statement not at the top of a function")
		}
		p.advance()
		return p.parseVarNode()
	}
	p.allowVar = false

	line := p.line()
	switch x {
	case t.IDAssert, t.IDPre, t.IDInv, t.IDPost:
		return p.parseAssertNode()

	case t.IDBreak, t.IDContinue:
		p.advance()
		label, err := p.parseLabel()
		if err != nil {
			return nil, err
		}
		return a.NewJump(p.filename, line, x, label).AsNode(), nil

	case t.IDIOBind, t.IDIOLimit:
		return p.parseIOBindNode()

	case t.IDIf:
		return p.parseIf()

	case t.IDIterate:
		return p.parseWhileOrIterate(true)

	case t.IDReturn, t.IDYield:
		p.advance()
		if x == t.IDYield {
			if !p.funcCoro {
				return nil, p.errf("yield within non-coroutine")
			}
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return a.NewReturn(p.filename, line, x == t.IDYield, value.AsNode()).AsNode(), nil

	case t.IDWhile:
		return p.parseWhileOrIterate(false)
	}
	return p.parseAssignNode()
}

func (p *parser) parseLabel() (t.ID, error) {
	if p.peek1() == t.IDDot {
		p.advance()
		return p.parseIdent()
	}
	return 0, nil
}

func (p *parser) parseWhileOrIterate(iterate bool) (*a.Node, error) {
	line := p.line()
	p.advance()
	label, err := p.parseLabel()
	if err != nil {
		return nil, err
	}
	cond := (*a.Expr)(nil)
	if !iterate {
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	asserts, err := p.parseAsserts()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return a.NewWhile(p.filename, line, iterate, label, cond.AsNode(), asserts, body).AsNode(), nil
}

func (p *parser) parseAsserts() ([]*a.Node, error) {
	var asserts []*a.Node
	if p.peek1() == t.IDComma {
		p.advance()
		var err error
		if asserts, err = p.parseList(t.IDOpenCurly, (*parser).parseAssertNode); err != nil {
			return nil, err
		}
		if err := p.assertsSorted(asserts); err != nil {
			return nil, err
		}
	}
	return asserts, nil
}

func (p *parser) parseAssignNode() (*a.Node, error) {
	line := p.line()
	lhs := (*a.Expr)(nil)
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	op := p.peek1()
	if op.IsAssign() {
		p.advance()
		lhs = rhs
		rhs, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	} else {
		op = t.IDEq
	}
	return a.NewAssign(p.filename, line, op, lhs.AsNode(), rhs.AsNode()).AsNode(), nil
}

func (p *parser) parseIOBindNode() (*a.Node, error) {
	line := p.line()
	name := p.peek1()
	p.advance()
	if err := p.expect(t.IDOpenParen, `"("`); err != nil {
		return nil, err
	}
	if err := p.expect(t.IDIO, `"io"`); err != nil {
		return nil, err
	}
	if err := p.expect(t.IDColon, `":"`); err != nil {
		return nil, err
	}
	buffer, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(t.IDComma, `","`); err != nil {
		return nil, err
	}
	arg1Name := t.IDData
	if name == t.IDIOLimit {
		arg1Name = t.IDLimit
	}
	if err := p.expect(arg1Name, fmt.Sprintf("%q", p.tm.ByID(arg1Name))); err != nil {
		return nil, err
	}
	if err := p.expect(t.IDColon, `":"`); err != nil {
		return nil, err
	}
	limit, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(t.IDCloseParen, `")"`); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return a.NewIOBind(p.filename, line, name, buffer.AsNode(), limit.AsNode(), body).AsNode(), nil
}

func (p *parser) parseIf() (*a.Node, error) {
	line := p.line()
	if err := p.expect(t.IDIf, `"if"`); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	bodyIfTrue, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var elseIf *a.Node
	var bodyIfFalse []*a.Node
	if p.peek1() == t.IDElse {
		p.advance()
		if p.peek1() == t.IDIf {
			elseIf, err = p.parseIf()
			if err != nil {
				return nil, err
			}
		} else {
			bodyIfFalse, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
	}
	return a.NewIf(p.filename, line, cond.AsNode(), bodyIfTrue, elseIf, bodyIfFalse).AsNode(), nil
}

func (p *parser) parseArgNode() (*a.Node, error) {
	line := p.line()
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(t.IDColon, `":"`); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return a.NewArgValue(p.filename, line, name, value.AsNode()).AsNode(), nil
}

func (p *parser) parseVarNode() (*a.Node, error) {
	line := p.line()
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(t.IDColon, `":"`); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	var value *a.Node
	if p.peek1() == t.IDEq {
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		value = v.AsNode()
	}
	return a.NewVar(p.filename, line, id, typ.AsNode(), value).AsNode(), nil
}

func (p *parser) parseExpr() (*a.Expr, error) {
	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	x := p.peek1()
	if !x.IsBinaryOp() {
		return lhs, nil
	}
	p.advance()
	line := p.line()

	var rhs *a.Node
	if x == t.IDAs {
		o, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return a.NewExprAs(p.filename, line, lhs.AsNode(), o.AsNode()), nil
	}
	o, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	rhs = o.AsNode()

	if !x.IsAssociativeOp() || x != p.peek1() {
		op := x.BinaryForm()
		if op == 0 {
			return nil, p.errf("internal error: no binary form for token 0x%02x", x)
		}
		return a.NewExprOp(p.filename, line, op, lhs.AsNode(), rhs), nil
	}

	args := []*a.Node{lhs.AsNode(), rhs}
	for p.peek1() == x {
		p.advance()
		arg, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		args = append(args, arg.AsNode())
	}
	op := x.AssociativeForm()
	if op == 0 {
		return nil, p.errf("internal error: no associative form for token 0x%02x", x)
	}
	return a.NewExprAssociative(p.filename, line, op, args), nil
}

func (p *parser) parseOperand() (*a.Expr, error) {
	line := p.line()
	switch x := p.peek1(); {
	case x.IsUnaryOp():
		p.advance()
		rhs, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		op := x.UnaryForm()
		if op == 0 {
			return nil, p.errf("internal error: no unary form for token 0x%02x", x)
		}
		return a.NewExprOp(p.filename, line, op, nil, rhs.AsNode()), nil

	case p.tm.IsNumLiteral(x) || p.tm.IsStrLiteral(x):
		p.advance()
		return a.NewExprLiteral(p.filename, line, x), nil

	case x == t.IDOpenParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(t.IDCloseParen, `")"`); err != nil {
			return nil, err
		}
		return expr, nil
	}

	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	lhs := a.NewExprIdent(p.filename, line, id)

	for {
		switch p.peek1() {
		default:
			return lhs, nil

		case t.IDExclam, t.IDQuestion:
			suspendible := p.peek1() == t.IDQuestion
			p.advance()
			args, err := p.parseList(t.IDCloseParen, (*parser).parseArgNode)
			if err != nil {
				return nil, err
			}
			lhs = a.NewExprCall(p.filename, line, suspendible, lhs.AsNode(), args)

		case t.IDOpenParen:
			args, err := p.parseList(t.IDCloseParen, (*parser).parseArgNode)
			if err != nil {
				return nil, err
			}
			lhs = a.NewExprCall(p.filename, line, false, lhs.AsNode(), args)

		case t.IDOpenBracket:
			op, mhs, rhs, err := p.parseBracket(t.IDDotDot)
			if err != nil {
				return nil, err
			}
			if op == t.IDOpenBracket {
				lhs = a.NewExprIndex(p.filename, line, lhs.AsNode(), rhs.AsNode())
			} else {
				lhs = a.NewExprSlice(p.filename, line, lhs.AsNode(), mhs.AsNode(), rhs.AsNode())
			}

		case t.IDDot:
			p.advance()
			field, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			lhs = a.NewExprSelector(p.filename, line, lhs.AsNode(), field)
		}
	}
}
