package sema

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	"github.com/wuffscheck/wuffscheck/internal/parse"
	"github.com/wuffscheck/wuffscheck/internal/render"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

const testFilename = "test.wuffs"

func mustTokenizeAndParse(tb testing.TB, tm *t.Map, src string) ([]t.Token, []string, *a.File) {
	tb.Helper()
	tokens, comments, err := t.Tokenize(tm, testFilename, []byte(src))
	require.NoError(tb, err)
	file, err := parse.File(tm, testFilename, tokens, nil)
	require.NoError(tb, err)
	return tokens, comments, file
}

// tokenIDs strips line numbers, keeping only the ordered token-kind
// sequence a round trip should reproduce exactly.
func tokenIDs(tokens []t.Token) []t.ID {
	ids := make([]t.ID, len(tokens))
	for i, tok := range tokens {
		ids[i] = tok.ID
	}
	return ids
}

func TestCheckAcceptsWellTypedFunction(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func pick(x: u8, y: u8) u8 {
	var z: u8 = x
	if x == y {
		z = y
	}
	return z
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	assert.NoError(t1, err)
}

func TestCheckRejectsUnprovenOverflow(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func bad(x: u8, y: u8) u8 {
	return x + y
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.Error(t1, err)
	se, ok := err.(*errs.Error)
	require.True(t1, ok, "expected *errs.Error, got %T", err)
	assert.Equal(t1, errs.Overflow, se.Kind)
}

func TestCheckAcceptsOverflowGuardedByRefinement(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func safe_add(x: u8[0..=200], y: u8[0..=55]) u8 {
	return x + y
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	assert.NoError(t1, err, "refined operand ranges should let the bounds prover discharge the sum without an explicit assert")
}

// TestTokenRoundTrip exercises the render/token-stream round trip: a
// canonically-laid-out program re-renders to the same token sequence
// it started from (comments and exact whitespace aside), the testable
// property spec.md asks a `fmt`-style command to preserve.
func TestTokenRoundTrip(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func pick(x: u8, y: u8) u8 {
	var z: u8 = x
	if x == y {
		z = y
	}
	return z
}
`) + "\n"

	tm := &t.Map{}
	tokens, comments, _ := mustTokenizeAndParse(t1, tm, src)

	var buf bytes.Buffer
	require.NoError(t1, render.Render(&buf, tm, tokens, comments))

	tokens2, _, err := t.Tokenize(tm, testFilename, buf.Bytes())
	require.NoError(t1, err)

	assert.Equal(t1, tokenIDs(tokens), tokenIDs(tokens2))
}

// findFunc locates the top-level func named name (optionally on
// receiver, 0 for none) in file's declarations.
func findFunc(tb testing.TB, tm *t.Map, file *a.File, receiver, name string) *a.Node {
	tb.Helper()
	wantName := tm.ByName(name)
	var wantReceiver t.ID
	if receiver != "" {
		wantReceiver = tm.ByName(receiver)
	}
	for _, n := range file.TopLevelDecls() {
		if n.Kind != a.KFunc {
			continue
		}
		fn := n.AsFunc()
		if fn.Name() == wantName && fn.Receiver() == wantReceiver {
			return n
		}
	}
	require.Fail(tb, "func not found", "receiver=%q name=%q", receiver, name)
	return nil
}

// TestLivenessFlagsLocalReadAfterYield exercises the coroutine liveness
// pass: a local written before a `yield` and read afterwards, relative
// to its last write, must come back annotated FlagsLivenessStrong on
// its declaration, since a coroutine resume can re-enter mid-body with
// every local's prior value already lost to the caller's stack.
func TestLivenessFlagsLocalReadAfterYield(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func gen?() u8 {
	var x: u8 = 0
	yield x
	return x
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.NoError(t1, err)

	fn := findFunc(t1, tm, file, "", "gen")
	require.True(t1, fn.AsFunc().Suspendible())
	varDecl := fn.AsFunc().Body()[0]
	require.Equal(t1, a.KVar, varDecl.Kind)
	assert.True(t1, varDecl.Flags.Has(a.FlagsLivenessStrong),
		"x is written, crosses a yield, then is read by the final return")
}

// TestLivenessLeavesNonCoroutineLocalsAlone confirms the liveness pass
// is a no-op outside suspendible functions: ordinary functions never
// resume mid-body, so a write-then-read with no yield between them
// carries no liveness signal at all.
func TestLivenessLeavesNonCoroutineLocalsAlone(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func plain() u8 {
	var x: u8 = 0
	return x
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.NoError(t1, err)

	fn := findFunc(t1, tm, file, "", "plain")
	require.False(t1, fn.AsFunc().Suspendible())
	varDecl := fn.AsFunc().Body()[0]
	assert.False(t1, varDecl.Flags.Has(a.FlagsLivenessStrong))
}

// TestIOBindAllowsBreakOfLoopInsideItsOwnScope confirms the io_bind
// scope restriction only fires on a jump that actually leaves the
// io_bind: a loop both entered and broken entirely within the body is
// unaffected.
func TestIOBindAllowsBreakOfLoopInsideItsOwnScope(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func f(r: reader1) u8 {
	io_bind(io: r, data: 1) {
		while true {
			break
		}
	}
	return 0
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	assert.NoError(t1, err)
}

// TestIOBindRejectsBreakOfOuterLoop grounds the io_bind scope
// restriction: a break targeting a loop entered before the io_bind
// would leave the buffer pair's scope while it's still bound, and must
// be rejected.
func TestIOBindRejectsBreakOfOuterLoop(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func f(r: reader1) u8 {
	while true {
		io_bind(io: r, data: 1) {
			break
		}
	}
	return 0
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.Error(t1, err)
	se, ok := err.(*errs.Error)
	require.True(t1, ok, "expected *errs.Error, got %T", err)
	assert.Equal(t1, errs.BadJump, se.Kind)
}

// TestIOBindRejectsReturn is the other half: a return nested inside an
// io_bind body always leaves the enclosing function, so it always
// leaves the io_bind's scope too.
func TestIOBindRejectsReturn(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func f(r: reader1) u8 {
	io_bind(io: r, data: 1) {
		return 0
	}
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.Error(t1, err)
	se, ok := err.(*errs.Error)
	require.True(t1, ok, "expected *errs.Error, got %T", err)
	assert.Equal(t1, errs.BadJump, se.Kind)
}

// TestLivenessFlagsLocalReadAfterSuspendibleCall exercises the other
// half of a suspension point: spec's liveness pass treats "a call to
// another coroutine" the same as an explicit yield. A local written
// before a suspendible call and read after it must come back flagged
// strong even though the function body never spells a literal `yield`.
func TestLivenessFlagsLocalReadAfterSuspendibleCall(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func helper?() u8 {
	return 0
}

pub func gen?() u8 {
	var c: u8 = 0
	var d: u8 = helper?()
	return c
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.NoError(t1, err)

	fn := findFunc(t1, tm, file, "", "gen")
	varC := fn.AsFunc().Body()[0]
	require.Equal(t1, a.KVar, varC.Kind)
	assert.True(t1, varC.Flags.Has(a.FlagsLivenessStrong),
		"c is written, crosses a suspendible call with no literal yield, then is read by the final return")
}

// TestInterfaceImplementationRequiresDeclaredMethod grounds the
// interface/contract checker: a struct declaring `implements
// io_reader` must define a `read_u8` method, the one built-in
// interface the checker resolves by name.
func TestInterfaceImplementationRequiresDeclaredMethod(t1 *testing.T) {
	src := strings.TrimSpace(`
pub struct buf_reader(pos: u8) implements io_reader

pub func buf_reader.read_u8() u8 {
	return 0
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	assert.NoError(t1, err)
}

// TestBuiltinCopyFromSliceAcceptsSliceArgument grounds the
// copy_from_slice builtin: its "s" argument is itself a slice, not a
// numeric value, so it must type-check even though every other
// built-in slice/table method argument (low_bits's "n", suffix's
// "up_to") is numeric.
func TestBuiltinCopyFromSliceAcceptsSliceArgument(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func copy_into(dst: slice u8, src: slice u8) u64 {
	var n: u64 = dst.copy_from_slice(s: src)
	return n
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	assert.NoError(t1, err)
}

// TestBuiltinCopyFromSliceRejectsNumericArgument is the negative case:
// copy_from_slice still rejects a non-slice argument.
func TestBuiltinCopyFromSliceRejectsNumericArgument(t1 *testing.T) {
	src := strings.TrimSpace(`
pub func copy_into(dst: slice u8, src: u8) u64 {
	var n: u64 = dst.copy_from_slice(s: src)
	return n
}
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.Error(t1, err)
	se, ok := err.(*errs.Error)
	require.True(t1, ok, "expected *errs.Error, got %T", err)
	assert.Equal(t1, errs.BadOperand, se.Kind)
}

// TestInterfaceImplementationMissingMethodFails is the negative case:
// the struct claims `implements io_reader` but never defines
// `read_u8`.
func TestInterfaceImplementationMissingMethodFails(t1 *testing.T) {
	src := strings.TrimSpace(`
pub struct buf_reader(pos: u8) implements io_reader
`) + "\n"

	tm := &t.Map{}
	_, _, file := mustTokenizeAndParse(t1, tm, src)

	_, err := Check(tm, []*a.File{file}, nil, 0)
	require.Error(t1, err)
	se, ok := err.(*errs.Error)
	require.True(t1, ok, "expected *errs.Error, got %T", err)
	assert.Equal(t1, errs.MethodMissing, se.Kind)
}
