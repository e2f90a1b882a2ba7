package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormatsMessage(t *testing.T) {
	e := New(Overflow, "foo.wuffs", 12, "sum of %d and %d may overflow %s", 1, 2, "u8")
	assert.Equal(t, Overflow, e.Kind)
	assert.Equal(t, "foo.wuffs", e.Filename)
	assert.Equal(t, uint32(12), e.Line)
	assert.Equal(t, "sum of 1 and 2 may overflow u8", e.Message)
	assert.Nil(t, e.Facts)
}

func TestInternalfUsesInternalKind(t *testing.T) {
	e := Internalf("foo.wuffs", 1, "unreachable: %s", "bad state")
	assert.Equal(t, Internal, e.Kind)
	assert.Contains(t, e.Error(), "internal error")
}

func TestWithFactsAttachesAndReturnsSelf(t *testing.T) {
	e := New(CannotProve, "foo.wuffs", 3, "cannot discharge obligation")
	ret := e.WithFacts([]string{"x >= 0", "x <= 255"})
	assert.Same(t, e, ret)
	assert.Equal(t, []string{"x >= 0", "x <= 255"}, e.Facts)
}

func TestErrorStringIncludesFactDump(t *testing.T) {
	e := New(Overflow, "foo.wuffs", 7, "overflow").WithFacts([]string{"x >= 0"})
	s := e.Error()
	assert.Contains(t, s, "foo.wuffs:7")
	assert.Contains(t, s, "Overflow")
	assert.Contains(t, s, "fact: x >= 0")
}

func TestIsMatchesOnKindAlone(t *testing.T) {
	a := New(Overflow, "a.wuffs", 1, "sum overflows")
	b := New(Overflow, "b.wuffs", 99, "different message, different file")
	c := New(DivisionByZero, "a.wuffs", 1, "sum overflows")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsRejectsNonErrorTargets(t *testing.T) {
	e := New(Overflow, "a.wuffs", 1, "boom")
	assert.False(t, e.Is(errors.New("plain error")))
}
