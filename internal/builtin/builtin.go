// Package builtin lists concepts the checker treats as built in: the
// fixed status catalogue (used by "error"/"suspension" declarations and
// by the interface/contract checker) and the built-in method table
// consulted by field/method resolution before a struct's own fields or
// declared methods.
package builtin

import (
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

// Status describes one entry of a status catalogue: either a plain
// "ok", an "error ..." or a "suspension ...".
type Status struct {
	Keyword t.ID
	Message string
}

func (z Status) String() string {
	prefix := "status "
	switch z.Keyword {
	case t.IDError:
		prefix = "error "
	case t.IDSuspension:
		prefix = "suspension "
	}
	return prefix + z.Message
}

// StatusList enumerates the statuses every package may return without
// declaring them itself.
var StatusList = [...]Status{
	{0, "ok"},
	{t.IDError, "bad version"},
	{t.IDError, "bad receiver"},
	{t.IDError, "bad argument"},
	{t.IDError, "initializer not called"},
	{t.IDError, "closed for writes"},
	{t.IDError, "unexpected end of data"},
	{t.IDSuspension, "short read"},
	{t.IDSuspension, "short write"},
}

// StatusMap indexes StatusList by message, for the checker's lookup of
// an "error"/"suspension" identifier against the built-in set before
// falling back to a package's own declared statuses.
var StatusMap = map[string]Status{}

func init() {
	for _, s := range StatusList {
		StatusMap[s.Message] = s
	}
}

// TrimQuotes strips a leading and trailing '"' from s, if both are
// present. Status messages are tokenized as string literals, quotes
// included.
func TrimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// MethodSignature describes a built-in method's parameter names, in the
// order the checker expects them for a call's named arguments; the
// checker resolves argument types against the declared parameter type,
// separately, per call site.
type MethodSignature struct {
	Receiver  t.ID // IDSlice or IDTable; 0 means any receiver.
	ParamName []string
}

// Methods indexes the built-in methods available on slice- and
// table-decorated values, consulted during field/method resolution
// before a struct's own field list or declared-method map.
var Methods = map[string]MethodSignature{
	"length":    {0, nil},
	"available": {0, nil},
	"low_bits":  {0, []string{"n"}},
	"high_bits": {0, []string{"n"}},
	"suffix":    {t.IDSlice, []string{"up_to"}},
	"copy_from_slice": {t.IDSlice, []string{"s"}},
}

// Interfaces indexes the built-in `implements` targets by the method
// names a conforming struct must declare, consulted by the interface-
// implementation checker before it reports an unknown interface name.
var Interfaces = map[string][]string{
	"hasher_u32": {"update_u32"},
	"hasher_u64": {"update_u64"},
	"io_reader":  {"read_u8"},
	"io_writer":  {"write_u8"},
}
