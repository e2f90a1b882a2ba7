package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	t "github.com/wuffscheck/wuffscheck/internal/token"
)

func TestStatusMapCoversEveryListedStatus(t1 *testing.T) {
	for _, s := range StatusList {
		got, ok := StatusMap[s.Message]
		assert.True(t1, ok, "StatusMap missing entry for %q", s.Message)
		assert.Equal(t1, s, got)
	}
}

func TestStatusStringPrefix(t1 *testing.T) {
	assert.Equal(t1, "status ok", Status{0, "ok"}.String())
	assert.Equal(t1, "error bad version", Status{t.IDError, "bad version"}.String())
	assert.Equal(t1, "suspension short read", Status{t.IDSuspension, "short read"}.String())
}

func TestTrimQuotes(t1 *testing.T) {
	assert.Equal(t1, "ok", TrimQuotes(`"ok"`))
	assert.Equal(t1, "", TrimQuotes(`""`))
	assert.Equal(t1, "bad", TrimQuotes("bad"), "a string without both surrounding quotes is returned unchanged")
	assert.Equal(t1, `"`, TrimQuotes(`"`))
}

func TestMethodsKnowsSliceAndTableShared(t1 *testing.T) {
	length, ok := Methods["length"]
	assert.True(t1, ok)
	assert.Equal(t1, t.ID(0), length.Receiver, "length is available on more than just slices")

	suffix, ok := Methods["suffix"]
	assert.True(t1, ok)
	assert.Equal(t1, t.IDSlice, suffix.Receiver)
	assert.Equal(t1, []string{"up_to"}, suffix.ParamName)
}

func TestInterfacesListsRequiredMethods(t1 *testing.T) {
	methods, ok := Interfaces["hasher_u32"]
	assert.True(t1, ok)
	assert.Equal(t1, []string{"update_u32"}, methods)

	_, ok = Interfaces["not_a_real_interface"]
	assert.False(t1, ok)
}
