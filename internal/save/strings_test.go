package save

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringTable_Dedup(t *testing.T) {
	st := NewStringTable()
	assert.Equal(t, uint32(0), st.Intern(""))

	a := st.Intern("func_door")
	b := st.Intern("trigger_once")
	assert.Equal(t, a, st.Intern("func_door"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, 3, st.Len())

	s, ok := st.Lookup(b)
	require.True(t, ok)
	assert.Equal(t, "trigger_once", s)

	_, ok = st.Lookup(99)
	assert.False(t, ok)

	id, ok := st.ID("func_door")
	assert.True(t, ok)
	assert.Equal(t, a, id)
	_, ok = st.ID("never")
	assert.False(t, ok)
}

func TestStringTable_EncodeDecode(t *testing.T) {
	st := NewStringTable()
	for _, s := range []string{"alpha", "beta", "gamma", "beta"} {
		st.Intern(s)
	}
	var e encoder
	st.encode(&e)

	d := decoder{data: e.buf}
	got := decodeStringTable(&d)
	require.NoError(t, d.err)
	assert.Equal(t, st.Strings(), got.Strings())
	id, ok := got.ID("gamma")
	require.True(t, ok)
	assert.Equal(t, uint32(3), id)
}
