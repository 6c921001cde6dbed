package main

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/save"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct{ Text string }

func TestInspect_Report(t *testing.T) {
	fields := []field.Descriptor{field.String("text", func(n *note) *string { return &n.Text })}
	w := save.NewBuffer(save.Header{Session: uuid.New(), Level: "start", Time: 2.5}, save.Env{})
	require.NoError(t, w.BeginSection("GLOBAL"))
	require.NoError(t, w.WriteFields("note", &note{Text: "hi"}, fields))
	w.EndSection()
	data, err := save.Encode(w)
	require.NoError(t, err)

	rep, err := inspect("mem", data)
	require.NoError(t, err)
	assert.Equal(t, "start", rep.Level)
	assert.Empty(t, rep.Rows)
	require.Len(t, rep.Sections, 1)
	assert.Equal(t, "GLOBAL", rep.Sections[0].Name)
	require.Len(t, rep.Sections[0].Blocks, 1)
	assert.Equal(t, []fieldReport{{Name: "text", Kind: "string", Count: 1, Size: 4}}, rep.Sections[0].Blocks[0].Fields)

	var out bytes.Buffer
	printReport(&out, rep)
	assert.Contains(t, out.String(), "section GLOBAL")
	assert.Contains(t, out.String(), "level     start")
}

func TestInspect_Garbage(t *testing.T) {
	_, err := inspect("mem", []byte("nope"))
	assert.Error(t, err)
}

func TestFlagNames(t *testing.T) {
	assert.Equal(t, []string{"global", "player"}, flagNames(save.RowGlobal|save.RowPlayer))
	assert.Nil(t, flagNames(0))
}
