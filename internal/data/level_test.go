package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLevel = `
name: c1a0
title: Anomalous Materials
entities:
  - classname: func_door
    keyvalues:
      targetname: door1
      origin: [10, 20, 30]
      speed: 100
  - classname: info_landmark
    keyvalues:
      targetname: lm_c1a0_c1a1
`

func TestLoadLevel_KeepsKeyOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c1a0.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLevel), 0o644))

	lv, err := LoadLevel(path)
	require.NoError(t, err)
	assert.Equal(t, "c1a0", lv.Name)
	require.Len(t, lv.Entities, 2)

	door := lv.Entities[0]
	assert.Equal(t, "func_door", door.Classname)
	assert.Equal(t, KeyValues{
		{Key: "targetname", Value: "door1"},
		{Key: "origin", Value: "10 20 30"},
		{Key: "speed", Value: "100"},
	}, door.KeyValues)
	_, ok := door.KeyValues.Get("missing")
	assert.False(t, ok)
}

func TestKeyValues_GetLastWins(t *testing.T) {
	kv := KeyValues{{Key: "target", Value: "a"}, {Key: "wait", Value: "1"}, {Key: "target", Value: "b"}}
	v, ok := kv.Get("target")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestLoadLevel_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"no classname", "entities:\n  - keyvalues: {a: b}\n"},
		{"keyvalues not a mapping", "entities:\n  - classname: x\n    keyvalues: [1, 2]\n"},
		{"nested value", "entities:\n  - classname: x\n    keyvalues:\n      a: {b: c}\n"},
		{"bad yaml", "entities: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadLevel(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadLevel(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadLevels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c1a0.yaml"), []byte(sampleLevel), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c1a1.yml"), []byte("entities: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("skip"), 0o644))

	set, err := LoadLevels(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Count())
	assert.Equal(t, []string{"c1a0", "c1a1"}, set.Names())

	lv, ok := set.Get("C1A1")
	require.True(t, ok)
	assert.Equal(t, "c1a1", lv.Name, "unnamed level takes the file name")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.yaml"), []byte("name: c1a0\n"), 0o644))
	_, err = LoadLevels(dir)
	assert.Error(t, err)
}
