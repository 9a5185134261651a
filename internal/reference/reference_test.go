package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuipass/internal/gesture"
)

func sampleBuffer() gesture.Buffer {
	return gesture.Buffer{
		{Kind: gesture.Move, Pos: gesture.Point{X: 0, Y: 0}, Time: 0},
		{Kind: gesture.Click, Pos: gesture.Point{X: 1, Y: 0.123456789}, Time: 0.25},
		{Kind: gesture.Move, Pos: gesture.Point{X: 0, Y: 0.5}, Time: 0.5},
	}
}

func TestLoadMissingFile(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "reference.json"))
	buf, ok, err := f.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, buf)
}

func TestSaveLoad(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nested", "reference.json"))
	want := sampleBuffer()
	require.NoError(t, f.Save(want))

	got, ok, err := f.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestSaveOverwrites(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "reference.json"))
	require.NoError(t, f.Save(sampleBuffer()))
	single := gesture.Buffer{{Kind: gesture.Click, Pos: gesture.Point{}, Time: 0.75}}
	require.NoError(t, f.Save(single))

	got, _, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, single, got)
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"not array":      `{"type":"move"}`,
		"unknown kind":   `[{"type":"scroll","pos":[0,0],"time":0}]`,
		"short pos":      `[{"type":"move","pos":[0],"time":0}]`,
		"missing time":   `[{"type":"move","pos":[0,0]}]`,
		"time too large": `[{"type":"move","pos":[0,0],"time":2}]`,
		"extra field":    `[{"type":"move","pos":[0,0],"time":0,"x":1}]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reference.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, ok, err := NewFile(path).Load()
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLoadReadFailure(t *testing.T) {
	dir := t.TempDir()
	_, _, err := NewFile(dir).Load()
	require.Error(t, err)
	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestRemove(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "reference.json"))
	require.NoError(t, f.Remove())
	require.NoError(t, f.Save(sampleBuffer()))
	require.NoError(t, f.Remove())
	_, ok, err := f.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeEmptyArray(t *testing.T) {
	buf, err := Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, buf)
}
