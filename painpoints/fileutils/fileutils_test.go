package fileutils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic_CreatesDirsAndOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "a", "b", "out.csv")

	require.NoError(t, WriteFileAtomic(p, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(p, []byte("second"), 0o644))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	// No temp files left behind.
	ents, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, ents, 1)
}

func TestWriteJSONFileAtomic_RoundTrip(t *testing.T) {
	t.Parallel()

	type rec struct {
		A int `json:"a"`
	}
	p := filepath.Join(t.TempDir(), "x.json")
	require.NoError(t, WriteJSONFileAtomic(p, rec{A: 7}, true))

	var got rec
	require.NoError(t, ReadJSONFile(p, &got))
	assert.Equal(t, 7, got.A)
	assert.True(t, FileExists(p))
	assert.False(t, FileExists(filepath.Dir(p)))
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		max  int
		want string
	}{
		{in: "hello", max: 10, want: "hello"},
		{in: "hello", max: 3, want: "hel"},
		{in: "héllo", max: 2, want: "hé"},
		{in: "日本語テキスト", max: 3, want: "日本語"},
		{in: "abc", max: 0, want: "abc"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TruncateRunes(tc.in, tc.max), "in=%q max=%d", tc.in, tc.max)
	}
}

func TestTrimExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "posts_chunk_0001", TrimExt("/x/y/posts_chunk_0001.csv", ".csv"))
	assert.Equal(t, "posts.CSV", TrimExt("posts.CSV", ".csv"))
}

func TestExtractModelJSON(t *testing.T) {
	t.Parallel()

	b, err := ExtractModelJSON("here you go:\n```json\n{\"a\": 2}\n```")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(b))

	_, err = ExtractModelJSON("   ")
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = ExtractModelJSON(`{"a": 1`)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = ExtractModelJSON("no json at all")
	assert.Error(t, err)
}

func TestLockDir_SecondLockFails(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "results")
	unlock, err := LockDir(dir)
	require.NoError(t, err)

	_, err = LockDir(dir)
	var locked *ErrDirLocked
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, dir, locked.Dir)

	require.NoError(t, unlock())

	unlock2, err := LockDir(dir)
	require.NoError(t, err)
	require.NoError(t, unlock2())
}
