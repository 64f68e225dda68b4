package repofetcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_ReplacesInvalidCharacters(t *testing.T) {
	assert.Equal(t, "a_b_c_d", Sanitize(`a<b>c:d`))
	assert.Equal(t, "_", Sanitize("/"))
}

func TestSanitize_TruncatesTo100(t *testing.T) {
	name := strings.Repeat("a", 150)
	out := Sanitize(name)
	assert.Len(t, out, 100)
}

func TestListCodeFiles_AllowDenyLists(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	mustWrite("src/Main.cs")
	mustWrite("src/util.py")
	mustWrite("README.md")
	mustWrite("node_modules/pkg/index.js")
	mustWrite("bin/out.cs")

	f := New(dir)
	files, err := f.ListCodeFiles(dir)
	require.NoError(t, err)

	assert.Contains(t, files, "src/Main.cs")
	assert.Contains(t, files, "src/util.py")
	assert.NotContains(t, files, "README.md")
	for _, file := range files {
		assert.False(t, strings.Contains(file, "node_modules"))
		assert.False(t, strings.HasPrefix(file, "bin/"))
	}
}

func TestRead_ReturnsVerbatimContents(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.cs")
	require.NoError(t, os.WriteFile(p, []byte("class A {}"), 0o644))

	f := New(dir)
	content, err := f.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "class A {}", content)
}

func TestRead_MissingFileIsFetchError(t *testing.T) {
	f := New(t.TempDir())
	_, err := f.Read("/nonexistent/path.cs")
	require.Error(t, err)
}
