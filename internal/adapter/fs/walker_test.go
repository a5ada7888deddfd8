package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("int x;\n"), 0644))
	}
}

func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestWalker_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"main.c",
		"src/app.cpp",
		"src/app.h",
		"src/readme.md",
		"build/gen.c",
		".git/hooks/x.c",
	)

	w := NewWalker([]string{"**/*.c", "**/*.cpp", "**/*.h"}, []string{"**/build/**", "**/.git/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
		assert.Positive(t, f.Size)
	}
	assert.Equal(t, []string{"main.c", "src/app.cpp", "src/app.h"}, relPaths(t, root, paths))
}

func TestWalker_DefaultIncludesEverything(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "b/c.c")

	files, err := NewWalker(nil, nil).Walk(root)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestWalker_SingleFileRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "one.txt")

	// Patterns do not apply when the root is a file.
	files, err := NewWalker([]string{"**/*.c"}, nil).Walk(filepath.Join(root, "one.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(root, "one.txt"), files[0].Path)
}

func TestWalker_MissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWalker_ReadFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "x.c")

	data, err := NewWalker(nil, nil).ReadFile(filepath.Join(root, "x.c"))
	require.NoError(t, err)
	assert.Equal(t, "int x;\n", string(data))
}

func TestWalker_Match(t *testing.T) {
	w := NewWalker([]string{"**/*.c"}, []string{"**/build/**"})

	assert.True(t, w.Match("main.c"))
	assert.True(t, w.Match("src/x.c"))
	assert.False(t, w.Match("src/x.md"))
	assert.False(t, w.Match("build/gen.c"))

	assert.True(t, w.SkipDir("build"))
	assert.False(t, w.SkipDir("src"))
	assert.False(t, w.SkipDir("."))
}
