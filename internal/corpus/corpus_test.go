package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestFSCorpus_ListEligibleDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "draft.md", "# Draft")
	writeFile(t, root, "notes/outline.markdown", "outline")
	writeFile(t, root, "notes/scratch.txt", "scratch")
	writeFile(t, root, "notes/image.png", "binary")
	writeFile(t, root, ".inkdex/vector.json", "{}")
	writeFile(t, root, ".obsidian/workspace.json", "{}")
	writeFile(t, root, "archive/old.md", "old")

	c, err := NewFSCorpus(root, []string{"archive"})
	require.NoError(t, err)

	paths, err := c.ListEligibleDocuments()
	require.NoError(t, err)
	assert.Equal(t, []string{"draft.md", "notes/outline.markdown", "notes/scratch.txt"}, paths)
}

func TestFSCorpus_Eligibility(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "text")
	writeFile(t, root, "b.pdf", "binary")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.md"), 0o755))

	c, err := NewFSCorpus(root, nil)
	require.NoError(t, err)

	assert.True(t, c.IsEligible("a.md"))
	assert.False(t, c.IsEligible("b.pdf"), "wrong extension")
	assert.False(t, c.IsEligible("missing.md"), "file does not exist")
	assert.False(t, c.IsEligible("dir.md"), "directories are never documents")
}

func TestFSCorpus_Exclusion(t *testing.T) {
	root := t.TempDir()
	c, err := NewFSCorpus(root, []string{"*.tmp.md", "trash", "private/*"})
	require.NoError(t, err)

	assert.True(t, c.IsExcluded(".inkdex/lexical.json"), "dot directories")
	assert.True(t, c.IsExcluded("notes/.hidden.md"), "dot files")
	assert.True(t, c.IsExcluded("notes/draft.tmp.md"), "pattern against base name")
	assert.True(t, c.IsExcluded("trash/gone.md"), "pattern against segment")
	assert.True(t, c.IsExcluded("private/diary.md"), "pattern against full path")
	assert.False(t, c.IsExcluded("notes/draft.md"))
}

func TestFSCorpus_ReadDocumentAndPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "nested/deep/story.md", "once upon a time")

	c, err := NewFSCorpus(root, nil)
	require.NoError(t, err)

	text, err := c.ReadDocument("nested/deep/story.md")
	require.NoError(t, err)
	assert.Equal(t, "once upon a time", text)

	_, err = c.ReadDocument("absent.md")
	assert.Error(t, err)

	assert.Equal(t, "nested/deep/story.md", c.Rel(c.Abs("nested/deep/story.md")))
}

func TestNewFSCorpus_Validation(t *testing.T) {
	_, err := NewFSCorpus(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)

	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = NewFSCorpus(file, nil)
	assert.Error(t, err, "root must be a directory")
}
