package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	lib, err := Open(filepath.Join(dir, "notes.db"), filepath.Join(dir, "docs"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLibrary_ImportAndList(t *testing.T) {
	lib := openTemp(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	lib.now = func() time.Time { return fixed }

	doc, err := lib.Import(ctx, writeFile(t, "Biology Notes.txt", "cells"))
	require.NoError(t, err)
	assert.Equal(t, "Biology Notes.txt", doc.Name)
	assert.Equal(t, filepath.Join(lib.DocsDir(), "Biology Notes.txt"), doc.Path)
	assert.FileExists(t, doc.Path)

	_, err = lib.Import(ctx, writeFile(t, "history.pdf", "%PDF"))
	require.NoError(t, err)

	docs, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.Equal(t, "history.pdf", docs[1].Name)
	assert.True(t, fixed.Equal(docs[0].UploadedAt), docs[0].UploadedAt)

	paths, err := lib.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{docs[0].Path, docs[1].Path}, paths)
}

func TestLibrary_ImportFromDocsDir(t *testing.T) {
	lib := openTemp(t)
	in := filepath.Join(lib.DocsDir(), "inplace.txt")
	require.NoError(t, os.WriteFile(in, []byte("keep me"), 0o644))

	_, err := lib.Import(context.Background(), in)
	require.NoError(t, err)
	data, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestLibrary_Search(t *testing.T) {
	lib := openTemp(t)
	ctx := context.Background()
	for _, n := range []string{"Physics.txt", "chemistry.pdf", "PHYSICS-lab.pdf"} {
		_, err := lib.Add(ctx, n, "/nowhere/"+n)
		require.NoError(t, err)
	}

	docs, err := lib.Search(ctx, "physics")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Physics.txt", docs[0].Name)
	assert.Equal(t, "PHYSICS-lab.pdf", docs[1].Name)

	all, err := lib.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLibrary_DeleteAndClear(t *testing.T) {
	lib := openTemp(t)
	ctx := context.Background()

	a, err := lib.Import(ctx, writeFile(t, "a.txt", "aaaa"))
	require.NoError(t, err)
	b, err := lib.Import(ctx, writeFile(t, "b.txt", "bb"))
	require.NoError(t, err)
	_, err = lib.Add(ctx, "ghost.txt", filepath.Join(lib.DocsDir(), "ghost.txt"))
	require.NoError(t, err)

	st, err := lib.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Documents: 3, TotalBytes: 6}, st)
	assert.Equal(t, "0.00 MB", st.SizeMB())

	require.NoError(t, lib.Delete(ctx, a.ID))
	assert.NoFileExists(t, a.Path)
	assert.ErrorIs(t, lib.Delete(ctx, a.ID), ErrNotFound)

	require.NoError(t, lib.Clear(ctx))
	assert.NoFileExists(t, b.Path)
	docs, err := lib.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStats_SizeMB(t *testing.T) {
	assert.Equal(t, "1.50 MB", Stats{TotalBytes: 3 * 512 * 1024}.SizeMB())
}
