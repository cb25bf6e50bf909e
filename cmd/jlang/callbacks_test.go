package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"jsonnetcore/internal/diagnostics"
)

func TestFileCallbacksImportStrResolvesThroughJpath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.txt"), []byte("hello"), 0o644))

	cb := newFileCallbacks([]string{dir})
	got, err := cb.ImportStr("greeting.txt", 0)
	require.NoError(t, err)
	require.Equal(t, "hello", got)
}

func TestFileCallbacksImportStrCachesReads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "once.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	cb := newFileCallbacks([]string{dir})
	first, err := cb.ImportStr("once.txt", 0)
	require.NoError(t, err)
	require.Equal(t, "v1", first)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	second, err := cb.ImportStr("once.txt", 0)
	require.NoError(t, err)
	require.Equal(t, "v1", second, "resolve should serve the cached read, not re-read the file")
}

func TestFileCallbacksImportBinReadsBytes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bin"), []byte{1, 2, 3}, 0o644))

	cb := newFileCallbacks([]string{dir})
	got, err := cb.ImportBin("data.bin", 0)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)
}

func TestFileCallbacksImportStrMissingFails(t *testing.T) {
	cb := newFileCallbacks([]string{t.TempDir()})
	_, err := cb.ImportStr("nope.txt", 0)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok)
	require.Equal(t, diagnostics.KindBadImport, evalErr.Kind)
}

func TestFileCallbacksImportIsUnsupported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jsonnet"), []byte("1"), 0o644))

	cb := newFileCallbacks([]string{dir})
	_, err := cb.Import("a.jsonnet", 0)
	require.Error(t, err)
	evalErr, ok := err.(*diagnostics.EvalError)
	require.True(t, ok)
	require.Equal(t, diagnostics.KindBadImport, evalErr.Kind)
}

func TestFileCallbacksResolveAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.txt")
	require.NoError(t, os.WriteFile(path, []byte("absolute"), 0o644))

	cb := newFileCallbacks(nil)
	got, err := cb.ImportStr(path, 0)
	require.NoError(t, err)
	require.Equal(t, "absolute", got)
}
