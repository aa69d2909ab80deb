package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	path, err := store.Save("students_export_2024-03-01.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "students_export_2024-03-01.csv"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(content))

	_, err = store.Save("students_export_2024-03-01.csv", []byte("c,d\n"))
	require.NoError(t, err)
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c,d\n", string(content))
}

func TestLocalStorageCreateRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	path, err := store.Create("sample_students_import.csv", []byte("first"))
	require.NoError(t, err)
	expected, err := store.Path("sample_students_import.csv")
	require.NoError(t, err)
	assert.Equal(t, expected, path)

	_, err = store.Create("sample_students_import.csv", []byte("second"))
	assert.ErrorIs(t, err, ErrExists)

	content, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	_, err = store.Path("..")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocalStorageKeepsNamesInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	path, err := store.Save("../../etc/roster.csv", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "roster.csv"), path)

	_, err = store.Save("..", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = store.Save("", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestReadFileLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	data, err := ReadFile(path, 10)
	require.NoError(t, err)
	assert.Len(t, data, 10)

	_, err = ReadFile(path, 9)
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(filepath.Dir(path), "missing.csv"), 0)
	assert.Error(t, err)
}
