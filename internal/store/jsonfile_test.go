package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string
	Count int
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := Save(dir, "sample.json", sample{Name: "a", Count: 3}, now)
	require.NoError(t, err)

	got, savedAt, ok, err := Load[sample](dir, "sample.json")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sample{Name: "a", Count: 3}, got)
	require.True(t, now.Equal(savedAt))
}

func TestLoadMissingFileReturnsNotOK(t *testing.T) {
	dir := t.TempDir()
	_, _, ok, err := Load[sample](dir, "missing.json")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, "sample.json", sample{Name: "first"}, time.Now()))
	require.NoError(t, Save(dir, "sample.json", sample{Name: "second"}, time.Now()))

	got, _, ok, err := Load[sample](dir, "sample.json")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", got.Name)
}
