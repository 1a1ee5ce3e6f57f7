package adapter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

func TestSQLiteHistoryStore_RecordAndList(t *testing.T) {
	dir := m.Path(filepath.Join(t.TempDir(), ".pkgabidiff"))

	store, err := OpenHistoryStore(dir)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	assert.Equal(t, filepath.Join(string(dir), HistoryFileName), store.Path())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := sampleSummary()
	first.ID = "first"
	first.StartedAt = base
	first.Duration = 1500 * time.Millisecond
	first.ReportDir = "compat_report/x86_64/libfoo/1.0/1.1"
	first.Score.Problems = 7
	first.Score.Removed = 2

	second := sampleSummary()
	second.ID = "second"
	second.StartedAt = base.Add(time.Hour)
	second.Mode = m.CompareMode{Source: true}
	second.Meta = m.Meta{SourceBC: numberPtr("100")}
	second.Score.SrcProblems = 1

	require.NoError(t, store.Record(t.Context(), first))
	require.NoError(t, store.Record(t.Context(), second))
	require.Error(t, store.Record(t.Context(), first), "duplicate run id")

	entries, err := store.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "second", entries[0].ID)
	assert.Empty(t, entries[0].BC)
	assert.Equal(t, "100", entries[0].SourceBC)
	assert.Equal(t, 1, entries[0].Problems)

	got := entries[1]
	assert.Equal(t, "first", got.ID)
	assert.True(t, base.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, "libfoo", got.Name)
	assert.Equal(t, "1.0", got.OldVersion)
	assert.Equal(t, "1.1", got.NewVersion)
	assert.Equal(t, "x86_64", got.Arch)
	assert.Equal(t, first.ReportDir, got.ReportDir)
	assert.Equal(t, "86.67", got.BC)
	assert.Equal(t, "0", got.BCEffective)
	assert.Equal(t, 7, got.Problems)
	assert.Equal(t, 2, got.Removed)

	limited, err := store.List(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "second", limited[0].ID)
}

func TestSQLiteHistoryStore_Reopen(t *testing.T) {
	dir := m.Path(t.TempDir())

	store, err := OpenHistoryStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Record(t.Context(), sampleSummary()))
	require.NoError(t, store.Close())

	reopened, err := OpenHistoryStore(dir)
	require.NoError(t, err)

	t.Cleanup(func() { _ = reopened.Close() })

	entries, err := reopened.List(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
