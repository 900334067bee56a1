package changelog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corwinb/skyedge/internal/domain"
)

func TestOpen_CreatesEmptyFileWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "changelog.json")
	s, err := Open(path)
	require.NoError(t, err)

	entries, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppend_AssignsIDWhenMissing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "changelog.json"))
	require.NoError(t, err)

	entry := domain.ChangelogEntry{
		DateUTC:     time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
		Type:        domain.ChangeChanged,
		Category:    domain.CategoryConfiguration,
		Title:       "raise edge_min",
		Description: "bumped trading.edge_min from 0.05 to 0.08",
	}
	require.NoError(t, s.Append(entry))

	entries, err := s.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "raise edge_min", entries[0].Title)
}

func TestAppend_PreservesExplicitID(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "changelog.json"))
	require.NoError(t, err)

	require.NoError(t, s.Append(domain.ChangelogEntry{ID: "fixed-id", Title: "first"}))
	require.NoError(t, s.Append(domain.ChangelogEntry{Title: "second"}))

	entries, err := s.All()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "fixed-id", entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestAppend_OrdersOldestFirst(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "changelog.json"))
	require.NoError(t, err)

	require.NoError(t, s.Append(domain.ChangelogEntry{Title: "first"}))
	require.NoError(t, s.Append(domain.ChangelogEntry{Title: "second"}))
	require.NoError(t, s.Append(domain.ChangelogEntry{Title: "third"}))

	entries, err := s.All()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Title)
	assert.Equal(t, "third", entries[2].Title)
}
