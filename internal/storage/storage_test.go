package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstyle/internal/profile"
	"learnstyle/internal/votes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(tempDir, FileName))
	assert.NoError(t, err, "database file was not created")
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir"))
	assert.Error(t, err)
}

func TestStore_CloseTwice(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	assert.NoError(t, (&Store{}).Close())
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	p, _ := profile.Lookup("auditory")

	e, err := store.Append(Entry{Source: "sample:auditory", Features: p.Vector, Label: p.Label, RawPrediction: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.True(t, e.Succeeded())

	got, err := store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Vector, got.Features)
	assert.Equal(t, p.Label, got.Label)
	assert.True(t, got.Timestamp.Equal(e.Timestamp))
}

func TestRecentNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.Append(Entry{Timestamp: base.Add(time.Duration(i) * time.Minute), Label: profile.LabelVisual, Source: string(rune('a' + i))})
		require.NoError(t, err)
	}

	recent, err := store.Recent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"e", "d", "c"}, []string{recent[0].Source, recent[1].Source, recent[2].Source})

	all, err := store.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRangeInclusive(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		_, err := store.Append(Entry{Timestamp: base.Add(time.Duration(i) * time.Hour), Error: "HTTP error! status: 500"})
		require.NoError(t, err)
	}

	got, err := store.Range(base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.Equal(base.Add(time.Hour)))
	assert.True(t, got[2].Timestamp.Equal(base.Add(3*time.Hour)))
	assert.False(t, got[0].Succeeded())
}

func TestAttachVotes(t *testing.T) {
	store := newTestStore(t)
	e, err := store.Append(Entry{Label: profile.LabelKinesthetic})
	require.NoError(t, err)

	h := votes.Aggregate(votes.VoteSet{profile.LabelKinesthetic, profile.LabelVisual, profile.LabelKinesthetic})
	require.NoError(t, store.AttachVotes(e.ID, h, ""))

	got, err := store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, h, got.Votes)

	err = store.AttachVotes("nope", h, "")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
