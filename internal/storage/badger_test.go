package storage

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary BadgerDB instance for testing.
// It returns the repository instance and a cleanup function.
func setupTestDB(t *testing.T) (*BadgerRepository, func()) {
	t.Helper()

	repo, err := NewBadgerRepository(t.TempDir(), testLogger())
	require.NoError(t, err, "Failed to create test BadgerDB repository")
	repo.now = stepClock(testBase)

	cleanup := func() {
		err := repo.Close()
		assert.NoError(t, err, "Failed to close test BadgerDB repository")
	}
	return repo, cleanup
}

func TestWorkerKeyOrdering(t *testing.T) {
	assert.Less(t, string(workerKey(9)), string(workerKey(10)))
	id, err := idFromKey(workerKey(12345))
	require.NoError(t, err)
	assert.Equal(t, 12345, id)
}

// TestBadgerRepository_AddAndList tests adding and retrieving workers.
func TestBadgerRepository_AddAndList(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// --- Empty database ---
	all, err := repo.ListAll(ctx)
	require.NoError(t, err, "An empty database is not a missing store")
	assert.Empty(t, all)

	// --- Add ---
	names := []string{"Ivanov", "Abramov", "Sidorov", "Petrov", "Orlov", "Zaitsev", "Kuznetsov", "Popov", "Volkov", "Lebedev", "Smirnov"}
	for i, name := range names {
		in := newWorker(name)
		in.ID = 500
		w, err := repo.Add(ctx, in)
		require.NoError(t, err, "Failed to add %s", name)
		assert.Equal(t, i+1, w.ID)
	}

	// Eleven records cross the single/double digit boundary, so key order is checked too.
	all, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(names))
	for i, w := range all {
		assert.Equal(t, i+1, w.ID)
		assert.Equal(t, names[i], w.FullName)
		assert.Equal(t, "Tver", w.BirthPlace)
		assert.True(t, w.AddedAt.Equal(testBase.Add(time.Duration(i)*time.Minute)))
	}

	// --- ListBetween ---
	between, err := repo.ListBetween(ctx, testBase.Add(2*time.Minute), testBase.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, storeIDs(between))

	// --- Invalid field ---
	_, err = repo.Add(ctx, newWorker("A#B"))
	assert.ErrorIs(t, err, ErrInvalidField)
}

// TestBadgerRepository_Delete tests deleting workers.
func TestBadgerRepository_Delete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		_, err := repo.Add(ctx, newWorker(name))
		require.NoError(t, err)
	}

	// --- Delete a present worker ---
	removed, err := repo.Delete(ctx, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, storeIDs(all))

	// --- Delete a non-existent worker ---
	removed, err = repo.Delete(ctx, 2)
	assert.NoError(t, err, "Deleting an already deleted worker should not return an error")
	assert.False(t, removed)

	removed, err = repo.Delete(ctx, 77)
	assert.NoError(t, err)
	assert.False(t, removed)

	// --- Next ID follows the highest remaining ---
	w, err := repo.Add(ctx, newWorker("D"))
	require.NoError(t, err)
	assert.Equal(t, 4, w.ID)
}

func TestBadgerRepository_AddFailsWhenIDsExhausted(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	last := newWorker("Last")
	last.ID = math.MaxInt
	val, err := json.Marshal(last)
	require.NoError(t, err)
	require.NoError(t, repo.db.Update(func(txn *badger.Txn) error {
		return txn.Set(workerKey(last.ID), val)
	}))

	_, err = repo.Add(context.Background(), newWorker("Next"))
	require.ErrorIs(t, err, ErrIDExhausted)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{math.MaxInt}, storeIDs(all))
}

func TestBadgerLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	l := &badgerLogger{logger}

	l.Infof("Replaying file id: %d\n", 3)
	l.Warningf("slow compaction\n")
	l.Errorf("disk %s\n", "full")

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.DebugLevel, entries[0].Level, "info chatter is demoted")
	assert.Equal(t, "Replaying file id: 3", entries[0].Message)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, logrus.ErrorLevel, entries[2].Level)
	assert.Equal(t, "disk full", entries[2].Message)
}
