package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/common"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := NewRun(constants.RunQuote, "email.txt", "regex", true, 2, map[string]any{"total": 816.6})
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, constants.RunQuote, got.Kind)
	assert.Equal(t, "email.txt", got.Source)
	assert.Equal(t, "regex", got.Method)
	assert.True(t, got.Success)
	assert.Equal(t, 2, got.WarningCount)
	assert.JSONEq(t, `{"total":816.6}`, string(got.Payload))
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Microsecond)
}

func TestSQLiteStoreNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestSQLiteStoreListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	kinds := []constants.RunKind{constants.RunStatement, constants.RunSurvey, constants.RunStatement}
	ids := make([]uuid.UUID, len(kinds))
	for i, k := range kinds {
		r, err := NewRun(k, "f", "regex", true, 0, struct{}{})
		require.NoError(t, err)
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		ids[i] = r.ID
		require.NoError(t, s.SaveRun(ctx, r))
	}

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	statements, err := s.ListRuns(ctx, constants.RunStatement, 10)
	require.NoError(t, err)
	require.Len(t, statements, 2)
	assert.Equal(t, []uuid.UUID{ids[2], ids[0]}, []uuid.UUID{statements[0].ID, statements[1].ID})

	one, err := s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	run, err := NewRun(constants.RunSurvey, "survey.pdf", "regex", false, 1, []string{"x"})
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(context.Background(), run))
	s.Close()

	s2, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.False(t, got.Success)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, maxListLimit, clampLimit(10_000))
	assert.Equal(t, 7, clampLimit(7))
}
