package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func recordTestDeployment(t *testing.T, store Store, name string, finished time.Time) *DeploymentRecord {
	t.Helper()
	rec := NewRecord(deploy.Outcome{
		ContainerName: name,
		Image:         "nginx:1.27",
		FinalState:    deploy.StateRunning,
		Attempts:      1,
		Duration:      2 * time.Second,
	}, SourceCLI, finished.Add(-2*time.Second))

	err := store.RecordDeployment(context.Background(), rec)
	require.NoError(t, err)
	return rec
}

// =============================================================================
// Record and Get
// =============================================================================

func TestRecordDeployment_Success(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rec := NewRecord(deploy.Outcome{
		ContainerName: "web",
		Image:         "nginx:1.27",
		FinalState:    deploy.StateFailed,
		Reason:        deploy.ReasonContainerExited,
		Diagnostic:    "container exited with no output",
		Attempts:      4,
		Duration:      8 * time.Second,
	}, SourceAgent, started)

	err := store.RecordDeployment(ctx, rec)
	require.NoError(t, err)

	retrieved, err := store.GetDeployment(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, retrieved.ID)
	assert.Equal(t, "web", retrieved.ContainerName)
	assert.Equal(t, "nginx:1.27", retrieved.Image)
	assert.Equal(t, "failed", retrieved.FinalState)
	assert.Equal(t, "container_exited", retrieved.Reason)
	assert.Equal(t, "container exited with no output", retrieved.Diagnostic)
	assert.Equal(t, 4, retrieved.Attempts)
	assert.Equal(t, SourceAgent, retrieved.Source)
	assert.True(t, retrieved.StartedAt.Equal(started))
	assert.True(t, retrieved.FinishedAt.Equal(started.Add(8*time.Second)))
}

func TestRecordDeployment_DuplicateID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := recordTestDeployment(t, store, "web", time.Now())

	err := store.RecordDeployment(ctx, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestGetDeployment_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetDeployment(context.Background(), "nonexistent-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Listing
// =============================================================================

func TestListDeployments_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	oldest := recordTestDeployment(t, store, "a", base)
	middle := recordTestDeployment(t, store, "b", base.Add(time.Minute))
	newest := recordTestDeployment(t, store, "c", base.Add(2*time.Minute))

	records, err := store.ListDeployments(ctx, DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, newest.ID, records[0].ID)
	assert.Equal(t, middle.ID, records[1].ID)
	assert.Equal(t, oldest.ID, records[2].ID)
}

func TestListDeployments_Pagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		recordTestDeployment(t, store, fmt.Sprintf("svc-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	page, err := store.ListDeployments(ctx, ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "svc-2", page[0].ContainerName)
	assert.Equal(t, "svc-1", page[1].ContainerName)
}

func TestListDeploymentsByName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	recordTestDeployment(t, store, "web", base)
	recordTestDeployment(t, store, "web", base.Add(time.Minute))
	recordTestDeployment(t, store, "worker", base)

	records, err := store.ListDeploymentsByName(ctx, "web", DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "web", rec.ContainerName)
	}
}

func TestListDeployments_EmptyStore(t *testing.T) {
	store := setupTestStore(t)

	records, err := store.ListDeployments(context.Background(), DefaultListOptions())
	require.NoError(t, err)
	assert.Empty(t, records)
}

// =============================================================================
// Pruning
// =============================================================================

func TestPruneDeployments_RemovesOldRecords(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recordTestDeployment(t, store, "old-1", base)
	recordTestDeployment(t, store, "old-2", base.Add(time.Hour))
	kept := recordTestDeployment(t, store, "fresh", base.Add(48*time.Hour))

	removed, err := store.PruneDeployments(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	records, err := store.ListDeployments(ctx, DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, kept.ID, records[0].ID)
}

func TestPruneDeployments_NothingToRemove(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	recordTestDeployment(t, store, "web", time.Now().UTC())

	removed, err := store.PruneDeployments(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

// =============================================================================
// Options
// =============================================================================

func TestListOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{"zero value gets defaults", ListOptions{}, ListOptions{Limit: 100, Offset: 0}},
		{"negative offset clamped", ListOptions{Limit: 10, Offset: -5}, ListOptions{Limit: 10, Offset: 0}},
		{"oversized limit capped", ListOptions{Limit: 9999}, ListOptions{Limit: 1000}},
		{"valid options unchanged", ListOptions{Limit: 25, Offset: 50}, ListOptions{Limit: 25, Offset: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}
