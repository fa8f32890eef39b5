package workers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func recordFinishedAt(t *testing.T, s store.Store, name string, finished time.Time) {
	t.Helper()
	rec := store.NewRecord(deploy.Outcome{
		ContainerName: name,
		Image:         "nginx:1.27",
		FinalState:    deploy.StateRunning,
		Attempts:      1,
	}, store.SourceAgent, finished)
	require.NoError(t, s.RecordDeployment(context.Background(), rec))
}

// =============================================================================
// Test Configuration
// =============================================================================

func TestDefaultPrunerConfig(t *testing.T) {
	config := DefaultPrunerConfig()

	assert.Equal(t, time.Hour, config.Interval)
	assert.Equal(t, 30*24*time.Hour, config.Retention)
}

func TestNewHistoryPruner_DefaultConfig(t *testing.T) {
	p := NewHistoryPruner(setupTestStore(t), PrunerConfig{}, nil)

	assert.NotNil(t, p)
	assert.Equal(t, time.Hour, p.config.Interval)
	assert.Equal(t, 30*24*time.Hour, p.config.Retention)
}

// =============================================================================
// Test Lifecycle
// =============================================================================

func TestHistoryPruner_StartStop(t *testing.T) {
	p := NewHistoryPruner(setupTestStore(t), PrunerConfig{
		Interval: 100 * time.Millisecond,
	}, testLogger())

	// Start should not block
	p.Start()

	// Give it a moment to run
	time.Sleep(50 * time.Millisecond)

	// Stop should not block
	p.Stop()

	// Should be able to start again
	p.Start()
	p.Stop()
}

func TestHistoryPruner_StopWithoutStart(t *testing.T) {
	p := NewHistoryPruner(setupTestStore(t), PrunerConfig{}, nil)

	// Stop without start should not panic
	p.Stop()
}

// =============================================================================
// Test Pruning
// =============================================================================

func TestHistoryPruner_PruneNow(t *testing.T) {
	s := setupTestStore(t)
	now := time.Now().UTC()

	recordFinishedAt(t, s, "ancient", now.Add(-72*time.Hour))
	recordFinishedAt(t, s, "recent", now.Add(-time.Hour))

	p := NewHistoryPruner(s, PrunerConfig{Retention: 24 * time.Hour}, testLogger())
	require.NoError(t, p.PruneNow(context.Background()))

	records, err := s.ListDeployments(context.Background(), store.DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "recent", records[0].ContainerName)
}

func TestHistoryPruner_StartPrunesImmediately(t *testing.T) {
	s := setupTestStore(t)
	recordFinishedAt(t, s, "ancient", time.Now().UTC().Add(-72*time.Hour))

	p := NewHistoryPruner(s, PrunerConfig{
		Interval:  time.Hour,
		Retention: 24 * time.Hour,
	}, testLogger())

	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		records, err := s.ListDeployments(context.Background(), store.DefaultListOptions())
		return err == nil && len(records) == 0
	}, time.Second, 10*time.Millisecond, "the first cycle runs at start, not after the first interval")
}
