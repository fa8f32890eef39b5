package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store persists deployment history. Writes are best-effort at the call
// sites: a failed history write never fails a deploy.
type Store interface {
	RecordDeployment(ctx context.Context, rec *DeploymentRecord) error
	GetDeployment(ctx context.Context, id string) (*DeploymentRecord, error)
	ListDeployments(ctx context.Context, opts ListOptions) ([]DeploymentRecord, error)
	ListDeploymentsByName(ctx context.Context, name string, opts ListOptions) ([]DeploymentRecord, error)

	// PruneDeployments deletes records finished before the cutoff and
	// returns how many were removed.
	PruneDeployments(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// =============================================================================
// Records
// =============================================================================

// Deployment sources recorded with each row.
const (
	SourceCLI      = "cli"
	SourceAgent    = "agent"
	SourcePipeline = "pipeline"
)

// DeploymentRecord is one finished deployment.
type DeploymentRecord struct {
	ID            string    `db:"id"`
	ContainerName string    `db:"container_name"`
	Image         string    `db:"image"`
	FinalState    string    `db:"final_state"`
	Reason        string    `db:"reason"`
	Diagnostic    string    `db:"diagnostic"`
	Attempts      int       `db:"attempts"`
	Source        string    `db:"source"`
	StartedAt     time.Time `db:"-"`
	FinishedAt    time.Time `db:"-"`
}

// NewRecord builds a record from a deploy outcome. started is when the deploy
// began; the finish time is derived from the outcome duration.
func NewRecord(outcome deploy.Outcome, source string, started time.Time) *DeploymentRecord {
	return &DeploymentRecord{
		ID:            uuid.NewString(),
		ContainerName: outcome.ContainerName,
		Image:         outcome.Image,
		FinalState:    string(outcome.FinalState),
		Reason:        string(outcome.Reason),
		Diagnostic:    outcome.Diagnostic,
		Attempts:      outcome.Attempts,
		Source:        source,
		StartedAt:     started.UTC(),
		FinishedAt:    started.Add(outcome.Duration).UTC(),
	}
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 100, Offset: 0}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
