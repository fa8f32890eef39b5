// Package workers contains background workers for the deckhand agent.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// PrunerConfig configures the history pruner worker.
type PrunerConfig struct {
	// Interval is the time between prune cycles. Default: 1 hour.
	Interval time.Duration

	// Retention is how long finished deployments are kept. Default: 30 days.
	Retention time.Duration
}

// DefaultPrunerConfig returns the default configuration.
func DefaultPrunerConfig() PrunerConfig {
	return PrunerConfig{
		Interval:  time.Hour,
		Retention: 30 * 24 * time.Hour,
	}
}

// HistoryPruner periodically deletes deployment records older than the
// retention window so the history database stays bounded.
type HistoryPruner struct {
	store  store.Store
	config PrunerConfig
	logger *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHistoryPruner creates a new history pruner worker.
func NewHistoryPruner(s store.Store, config PrunerConfig, logger *slog.Logger) *HistoryPruner {
	def := DefaultPrunerConfig()
	if config.Interval == 0 {
		config.Interval = def.Interval
	}
	if config.Retention == 0 {
		config.Retention = def.Retention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HistoryPruner{
		store:  s,
		config: config,
		logger: logger.With("component", "history_pruner"),
	}
}

// Start begins the pruner background goroutine.
func (p *HistoryPruner) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go p.run()

	p.logger.Info("history pruner started",
		"interval", p.config.Interval,
		"retention", p.config.Retention,
	)
}

// Stop gracefully stops the pruner. It waits for an in-progress cycle to
// complete.
func (p *HistoryPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("history pruner stopped")
}

// run is the main loop that prunes periodically.
func (p *HistoryPruner) run() {
	defer p.wg.Done()

	// Run immediately on start
	p.runCycle()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runCycle()
		}
	}
}

// runCycle executes a single prune pass.
func (p *HistoryPruner) runCycle() {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.Interval)
	defer cancel()

	if err := p.PruneNow(ctx); err != nil {
		p.logger.Error("prune cycle failed", "error", err)
	}
}

// PruneNow deletes records beyond the retention window immediately.
func (p *HistoryPruner) PruneNow(ctx context.Context) error {
	cutoff := time.Now().Add(-p.config.Retention)

	removed, err := p.store.PruneDeployments(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		p.logger.Info("pruned deployment history", "removed", removed, "cutoff", cutoff.Format(time.RFC3339))
	} else {
		p.logger.Debug("no deployment history to prune")
	}
	return nil
}
