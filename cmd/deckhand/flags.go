package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// =============================================================================
// Shared Command Plumbing
// =============================================================================

// stringList collects repeatable flag values in order.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// commandContext is cancelled on SIGINT/SIGTERM so engine calls unwind
// instead of leaving half-finished work behind.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// historyWriteTimeout bounds the best-effort history write after a deploy.
const historyWriteTimeout = 5 * time.Second

// recordHistory writes the outcome to the history store when a DSN is
// configured. History is best-effort: failures are logged, never fatal.
func recordHistory(cfg *Config, logger *slog.Logger, outcome deploy.Outcome, source string, started time.Time) {
	if cfg.History.DSN == "" {
		return
	}

	st, err := store.NewSQLiteStore(cfg.History.DSN)
	if err != nil {
		logger.Warn("history store unavailable", "dsn", cfg.History.DSN, "error", err)
		return
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := st.RecordDeployment(ctx, store.NewRecord(outcome, source, started)); err != nil {
		logger.Warn("history write failed", "container", outcome.ContainerName, "error", err)
	}
}

// reportOutcome prints the deployment result and maps the final state onto
// the exit code contract: 0 running, 4 creation failed, 5 exited, 6 timed
// out.
func reportOutcome(outcome deploy.Outcome) int {
	if err := outcome.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch outcome.Reason {
		case deploy.ReasonCreationFailed:
			return ExitCreateFailed
		case deploy.ReasonContainerExited:
			return ExitExited
		case deploy.ReasonHealthCheckTimedOut:
			return ExitTimedOut
		}
		return ExitRuntimeError
	}

	fmt.Printf("deployed %s (%s): running after %d attempts in %s\n",
		outcome.ContainerName, outcome.Image, outcome.Attempts,
		outcome.Duration.Round(time.Millisecond))
	return ExitSuccess
}
