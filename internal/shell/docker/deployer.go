package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
)

// diagnosticLogTail is how many log lines a failed container contributes to
// the outcome diagnostic.
const diagnosticLogTail = 20

// =============================================================================
// Deployer
// =============================================================================

// DeployerConfig tunes the startup confirmation loop.
type DeployerConfig struct {
	// PollInterval is the wait between status polls.
	PollInterval time.Duration

	// MaxAttempts is the poll budget before the deploy times out.
	MaxAttempts int
}

// DefaultDeployerConfig returns the standard poll cadence: 30 polls, 2
// seconds apart.
func DefaultDeployerConfig() DeployerConfig {
	return DeployerConfig{
		PollInterval: deploy.DefaultPollIntervalSeconds * time.Second,
		MaxAttempts:  deploy.DefaultMaxPollAttempts,
	}
}

// Deployer drives a deployment request through eviction, network setup,
// creation, and startup confirmation against one engine.
//
// Deploys are idempotent per container name: rerunning the same request
// replaces the previous container and reuses the network.
type Deployer struct {
	engine Engine
	cfg    DeployerConfig
	logger *slog.Logger
}

// NewDeployer creates a deployer. Zero config fields fall back to defaults.
func NewDeployer(engine Engine, cfg DeployerConfig, logger *slog.Logger) *Deployer {
	def := DefaultDeployerConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{engine: engine, cfg: cfg, logger: logger}
}

// Deploy runs one deployment to a terminal outcome.
//
// The error return is reserved for problems outside the deployment itself: an
// invalid request (*deploy.ValidationError, before any engine call) or a
// canceled context. Everything the engine reports, including a container that
// never starts, lands in the Outcome; callers that want to abort on a
// non-running outcome use Outcome.Err.
func (d *Deployer) Deploy(ctx context.Context, req deploy.Request) (deploy.Outcome, error) {
	start := time.Now()

	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return deploy.Outcome{}, err
	}

	deployID := uuid.NewString()
	logger := d.logger.With("container", req.Name, "image", req.Image, "deploy_id", deployID)
	logger.Info("starting deployment")

	// Phase 1: evict any container already holding the name. Best-effort:
	// a missing container is the normal first-deploy case, and a failed
	// stop still gets a forced remove.
	if req.ReplaceExisting {
		if err := d.engine.StopContainer(ctx, req.Name); err != nil {
			if errors.Is(err, ErrContainerNotFound) || errors.Is(err, ErrContainerNotRunning) {
				logger.Debug("no running container to stop")
			} else {
				logger.Warn("failed to stop existing container", "error", err)
			}
		}
		if err := d.engine.RemoveContainer(ctx, req.Name); err != nil {
			if errors.Is(err, ErrContainerNotFound) {
				logger.Debug("no existing container to remove")
			} else {
				logger.Warn("failed to remove existing container", "error", err)
			}
		}
	}

	// Phase 2: make sure the network exists. Existing networks are reused;
	// any other network error is logged and the deploy continues, where a
	// truly unusable network surfaces at creation.
	if req.Network != "" {
		if err := d.engine.CreateNetwork(ctx, req.Network); err != nil {
			if errors.Is(err, ErrNetworkAlreadyExists) {
				logger.Debug("network already exists", "network", req.Network)
			} else {
				logger.Warn("failed to create network", "network", req.Network, "error", err)
			}
		} else {
			logger.Info("created network", "network", req.Network)
		}
	}

	// Phase 3: create and start. Failure here is fatal for the deploy.
	fileEnv, err := d.readEnvFile(req.EnvFile, logger)
	if err != nil {
		logger.Error("env file unreadable", "path", req.EnvFile, "error", err)
		return d.finish(logger, start, deploy.Outcome{
			ContainerName: req.Name,
			Image:         req.Image,
			FinalState:    deploy.StateFailed,
			Reason:        deploy.ReasonCreationFailed,
			Diagnostic:    fmt.Sprintf("env file %s: %v", req.EnvFile, err),
		}), nil
	}

	plan := deploy.BuildPlan(req, fileEnv)
	plan.Labels[deploy.LabelDeployID] = deployID

	containerID, err := d.engine.CreateAndStartContainer(ctx, plan)
	if err != nil {
		if ctx.Err() != nil {
			return deploy.Outcome{}, ctx.Err()
		}
		logger.Error("container creation failed", "error", err)
		return d.finish(logger, start, deploy.Outcome{
			ContainerName: req.Name,
			Image:         req.Image,
			FinalState:    deploy.StateFailed,
			Reason:        deploy.ReasonCreationFailed,
			Diagnostic:    err.Error(),
		}), nil
	}
	logger.Info("container started", "id", containerID)

	// Phase 4: confirm startup. The first poll is immediate; waits happen
	// between polls.
	if !req.HealthCheck {
		logger.Info("startup confirmation disabled, reporting running")
		return d.finish(logger, start, deploy.Outcome{
			ContainerName: req.Name,
			Image:         req.Image,
			FinalState:    deploy.StateRunning,
		}), nil
	}
	return d.confirmStartup(ctx, req, logger, start)
}

// confirmStartup polls the container status until it is running, has exited,
// or the attempt budget runs out.
func (d *Deployer) confirmStartup(ctx context.Context, req deploy.Request, logger *slog.Logger, start time.Time) (deploy.Outcome, error) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++

		status, err := d.engine.InspectContainerStatus(ctx, req.Name)
		if err != nil {
			if ctx.Err() != nil {
				return deploy.Outcome{}, ctx.Err()
			}
			// A flaky inspect is not terminal; the attempt budget
			// bounds how long we keep trying.
			logger.Warn("status poll failed", "attempt", attempts, "error", err)
			status = StatusUnknown
		}

		switch deploy.EvaluateStatus(string(status)) {
		case deploy.PollSucceeded:
			logger.Info("container confirmed running", "attempts", attempts)
			return d.finish(logger, start, deploy.Outcome{
				ContainerName: req.Name,
				Image:         req.Image,
				FinalState:    deploy.StateRunning,
				Attempts:      attempts,
			}), nil

		case deploy.PollFailed:
			logger.Error("container exited during startup", "attempts", attempts)
			return d.finish(logger, start, deploy.Outcome{
				ContainerName: req.Name,
				Image:         req.Image,
				FinalState:    deploy.StateFailed,
				Reason:        deploy.ReasonContainerExited,
				Diagnostic:    d.exitDiagnostic(ctx, req.Name),
				Attempts:      attempts,
			}), nil
		}

		if attempts >= d.cfg.MaxAttempts {
			logger.Error("startup confirmation timed out", "attempts", attempts, "last_status", status)
			return d.finish(logger, start, deploy.Outcome{
				ContainerName: req.Name,
				Image:         req.Image,
				FinalState:    deploy.StateTimedOut,
				Reason:        deploy.ReasonHealthCheckTimedOut,
				Diagnostic:    fmt.Sprintf("status still %q after %d polls", status, attempts),
				Attempts:      attempts,
			}), nil
		}

		select {
		case <-ctx.Done():
			return deploy.Outcome{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// readEnvFile loads the request's env file. A missing file is skipped; an
// unreadable or unparseable one fails the deploy before creation. Keys are
// sorted so the container env is stable across runs.
func (d *Deployer) readEnvFile(path string, logger *slog.Logger) ([]deploy.EnvVar, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("env file absent, skipping", "path", path)
			return nil, nil
		}
		return nil, err
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fileEnv := make([]deploy.EnvVar, 0, len(keys))
	for _, k := range keys {
		fileEnv = append(fileEnv, deploy.EnvVar{Key: k, Value: vars[k]})
	}
	logger.Debug("loaded env file", "path", path, "vars", len(fileEnv))
	return fileEnv, nil
}

// exitDiagnostic collects the tail of a dead container's logs. Log retrieval
// is best-effort; the outcome is already failed.
func (d *Deployer) exitDiagnostic(ctx context.Context, name string) string {
	logs, err := d.engine.ContainerLogs(ctx, name, diagnosticLogTail)
	if err != nil {
		return "container exited; logs unavailable: " + err.Error()
	}
	logs = strings.TrimSpace(logs)
	if logs == "" {
		return "container exited with no output"
	}
	return "container exited; last output:\n" + logs
}

func (d *Deployer) finish(logger *slog.Logger, start time.Time, o deploy.Outcome) deploy.Outcome {
	o.Duration = time.Since(start)
	logger.Info("deployment finished",
		"state", string(o.FinalState),
		"attempts", o.Attempts,
		"duration", o.Duration.Round(time.Millisecond))
	return o
}
