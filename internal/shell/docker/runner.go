package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/core/pipeline"
)

// =============================================================================
// Step Runner
// =============================================================================

// StepFailedError reports a build command that ran to completion and returned
// a non-zero exit code. Engine failures are ordinary errors, not this type.
type StepFailedError struct {
	Phase    string
	Argv     []string
	ExitCode int
}

func (e *StepFailedError) Error() string {
	return fmt.Sprintf("%s command %q exited with code %d",
		e.Phase, strings.Join(e.Argv, " "), e.ExitCode)
}

// StepRunner executes a build step's planned commands in tool containers with
// the workspace mounted.
type StepRunner struct {
	engine Engine
	logger *slog.Logger
}

func NewStepRunner(engine Engine, logger *slog.Logger) *StepRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepRunner{
		engine: engine,
		logger: logger.With("component", "steps"),
	}
}

// RunBuild plans the step's commands and runs them in order, stopping at the
// first failure. A command that exits non-zero returns *StepFailedError; any
// other error means the engine could not run a command at all.
func (r *StepRunner) RunBuild(ctx context.Context, step pipeline.BuildStep, workspace string, vars map[string]string, output io.Writer) error {
	image, err := step.ToolImage()
	if err != nil {
		return err
	}
	cmds, err := step.PlanCommands(vars)
	if err != nil {
		return err
	}

	env := make([]deploy.EnvVar, 0, len(step.Env))
	for _, raw := range step.Env {
		ev, err := deploy.ParseEnvVar(pipeline.Expand(raw, vars))
		if err != nil {
			return fmt.Errorf("build env: %w", err)
		}
		env = append(env, ev)
	}

	r.logger.Info("starting build",
		"image", image,
		"workspace", workspace,
		"commands", len(cmds),
	)

	for _, cmd := range cmds {
		r.logger.Info("running command", "phase", cmd.Phase, "argv", strings.Join(cmd.Argv, " "))

		code, err := r.engine.RunStep(ctx, StepSpec{
			Image:   image,
			Argv:    cmd.Argv,
			HostDir: workspace,
			Env:     env,
			Output:  output,
		})
		if err != nil {
			return fmt.Errorf("run %s command: %w", cmd.Phase, err)
		}
		if code != 0 {
			return &StepFailedError{Phase: cmd.Phase, Argv: cmd.Argv, ExitCode: code}
		}
	}

	r.logger.Info("build complete", "image", image)
	return nil
}
