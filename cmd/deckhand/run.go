package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deckhand-ci/deckhand/internal/core/compose"
	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/core/pipeline"
	"github.com/deckhand-ci/deckhand/internal/shell/docker"
	"github.com/deckhand-ci/deckhand/internal/shell/git"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// =============================================================================
// run Command
// =============================================================================

// LoadPipeline reads and defaults a deckhand.yaml pipeline file. Unknown
// keys are rejected so a misspelled step fails loudly instead of being
// silently skipped.
func LoadPipeline(path string) (pipeline.Pipeline, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Pipeline{}, fmt.Errorf("read pipeline file %s: %w", path, err)
	}

	var p pipeline.Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: Validate reports the missing steps.
			return p.WithDefaults(), nil
		}
		return pipeline.Pipeline{}, fmt.Errorf("parse pipeline file %s: %w", path, err)
	}
	return p.WithDefaults(), nil
}

func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	file := fs.String("f", "deckhand.yaml", "pipeline file")
	fs.Parse(args)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(cfg)

	p, err := LoadPipeline(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}
	if err := p.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline invalid: %v\n", err)
		return ExitConfigError
	}

	logger.Info("running pipeline", "file", *file, "steps", strings.Join(p.StepNames(), ","))

	vars := pipeline.MergeVars(pipeline.EnvironToVars(os.Environ()), p.Env)

	ctx, cancel := commandContext()
	defer cancel()

	if p.Clone != nil {
		result, err := git.NewCloner(logger).Clone(ctx, git.CloneOptions{
			URL:      pipeline.Expand(p.Clone.URL, vars),
			Branch:   pipeline.Expand(p.Clone.Branch, vars),
			Depth:    p.Clone.Depth,
			Dir:      pipeline.Expand(p.Clone.Dir, vars),
			Token:    cfg.Git.Token,
			Progress: os.Stderr,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "clone step: %v\n", err)
			if errors.Is(err, git.ErrTargetExists) || errors.Is(err, git.ErrURLRequired) {
				return ExitConfigError
			}
			return ExitRuntimeError
		}
		// Later steps can tag or name things off the checked-out commit.
		vars = pipeline.MergeVars(vars, map[string]string{
			"COMMIT":       result.Commit,
			"COMMIT_SHORT": result.ShortCommit(),
			"BRANCH":       result.Branch,
		})
	}

	var engine docker.Engine
	if p.Build != nil || p.Image != nil || p.Deploy != nil {
		engine, err = docker.NewEngine(cfg.Docker, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect to engine: %v\n", err)
			return ExitRuntimeError
		}
		defer engine.Close()
	}

	if p.Build != nil {
		runner := docker.NewStepRunner(engine, logger)
		if err := runner.RunBuild(ctx, *p.Build, p.Workspace, vars, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "build step: %v\n", err)
			var stepErr *docker.StepFailedError
			switch {
			case errors.As(err, &stepErr):
				return ExitStepFailed
			case errors.Is(err, pipeline.ErrUnknownFramework):
				return ExitConfigError
			}
			return ExitRuntimeError
		}
	}

	if p.Image != nil {
		if code := runImageStep(ctx, cfg, logger, engine, p.Image, vars); code != ExitSuccess {
			return code
		}
	}

	if p.Deploy != nil {
		req, err := p.DeployRequest(vars)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitConfigError
		}
		if err := req.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitConfigError
		}

		deployer := docker.NewDeployer(engine, docker.DefaultDeployerConfig(), logger)
		started := time.Now()
		outcome, err := deployer.Deploy(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "deploy step: %v\n", err)
			var verr *deploy.ValidationError
			if errors.As(err, &verr) {
				return ExitConfigError
			}
			return ExitRuntimeError
		}
		recordHistory(cfg, logger, outcome, store.SourcePipeline, started)
		if code := reportOutcome(outcome); code != ExitSuccess {
			return code
		}
	}

	if p.Compose != nil {
		content, err := os.ReadFile(p.Compose.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "compose step: read file: %v\n", err)
			return ExitConfigError
		}
		summary, err := compose.Parse(string(content))
		if err != nil {
			fmt.Fprintf(os.Stderr, "compose step: file invalid: %v\n", err)
			return ExitConfigError
		}
		logger.Info("compose file validated", "file", p.Compose.File, "services", strings.Join(summary.ServiceNames(), ","))
		if code := runComposeCommand(ctx, cfg, p.Compose.File, "up"); code != ExitSuccess {
			return code
		}
	}

	fmt.Println("pipeline complete")
	return ExitSuccess
}

// runImageStep builds the image step's tags and pushes them when asked.
func runImageStep(ctx context.Context, cfg *Config, logger *slog.Logger, engine docker.Engine, step *pipeline.ImageStep, vars map[string]string) int {
	spec := docker.BuildSpec{
		ContextDir: pipeline.Expand(step.Context, vars),
		Dockerfile: pipeline.Expand(step.Dockerfile, vars),
		Output:     os.Stdout,
	}
	for _, t := range step.Tags {
		spec.Tags = append(spec.Tags, pipeline.Expand(t, vars))
	}
	for _, raw := range step.BuildArgs {
		arg, err := deploy.ParseEnvVar(pipeline.Expand(raw, vars))
		if err != nil {
			fmt.Fprintf(os.Stderr, "image step: invalid build arg %q: %v\n", raw, err)
			return ExitConfigError
		}
		spec.BuildArgs = append(spec.BuildArgs, arg)
	}

	if err := engine.BuildImage(ctx, spec); err != nil {
		fmt.Fprintf(os.Stderr, "image step: %v\n", err)
		return ExitRuntimeError
	}

	if step.Push {
		auth := docker.RegistryAuth{
			Username:      cfg.Registry.Username,
			Password:      cfg.Registry.Password,
			ServerAddress: cfg.Registry.Server,
		}
		for _, tag := range spec.Tags {
			if err := engine.PushImage(ctx, tag, auth); err != nil {
				fmt.Fprintf(os.Stderr, "image step: push %s: %v\n", tag, err)
				return ExitRuntimeError
			}
			logger.Info("image pushed", "tag", tag)
		}
	}
	return ExitSuccess
}
