package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/deckhand-ci/deckhand/internal/core/pipeline"
	"github.com/deckhand-ci/deckhand/internal/shell/docker"
)

// =============================================================================
// build Command
// =============================================================================

func buildCmd(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	framework := fs.String("framework", "", "framework preset: "+frameworkList())
	toolImage := fs.String("image", "", "tool image override for the preset")
	workspace := fs.String("workspace", ".", "host directory mounted into build containers")
	skipLint := fs.Bool("skip-lint", false, "skip the lint phase")
	skipTests := fs.Bool("skip-tests", false, "skip the test phase")

	var envs, commands stringList
	fs.Var(&envs, "e", "build environment variable KEY=VALUE (repeatable)")
	fs.Var(&commands, "cmd", "custom command replacing the preset (repeatable)")
	fs.Parse(args)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(cfg)

	step := pipeline.BuildStep{
		Framework: *framework,
		Image:     *toolImage,
		SkipLint:  *skipLint,
		SkipTests: *skipTests,
		Env:       envs,
		Commands:  commands,
	}

	engine, err := docker.NewEngine(cfg.Docker, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to engine: %v\n", err)
		return ExitRuntimeError
	}
	defer engine.Close()

	ctx, cancel := commandContext()
	defer cancel()

	runner := docker.NewStepRunner(engine, logger)
	vars := pipeline.EnvironToVars(os.Environ())

	if err := runner.RunBuild(ctx, step, *workspace, vars, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		var stepErr *docker.StepFailedError
		switch {
		case errors.As(err, &stepErr):
			return ExitStepFailed
		case errors.Is(err, pipeline.ErrUnknownFramework):
			return ExitConfigError
		}
		return ExitRuntimeError
	}

	fmt.Println("build succeeded")
	return ExitSuccess
}

func frameworkList() string {
	return strings.Join(pipeline.Frameworks(), ", ")
}
