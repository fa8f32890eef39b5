package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/shell/docker"
)

// =============================================================================
// image Command
// =============================================================================

func imageCmd(args []string) int {
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	dockerfile := fs.String("f", "", "dockerfile path relative to the context")
	push := fs.Bool("push", false, "push the tags after a successful build")

	var tags, buildArgs stringList
	fs.Var(&tags, "t", "image tag (repeatable, at least one required)")
	fs.Var(&buildArgs, "build-arg", "build argument KEY=VALUE (repeatable)")
	fs.Parse(args)

	if len(tags) == 0 {
		fmt.Fprintln(os.Stderr, "at least one -t tag is required")
		return ExitConfigError
	}

	contextDir := "."
	if fs.NArg() > 0 {
		contextDir = fs.Arg(0)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(cfg)

	spec := docker.BuildSpec{
		ContextDir: contextDir,
		Dockerfile: *dockerfile,
		Tags:       tags,
		Output:     os.Stdout,
	}
	for _, raw := range buildArgs {
		arg, err := deploy.ParseEnvVar(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -build-arg %q: %v\n", raw, err)
			return ExitConfigError
		}
		spec.BuildArgs = append(spec.BuildArgs, arg)
	}

	engine, err := docker.NewEngine(cfg.Docker, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to engine: %v\n", err)
		return ExitRuntimeError
	}
	defer engine.Close()

	ctx, cancel := commandContext()
	defer cancel()

	if err := engine.BuildImage(ctx, spec); err != nil {
		fmt.Fprintf(os.Stderr, "build image: %v\n", err)
		return ExitRuntimeError
	}

	if *push {
		auth := docker.RegistryAuth{
			Username:      cfg.Registry.Username,
			Password:      cfg.Registry.Password,
			ServerAddress: cfg.Registry.Server,
		}
		for _, tag := range tags {
			if err := engine.PushImage(ctx, tag, auth); err != nil {
				fmt.Fprintf(os.Stderr, "push %s: %v\n", tag, err)
				return ExitRuntimeError
			}
			logger.Info("image pushed", "tag", tag)
		}
	}

	fmt.Printf("built %s\n", strings.Join(tags, ", "))
	return ExitSuccess
}
