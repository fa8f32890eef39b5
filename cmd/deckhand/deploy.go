package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/shell/docker"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// =============================================================================
// deploy Command
// =============================================================================

func deployCmd(args []string) int {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	image := fs.String("image", "", "image reference to run (required)")
	name := fs.String("name", "", "container name (required)")
	envFile := fs.String("env-file", "", "dotenv file to attach when it exists")
	network := fs.String("network", "", "network to create if absent and attach to")
	restart := fs.String("restart", deploy.DefaultRestartPolicy, "container restart policy")
	noHealthCheck := fs.Bool("no-health-check", false, "skip the startup confirmation poll")
	noReplace := fs.Bool("no-replace", false, "fail instead of evicting a same-named container")

	var ports, volumes, envs stringList
	fs.Var(&ports, "p", "port mapping host:container[/protocol] (repeatable)")
	fs.Var(&volumes, "v", "volume mapping source:target[:ro] (repeatable)")
	fs.Var(&envs, "e", "environment variable KEY=VALUE (repeatable)")
	fs.Parse(args)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(cfg)

	req := deploy.NewRequest(*image, *name)
	req.EnvFile = *envFile
	req.Network = *network
	req.RestartPolicy = *restart
	req.HealthCheck = !*noHealthCheck
	req.ReplaceExisting = !*noReplace

	for _, raw := range ports {
		p, err := deploy.ParsePortMapping(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -p %q: %v\n", raw, err)
			return ExitConfigError
		}
		req.Ports = append(req.Ports, p)
	}
	for _, raw := range volumes {
		v, err := deploy.ParseVolumeMapping(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -v %q: %v\n", raw, err)
			return ExitConfigError
		}
		req.Volumes = append(req.Volumes, v)
	}
	for _, raw := range envs {
		e, err := deploy.ParseEnvVar(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -e %q: %v\n", raw, err)
			return ExitConfigError
		}
		req.Env = append(req.Env, e)
	}

	if err := req.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}

	engine, err := docker.NewEngine(cfg.Docker, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to engine: %v\n", err)
		return ExitRuntimeError
	}
	defer engine.Close()

	ctx, cancel := commandContext()
	defer cancel()

	deployer := docker.NewDeployer(engine, docker.DefaultDeployerConfig(), logger)

	started := time.Now()
	outcome, err := deployer.Deploy(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deploy: %v\n", err)
		var verr *deploy.ValidationError
		if errors.As(err, &verr) {
			return ExitConfigError
		}
		return ExitRuntimeError
	}

	recordHistory(cfg, logger, outcome, store.SourceCLI, started)
	return reportOutcome(outcome)
}
