package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/deckhand-ci/deckhand/internal/core/compose"
)

// =============================================================================
// compose Command
// =============================================================================

func composeCmd(args []string) int {
	fs := flag.NewFlagSet("compose", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	file := fs.String("f", "docker-compose.yml", "compose file")
	fs.Parse(args)

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}
	if action != "up" && action != "down" {
		fmt.Fprintf(os.Stderr, "unknown compose action %q (want up or down)\n", action)
		return ExitUsage
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(cfg)

	content, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read compose file: %v\n", err)
		return ExitConfigError
	}
	summary, err := compose.Parse(string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "compose file invalid: %v\n", err)
		return ExitConfigError
	}
	logger.Info("compose file validated", "file", *file, "services", strings.Join(summary.ServiceNames(), ","))

	ctx, cancel := commandContext()
	defer cancel()

	if code := runComposeCommand(ctx, cfg, *file, action); code != ExitSuccess {
		return code
	}

	fmt.Printf("docker compose %s complete\n", action)
	return ExitSuccess
}

// runComposeCommand shells out to the compose CLI. Multi-container stacks
// stay compose's job; deckhand only validates the file first.
func runComposeCommand(ctx context.Context, cfg *Config, file, action string) int {
	argv := []string{"compose", "-f", file}
	switch action {
	case "up":
		argv = append(argv, "up", "-d", "--remove-orphans")
	case "down":
		argv = append(argv, "down")
	}

	cmd := exec.CommandContext(ctx, "docker", argv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if cfg.Docker.Host != "" {
		cmd.Env = append(cmd.Env, "DOCKER_HOST="+cfg.Docker.Host)
	}

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "docker compose %s: %v\n", action, err)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return ExitStepFailed
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}
