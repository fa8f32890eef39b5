// Package main provides the deckhand binary: CI/CD pipeline steps as
// subcommands that clone, build, package, and deploy container workloads.
//
// Usage:
//
//	deckhand <command> [flags]
//
// Commands:
//
//	clone        - Clone a repository into a workspace directory
//	build        - Run a framework build preset inside a tool container
//	image        - Build and optionally push a Docker image
//	deploy       - Deploy a container and confirm it reaches running
//	compose      - Validate a compose file and run docker compose
//	run          - Execute the steps of a deckhand.yaml pipeline
//	deployments  - List recorded deployment history
//	version      - Show version information
package main

import (
	"fmt"
	"io"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes. Deployment outcomes map onto distinct codes so CI scripts can
// branch on the failure kind without parsing output.
const (
	ExitSuccess      = 0
	ExitConfigError  = 1 // bad flags, config file, or request validation
	ExitUsage        = 2
	ExitRuntimeError = 3 // an engine, git, or store call itself failed
	ExitCreateFailed = 4 // deploy: container creation failed
	ExitExited       = 5 // deploy: container exited during confirmation
	ExitTimedOut     = 6 // deploy: confirmation attempts exhausted
	ExitStepFailed   = 7 // build/compose/run: a step command returned non-zero
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "clone":
		return cloneCmd(rest)
	case "build":
		return buildCmd(rest)
	case "image":
		return imageCmd(rest)
	case "deploy":
		return deployCmd(rest)
	case "compose":
		return composeCmd(rest)
	case "run":
		return runCmd(rest)
	case "deployments":
		return deploymentsCmd(rest)
	case "version":
		fmt.Printf("deckhand %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	case "help", "-h", "--help":
		usage(os.Stdout)
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		return ExitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `deckhand - CI/CD pipeline steps for container workloads

Usage:

  deckhand <command> [flags]

Commands:

  clone        Clone a repository into a workspace directory
  build        Run a framework build preset inside a tool container
  image        Build and optionally push a Docker image
  deploy       Deploy a container and confirm it reaches running
  compose      Validate a compose file and run docker compose
  run          Execute the steps of a deckhand.yaml pipeline
  deployments  List recorded deployment history
  version      Show version information

Run "deckhand <command> -h" for command flags.
`)
}
