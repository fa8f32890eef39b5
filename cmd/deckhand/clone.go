package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/deckhand-ci/deckhand/internal/shell/git"
)

// =============================================================================
// clone Command
// =============================================================================

func cloneCmd(args []string) int {
	fs := flag.NewFlagSet("clone", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	branch := fs.String("branch", "", "branch to check out (default: remote default)")
	depth := fs.Int("depth", 1, "history depth, 0 for a full clone")
	dir := fs.String("dir", "", "target directory (default: repository name)")
	token := fs.String("token", "", "access token for private repositories")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: deckhand clone [flags] <repository-url>")
		return ExitUsage
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(cfg)

	auth := *token
	if auth == "" {
		auth = cfg.Git.Token
	}

	ctx, cancel := commandContext()
	defer cancel()

	result, err := git.NewCloner(logger).Clone(ctx, git.CloneOptions{
		URL:      fs.Arg(0),
		Branch:   *branch,
		Depth:    *depth,
		Dir:      *dir,
		Token:    auth,
		Progress: os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "clone: %v\n", err)
		if errors.Is(err, git.ErrTargetExists) || errors.Is(err, git.ErrURLRequired) {
			return ExitConfigError
		}
		return ExitRuntimeError
	}

	fmt.Printf("cloned %s into %s (%s @ %s)\n", fs.Arg(0), result.Dir, result.Branch, result.ShortCommit())
	return ExitSuccess
}
