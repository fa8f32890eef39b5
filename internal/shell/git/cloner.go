// Package git clones source repositories into build workspaces.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/deckhand-ci/deckhand/internal/core/pipeline"
)

var (
	// ErrURLRequired means the clone options carried no repository URL.
	ErrURLRequired = errors.New("clone URL is required")

	// ErrTargetExists means the target directory already holds a repository.
	ErrTargetExists = errors.New("target directory already contains a repository")
)

// CloneOptions describes one clone.
type CloneOptions struct {
	// URL is the repository to clone. Required.
	URL string

	// Branch checks out a specific branch; empty means the remote default.
	Branch string

	// Depth limits history. Zero means a full clone.
	Depth int

	// Dir is the target directory. Empty derives the repository name from
	// the URL.
	Dir string

	// Token authenticates HTTPS clones of private repositories. Empty
	// means an anonymous clone.
	Token string

	// Progress receives transfer progress; may be nil.
	Progress io.Writer
}

// CloneResult reports where the clone landed and what it checked out.
type CloneResult struct {
	Dir    string
	Branch string
	Commit string
}

// ShortCommit returns the abbreviated commit hash used for image tags.
func (r CloneResult) ShortCommit() string {
	if len(r.Commit) < 7 {
		return r.Commit
	}
	return r.Commit[:7]
}

// Cloner clones repositories.
type Cloner struct {
	logger *slog.Logger
}

func NewCloner(logger *slog.Logger) *Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloner{logger: logger}
}

// Clone clones opts.URL into opts.Dir and reports the checked-out commit.
func (c *Cloner) Clone(ctx context.Context, opts CloneOptions) (*CloneResult, error) {
	if opts.URL == "" {
		return nil, ErrURLRequired
	}
	dir := opts.Dir
	if dir == "" {
		dir = pipeline.RepositoryName(opts.URL)
	}

	cloneOpts := &gogit.CloneOptions{
		URL:      opts.URL,
		Depth:    opts.Depth,
		Progress: opts.Progress,
	}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		cloneOpts.SingleBranch = true
	}
	if opts.Token != "" {
		// Git-over-HTTPS token auth; the username only has to be non-empty.
		cloneOpts.Auth = &githttp.BasicAuth{Username: "git", Password: opts.Token}
	}

	c.logger.Info("cloning repository", "url", opts.URL, "dir", dir, "branch", opts.Branch)

	repo, err := gogit.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryAlreadyExists) {
			return nil, fmt.Errorf("clone %s into %s: %w", opts.URL, dir, ErrTargetExists)
		}
		return nil, fmt.Errorf("clone %s: %w", opts.URL, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD of %s: %w", opts.URL, err)
	}

	result := &CloneResult{
		Dir:    dir,
		Branch: head.Name().Short(),
		Commit: head.Hash().String(),
	}
	c.logger.Info("clone complete", "dir", dir, "commit", result.ShortCommit())
	return result, nil
}
