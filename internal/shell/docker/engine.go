// Package docker provides container engine access for deploys, build steps,
// and image operations. The Engine interface has three implementations: the
// Docker SDK against a local daemon, the SDK tunneled to a remote daemon
// over SSH, and the docker CLI for hosts where only the binary is available.
package docker

import (
	"context"
	"io"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
)

// =============================================================================
// Container Status
// =============================================================================

// ContainerStatus is the engine-reported container state.
type ContainerStatus string

const (
	StatusCreated    ContainerStatus = "created"
	StatusRunning    ContainerStatus = "running"
	StatusPaused     ContainerStatus = "paused"
	StatusRestarting ContainerStatus = "restarting"
	StatusRemoving   ContainerStatus = "removing"
	StatusExited     ContainerStatus = "exited"
	StatusDead       ContainerStatus = "dead"
	StatusUnknown    ContainerStatus = "unknown"
)

// =============================================================================
// Step and Image Specs
// =============================================================================

// DefaultStepWorkDir is where the workspace is mounted inside tool containers.
const DefaultStepWorkDir = "/workspace"

// StepSpec runs one build command inside a tool container with the host
// workspace mounted read-write.
type StepSpec struct {
	// Image is the tool image the command runs in.
	Image string

	// Argv is the command and its arguments.
	Argv []string

	// HostDir is the absolute workspace path on the host.
	HostDir string

	// WorkDir is the mount point and working directory inside the
	// container. Defaults to /workspace.
	WorkDir string

	Env []deploy.EnvVar

	// Output receives the interleaved command output line stream. May be
	// nil to discard.
	Output io.Writer
}

// BuildSpec builds an image from a context directory.
type BuildSpec struct {
	ContextDir string
	Dockerfile string // relative to ContextDir, default "Dockerfile"
	Tags       []string
	BuildArgs  []deploy.EnvVar
	Output     io.Writer // build progress; may be nil
}

// RegistryAuth carries registry credentials for pushes. A zero value means
// whatever ambient credentials the engine has (docker login, credential
// helpers).
type RegistryAuth struct {
	Username      string
	Password      string
	ServerAddress string
}

// =============================================================================
// Engine Interface
// =============================================================================

// Engine is the container runtime boundary. Result kinds surface as sentinel
// errors: eviction helpers return ErrContainerNotFound when there is nothing
// to evict and CreateNetwork returns ErrNetworkAlreadyExists when the network
// is already there, so callers can treat both as success with errors.Is.
type Engine interface {
	// CreateAndStartContainer creates the container described by the plan
	// and starts it. Returns the container ID.
	CreateAndStartContainer(ctx context.Context, plan deploy.ContainerPlan) (string, error)

	// StopContainer stops the named container.
	StopContainer(ctx context.Context, name string) error

	// RemoveContainer force-removes the named container.
	RemoveContainer(ctx context.Context, name string) error

	// InspectContainerStatus returns the container's current status.
	InspectContainerStatus(ctx context.Context, name string) (ContainerStatus, error)

	// ContainerLogs returns the last tail lines of the container's output.
	ContainerLogs(ctx context.Context, name string, tail int) (string, error)

	// CreateNetwork creates a bridge network with the given name.
	CreateNetwork(ctx context.Context, name string) error

	// RunStep runs one build command to completion and returns its exit
	// code. A non-zero exit code is not an error; errors mean the engine
	// could not run the command at all.
	RunStep(ctx context.Context, spec StepSpec) (int, error)

	// BuildImage builds an image and applies every requested tag.
	BuildImage(ctx context.Context, spec BuildSpec) error

	// PushImage pushes one image reference.
	PushImage(ctx context.Context, ref string, auth RegistryAuth) error

	// PullImage pulls one image reference.
	PullImage(ctx context.Context, ref string) error

	// ImageExists reports whether the image is present locally.
	ImageExists(ctx context.Context, ref string) (bool, error)

	// Ping verifies the engine is reachable.
	Ping(ctx context.Context) error

	// Close releases the engine connection.
	Close() error
}
