package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
)

// =============================================================================
// CLI Engine
// =============================================================================

// CLIEngine implements Engine by shelling out to the docker binary. It covers
// hosts where the API socket is not reachable but the CLI is on PATH.
type CLIEngine struct {
	bin    string
	host   string
	logger *slog.Logger
}

// NewCLIEngine creates an engine backed by the docker CLI. If host is set it
// is passed to every invocation with -H.
func NewCLIEngine(host string, logger *slog.Logger) (*CLIEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bin, err := exec.LookPath("docker")
	if err != nil {
		return nil, newEngineError("NewCLIEngine", "", "", "docker binary not found on PATH", ErrEngineUnusable)
	}
	return &CLIEngine{bin: bin, host: host, logger: logger}, nil
}

func (e *CLIEngine) command(ctx context.Context, args ...string) *exec.Cmd {
	if e.host != "" {
		args = append([]string{"-H", e.host}, args...)
	}
	return exec.CommandContext(ctx, e.bin, args...)
}

// run executes a docker command and returns its trimmed combined output.
func (e *CLIEngine) run(ctx context.Context, args ...string) (string, error) {
	cmd := e.command(ctx, args...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	e.logger.Debug("docker cli", "args", args, "error", err)
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return output, err
	}
	return output, nil
}

// =============================================================================
// Container Operations
// =============================================================================

// CreateAndStartContainer runs the planned container detached. Returns the
// container ID the CLI prints.
func (e *CLIEngine) CreateAndStartContainer(ctx context.Context, plan deploy.ContainerPlan) (string, error) {
	out, err := e.run(ctx, deploy.RunArgs(plan)...)
	if err != nil {
		switch {
		case strings.Contains(out, "is already in use"):
			return "", newEngineError("CreateContainer", "container", plan.Name, "name already in use", ErrContainerConflict)
		case strings.Contains(out, "port is already allocated"):
			return "", newEngineError("StartContainer", "container", plan.Name, out, ErrPortAllocated)
		default:
			return "", newEngineError("CreateContainer", "container", plan.Name, out, err)
		}
	}
	// docker run -d prints the full container ID as the last line; pull
	// progress may precede it.
	lines := strings.Split(out, "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// StopContainer stops the named container.
func (e *CLIEngine) StopContainer(ctx context.Context, name string) error {
	out, err := e.run(ctx, "stop", name)
	if err != nil {
		if isNoSuchContainer(out) {
			return newEngineError("StopContainer", "container", name, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(out, "is not running") {
			return newEngineError("StopContainer", "container", name, "container is not running", ErrContainerNotRunning)
		}
		return newEngineError("StopContainer", "container", name, out, err)
	}
	return nil
}

// RemoveContainer force-removes the named container.
func (e *CLIEngine) RemoveContainer(ctx context.Context, name string) error {
	out, err := e.run(ctx, "rm", "-f", name)
	if err != nil {
		if isNoSuchContainer(out) {
			return newEngineError("RemoveContainer", "container", name, "container not found", ErrContainerNotFound)
		}
		return newEngineError("RemoveContainer", "container", name, out, err)
	}
	return nil
}

// InspectContainerStatus returns the container's reported state.
func (e *CLIEngine) InspectContainerStatus(ctx context.Context, name string) (ContainerStatus, error) {
	out, err := e.run(ctx, "inspect", "--format", "{{.State.Status}}", name)
	if err != nil {
		if isNoSuchContainer(out) || strings.Contains(out, "No such object") {
			return StatusUnknown, newEngineError("InspectContainer", "container", name, "container not found", ErrContainerNotFound)
		}
		return StatusUnknown, newEngineError("InspectContainer", "container", name, out, err)
	}
	if out == "" {
		return StatusUnknown, nil
	}
	return ContainerStatus(out), nil
}

// ContainerLogs returns the last tail lines of the container's output.
func (e *CLIEngine) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	out, err := e.run(ctx, "logs", "--tail", strconv.Itoa(tail), name)
	if err != nil {
		if isNoSuchContainer(out) {
			return "", newEngineError("ContainerLogs", "container", name, "container not found", ErrContainerNotFound)
		}
		return "", newEngineError("ContainerLogs", "container", name, out, err)
	}
	return out, nil
}

// CreateNetwork creates a bridge network.
func (e *CLIEngine) CreateNetwork(ctx context.Context, name string) error {
	out, err := e.run(ctx, "network", "create",
		"--driver", "bridge",
		"--label", deploy.LabelManaged+"=true",
		name)
	if err != nil {
		if strings.Contains(out, "already exists") {
			return newEngineError("CreateNetwork", "network", name, "network already exists", ErrNetworkAlreadyExists)
		}
		return newEngineError("CreateNetwork", "network", name, out, err)
	}
	return nil
}

// =============================================================================
// Step Execution
// =============================================================================

// RunStep runs the command in a throwaway container and returns its exit
// code. Exit code 125 means docker itself failed and surfaces as an error.
func (e *CLIEngine) RunStep(ctx context.Context, spec StepSpec) (int, error) {
	workDir := spec.WorkDir
	if workDir == "" {
		workDir = DefaultStepWorkDir
	}
	args := []string{"run", "--rm", "-w", workDir}
	if spec.HostDir != "" {
		args = append(args, "-v", spec.HostDir+":"+workDir)
	}
	for _, ev := range spec.Env {
		args = append(args, "-e", ev.String())
	}
	args = append(args, spec.Image)
	args = append(args, spec.Argv...)

	cmd := e.command(ctx, args...)
	out := spec.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code == 125 {
			return -1, newEngineError("RunStep", "container", "", "docker run failed", ErrEngineUnusable)
		}
		return code, nil
	}
	return -1, newEngineError("RunStep", "container", "", err.Error(), err)
}

// =============================================================================
// Image Operations
// =============================================================================

// BuildImage builds an image from spec.ContextDir.
func (e *CLIEngine) BuildImage(ctx context.Context, spec BuildSpec) error {
	if len(spec.Tags) == 0 {
		return newEngineError("BuildImage", "image", "", "at least one tag is required", ErrImageBuild)
	}
	args := []string{"build"}
	if spec.Dockerfile != "" {
		args = append(args, "-f", spec.Dockerfile)
	}
	for _, tag := range spec.Tags {
		args = append(args, "-t", tag)
	}
	for _, arg := range spec.BuildArgs {
		args = append(args, "--build-arg", arg.String())
	}
	args = append(args, spec.ContextDir)

	cmd := e.command(ctx, args...)
	out := spec.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return newEngineError("BuildImage", "image", spec.Tags[0], err.Error(), ErrImageBuild)
	}
	return nil
}

// PushImage pushes one image reference, logging in first when credentials
// are given.
func (e *CLIEngine) PushImage(ctx context.Context, ref string, auth RegistryAuth) error {
	if auth.Username != "" {
		loginArgs := []string{"login", "-u", auth.Username, "--password-stdin"}
		if auth.ServerAddress != "" {
			loginArgs = append(loginArgs, auth.ServerAddress)
		}
		cmd := e.command(ctx, loginArgs...)
		cmd.Stdin = bytes.NewReader([]byte(auth.Password))
		if out, err := cmd.CombinedOutput(); err != nil {
			return newEngineError("PushImage", "image", ref,
				fmt.Sprintf("registry login failed: %s", strings.TrimSpace(string(out))), ErrImagePush)
		}
	}
	if out, err := e.run(ctx, "push", ref); err != nil {
		return newEngineError("PushImage", "image", ref, out, ErrImagePush)
	}
	return nil
}

// PullImage pulls one image reference.
func (e *CLIEngine) PullImage(ctx context.Context, ref string) error {
	out, err := e.run(ctx, "pull", ref)
	if err != nil {
		if strings.Contains(out, "not found") || strings.Contains(out, "manifest unknown") {
			return newEngineError("PullImage", "image", ref, "image not found in registry", ErrImageNotFound)
		}
		return newEngineError("PullImage", "image", ref, out, ErrImagePull)
	}
	return nil
}

// ImageExists reports whether the image is present locally.
func (e *CLIEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	out, err := e.run(ctx, "image", "inspect", "--format", "{{.Id}}", ref)
	if err != nil {
		if strings.Contains(out, "No such image") {
			return false, nil
		}
		return false, newEngineError("ImageExists", "image", ref, out, err)
	}
	return true, nil
}

// Ping verifies the daemon answers through the CLI.
func (e *CLIEngine) Ping(ctx context.Context) error {
	if out, err := e.run(ctx, "version", "--format", "{{.Server.Version}}"); err != nil {
		return newEngineError("Ping", "", "", out, ErrEngineUnusable)
	}
	return nil
}

// Close is a no-op; the CLI holds no connection.
func (e *CLIEngine) Close() error { return nil }

func isNoSuchContainer(out string) bool {
	return strings.Contains(out, "No such container")
}
