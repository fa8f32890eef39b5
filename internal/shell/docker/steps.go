package docker

import (
	"context"
	"io"
	"path/filepath"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
)

// =============================================================================
// Step Execution
// =============================================================================

// RunStep runs spec.Argv in a throwaway container with spec.HostDir mounted
// at the working directory, and returns the command's exit code. The
// container is removed regardless of how the command finishes.
func (e *SDKEngine) RunStep(ctx context.Context, spec StepSpec) (int, error) {
	workDir := spec.WorkDir
	if workDir == "" {
		workDir = DefaultStepWorkDir
	}

	config := &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Argv,
		WorkingDir: workDir,
		Tty:        true,
	}
	for _, ev := range spec.Env {
		config.Env = append(config.Env, ev.String())
	}
	hostConfig := &container.HostConfig{}
	if spec.HostDir != "" {
		hostDir, err := filepath.Abs(spec.HostDir)
		if err != nil {
			return -1, newEngineError("RunStep", "container", "", err.Error(), err)
		}
		hostConfig.Mounts = []mount.Mount{{
			Type:   mount.TypeBind,
			Source: hostDir,
			Target: workDir,
		}}
	}

	resp, err := e.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if client.IsErrNotFound(err) {
		e.logger.Info("step image not present, pulling", "image", spec.Image)
		if pullErr := e.PullImage(ctx, spec.Image); pullErr != nil {
			return -1, pullErr
		}
		resp, err = e.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	}
	if err != nil {
		return -1, newEngineError("RunStep", "container", "", err.Error(), err)
	}
	defer func() {
		removeCtx := context.WithoutCancel(ctx)
		if err := e.cli.ContainerRemove(removeCtx, resp.ID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Warn("failed to remove step container", "id", resp.ID, "error", err)
		}
	}()

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return -1, newEngineError("RunStep", "container", resp.ID, err.Error(), err)
	}

	if spec.Output != nil {
		logs, err := e.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Follow:     true,
		})
		if err != nil {
			return -1, newEngineError("RunStep", "container", resp.ID, err.Error(), err)
		}
		// The container runs with a TTY, so the stream is not multiplexed.
		_, copyErr := io.Copy(spec.Output, logs)
		logs.Close()
		if copyErr != nil {
			e.logger.Warn("step log stream interrupted", "id", resp.ID, "error", copyErr)
		}
	}

	waitCh, errCh := e.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return -1, newEngineError("RunStep", "container", resp.ID, err.Error(), err)
	case status := <-waitCh:
		if status.Error != nil {
			return -1, newEngineError("RunStep", "container", resp.ID, status.Error.Message, ErrEngineUnusable)
		}
		return int(status.StatusCode), nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}
