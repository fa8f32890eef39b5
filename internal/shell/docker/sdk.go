package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
)

// =============================================================================
// SDK Engine
// =============================================================================

// SDKEngine implements Engine against the Docker API socket.
type SDKEngine struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewSDKEngine creates an engine for the local daemon. If host is empty the
// client follows the environment (DOCKER_HOST et al).
func NewSDKEngine(host string, logger *slog.Logger) (*SDKEngine, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	return newSDKEngine(logger, opts...)
}

func newSDKEngine(logger *slog.Logger, opts ...client.Opt) (*SDKEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, newEngineError("NewSDKEngine", "", "", err.Error(), ErrEngineUnusable)
	}
	return &SDKEngine{cli: cli, logger: logger}, nil
}

// Ping checks that the daemon answers.
func (e *SDKEngine) Ping(ctx context.Context) error {
	if _, err := e.cli.Ping(ctx); err != nil {
		return newEngineError("Ping", "", "", err.Error(), ErrEngineUnusable)
	}
	return nil
}

// Close closes the API connection.
func (e *SDKEngine) Close() error {
	return e.cli.Close()
}

// =============================================================================
// Container Operations
// =============================================================================

// CreateAndStartContainer creates the planned container and starts it. A
// missing image is pulled once and the create retried, matching docker run.
func (e *SDKEngine) CreateAndStartContainer(ctx context.Context, plan deploy.ContainerPlan) (string, error) {
	config, hostConfig, netConfig := e.buildCreateConfig(plan)

	resp, err := e.cli.ContainerCreate(ctx, config, hostConfig, netConfig, nil, plan.Name)
	if client.IsErrNotFound(err) {
		e.logger.Info("image not present, pulling", "image", plan.Image)
		if pullErr := e.PullImage(ctx, plan.Image); pullErr != nil {
			return "", pullErr
		}
		resp, err = e.cli.ContainerCreate(ctx, config, hostConfig, netConfig, nil, plan.Name)
	}
	if err != nil {
		if strings.Contains(err.Error(), "Conflict") {
			return "", newEngineError("CreateContainer", "container", plan.Name, "name already in use", ErrContainerConflict)
		}
		return "", newEngineError("CreateContainer", "container", plan.Name, err.Error(), err)
	}

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if strings.Contains(err.Error(), "port is already allocated") {
			return "", newEngineError("StartContainer", "container", plan.Name, err.Error(), ErrPortAllocated)
		}
		return "", newEngineError("StartContainer", "container", plan.Name, err.Error(), err)
	}
	return resp.ID, nil
}

func (e *SDKEngine) buildCreateConfig(plan deploy.ContainerPlan) (*container.Config, *container.HostConfig, *network.NetworkingConfig) {
	config := &container.Config{
		Image:  plan.Image,
		Labels: plan.Labels,
	}
	for _, ev := range plan.Env {
		config.Env = append(config.Env, ev.String())
	}

	hostConfig := &container.HostConfig{}

	if len(plan.Ports) > 0 {
		portBindings := nat.PortMap{}
		exposedPorts := nat.PortSet{}
		for _, p := range plan.Ports {
			proto := p.Protocol
			if proto == "" {
				proto = "tcp"
			}
			containerPort := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			exposedPorts[containerPort] = struct{}{}
			portBindings[containerPort] = []nat.PortBinding{
				{HostPort: strconv.Itoa(p.HostPort)},
			}
		}
		config.ExposedPorts = exposedPorts
		hostConfig.PortBindings = portBindings
	}

	for _, v := range plan.Volumes {
		mountType := mount.TypeVolume
		if strings.HasPrefix(v.Source, "/") {
			mountType = mount.TypeBind
		}
		hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
			Type:     mountType,
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	if plan.RestartPolicy != "" {
		hostConfig.RestartPolicy = container.RestartPolicy{
			Name: container.RestartPolicyMode(plan.RestartPolicy),
		}
	}

	var netConfig *network.NetworkingConfig
	if plan.Network != "" {
		netConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				plan.Network: {},
			},
		}
	}
	return config, hostConfig, netConfig
}

// StopContainer stops the named container.
func (e *SDKEngine) StopContainer(ctx context.Context, name string) error {
	err := e.cli.ContainerStop(ctx, name, container.StopOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return newEngineError("StopContainer", "container", name, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is not running") {
			return newEngineError("StopContainer", "container", name, "container is not running", ErrContainerNotRunning)
		}
		return newEngineError("StopContainer", "container", name, err.Error(), err)
	}
	return nil
}

// RemoveContainer force-removes the named container.
func (e *SDKEngine) RemoveContainer(ctx context.Context, name string) error {
	err := e.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil {
		if client.IsErrNotFound(err) {
			return newEngineError("RemoveContainer", "container", name, "container not found", ErrContainerNotFound)
		}
		return newEngineError("RemoveContainer", "container", name, err.Error(), err)
	}
	return nil
}

// InspectContainerStatus returns the container's reported state.
func (e *SDKEngine) InspectContainerStatus(ctx context.Context, name string) (ContainerStatus, error) {
	resp, err := e.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return StatusUnknown, newEngineError("InspectContainer", "container", name, "container not found", ErrContainerNotFound)
		}
		return StatusUnknown, newEngineError("InspectContainer", "container", name, err.Error(), err)
	}
	if resp.State == nil {
		return StatusUnknown, nil
	}
	return ContainerStatus(resp.State.Status), nil
}

// ContainerLogs returns the last tail lines of the container's combined
// stdout and stderr.
func (e *SDKEngine) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	reader, err := e.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", newEngineError("ContainerLogs", "container", name, "container not found", ErrContainerNotFound)
		}
		return "", newEngineError("ContainerLogs", "container", name, err.Error(), err)
	}
	defer reader.Close()

	// The stream is multiplexed unless the container runs with a TTY.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return "", newEngineError("ContainerLogs", "container", name, err.Error(), err)
	}
	return buf.String(), nil
}

// =============================================================================
// Network Operations
// =============================================================================

// CreateNetwork creates a bridge network. An existing network of the same
// name surfaces as ErrNetworkAlreadyExists.
func (e *SDKEngine) CreateNetwork(ctx context.Context, name string) error {
	_, err := e.cli.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: map[string]string{deploy.LabelManaged: "true"},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return newEngineError("CreateNetwork", "network", name, "network already exists", ErrNetworkAlreadyExists)
		}
		return newEngineError("CreateNetwork", "network", name, err.Error(), err)
	}
	return nil
}

