package deploy

import (
	"fmt"
	"strings"
)

// =============================================================================
// Request Types
// =============================================================================

// DefaultRestartPolicy is applied when a request does not name one.
const DefaultRestartPolicy = "unless-stopped"

// PortMapping publishes a container port on the host.
type PortMapping struct {
	HostPort      int
	ContainerPort int
	Protocol      string // "tcp" when empty
}

// VolumeMapping mounts a host path or named volume into the container.
type VolumeMapping struct {
	Source   string
	Target   string
	ReadOnly bool
}

// EnvVar is a single environment variable. Order is preserved wherever
// EnvVar slices appear; when the same key occurs twice, the later entry wins.
type EnvVar struct {
	Key   string
	Value string
}

// Request describes one container deployment.
//
// Construct with NewRequest to get the documented defaults; a zero-value
// Request has health confirmation and replacement disabled.
type Request struct {
	// Image is the full image reference to run. Required.
	Image string

	// Name is the container name. Required; also the identity used when
	// evicting a previous container of the same name.
	Name string

	Ports   []PortMapping
	Volumes []VolumeMapping
	Env     []EnvVar

	// EnvFile is an optional path to a dotenv file. It is attached only
	// when the file exists at deploy time; a missing file is skipped
	// silently. Variables from Env override variables from the file.
	EnvFile string

	// Network, when non-empty, is created if absent and the container is
	// attached to it.
	Network string

	// RestartPolicy defaults to DefaultRestartPolicy when empty.
	RestartPolicy string

	// HealthCheck enables the startup confirmation poll. NewRequest
	// defaults it to true; when false the deploy reports success
	// immediately after the container starts.
	HealthCheck bool

	// ReplaceExisting evicts any same-named container before creation.
	// NewRequest defaults it to true.
	ReplaceExisting bool
}

// NewRequest returns a Request for image and name with defaults applied:
// restart policy "unless-stopped", health confirmation on, replacement on.
func NewRequest(image, name string) Request {
	return Request{
		Image:           image,
		Name:            name,
		RestartPolicy:   DefaultRestartPolicy,
		HealthCheck:     true,
		ReplaceExisting: true,
	}
}

// WithDefaults returns a copy of the request with gaps filled in: an empty
// restart policy becomes DefaultRestartPolicy and port mappings without a
// protocol become "tcp". Boolean knobs are left as given.
func (r Request) WithDefaults() Request {
	if r.RestartPolicy == "" {
		r.RestartPolicy = DefaultRestartPolicy
	}
	if len(r.Ports) > 0 {
		ports := make([]PortMapping, len(r.Ports))
		copy(ports, r.Ports)
		for i := range ports {
			if ports[i].Protocol == "" {
				ports[i].Protocol = "tcp"
			}
		}
		r.Ports = ports
	}
	return r
}

// Validate checks the request invariants. It returns a *ValidationError
// naming the offending field, or nil. Callers must not touch the container
// engine when Validate fails.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Image) == "" {
		return &ValidationError{Field: "image", Message: "image reference must not be empty"}
	}
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "container name must not be empty"}
	}
	for i, p := range r.Ports {
		if p.HostPort <= 0 || p.HostPort > 65535 {
			return &ValidationError{Field: "ports", Message: fmt.Sprintf("mapping %d: host port %d out of range", i, p.HostPort)}
		}
		if p.ContainerPort <= 0 || p.ContainerPort > 65535 {
			return &ValidationError{Field: "ports", Message: fmt.Sprintf("mapping %d: container port %d out of range", i, p.ContainerPort)}
		}
	}
	for i, v := range r.Volumes {
		if v.Source == "" || v.Target == "" {
			return &ValidationError{Field: "volumes", Message: fmt.Sprintf("mapping %d: source and target must both be set", i)}
		}
	}
	for i, e := range r.Env {
		if e.Key == "" {
			return &ValidationError{Field: "env", Message: fmt.Sprintf("variable %d: key must not be empty", i)}
		}
	}
	return nil
}

// ValidationError reports a request that violates its invariants. No engine
// call is made for an invalid request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid deployment request: " + e.Field + ": " + e.Message
}
