// Package pipeline provides the pure model for a deckhand pipeline: the
// ordered clone, build, image, and deploy/compose steps read from a
// deckhand.yaml file, framework presets for the build step, and variable
// expansion. No I/O happens here; the cmd layer loads the file and the
// shell packages execute the planned steps.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
)

// =============================================================================
// Pipeline Model
// =============================================================================

// Validation sentinels.
var (
	ErrNoSteps           = errors.New("pipeline defines no steps")
	ErrDeployAndCompose  = errors.New("deploy and compose steps are mutually exclusive")
	ErrUnknownFramework  = errors.New("unknown build framework")
	ErrNoImageTags       = errors.New("image step needs at least one tag")
	ErrCloneURLMissing   = errors.New("clone step needs a repository url")
	ErrComposeFileNeeded = errors.New("compose step needs a file")
)

// Pipeline is one deckhand.yaml. Steps are optional and run in declaration
// order: clone, build, image, then deploy or compose.
type Pipeline struct {
	// Workspace is the directory steps operate in. Defaults to ".";
	// a clone step without an explicit dir clones into it.
	Workspace string `yaml:"workspace"`

	// Env holds pipeline-level variables available to ${VAR} expansion
	// in step fields. Process environment variables are the fallback.
	Env map[string]string `yaml:"env"`

	Clone   *CloneStep   `yaml:"clone"`
	Build   *BuildStep   `yaml:"build"`
	Image   *ImageStep   `yaml:"image"`
	Deploy  *DeployStep  `yaml:"deploy"`
	Compose *ComposeStep `yaml:"compose"`
}

// CloneStep fetches the repository into the workspace.
type CloneStep struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch"`
	Depth  int    `yaml:"depth"`
	Dir    string `yaml:"dir"`
}

// ImageStep builds (and optionally pushes) an image from the workspace.
type ImageStep struct {
	Context    string   `yaml:"context"`
	Dockerfile string   `yaml:"dockerfile"`
	Tags       []string `yaml:"tags"`
	BuildArgs  []string `yaml:"build_args"`
	Push       bool     `yaml:"push"`
}

// DeployStep mirrors deploy.Request in file syntax. Ports, volumes, and env
// use the docker CLI string forms and keep their declared order.
type DeployStep struct {
	Image           string   `yaml:"image"`
	Name            string   `yaml:"name"`
	Ports           []string `yaml:"ports"`
	Volumes         []string `yaml:"volumes"`
	Env             []string `yaml:"env"`
	EnvFile         string   `yaml:"env_file"`
	Network         string   `yaml:"network"`
	RestartPolicy   string   `yaml:"restart_policy"`
	HealthCheck     *bool    `yaml:"health_check"`
	ReplaceExisting *bool    `yaml:"replace_existing"`
}

// ComposeStep hands the deployment to docker compose instead of the
// single-container deployer.
type ComposeStep struct {
	File string `yaml:"file"`
}

// WithDefaults returns a copy with gaps filled: workspace ".", clone dir =
// workspace, clone depth 1, image context/dockerfile defaults.
func (p Pipeline) WithDefaults() Pipeline {
	if p.Workspace == "" {
		p.Workspace = "."
	}
	if p.Clone != nil {
		c := *p.Clone
		if c.Dir == "" {
			c.Dir = p.Workspace
		}
		if c.Depth == 0 {
			c.Depth = 1
		}
		p.Clone = &c
	}
	if p.Image != nil {
		img := *p.Image
		if img.Context == "" {
			img.Context = p.Workspace
		}
		if img.Dockerfile == "" {
			img.Dockerfile = "Dockerfile"
		}
		p.Image = &img
	}
	return p
}

// Validate checks the pipeline shape. Step internals that only the engine
// can judge (image existence, port availability) are left to execution.
func (p Pipeline) Validate() error {
	if p.Clone == nil && p.Build == nil && p.Image == nil && p.Deploy == nil && p.Compose == nil {
		return ErrNoSteps
	}
	if p.Deploy != nil && p.Compose != nil {
		return ErrDeployAndCompose
	}
	if p.Clone != nil && p.Clone.URL == "" {
		return ErrCloneURLMissing
	}
	if p.Build != nil {
		if _, err := PresetFor(p.Build.Framework); err != nil && len(p.Build.Commands) == 0 {
			return err
		}
	}
	if p.Image != nil && len(p.Image.Tags) == 0 {
		return ErrNoImageTags
	}
	if p.Compose != nil && p.Compose.File == "" {
		return ErrComposeFileNeeded
	}
	return nil
}

// StepNames lists the steps present, in run order.
func (p Pipeline) StepNames() []string {
	var names []string
	if p.Clone != nil {
		names = append(names, "clone")
	}
	if p.Build != nil {
		names = append(names, "build")
	}
	if p.Image != nil {
		names = append(names, "image")
	}
	if p.Deploy != nil {
		names = append(names, "deploy")
	}
	if p.Compose != nil {
		names = append(names, "compose")
	}
	return names
}

// DeployRequest builds the deploy step's request. A deploy step without a
// name inherits one derived from the clone URL, so a pipeline that clones
// acme/site.git deploys as "site" unless it says otherwise.
func (p Pipeline) DeployRequest(vars map[string]string) (deploy.Request, error) {
	if p.Deploy == nil {
		return deploy.Request{}, errors.New("pipeline has no deploy step")
	}
	req, err := p.Deploy.ToRequest(vars)
	if err != nil {
		return deploy.Request{}, err
	}
	if req.Name == "" && p.Clone != nil {
		req.Name = SanitizeName(RepositoryName(Expand(p.Clone.URL, vars)))
	}
	return req, nil
}

// ToRequest converts the deploy step into a deploy.Request, expanding
// ${VAR} placeholders from vars and parsing the CLI-syntax mappings.
func (s DeployStep) ToRequest(vars map[string]string) (deploy.Request, error) {
	req := deploy.NewRequest(Expand(s.Image, vars), Expand(s.Name, vars))
	for _, raw := range s.Ports {
		pm, err := deploy.ParsePortMapping(Expand(raw, vars))
		if err != nil {
			return deploy.Request{}, fmt.Errorf("deploy step: %w", err)
		}
		req.Ports = append(req.Ports, pm)
	}
	for _, raw := range s.Volumes {
		vm, err := deploy.ParseVolumeMapping(Expand(raw, vars))
		if err != nil {
			return deploy.Request{}, fmt.Errorf("deploy step: %w", err)
		}
		req.Volumes = append(req.Volumes, vm)
	}
	for _, raw := range s.Env {
		ev, err := deploy.ParseEnvVar(Expand(raw, vars))
		if err != nil {
			return deploy.Request{}, fmt.Errorf("deploy step: %w", err)
		}
		req.Env = append(req.Env, ev)
	}
	req.EnvFile = Expand(s.EnvFile, vars)
	req.Network = Expand(s.Network, vars)
	if s.RestartPolicy != "" {
		req.RestartPolicy = s.RestartPolicy
	}
	if s.HealthCheck != nil {
		req.HealthCheck = *s.HealthCheck
	}
	if s.ReplaceExisting != nil {
		req.ReplaceExisting = *s.ReplaceExisting
	}
	return req, nil
}
