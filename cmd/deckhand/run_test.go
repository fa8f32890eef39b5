package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-ci/deckhand/internal/core/pipeline"
)

// =============================================================================
// Pipeline File Loading Tests
// =============================================================================

func writePipelineFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deckhand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPipeline_FullFile(t *testing.T) {
	path := writePipelineFile(t, `
workspace: "./src"
env:
  APP_NAME: "site"

clone:
  url: "https://github.com/acme/site.git"
  branch: "main"

build:
  framework: "nextjs"
  skip_tests: true

image:
  tags:
    - "registry.example.com/${APP_NAME}:${COMMIT_SHORT}"
  push: true

deploy:
  image: "registry.example.com/${APP_NAME}:${COMMIT_SHORT}"
  name: "${APP_NAME}"
  ports:
    - "8080:3000"
  health_check: false
`)

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	assert.Equal(t, "./src", p.Workspace)
	assert.Equal(t, []string{"clone", "build", "image", "deploy"}, p.StepNames())

	require.NotNil(t, p.Clone)
	assert.Equal(t, "https://github.com/acme/site.git", p.Clone.URL)
	assert.Equal(t, "main", p.Clone.Branch)
	assert.Equal(t, "./src", p.Clone.Dir) // defaulted to workspace
	assert.Equal(t, 1, p.Clone.Depth)

	require.NotNil(t, p.Build)
	assert.Equal(t, "nextjs", p.Build.Framework)
	assert.True(t, p.Build.SkipTests)
	assert.False(t, p.Build.SkipLint)

	require.NotNil(t, p.Image)
	assert.Equal(t, "./src", p.Image.Context)
	assert.Equal(t, "Dockerfile", p.Image.Dockerfile)
	assert.True(t, p.Image.Push)

	require.NotNil(t, p.Deploy)
	require.NotNil(t, p.Deploy.HealthCheck)
	assert.False(t, *p.Deploy.HealthCheck)
}

func TestLoadPipeline_EnvKeysKeepCase(t *testing.T) {
	path := writePipelineFile(t, `
env:
  APP_NAME: "site"
deploy:
  image: "nginx:1.27"
  name: "${APP_NAME}"
`)

	p, err := LoadPipeline(path)
	require.NoError(t, err)

	assert.Equal(t, "site", p.Env["APP_NAME"])

	req, err := p.Deploy.ToRequest(pipeline.MergeVars(nil, p.Env))
	require.NoError(t, err)
	assert.Equal(t, "site", req.Name)
}

func TestLoadPipeline_UnknownKeyRejected(t *testing.T) {
	path := writePipelineFile(t, `
deplyo:
  image: "nginx:1.27"
`)

	_, err := LoadPipeline(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "deplyo")
}

func TestLoadPipeline_MissingFile(t *testing.T) {
	_, err := LoadPipeline(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadPipeline_EmptyFileFailsValidation(t *testing.T) {
	path := writePipelineFile(t, "")

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Validate(), pipeline.ErrNoSteps)
}

func TestLoadPipeline_DeployAndComposeRejected(t *testing.T) {
	path := writePipelineFile(t, `
deploy:
  image: "nginx:1.27"
  name: "web"
compose:
  file: "docker-compose.yml"
`)

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Validate(), pipeline.ErrDeployAndCompose)
}
