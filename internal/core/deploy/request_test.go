package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// NewRequest / WithDefaults Tests
// =============================================================================

func TestNewRequest_Defaults(t *testing.T) {
	req := NewRequest("nginx:1.27", "web")

	assert.Equal(t, "nginx:1.27", req.Image)
	assert.Equal(t, "web", req.Name)
	assert.Equal(t, "unless-stopped", req.RestartPolicy)
	assert.True(t, req.HealthCheck)
	assert.True(t, req.ReplaceExisting)
	assert.Empty(t, req.Ports)
	assert.Empty(t, req.Volumes)
	assert.Empty(t, req.Env)
}

func TestWithDefaults_FillsRestartPolicy(t *testing.T) {
	req := Request{Image: "nginx", Name: "web"}
	got := req.WithDefaults()

	assert.Equal(t, DefaultRestartPolicy, got.RestartPolicy)
}

func TestWithDefaults_KeepsExplicitRestartPolicy(t *testing.T) {
	req := Request{Image: "nginx", Name: "web", RestartPolicy: "always"}
	got := req.WithDefaults()

	assert.Equal(t, "always", got.RestartPolicy)
}

func TestWithDefaults_FillsPortProtocol(t *testing.T) {
	req := Request{
		Image: "nginx",
		Name:  "web",
		Ports: []PortMapping{{HostPort: 8080, ContainerPort: 80}},
	}
	got := req.WithDefaults()

	assert.Equal(t, "tcp", got.Ports[0].Protocol)
	// Original must stay untouched.
	assert.Equal(t, "", req.Ports[0].Protocol)
}

func TestWithDefaults_DoesNotTouchBooleans(t *testing.T) {
	req := Request{Image: "nginx", Name: "web", HealthCheck: false, ReplaceExisting: false}
	got := req.WithDefaults()

	assert.False(t, got.HealthCheck)
	assert.False(t, got.ReplaceExisting)
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate_Valid(t *testing.T) {
	req := NewRequest("nginx:1.27", "web")
	req.Ports = []PortMapping{{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}}
	req.Volumes = []VolumeMapping{{Source: "/srv/web", Target: "/usr/share/nginx/html"}}
	req.Env = []EnvVar{{Key: "MODE", Value: "production"}}

	assert.NoError(t, req.Validate())
}

func TestValidate_EmptyImage(t *testing.T) {
	req := NewRequest("", "web")

	err := req.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image", verr.Field)
}

func TestValidate_WhitespaceImage(t *testing.T) {
	req := NewRequest("   ", "web")

	var verr *ValidationError
	require.ErrorAs(t, req.Validate(), &verr)
	assert.Equal(t, "image", verr.Field)
}

func TestValidate_EmptyName(t *testing.T) {
	req := NewRequest("nginx:1.27", "")

	var verr *ValidationError
	require.ErrorAs(t, req.Validate(), &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestValidate_TableDriven(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Request)
		wantField string
	}{
		{
			name:      "host port zero",
			mutate:    func(r *Request) { r.Ports = []PortMapping{{HostPort: 0, ContainerPort: 80}} },
			wantField: "ports",
		},
		{
			name:      "container port too large",
			mutate:    func(r *Request) { r.Ports = []PortMapping{{HostPort: 80, ContainerPort: 70000}} },
			wantField: "ports",
		},
		{
			name:      "volume without target",
			mutate:    func(r *Request) { r.Volumes = []VolumeMapping{{Source: "/srv"}} },
			wantField: "volumes",
		},
		{
			name:      "env without key",
			mutate:    func(r *Request) { r.Env = []EnvVar{{Value: "x"}} },
			wantField: "env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("nginx:1.27", "web")
			tt.mutate(&req)

			var verr *ValidationError
			require.ErrorAs(t, req.Validate(), &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "image", Message: "image reference must not be empty"}
	assert.Contains(t, err.Error(), "image reference must not be empty")
	assert.Contains(t, err.Error(), "invalid deployment request")
}
