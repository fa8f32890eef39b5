package api

import (
	"time"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// =============================================================================
// Request Types
// =============================================================================

// DeployRequest is the wire form of a deployment request. Mappings arrive in
// the CLI's string syntax ("8080:80", "/data:/var/data", "KEY=value") so a
// curl or webhook payload reads the same as the command line.
type DeployRequest struct {
	Image           string   `json:"image"`
	Name            string   `json:"name"`
	Ports           []string `json:"ports,omitempty"`
	Volumes         []string `json:"volumes,omitempty"`
	Env             []string `json:"env,omitempty"`
	EnvFile         string   `json:"env_file,omitempty"`
	Network         string   `json:"network,omitempty"`
	RestartPolicy   string   `json:"restart_policy,omitempty"`
	HealthCheck     *bool    `json:"health_check,omitempty"`
	ReplaceExisting *bool    `json:"replace_existing,omitempty"`
}

// ToRequest parses the wire form into a deploy.Request. Absent booleans take
// the documented defaults (health confirmation on, replacement on).
func (r DeployRequest) ToRequest() (deploy.Request, error) {
	req := deploy.NewRequest(r.Image, r.Name)
	req.EnvFile = r.EnvFile
	req.Network = r.Network
	if r.RestartPolicy != "" {
		req.RestartPolicy = r.RestartPolicy
	}
	if r.HealthCheck != nil {
		req.HealthCheck = *r.HealthCheck
	}
	if r.ReplaceExisting != nil {
		req.ReplaceExisting = *r.ReplaceExisting
	}

	for _, s := range r.Ports {
		p, err := deploy.ParsePortMapping(s)
		if err != nil {
			return deploy.Request{}, err
		}
		req.Ports = append(req.Ports, p)
	}
	for _, s := range r.Volumes {
		v, err := deploy.ParseVolumeMapping(s)
		if err != nil {
			return deploy.Request{}, err
		}
		req.Volumes = append(req.Volumes, v)
	}
	for _, s := range r.Env {
		e, err := deploy.ParseEnvVar(s)
		if err != nil {
			return deploy.Request{}, err
		}
		req.Env = append(req.Env, e)
	}

	return req, nil
}

// =============================================================================
// Response Types
// =============================================================================

// OutcomeResponse reports how a deployment ended. ID is the history record
// when a store is configured and the write succeeded.
type OutcomeResponse struct {
	ID            string `json:"id,omitempty"`
	ContainerName string `json:"container_name"`
	Image         string `json:"image"`
	FinalState    string `json:"final_state"`
	Attempts      int    `json:"attempts"`
	Reason        string `json:"reason,omitempty"`
	Diagnostic    string `json:"diagnostic,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
}

func newOutcomeResponse(o deploy.Outcome) OutcomeResponse {
	return OutcomeResponse{
		ContainerName: o.ContainerName,
		Image:         o.Image,
		FinalState:    string(o.FinalState),
		Attempts:      o.Attempts,
		Reason:        string(o.Reason),
		Diagnostic:    o.Diagnostic,
		DurationMS:    o.Duration.Milliseconds(),
	}
}

// DeploymentRecordResponse is one history row.
type DeploymentRecordResponse struct {
	ID            string    `json:"id"`
	ContainerName string    `json:"container_name"`
	Image         string    `json:"image"`
	FinalState    string    `json:"final_state"`
	Reason        string    `json:"reason,omitempty"`
	Diagnostic    string    `json:"diagnostic,omitempty"`
	Attempts      int       `json:"attempts"`
	Source        string    `json:"source"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

func newRecordResponse(rec *store.DeploymentRecord) DeploymentRecordResponse {
	return DeploymentRecordResponse{
		ID:            rec.ID,
		ContainerName: rec.ContainerName,
		Image:         rec.Image,
		FinalState:    rec.FinalState,
		Reason:        rec.Reason,
		Diagnostic:    rec.Diagnostic,
		Attempts:      rec.Attempts,
		Source:        rec.Source,
		StartedAt:     rec.StartedAt,
		FinishedAt:    rec.FinishedAt,
	}
}

// DeploymentListResponse is a page of history rows.
type DeploymentListResponse struct {
	Deployments []DeploymentRecordResponse `json:"deployments"`
	Count       int                        `json:"count"`
}

// HealthResponse reports engine reachability.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ErrorResponse is the error envelope for all non-outcome failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
