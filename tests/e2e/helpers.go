// Package e2e provides end-to-end testing utilities for the deckhand agent.
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// Wire Types
// =============================================================================

// These mirror the agent's JSON responses. They are declared here rather
// than imported so the tests exercise the wire contract, not the Go types.

type outcomeResponse struct {
	ID            string `json:"id"`
	ContainerName string `json:"container_name"`
	Image         string `json:"image"`
	FinalState    string `json:"final_state"`
	Attempts      int    `json:"attempts"`
	Reason        string `json:"reason"`
	Diagnostic    string `json:"diagnostic"`
	DurationMS    int64  `json:"duration_ms"`
}

type recordResponse struct {
	ID            string    `json:"id"`
	ContainerName string    `json:"container_name"`
	Image         string    `json:"image"`
	FinalState    string    `json:"final_state"`
	Reason        string    `json:"reason"`
	Attempts      int       `json:"attempts"`
	Source        string    `json:"source"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

type listResponse struct {
	Deployments []recordResponse `json:"deployments"`
	Count       int              `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// deployRequest is the agent's deployment request body.
type deployRequest struct {
	Image           string   `json:"image,omitempty"`
	Name            string   `json:"name,omitempty"`
	Ports           []string `json:"ports,omitempty"`
	Volumes         []string `json:"volumes,omitempty"`
	Env             []string `json:"env,omitempty"`
	Network         string   `json:"network,omitempty"`
	RestartPolicy   string   `json:"restart_policy,omitempty"`
	HealthCheck     *bool    `json:"health_check,omitempty"`
	ReplaceExisting *bool    `json:"replace_existing,omitempty"`
}

// =============================================================================
// HTTP Helpers
// =============================================================================

// httpGet performs a GET and fails the test on transport errors.
func httpGet(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := testClient.Get(url)
	require.NoError(t, err, "GET %s", url)
	return resp
}

// httpPostJSON posts a JSON body and fails the test on transport errors.
func httpPostJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := testClient.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err, "POST %s", url)
	return resp
}

// decodeJSON decodes a response body into T and closes it.
func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", string(data))
	return v
}

// postDeploy sends a deployment request and returns the decoded outcome.
func postDeploy(t *testing.T, req deployRequest, wantStatus int) outcomeResponse {
	t.Helper()
	resp := httpPostJSON(t, baseURL+"/api/v1/deployments", req)
	require.Equal(t, wantStatus, resp.StatusCode)
	return decodeJSON[outcomeResponse](t, resp)
}
