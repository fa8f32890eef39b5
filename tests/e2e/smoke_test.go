package e2e

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Smoke Tests
// =============================================================================

// TestE2E_Healthz verifies the agent is running and can reach the engine.
func TestE2E_Healthz(t *testing.T) {
	resp := httpGet(t, baseURL+"/healthz")
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

// TestE2E_OpenAPIDocument verifies the API description is served.
func TestE2E_OpenAPIDocument(t *testing.T) {
	resp := httpGet(t, baseURL+"/openapi.json")
	require.Equal(t, 200, resp.StatusCode)

	doc := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "3.0.3", doc["openapi"])
}

// TestE2E_InvalidRequestRejected verifies validation happens before any
// engine call.
func TestE2E_InvalidRequestRejected(t *testing.T) {
	resp := httpPostJSON(t, baseURL+"/api/v1/deployments", deployRequest{
		Image: "nginx:1.27-alpine",
		// no name
	})
	require.Equal(t, 422, resp.StatusCode)

	errResp := decodeJSON[errorResponse](t, resp)
	assert.Equal(t, "validation_error", errResp.Code)
	assert.True(t, strings.Contains(errResp.Error, "name"), "error should name the field: %s", errResp.Error)
}

// TestE2E_UnknownDeploymentID returns 404 for unknown history IDs.
func TestE2E_UnknownDeploymentID(t *testing.T) {
	resp := httpGet(t, baseURL+"/api/v1/deployments/no-such-id")
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}
