// Package api implements the deckhand agent's HTTP surface: a small JSON API
// that triggers container deployments, serves deployment history, and
// describes itself with an OpenAPI document.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deckhand-ci/deckhand/internal/core/deploy"
	"github.com/deckhand-ci/deckhand/internal/shell/docker"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// pingTimeout bounds the engine ping on health checks.
const pingTimeout = 5 * time.Second

// =============================================================================
// Handler
// =============================================================================

// Handler serves the agent API. Deployments for the same container name are
// serialized: a request that arrives while one is in flight gets 409 rather
// than queueing behind a health poll.
type Handler struct {
	deployer *docker.Deployer
	engine   docker.Engine
	history  store.Store // may be nil; history endpoints report 503
	token    string      // optional bearer token guarding /api/v1
	locks    *nameLocks
	spec     *openapi3.T
	logger   *slog.Logger
}

// NewHandler creates the API handler. history may be nil when no DSN is
// configured; token may be empty to leave the API unauthenticated.
func NewHandler(deployer *docker.Deployer, engine docker.Engine, history store.Store, token string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		deployer: deployer,
		engine:   engine,
		history:  history,
		token:    token,
		locks:    newNameLocks(),
		spec:     buildOpenAPIDocument(),
		logger:   logger,
	}
}

// =============================================================================
// Routes
// =============================================================================

// Routes returns the agent's HTTP handler.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Probes and the API description stay open even when a token is set.
	r.Get("/healthz", h.handleHealthz)
	r.Get("/openapi.json", h.handleOpenAPI)

	r.Route("/api/v1", func(r chi.Router) {
		if h.token != "" {
			r.Use(h.requireToken)
		}
		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", h.handleCreateDeployment)
			r.Get("/", h.handleListDeployments)
			r.Get("/{id}", h.handleGetDeployment)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// requireToken validates the Authorization header against the configured
// static bearer token.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || got != h.token {
			h.logger.Warn("rejected unauthenticated request",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			h.writeError(w, http.StatusUnauthorized, "missing or invalid bearer token", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Deployment Endpoints
// =============================================================================

// handleCreateDeployment runs a deploy synchronously and answers with the
// outcome. Status codes: 200 running, 409 another deploy for the name is in
// flight, 422 the request is invalid, 502 the deploy ran but did not
// converge.
func (h *Handler) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var wire DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "invalid_json")
		return
	}

	req, err := wire.ToRequest()
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "validation_error")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "validation_error")
		return
	}

	if !h.locks.tryAcquire(req.Name) {
		h.writeError(w, http.StatusConflict,
			"a deployment for container "+req.Name+" is already in progress", "deploy_in_progress")
		return
	}
	defer h.locks.release(req.Name)

	started := time.Now()
	outcome, err := h.deployer.Deploy(r.Context(), req)
	if err != nil {
		var verr *deploy.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusUnprocessableEntity, verr.Error(), "validation_error")
			return
		}
		// Context errors: the client went away or the server is draining.
		h.logger.Warn("deploy aborted", "container", req.Name, "error", err)
		h.writeError(w, http.StatusBadGateway, "deployment aborted: "+err.Error(), "deploy_aborted")
		return
	}

	resp := newOutcomeResponse(outcome)
	resp.ID = h.recordOutcome(r.Context(), outcome, started)

	status := http.StatusOK
	if !outcome.Success() {
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, resp)
}

// recordOutcome writes the history row. History is best-effort: a failed
// write is logged and the deploy response is unaffected.
func (h *Handler) recordOutcome(ctx context.Context, outcome deploy.Outcome, started time.Time) string {
	if h.history == nil {
		return ""
	}
	rec := store.NewRecord(outcome, store.SourceAgent, started)
	if err := h.history.RecordDeployment(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.Warn("history write failed", "container", outcome.ContainerName, "error", err)
		return ""
	}
	return rec.ID
}

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "deployment history is not configured", "history_disabled")
		return
	}

	opts := store.DefaultListOptions()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	var (
		records []store.DeploymentRecord
		err     error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		records, err = h.history.ListDeploymentsByName(r.Context(), name, opts)
	} else {
		records, err = h.history.ListDeployments(r.Context(), opts)
	}
	if err != nil {
		h.logger.Error("history list failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list deployments", "internal_error")
		return
	}

	resp := DeploymentListResponse{
		Deployments: make([]DeploymentRecordResponse, 0, len(records)),
		Count:       len(records),
	}
	for i := range records {
		resp.Deployments = append(resp.Deployments, newRecordResponse(&records[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "deployment history is not configured", "history_disabled")
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.history.GetDeployment(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "deployment "+id+" not found", "not_found")
			return
		}
		h.logger.Error("history read failed", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load deployment", "internal_error")
		return
	}
	h.writeJSON(w, http.StatusOK, newRecordResponse(rec))
}

// =============================================================================
// Health and OpenAPI Endpoints
// =============================================================================

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	status := http.StatusOK
	resp := HealthResponse{
		Status: "ok",
		Checks: map[string]string{"engine": "ok"},
	}
	if err := h.engine.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		resp.Status = "unavailable"
		resp.Checks["engine"] = err.Error()
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.spec)
}

// =============================================================================
// Response Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
