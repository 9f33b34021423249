// Package v1 provides the admin REST API handlers for the sync engine.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
	"github.com/lodgeworks/channelsync/internal/queue"
	"github.com/lodgeworks/channelsync/internal/remote"
	"github.com/lodgeworks/channelsync/internal/sync/audit"
	"github.com/lodgeworks/channelsync/internal/sync/state"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ConfigStore loads sync configurations.
type ConfigStore interface {
	GetSyncConfiguration(ctx context.Context, id uuid.UUID) (sqlc.SyncConfiguration, error)
	ListEnabledSyncConfigurations(ctx context.Context) ([]sqlc.SyncConfiguration, error)
}

// Publisher enqueues trigger messages.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// ClientSource hands out remote clients and exposes breaker states.
type ClientSource interface {
	ClientFor(cfg sqlc.SyncConfiguration) (remote.API, error)
	BreakerStates() map[uuid.UUID]string
}

// Routes defines the admin API routes with dependency injection
type Routes struct {
	configs   ConfigStore
	publisher Publisher
	clients   ClientSource
	tracker   state.Tracker
	logs      audit.Log
	logger    *slog.Logger
}

// NewRoutes creates a new Routes instance with the provided dependencies
func NewRoutes(
	configs ConfigStore,
	publisher Publisher,
	clients ClientSource,
	tracker state.Tracker,
	logs audit.Log,
	logger *slog.Logger,
) *Routes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Routes{
		configs:   configs,
		publisher: publisher,
		clients:   clients,
		tracker:   tracker,
		logs:      logs,
		logger:    logger,
	}
}

// Router creates a new router for the admin API
func Router(routes *Routes) http.Handler {
	r := chi.NewRouter()

	r.Get("/configs", routes.listConfigs)
	r.Get("/breakers", routes.breakerStates)

	r.Route("/configs/{configID}", func(r chi.Router) {
		r.Get("/", routes.getConfig)
		r.Post("/sync", routes.triggerSync)
		r.Post("/test-connection", routes.testConnection)
		r.Get("/runs", routes.listRuns)
		r.Get("/runs/latest", routes.latestRun)
		r.Get("/logs", routes.listLogs)
	})

	return r
}

// listConfigs handles GET /api/v1/configs
func (rr *Routes) listConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := rr.configs.ListEnabledSyncConfigurations(r.Context())
	if err != nil {
		rr.logger.Error("failed to list configurations", "error", err)
		rr.writeErrorResponse(w, "failed to list configurations", http.StatusInternalServerError)
		return
	}

	resp := make([]ConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		resp = append(resp, configResponse(cfg))
	}
	rr.writeJSONResponse(w, http.StatusOK, resp)
}

// getConfig handles GET /api/v1/configs/{configID}
func (rr *Routes) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := rr.loadConfig(w, r)
	if !ok {
		return
	}
	rr.writeJSONResponse(w, http.StatusOK, configResponse(cfg))
}

// triggerSync handles POST /api/v1/configs/{configID}/sync. The run is
// executed asynchronously by the queue consumer; the endpoint only
// enqueues the trigger.
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	cfg, ok := rr.loadConfig(w, r)
	if !ok {
		return
	}

	var req TriggerSyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rr.writeErrorResponse(w, "malformed request body", http.StatusBadRequest)
			return
		}
	}

	mode := sqlc.SyncModeIncremental
	switch req.Mode {
	case "", string(sqlc.SyncModeIncremental):
	case string(sqlc.SyncModeFull):
		mode = sqlc.SyncModeFull
	default:
		rr.writeErrorResponse(w, "mode must be full or incremental", http.StatusBadRequest)
		return
	}

	msg, err := queue.NewMessage(queue.KindSyncTrigger, cfg.ID, queue.SyncTrigger{Mode: mode})
	if err != nil {
		rr.logger.Error("failed to build trigger message", "config_id", cfg.ID, "error", err)
		rr.writeErrorResponse(w, "failed to enqueue sync", http.StatusInternalServerError)
		return
	}
	if err := rr.publisher.Publish(r.Context(), msg); err != nil {
		rr.logger.Error("failed to enqueue sync trigger", "config_id", cfg.ID, "error", err)
		rr.writeErrorResponse(w, "failed to enqueue sync", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, http.StatusAccepted, TriggerSyncResponse{
		ConfigID: cfg.ID,
		Mode:     string(mode),
		Status:   "enqueued",
	})
}

// testConnection handles POST /api/v1/configs/{configID}/test-connection
func (rr *Routes) testConnection(w http.ResponseWriter, r *http.Request) {
	cfg, ok := rr.loadConfig(w, r)
	if !ok {
		return
	}

	client, err := rr.clients.ClientFor(cfg)
	if err != nil {
		rr.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := client.TestConnection(r.Context()); err != nil {
		rr.writeJSONResponse(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	rr.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// latestRun handles GET /api/v1/configs/{configID}/runs/latest
func (rr *Routes) latestRun(w http.ResponseWriter, r *http.Request) {
	cfg, ok := rr.loadConfig(w, r)
	if !ok {
		return
	}

	run, err := rr.tracker.Latest(r.Context(), cfg.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		rr.writeErrorResponse(w, "no sync runs yet", http.StatusNotFound)
		return
	}
	if err != nil {
		rr.logger.Error("failed to load latest run", "config_id", cfg.ID, "error", err)
		rr.writeErrorResponse(w, "failed to load latest run", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, http.StatusOK, runResponse(run))
}

// listRuns handles GET /api/v1/configs/{configID}/runs
func (rr *Routes) listRuns(w http.ResponseWriter, r *http.Request) {
	cfg, ok := rr.loadConfig(w, r)
	if !ok {
		return
	}

	runs, err := rr.tracker.List(r.Context(), cfg.ID, listLimit(r))
	if err != nil {
		rr.logger.Error("failed to list runs", "config_id", cfg.ID, "error", err)
		rr.writeErrorResponse(w, "failed to list runs", http.StatusInternalServerError)
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, runResponse(run))
	}
	rr.writeJSONResponse(w, http.StatusOK, resp)
}

// listLogs handles GET /api/v1/configs/{configID}/logs
func (rr *Routes) listLogs(w http.ResponseWriter, r *http.Request) {
	cfg, ok := rr.loadConfig(w, r)
	if !ok {
		return
	}

	entries, err := rr.logs.List(r.Context(), cfg.ID, listLimit(r))
	if err != nil {
		rr.logger.Error("failed to list audit entries", "config_id", cfg.ID, "error", err)
		rr.writeErrorResponse(w, "failed to list audit entries", http.StatusInternalServerError)
		return
	}

	resp := make([]LogResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, logResponse(entry))
	}
	rr.writeJSONResponse(w, http.StatusOK, resp)
}

// breakerStates handles GET /api/v1/breakers
func (rr *Routes) breakerStates(w http.ResponseWriter, _ *http.Request) {
	rr.writeJSONResponse(w, http.StatusOK, BreakerStatesResponse{
		Breakers: rr.clients.BreakerStates(),
	})
}

// loadConfig parses the configID route parameter and loads the
// configuration, writing the error response itself on failure.
func (rr *Routes) loadConfig(w http.ResponseWriter, r *http.Request) (sqlc.SyncConfiguration, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "configID"))
	if err != nil {
		rr.writeErrorResponse(w, "invalid configuration id", http.StatusBadRequest)
		return sqlc.SyncConfiguration{}, false
	}

	cfg, err := rr.configs.GetSyncConfiguration(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		rr.writeErrorResponse(w, "configuration not found", http.StatusNotFound)
		return sqlc.SyncConfiguration{}, false
	}
	if err != nil {
		rr.logger.Error("failed to load configuration", "config_id", id, "error", err)
		rr.writeErrorResponse(w, "failed to load configuration", http.StatusInternalServerError)
		return sqlc.SyncConfiguration{}, false
	}
	return cfg, true
}

// listLimit parses the limit query parameter, bounded to keep responses sane.
func listLimit(r *http.Request) int32 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return int32(limit)
}

// writeJSONResponse writes a JSON response with the given data
func (rr *Routes) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		rr.logger.Error("failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (rr *Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	rr.writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}
