package remote

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lodgeworks/channelsync/internal/db/sqlc"
)

// ClientRegistry hands out one ResilientClient per sync configuration.
// Clients are built lazily and cached so that the rate limiter and
// circuit breaker state for an account survives across queue messages
// and sync runs within the process.
type ClientRegistry struct {
	mu       sync.Mutex
	settings Settings
	logger   *slog.Logger
	clients  map[uuid.UUID]*ResilientClient

	// newAPI builds the underlying transport; tests swap it out.
	newAPI func(creds Credentials) API
}

// NewClientRegistry creates a registry applying the given resilience
// settings to every account.
func NewClientRegistry(settings Settings, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &ClientRegistry{
		settings: settings,
		logger:   logger,
		clients:  make(map[uuid.UUID]*ResilientClient),
	}
	r.newAPI = func(creds Credentials) API {
		return NewHTTPClient(creds, settings.Timeout)
	}
	return r
}

// ClientFor returns the cached client for the configuration, building it
// on first use. Configurations without credentials are rejected.
func (r *ClientRegistry) ClientFor(cfg sqlc.SyncConfiguration) (API, error) {
	if cfg.BaseUrl == "" {
		return nil, &ConfigurationError{Message: "sync configuration " + cfg.ID.String() + " has no base URL"}
	}
	if cfg.ApiKey == "" {
		return nil, &ConfigurationError{Message: "sync configuration " + cfg.ID.String() + " has no API key"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[cfg.ID]; ok {
		return client, nil
	}

	logger := r.logger.With("config_id", cfg.ID, "account", cfg.AccountCode)
	client := NewResilientClient(r.newAPI(Credentials{BaseURL: cfg.BaseUrl, APIKey: cfg.ApiKey}), r.settings, logger)
	r.clients[cfg.ID] = client

	logger.Debug("built channel-manager client")
	return client, nil
}

// Invalidate drops the cached client for a configuration, forcing a
// rebuild on next use. Call it after credentials change.
func (r *ClientRegistry) Invalidate(configID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, configID)
}

// BreakerStates reports the breaker state of every cached client,
// keyed by configuration ID. Used by the readiness endpoint.
func (r *ClientRegistry) BreakerStates() map[uuid.UUID]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[uuid.UUID]string, len(r.clients))
	for id, client := range r.clients {
		states[id] = string(client.BreakerState())
	}
	return states
}
