package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avicolanorte/api/internal/platform/httpx"
	"github.com/avicolanorte/api/internal/platform/idempotency"
	"github.com/avicolanorte/api/internal/services"
)

const (
	defaultSessionIdleTTL     = 30 * time.Minute
	defaultDedupeCleanupLimit = 500
)

// InternalHandlers exposes the scheduler-invoked maintenance endpoints.
// Authentication (OIDC) is applied by the router's internal middleware group.
type InternalHandlers struct {
	sessions *services.SessionStore
	dedupe   idempotency.Store
	idleTTL  time.Duration
	now      func() time.Time
}

// InternalOption customises InternalHandlers construction.
type InternalOption func(*InternalHandlers)

// WithSessionIdleTTL overrides the inactivity window after which sessions are discarded.
func WithSessionIdleTTL(ttl time.Duration) InternalOption {
	return func(h *InternalHandlers) {
		if ttl > 0 {
			h.idleTTL = ttl
		}
	}
}

// WithDedupeStore enables the webhook dedupe record cleanup endpoint.
func WithDedupeStore(store idempotency.Store) InternalOption {
	return func(h *InternalHandlers) {
		h.dedupe = store
	}
}

// WithInternalClock overrides the time source.
func WithInternalClock(clock func() time.Time) InternalOption {
	return func(h *InternalHandlers) {
		if clock != nil {
			h.now = func() time.Time { return clock().UTC() }
		}
	}
}

// NewInternalHandlers constructs the internal maintenance handlers.
func NewInternalHandlers(sessions *services.SessionStore, opts ...InternalOption) *InternalHandlers {
	handlers := &InternalHandlers{
		sessions: sessions,
		idleTTL:  defaultSessionIdleTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(handlers)
	}
	return handlers
}

// Routes registers the /internal endpoints.
func (h *InternalHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/sessions/sweep", h.sweepSessions)
	r.Post("/webhooks/cleanup", h.cleanupDedupe)
}

func (h *InternalHandlers) sweepSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sessions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_configured", "session store is not configured", http.StatusServiceUnavailable))
		return
	}

	swept := h.sessions.Sweep(h.idleTTL)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"swept":     swept,
		"remaining": h.sessions.Len(),
	})
}

func (h *InternalHandlers) cleanupDedupe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.dedupe == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_configured", "dedupe store is not configured", http.StatusServiceUnavailable))
		return
	}

	removed, err := h.dedupe.CleanupExpired(ctx, h.now(), defaultDedupeCleanupLimit)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("cleanup_failed", "failed to clean up dedupe records", http.StatusInternalServerError))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"removed": removed})
}
