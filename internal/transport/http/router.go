package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ptkach/nomulus/internal/ratelimit"
	"github.com/ptkach/nomulus/pkg/platform/middleware/admin"
	"github.com/ptkach/nomulus/pkg/platform/middleware/metadata"
)

// RouterConfig selects the optional endpoints.
type RouterConfig struct {
	// ToolToken mounts /epp/tool behind the token when set.
	ToolToken string
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Limiter bounds /epp per registrar when set.
	Limiter ratelimit.Limiter
	Logger  *slog.Logger
}

// NewRouter mounts the registrar, tool, health and metrics endpoints.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", h.HandleHealth)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.Limiter != nil {
		r.With(ratelimit.PerRegistrar(cfg.Limiter, h.registrarHeader, logger)).Post("/epp", h.HandleEPP)
	} else {
		r.Post("/epp", h.HandleEPP)
	}
	if cfg.ToolToken != "" {
		r.With(admin.RequireToolToken(cfg.ToolToken, logger)).Post("/epp/tool", h.HandleTool)
	}
	return r
}
