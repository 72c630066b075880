package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/stocklane/stocklane/internal/platform/httpx"
)

const requestTimeout = 2 * time.Second

// Handler serves the dashboard read models.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts dashboard endpoints. The KPI queries fan out over the pool,
// so the routes carry their own tighter rate limit.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	r.Get("/summary", h.summary)
	r.Get("/low-stock", h.lowStock)
	r.Get("/movements", h.movements)
	return r
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	summary, err := h.service.GetSummary(ctx)
	if err != nil {
		h.logger.Error("dashboard summary failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "dashboard unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	items, err := h.service.GetLowStock(ctx, limit)
	if err != nil {
		h.logger.Error("dashboard low stock failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "dashboard unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			days = n
		}
	}
	summary, err := h.service.GetMovementSummary(ctx, days)
	if err != nil {
		h.logger.Error("dashboard movement summary failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "dashboard unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
