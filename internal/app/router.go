package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stocklane/stocklane/internal/dashboard"
	"github.com/stocklane/stocklane/internal/documents"
	"github.com/stocklane/stocklane/internal/masterdata/categories"
	"github.com/stocklane/stocklane/internal/masterdata/locations"
	"github.com/stocklane/stocklane/internal/masterdata/partners"
	"github.com/stocklane/stocklane/internal/masterdata/products"
	"github.com/stocklane/stocklane/internal/masterdata/units"
	"github.com/stocklane/stocklane/internal/masterdata/warehouses"
	"github.com/stocklane/stocklane/internal/observability"
	"github.com/stocklane/stocklane/internal/stock"
	"github.com/stocklane/stocklane/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	ProductHandler   *products.Handler
	CategoryHandler  *categories.Handler
	UnitHandler      *units.Handler
	WarehouseHandler *warehouses.Handler
	LocationHandler  *locations.Handler
	PartnerHandler   *partners.Handler

	StockHandler     *stock.Handler
	DocumentHandler  *documents.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Stocklane defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ProductHandler != nil {
		r.Mount("/products", params.ProductHandler.Routes())
	}
	if params.CategoryHandler != nil {
		r.Mount("/categories", params.CategoryHandler.Routes())
	}
	if params.UnitHandler != nil {
		r.Mount("/units", params.UnitHandler.Routes())
	}
	if params.WarehouseHandler != nil {
		r.Mount("/warehouses", params.WarehouseHandler.Routes())
	}
	if params.LocationHandler != nil {
		r.Mount("/locations", params.LocationHandler.Routes())
	}
	if params.PartnerHandler != nil {
		r.Mount("/partners", params.PartnerHandler.Routes())
	}
	if params.StockHandler != nil {
		r.Mount("/stock", params.StockHandler.Routes())
	}
	if params.DocumentHandler != nil {
		r.Mount("/documents", params.DocumentHandler.Routes())
	}
	if params.DashboardHandler != nil {
		r.Mount("/dashboard", params.DashboardHandler.Routes())
	}
	if params.JobHandler != nil {
		r.Mount("/jobs", params.JobHandler.Routes())
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
