package documents

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/stock"
)

// Handler serves document lifecycle endpoints.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes mounts document endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/validate", h.validateDocument)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/status", h.progress)
	return r
}

type createLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

type createRequest struct {
	Type                  string              `json:"document_type" validate:"required,oneof=RECEIPT DELIVERY TRANSFER ADJUSTMENT"`
	WarehouseID           int64               `json:"warehouse_id" validate:"required,gt=0"`
	SourceLocationID      *int64              `json:"source_location_id" validate:"omitempty,gt=0"`
	DestinationLocationID *int64              `json:"destination_location_id" validate:"omitempty,gt=0"`
	PartnerName           string              `json:"partner_name" validate:"omitempty,max=255"`
	Note                  string              `json:"note" validate:"omitempty,max=500"`
	ScheduledAt           *time.Time          `json:"scheduled_at"`
	ActorID               int64               `json:"actor_id" validate:"omitempty,gt=0"`
	Lines                 []createLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document payload")
		return
	}
	input := CreateInput{
		Type:                  Type(req.Type),
		WarehouseID:           req.WarehouseID,
		SourceLocationID:      req.SourceLocationID,
		DestinationLocationID: req.DestinationLocationID,
		PartnerName:           req.PartnerName,
		Note:                  req.Note,
		ScheduledAt:           req.ScheduledAt,
		ActorID:               req.ActorID,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	doc, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Type:        Type(r.URL.Query().Get("document_type")),
		Status:      Status(r.URL.Query().Get("status")),
		WarehouseID: queryInt(r, "warehouse_id"),
		Limit:       int(queryInt(r, "limit")),
	}
	docs, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": docs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type actorRequest struct {
	ActorID int64 `json:"actor_id" validate:"omitempty,gt=0"`
}

func (h *Handler) validateDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Validate)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Progress)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64) (Document, error)) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	doc, err := fn(r.Context(), id, req.ActorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *stock.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.ProblemWithFields(w, http.StatusUnprocessableEntity, "Insufficient Stock", insufficient.Error(), map[string]any{
			"product_id":  insufficient.ProductID,
			"location_id": insufficient.LocationID,
			"available":   insufficient.Available,
			"required":    insufficient.Required,
		})
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidDocument), errors.Is(err, stock.ErrInvalidQuantity), errors.Is(err, stock.ErrLocationRequired):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrNotPostable), errors.Is(err, ErrNotCancellable), errors.Is(err, ErrNotProgressable):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrConcurrencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("document request failed", "path", r.URL.Path, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "internal error")
	}
}

func queryInt(r *http.Request, key string) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}
