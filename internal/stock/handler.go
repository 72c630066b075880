package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stocklane/stocklane/internal/platform/httpx"
)

// Handler serves stock quantity and ledger endpoints.
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

// Routes mounts stock endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/quantities", h.listQuants)
	r.Get("/quantities/{productID}/{locationID}", h.getQuantity)
	r.Get("/movements", h.listMovements)
	r.Post("/opening", h.postOpening)
	r.Post("/reservations", h.reserve)
	r.Delete("/reservations", h.release)
	return r
}

func (h *Handler) getQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	locationID, err := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid location id")
		return
	}
	view, err := h.service.GetQuantity(r.Context(), productID, locationID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) listQuants(w http.ResponseWriter, r *http.Request) {
	filter := QuantFilter{
		ProductID:  queryInt(r, "product_id"),
		LocationID: queryInt(r, "location_id"),
		Limit:      int(queryInt(r, "limit")),
	}
	views, err := h.service.ListQuants(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{
		ProductID:  queryInt(r, "product_id"),
		LocationID: queryInt(r, "location_id"),
		Type:       MovementType(r.URL.Query().Get("movement_type")),
		Limit:      int(queryInt(r, "limit")),
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown movement type")
		return
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid from timestamp")
			return
		}
		filter.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid to timestamp")
			return
		}
		filter.To = t
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": movements})
}

type openingRequest struct {
	ProductID  int64           `json:"product_id" validate:"required,gt=0"`
	LocationID int64           `json:"location_id" validate:"required,gt=0"`
	Quantity   decimal.Decimal `json:"quantity" validate:"required"`
	Note       string          `json:"note" validate:"omitempty,max=500"`
	ActorID    int64           `json:"actor_id" validate:"omitempty,gt=0"`
}

func (h *Handler) postOpening(w http.ResponseWriter, r *http.Request) {
	var req openingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid opening payload")
		return
	}
	movement, err := h.service.PostOpening(r.Context(), OpeningInput{
		ProductID:  req.ProductID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		Note:       req.Note,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

type reservationRequest struct {
	ProductID  int64           `json:"product_id" validate:"required,gt=0"`
	LocationID int64           `json:"location_id" validate:"required,gt=0"`
	Quantity   decimal.Decimal `json:"quantity" validate:"required"`
	ActorID    int64           `json:"actor_id" validate:"omitempty,gt=0"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	h.adjustReservation(w, r, false)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.adjustReservation(w, r, true)
}

func (h *Handler) adjustReservation(w http.ResponseWriter, r *http.Request, release bool) {
	var req reservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reservation payload")
		return
	}
	input := ReservationInput{
		ProductID:  req.ProductID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		ActorID:    req.ActorID,
	}
	var (
		view QuantView
		err  error
	)
	if release {
		view, err = h.service.Release(r.Context(), input)
	} else {
		view, err = h.service.Reserve(r.Context(), input)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrLocationRequired):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrQuantNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrReservationExceedsStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("stock request failed", "path", r.URL.Path, "error", err)
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
