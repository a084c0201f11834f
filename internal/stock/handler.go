package stock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-erp/atelier-erp/internal/platform/httpx"
)

// Handler exposes ledger operations over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers stock endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/low", h.LowStock)
		r.Get("/value", h.Valuation)
		r.Route("/{kind}/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Get("/movements", h.Movements)
			r.Post("/adjust", h.Adjust)
			r.Post("/reserve", h.Reserve)
			r.Post("/release", h.Release)
			r.Post("/fulfill", h.Fulfill)
			r.Post("/receive", h.Receive)
		})
	})
}

func (h *Handler) itemRef(r *http.Request) (ItemRef, error) {
	kind := ItemKind(chi.URLParam(r, "kind"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 || !kind.Valid() {
		return ItemRef{}, ErrInvalidQuantity
	}
	return ItemRef{Kind: kind, ID: id}, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Location: r.URL.Query().Get("location")}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind := ItemKind(raw)
		if !kind.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown item kind")
			return
		}
		filter.Kind = &kind
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, NewRecordResponse(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.LowStock(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, NewRecordResponse(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *Handler) Valuation(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Valuation(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valuation": totals})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item reference")
		return
	}
	rec, err := h.service.Get(r.Context(), item)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewRecordResponse(rec))
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item reference")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), item, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item reference")
		return
	}
	var req AdjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Adjust(r.Context(), AdjustInput{
		Item:     item,
		Delta:    req.Delta,
		Type:     MovementType(req.Type),
		Notes:    req.Notes,
		UnitCost: req.UnitCost,
		Actor:    req.Actor,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewRecordResponse(rec))
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.service.Reserve)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.service.Release)
}

func (h *Handler) Fulfill(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.service.Fulfill)
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item reference")
		return
	}
	var req ReceiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Receive(r.Context(), ReceiveInput{
		Item:     item,
		Qty:      req.Quantity,
		UnitCost: req.UnitCost,
		Notes:    req.Notes,
		Actor:    req.Actor,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewRecordResponse(rec))
}

type quantityFn func(ctx context.Context, input ReserveInput) (Record, error)

func (h *Handler) quantityOp(w http.ResponseWriter, r *http.Request, fn quantityFn) {
	item, err := h.itemRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item reference")
		return
	}
	var req QuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := fn(r.Context(), ReserveInput{
		Item:  item,
		Qty:   req.Quantity,
		Notes: req.Notes,
		Actor: req.Actor,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewRecordResponse(rec))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidRelease):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("stock operation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
