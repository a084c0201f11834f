package production

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-erp/atelier-erp/internal/catalog"
	"github.com/atelier-erp/atelier-erp/internal/platform/httpx"
	"github.com/atelier-erp/atelier-erp/internal/stock"
)

// Handler exposes production operations over HTTP.
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

// MountRoutes registers production endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/batches", func(r chi.Router) {
		r.Get("/", h.ListBatches)
		r.Post("/", h.CreateBatch)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.ShowBatch)
			r.Post("/start", h.StartBatch)
			r.Post("/pause", h.PauseBatch)
			r.Post("/resume", h.ResumeBatch)
			r.Post("/record", h.RecordProduction)
			r.Post("/complete", h.CompleteBatch)
			r.Post("/cancel", h.CancelBatch)
			r.Get("/schedules", h.ListSchedules)
			r.Post("/schedules", h.CreateSchedule)
		})
	})
	r.Route("/schedules/{id}", func(r chi.Router) {
		r.Get("/", h.ShowSchedule)
		r.Post("/start", h.StartSchedule)
		r.Post("/progress", h.UpdateProgress)
		r.Post("/complete", h.CompleteSchedule)
		r.Post("/cancel", h.CancelSchedule)
		r.Post("/delay", h.DelaySchedule)
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.CreateBatch(r.Context(), CreateBatchInput{
		ProductID:        req.ProductID,
		OrderItemID:      req.OrderItemID,
		PlannedQuantity:  req.PlannedQuantity,
		PlannedStartDate: req.PlannedStartDate,
		PlannedEndDate:   req.PlannedEndDate,
		EstimatedHours:   req.EstimatedHours,
		Supervisor:       req.Supervisor,
		Notes:            req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) ShowBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	b, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: BatchStatus(r.URL.Query().Get("status"))}
	filter.ProductID, _ = strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	batches, err := h.service.ListBatches(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (h *Handler) StartBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	var req ReasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.StartBatch(r.Context(), id, req.Actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) PauseBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	var req ReasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.PauseBatch(r.Context(), id, req.Reason, req.Actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) ResumeBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	var req ReasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.ResumeBatch(r.Context(), id, req.Actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) RecordProduction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	var req RecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.RecordProduction(r.Context(), id, RecordInput{
		CompletedQty: req.CompletedQuantity,
		RejectedQty:  req.RejectedQuantity,
		Notes:        req.Notes,
		Actor:        req.Actor,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) CompleteBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	var req CompleteBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.CompleteBatch(r.Context(), id, CompleteInput{
		ActualHours: req.ActualHours,
		Notes:       req.Notes,
		Actor:       req.Actor,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	var req ReasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.CancelBatch(r.Context(), id, req.Reason, req.Actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	var req CreateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	sched, err := h.service.CreateSchedule(r.Context(), id, CreateScheduleInput{
		Name:            req.Name,
		ScheduledDate:   req.ScheduledDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		PlannedQuantity: req.PlannedQuantity,
		WorkStation:     req.WorkStation,
		AssignedWorker:  req.AssignedWorker,
		Shift:           req.Shift,
		Notes:           req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sched)
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	schedules, err := h.service.ListSchedules(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (h *Handler) ShowSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	sched, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) StartSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	var req ProgressRequest
	if !h.decode(w, r, &req) {
		return
	}
	sched, err := h.service.StartSchedule(r.Context(), id, req.Worker)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	var req ProgressRequest
	if !h.decode(w, r, &req) {
		return
	}
	sched, err := h.service.UpdateProgress(r.Context(), id, ProgressInput{
		Percentage: req.Percentage,
		Notes:      req.Notes,
		Worker:     req.Worker,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) CompleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	var req CompleteScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	sched, err := h.service.CompleteSchedule(r.Context(), id, CompleteScheduleInput{
		ActualQuantity: req.ActualQuantity,
		Notes:          req.Notes,
		Worker:         req.Worker,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	var req ReasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	sched, err := h.service.CancelSchedule(r.Context(), id, req.Reason, req.Actor)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) DelaySchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	var req DelayRequest
	if !h.decode(w, r, &req) {
		return
	}
	sched, err := h.service.DelaySchedule(r.Context(), id, req.NewDate, req.Reason, req.Worker)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sched)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrInsufficientMaterials), errors.Is(err, stock.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("production operation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
