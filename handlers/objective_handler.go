package handlers

import (
	"context"
	"net/http"

	middleware "okrproject/middlewares"
	"okrproject/models"
	service "okrproject/services"
	"okrproject/utils"
)

type ObjectiveHandler struct {
	service service.ObjectiveService
	opts    Options
}

func NewObjectiveHandler(service service.ObjectiveService, opts Options) *ObjectiveHandler {
	return &ObjectiveHandler{
		service: service,
		opts:    opts.normalize(),
	}
}

func (h *ObjectiveHandler) CreateObjective(w http.ResponseWriter, r *http.Request) {
	var req models.CreateObjectiveRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	username := middleware.GetUsernameFromContext(r.Context())
	if req.OwnerID == "" {
		req.OwnerID = username
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	objective, err := h.service.CreateObjective(ctx, &req, username)
	if err != nil {
		fail(w, r, h.opts.Log, "objective.create", err)
		return
	}

	utils.HandleDataResponse(w, "Objective created successfully", objective, http.StatusCreated)
}

func (h *ObjectiveHandler) GetObjective(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "objective")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	objective, err := h.service.GetObjective(ctx, id)
	if err != nil {
		fail(w, r, h.opts.Log, "objective.get", err)
		return
	}

	utils.HandleDataResponse(w, "Objective retrieved successfully", objective, http.StatusOK)
}

func (h *ObjectiveHandler) ReparentObjective(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "objective")
	if !ok {
		return
	}
	var req models.ReparentRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	objective, err := h.service.Reparent(ctx, id, req.ParentID, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "objective.reparent", err)
		return
	}

	utils.HandleDataResponse(w, "Objective moved successfully", objective, http.StatusOK)
}

func (h *ObjectiveHandler) DeleteObjective(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "objective")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	if err := h.service.DeleteObjective(ctx, id, middleware.GetUsernameFromContext(r.Context())); err != nil {
		fail(w, r, h.opts.Log, "objective.delete", err)
		return
	}

	utils.HandleMessageResponse(w, "Objective deleted successfully", http.StatusOK)
}

func (h *ObjectiveHandler) RecomputeObjective(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "objective")
	if !ok {
		return
	}
	asOf, ok := asOfParam(r)
	if !ok {
		utils.HandleErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, "Invalid as_of, expected RFC 3339 or YYYY-MM-DD")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	changed, err := h.service.RecomputeTree(ctx, id, asOf, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "objective.recompute", err)
		return
	}
	if changed == nil {
		changed = []models.Objective{}
	}

	utils.HandleDataResponse(w, "Objective tree recomputed successfully", changed, http.StatusOK)
}

func (h *ObjectiveHandler) GetStatusBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	breakdown, err := h.service.StatusBreakdown(ctx)
	if err != nil {
		fail(w, r, h.opts.Log, "analytics.status", err)
		return
	}

	utils.HandleDataResponse(w, "Status breakdown retrieved successfully", breakdown, http.StatusOK)
}
