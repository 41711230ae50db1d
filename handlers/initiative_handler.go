package handlers

import (
	"context"
	"net/http"

	middleware "okrproject/middlewares"
	"okrproject/models"
	service "okrproject/services"
	"okrproject/utils"
)

type InitiativeHandler struct {
	service service.InitiativeService
	opts    Options
}

func NewInitiativeHandler(service service.InitiativeService, opts Options) *InitiativeHandler {
	return &InitiativeHandler{
		service: service,
		opts:    opts.normalize(),
	}
}

func (h *InitiativeHandler) CreateInitiative(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInitiativeRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	username := middleware.GetUsernameFromContext(r.Context())
	if req.OwnerID == "" {
		req.OwnerID = username
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	initiative, err := h.service.CreateInitiative(ctx, &req, username)
	if err != nil {
		fail(w, r, h.opts.Log, "initiative.create", err)
		return
	}

	utils.HandleDataResponse(w, "Initiative created successfully", initiative, http.StatusCreated)
}

func (h *InitiativeHandler) GetInitiative(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "initiative")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	initiative, err := h.service.GetInitiative(ctx, id)
	if err != nil {
		fail(w, r, h.opts.Log, "initiative.get", err)
		return
	}

	utils.HandleDataResponse(w, "Initiative retrieved successfully", initiative, http.StatusOK)
}
