package handlers

import (
	"context"
	"net/http"

	middleware "okrproject/middlewares"
	"okrproject/models"
	service "okrproject/services"
	"okrproject/utils"
)

type CheckInHandler struct {
	service service.CheckInService
	opts    Options
}

func NewCheckInHandler(service service.CheckInService, opts Options) *CheckInHandler {
	return &CheckInHandler{
		service: service,
		opts:    opts.normalize(),
	}
}

func (h *CheckInHandler) RecordCheckIn(w http.ResponseWriter, r *http.Request) {
	var req models.RecordCheckInRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	checkIn, err := h.service.Record(ctx, &req, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "check_in.record", err)
		return
	}

	utils.HandleDataResponse(w, "Check-in recorded successfully", checkIn, http.StatusOK)
}

func (h *CheckInHandler) UpdateCheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "check-in")
	if !ok {
		return
	}
	var req models.UpdateCheckInRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	checkIn, err := h.service.Update(ctx, id, &req, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "check_in.update", err)
		return
	}

	utils.HandleDataResponse(w, "Check-in updated successfully", checkIn, http.StatusOK)
}

// ListCheckIns accepts entity_type/entity_id and the camelCase forms.
func (h *CheckInHandler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entityType := q.Get("entity_type")
	if entityType == "" {
		entityType = q.Get("entityType")
	}
	entityID := q.Get("entity_id")
	if entityID == "" {
		entityID = q.Get("entityId")
	}
	ref, err := models.ParseEntityRef(entityType, entityID)
	if err != nil {
		utils.HandleErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	history, err := h.service.History(ctx, ref)
	if err != nil {
		fail(w, r, h.opts.Log, "check_in.history", err)
		return
	}

	utils.HandleDataResponse(w, "Check-ins retrieved successfully", history, http.StatusOK)
}
