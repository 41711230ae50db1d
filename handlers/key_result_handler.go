package handlers

import (
	"context"
	"net/http"
	"strconv"

	middleware "okrproject/middlewares"
	"okrproject/models"
	service "okrproject/services"
	"okrproject/utils"
)

type KeyResultHandler struct {
	service service.KeyResultService
	opts    Options
}

func NewKeyResultHandler(service service.KeyResultService, opts Options) *KeyResultHandler {
	return &KeyResultHandler{
		service: service,
		opts:    opts.normalize(),
	}
}

func (h *KeyResultHandler) CreateKeyResult(w http.ResponseWriter, r *http.Request) {
	var req models.CreateKeyResultRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	kr, err := h.service.CreateKeyResult(ctx, &req, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "key_result.create", err)
		return
	}

	utils.HandleDataResponse(w, "Key result created successfully", kr, http.StatusCreated)
}

func (h *KeyResultHandler) GetKeyResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "key result")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	kr, err := h.service.GetKeyResult(ctx, id)
	if err != nil {
		fail(w, r, h.opts.Log, "key_result.get", err)
		return
	}

	utils.HandleDataResponse(w, "Key result retrieved successfully", kr, http.StatusOK)
}

func (h *KeyResultHandler) UpdateKeyResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "key result")
	if !ok {
		return
	}
	var req models.UpdateKeyResultRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	kr, err := h.service.UpdateKeyResult(ctx, id, &req, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "key_result.update", err)
		return
	}

	utils.HandleDataResponse(w, "Key result updated successfully", kr, http.StatusOK)
}

func (h *KeyResultHandler) DeleteKeyResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "key result")
	if !ok {
		return
	}
	rebalance := false
	if raw := r.URL.Query().Get("rebalance"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.HandleErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, "Invalid rebalance flag")
			return
		}
		rebalance = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	if err := h.service.DeleteKeyResult(ctx, id, rebalance, middleware.GetUsernameFromContext(r.Context())); err != nil {
		fail(w, r, h.opts.Log, "key_result.delete", err)
		return
	}

	utils.HandleMessageResponse(w, "Key result deleted successfully", http.StatusOK)
}

func (h *KeyResultHandler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	objectiveID, ok := pathID(w, r, "id", "objective")
	if !ok {
		return
	}
	var req models.WeightBatchRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	set, err := h.service.UpdateWeights(ctx, objectiveID, &req, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "weights.update", err)
		return
	}

	utils.HandleDataResponse(w, "Weights updated successfully", set, http.StatusOK)
}

func (h *KeyResultHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	objectiveID, ok := pathID(w, r, "id", "objective")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	set, err := h.service.Rebalance(ctx, objectiveID, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "weights.rebalance", err)
		return
	}

	utils.HandleDataResponse(w, "Weights rebalanced successfully", set, http.StatusOK)
}

func (h *KeyResultHandler) PromoteToKPI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "key result")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	kr, err := h.service.Promote(ctx, id, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "key_result.promote", err)
		return
	}

	utils.HandleDataResponse(w, "Key result promoted to KPI", kr, http.StatusOK)
}

func (h *KeyResultHandler) UnpromoteFromKPI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "key result")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	kr, err := h.service.Unpromote(ctx, id, middleware.GetUsernameFromContext(r.Context()))
	if err != nil {
		fail(w, r, h.opts.Log, "key_result.unpromote", err)
		return
	}

	utils.HandleDataResponse(w, "Key result removed from KPIs", kr, http.StatusOK)
}

func (h *KeyResultHandler) GetKPIDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	entries, err := h.service.KPIDashboard(ctx)
	if err != nil {
		fail(w, r, h.opts.Log, "kpi_dashboard", err)
		return
	}

	utils.HandleDataResponse(w, "KPI dashboard retrieved successfully", entries, http.StatusOK)
}
