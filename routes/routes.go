package routes

import (
	"net/http"

	"okrproject/handlers"
	"okrproject/logger"
	"okrproject/metrics"
	"okrproject/middlewares"
	"okrproject/utils"
)

type Handlers struct {
	Objectives  *handlers.ObjectiveHandler
	KeyResults  *handlers.KeyResultHandler
	Initiatives *handlers.InitiativeHandler
	CheckIns    *handlers.CheckInHandler
}

func SetupRoutes(h Handlers, jwtSecret string, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Apply JWT middleware to all API routes
	jwtMiddleware := middlewares.JWTMiddleware(jwtSecret, log)
	api := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, jwtMiddleware(fn))
	}

	// Objectives
	api("POST /api/objectives", h.Objectives.CreateObjective)
	api("GET /api/objectives/{id}", h.Objectives.GetObjective)
	api("PATCH /api/objectives/{id}/parent", h.Objectives.ReparentObjective)
	api("DELETE /api/objectives/{id}", h.Objectives.DeleteObjective)
	api("POST /api/objectives/{id}/recompute", h.Objectives.RecomputeObjective)
	api("PATCH /api/objectives/{id}/key-results/weights", h.KeyResults.UpdateWeights)
	api("POST /api/objectives/{id}/key-results/rebalance", h.KeyResults.Rebalance)

	// Key results and KPI promotion
	api("POST /api/key-results", h.KeyResults.CreateKeyResult)
	api("GET /api/key-results/{id}", h.KeyResults.GetKeyResult)
	api("PATCH /api/key-results/{id}", h.KeyResults.UpdateKeyResult)
	api("DELETE /api/key-results/{id}", h.KeyResults.DeleteKeyResult)
	api("POST /api/key-results/{id}/kpi", h.KeyResults.PromoteToKPI)
	api("DELETE /api/key-results/{id}/kpi", h.KeyResults.UnpromoteFromKPI)
	api("GET /api/kpi-dashboard", h.KeyResults.GetKPIDashboard)

	// Initiatives
	api("POST /api/initiatives", h.Initiatives.CreateInitiative)
	api("GET /api/initiatives/{id}", h.Initiatives.GetInitiative)

	// Check-in ledger
	api("POST /api/check-ins", h.CheckIns.RecordCheckIn)
	api("PATCH /api/check-ins/{id}", h.CheckIns.UpdateCheckIn)
	api("GET /api/check-ins", h.CheckIns.ListCheckIns)

	// Analytics
	api("GET /api/analytics/status", h.Objectives.GetStatusBreakdown)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.HandleMessageResponse(w, "ok", http.StatusOK)
	})

	return middlewares.Chain(mux, middlewares.RequestID, middlewares.AccessLog(log))
}
