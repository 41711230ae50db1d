package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"okrproject/handlers"
	"okrproject/logger"
	"okrproject/middlewares"
	"okrproject/models"
	"okrproject/progress"
	repository "okrproject/repositories"
	service "okrproject/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-secret"

type api struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	mem := repository.NewMemoryStore()
	engine := service.NewEngine(mem.Store(), service.Settings{
		Thresholds: progress.DefaultThresholds,
		Weights:    progress.DefaultWeightConfig,
	}, logger.Nop())
	engine.Clock = func() time.Time { return time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC) }

	opts := handlers.Options{Log: logger.Nop(), Timeout: 5 * time.Second}
	mux := SetupRoutes(Handlers{
		Objectives:  handlers.NewObjectiveHandler(service.NewObjectiveService(engine), opts),
		KeyResults:  handlers.NewKeyResultHandler(service.NewKeyResultService(engine), opts),
		Initiatives: handlers.NewInitiativeHandler(service.NewInitiativeService(engine), opts),
		CheckIns:    handlers.NewCheckInHandler(service.NewCheckInService(engine), opts),
	}, testSecret, logger.Nop())

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middlewares.Claims{Username: "alice"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &api{t: t, server: server, token: token}
}

// do sends body as JSON and decodes the envelope's data into out when given.
func (a *api) do(method, path string, body interface{}, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		envelope := struct {
			Data json.RawMessage `json:"data"`
		}{}
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&envelope))
		require.NoError(a.t, json.Unmarshal(envelope.Data, out))
	}
	return resp.StatusCode
}

func TestCheckInCascadesOverHTTP(t *testing.T) {
	a := newAPI(t)

	var parent, child models.Objective
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/objectives", map[string]interface{}{
		"title": "Grow revenue", "quarter": 1, "year": 2024,
	}, &parent))
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/objectives", map[string]interface{}{
		"title": "Win EMEA", "quarter": 1, "year": 2024, "parent_id": parent.ID,
	}, &child))
	assert.Equal(t, "alice", child.Metadata.CreatedBy)
	assert.Equal(t, "alice", child.OwnerID)

	var kr models.KeyResult
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/key-results", map[string]interface{}{
		"objective_id": child.ID, "title": "Deals closed", "metric_type": "increase",
		"initial_value": 0, "target_value": 200,
	}, &kr))

	var row models.CheckIn
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/check-ins", map[string]interface{}{
		"entity_type": "key_result", "entity_id": kr.ID, "new_value": 150, "note": "strong month",
	}, &row))
	assert.Equal(t, 75.0, row.NewProgress)
	assert.Equal(t, "alice", row.AuthorID)

	var got models.Objective
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/objectives/"+parent.ID.Hex(), nil, &got))
	assert.InDelta(t, 75, got.Progress, 1e-9)

	var history []models.CheckIn
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/check-ins?entityType=key_result&entityId="+kr.ID.Hex(), nil, &history))
	require.Len(t, history, 1)

	var edited models.CheckIn
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/api/check-ins/"+row.ID.Hex(), map[string]interface{}{
		"new_value": 100,
	}, &edited))
	assert.Equal(t, 50.0, edited.NewProgress)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/objectives/"+parent.ID.Hex(), nil, &got))
	assert.InDelta(t, 50, got.Progress, 1e-9)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)

	var o models.Objective
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/objectives", map[string]interface{}{"title": "o"}, &o))

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/objectives/not-an-id", nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/objectives/65f000000000000000000001", nil, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/objectives", map[string]interface{}{"description": "untitled"}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/api/check-ins", map[string]interface{}{
		"entity_type": "objective", "entity_id": o.ID, "new_progress": 40,
	}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPatch, "/api/objectives/"+o.ID.Hex()+"/parent", map[string]interface{}{
		"parent_id": o.ID,
	}, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/check-ins?entity_type=team&entity_id="+o.ID.Hex(), nil, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/objectives/"+o.ID.Hex()+"/recompute?as_of=yesterday", nil, nil))
}

func TestWeightBatchOverHTTP(t *testing.T) {
	a := newAPI(t)

	var o models.Objective
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/objectives", map[string]interface{}{"title": "o"}, &o))
	var first, second models.KeyResult
	for _, kr := range []*models.KeyResult{&first, &second} {
		require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/key-results", map[string]interface{}{
			"objective_id": o.ID, "title": "kr", "metric_type": "complete", "target_value": 10, "weight": 50,
		}, kr))
	}

	status := a.do(http.MethodPatch, "/api/objectives/"+o.ID.Hex()+"/key-results/weights", map[string]interface{}{
		"items": []map[string]interface{}{
			{"key_result_id": first.ID, "weight": 70, "is_weight_locked": true},
			{"key_result_id": second.ID, "weight": 40, "is_weight_locked": true},
		},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	var set models.WeightSet
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/api/objectives/"+o.ID.Hex()+"/key-results/weights", map[string]interface{}{
		"items": []map[string]interface{}{
			{"key_result_id": first.ID, "weight": 70, "is_weight_locked": true},
			{"key_result_id": second.ID, "weight": 30},
		},
	}, &set))
	require.Len(t, set.KeyResults, 2)
	assert.Equal(t, 70.0, set.KeyResults[0].Weight)
	assert.Equal(t, 30.0, set.KeyResults[1].Weight)
	assert.NotNil(t, set.ChildObjectives)

	var child models.Objective
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/objectives", map[string]interface{}{
		"title": "child", "parent_id": o.ID, "weight": 20, "is_weight_locked": true,
	}, &child))
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/objectives/"+o.ID.Hex()+"/key-results/rebalance", nil, &set))
	require.Len(t, set.ChildObjectives, 1)
	assert.Equal(t, child.ID, set.ChildObjectives[0].ID)
	assert.Equal(t, 20.0, set.ChildObjectives[0].Weight)
	assert.Equal(t, 10.0, set.KeyResults[1].Weight)

	var promoted models.KeyResult
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/key-results/"+first.ID.Hex()+"/kpi", nil, &promoted))
	assert.True(t, promoted.IsPromotedToKpi)
	var dashboard []models.KPIDashboardEntry
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/kpi-dashboard", nil, &dashboard))
	require.Len(t, dashboard, 1)
	assert.Equal(t, first.ID, dashboard[0].KeyResult.ID)
}

func TestPublicRoutes(t *testing.T) {
	a := newAPI(t)

	resp, err := a.server.Client().Get(a.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middlewares.RequestIDHeader))

	resp, err = a.server.Client().Get(a.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = a.server.Client().Get(a.server.URL + "/api/kpi-dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
