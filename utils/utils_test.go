package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"okrproject/models"
	"okrproject/progress"
	service "okrproject/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAndValidateCustomTags(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields map[string]string
	}{
		{
			name:   "unknown metric type",
			body:   `{"objective_id":"65f000000000000000000001","title":"x","metric_type":"sideways"}`,
			fields: map[string]string{"metric_type": "metric_type"},
		},
		{
			name:   "missing title",
			body:   `{"objective_id":"65f000000000000000000001","metric_type":"increase"}`,
			fields: map[string]string{"title": "required"},
		},
		{
			name:   "weight out of range",
			body:   `{"objective_id":"65f000000000000000000001","title":"x","metric_type":"maintain","weight":120}`,
			fields: map[string]string{"weight": "max"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/key-results", strings.NewReader(tt.body))
			var req models.CreateKeyResultRequest
			require.Error(t, DecodeAndValidate(w, r, &req))
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Errors map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.fields, resp.Errors)
		})
	}
}

func TestDecodeAndValidateCheckIn(t *testing.T) {
	w := httptest.NewRecorder()
	body := `{"entity_type":"key_result","entity_id":"65f000000000000000000001","new_value":3,"new_status":"postponed"}`
	r := httptest.NewRequest(http.MethodPost, "/api/check-ins", strings.NewReader(body))
	var req models.RecordCheckInRequest
	require.NoError(t, DecodeAndValidate(w, r, &req))
	assert.Equal(t, models.StatusPostponed, req.NewStatus)

	w = httptest.NewRecorder()
	body = `{"entity_type":"team","entity_id":"65f000000000000000000001","new_status":"paused"}`
	r = httptest.NewRequest(http.MethodPost, "/api/check-ins", strings.NewReader(body))
	require.Error(t, DecodeAndValidate(w, r, &req))
	assert.Contains(t, w.Body.String(), `"entity_type":"entity_type"`)
	assert.Contains(t, w.Body.String(), `"new_status":"status"`)
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		err       error
		code      int
		errorCode string
	}{
		{fmt.Errorf("objective x: %w", service.ErrNotFound), http.StatusNotFound, models.CodeNotFound},
		{fmt.Errorf("%w: lost race", service.ErrConflict), http.StatusConflict, models.CodeConflict},
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest, models.CodeInvalidInput},
		{service.ErrRollupManaged, http.StatusUnprocessableEntity, models.CodeRollupManaged},
		{fmt.Errorf("%w: loop", service.ErrCycle), http.StatusUnprocessableEntity, models.CodeCycle},
		{&service.WeightValidationError{Violations: []progress.WeightViolation{{Code: progress.ViolationLockedOverflow}}}, http.StatusUnprocessableEntity, models.CodeWeightValidation},
		{errors.New("socket closed"), http.StatusInternalServerError, models.CodeInternal},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		assert.Equal(t, tt.code, HandleServiceError(w, tt.err), tt.err.Error())
		assert.Equal(t, tt.code, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"`+tt.errorCode+`"`)
	}

	w := httptest.NewRecorder()
	HandleServiceError(w, errors.New("socket closed"))
	assert.NotContains(t, w.Body.String(), "socket")
}
