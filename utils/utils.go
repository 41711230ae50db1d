package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"okrproject/models"
	service "okrproject/services"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New()
	Validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	Validate.RegisterValidation("metric_type", func(fl validator.FieldLevel) bool {
		switch models.MetricType(fl.Field().String()) {
		case models.MetricIncrease, models.MetricDecrease, models.MetricMaintain, models.MetricComplete:
			return true
		}
		return false
	})
	Validate.RegisterValidation("entity_type", func(fl validator.FieldLevel) bool {
		switch models.EntityType(fl.Field().String()) {
		case models.EntityObjective, models.EntityKeyResult, models.EntityInitiative:
			return true
		}
		return false
	})
	Validate.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return models.Status(fl.Field().String()).Valid()
	})
}

// DecodeAndValidate decodes the request body into a structure and validates it
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		HandleErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, "Invalid request body: "+err.Error())
		return err
	}
	if err := Validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			HandleErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, err.Error())
			return err
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Namespace()[strings.Index(e.Namespace(), ".")+1:]] = e.Tag()
		}
		HandleValidationResponse(w, http.StatusBadRequest, models.CodeInvalidInput, errorMessages)
		return err
	}
	return nil
}

// HandleServiceError maps a service error onto the response envelope and
// returns the status code it wrote.
func HandleServiceError(w http.ResponseWriter, err error) int {
	var weightErr *service.WeightValidationError
	switch {
	case errors.As(err, &weightErr):
		HandleValidationResponse(w, http.StatusUnprocessableEntity, models.CodeWeightValidation, weightErr.Violations)
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotFound):
		return HandleErrorResponse(w, http.StatusNotFound, models.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return HandleErrorResponse(w, http.StatusConflict, models.CodeConflict, "Concurrent update, please retry")
	case errors.Is(err, service.ErrInvalidInput):
		return HandleErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, err.Error())
	case errors.Is(err, service.ErrRollupManaged):
		return HandleErrorResponse(w, http.StatusUnprocessableEntity, models.CodeRollupManaged, err.Error())
	case errors.Is(err, service.ErrCycle):
		return HandleErrorResponse(w, http.StatusUnprocessableEntity, models.CodeCycle, err.Error())
	}
	return HandleErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, "Internal server error")
}

// HandleErrorResponse writes a failed response with its error code and returns statusCode.
func HandleErrorResponse(w http.ResponseWriter, statusCode int, code, message string) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.NewErrorResponse(statusCode, code, message))
	return statusCode
}

// HandleMessageResponse handles both success and error responses
func HandleMessageResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	response := models.NewMessageResponse(statusCode, message)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// HandleValidationResponse handles validation errors response for struct validation
func HandleValidationResponse(w http.ResponseWriter, statusCode int, code string, validationErrors interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := models.NewValidationResponse(statusCode, code, validationErrors)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// HandleDataResponse handles success responses with data
func HandleDataResponse(w http.ResponseWriter, message string, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	response := models.NewDataResponse(statusCode, message, data)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
