package models

// Error codes carried by failed responses so clients need not parse messages.
const (
	CodeInvalidInput     = "invalid_input"
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeRollupManaged    = "rollup_managed"
	CodeCycle            = "cycle"
	CodeWeightValidation = "weight_validation"
	CodeInternal         = "internal"
)

type MessageResponse struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

type ValidationResponse struct {
	StatusCode int         `json:"status_code"`
	Code       string      `json:"code,omitempty"`
	Errors     interface{} `json:"errors"`
}

type DataResponse struct {
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
}

func NewMessageResponse(statusCode int, message string) MessageResponse {
	return MessageResponse{
		StatusCode: statusCode,
		Message:    message,
	}
}

func NewErrorResponse(statusCode int, code, message string) MessageResponse {
	return MessageResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

func NewValidationResponse(statusCode int, code string, errors interface{}) ValidationResponse {
	return ValidationResponse{
		StatusCode: statusCode,
		Code:       code,
		Errors:     errors,
	}
}

func NewDataResponse(statusCode int, message string, data interface{}) DataResponse {
	return DataResponse{
		StatusCode: statusCode,
		Message:    message,
		Data:       data,
	}
}
