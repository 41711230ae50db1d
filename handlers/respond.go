package handlers

import (
	"net/http"
	"time"

	"okrproject/logger"
	middleware "okrproject/middlewares"
	"okrproject/models"
	"okrproject/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultRequestTimeout = 10 * time.Second

// Options carries what every handler shares.
type Options struct {
	Log     *logger.Logger
	Timeout time.Duration
}

func (o Options) normalize() Options {
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultRequestTimeout
	}
	return o
}

func pathID(w http.ResponseWriter, r *http.Request, name, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(r.PathValue(name))
	if err != nil {
		utils.HandleErrorResponse(w, http.StatusBadRequest, models.CodeInvalidInput, "Invalid "+what+" ID format")
		return primitive.NilObjectID, false
	}
	return id, true
}

// fail writes err and logs it when it is not a caller mistake.
func fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, operation string, err error) {
	code := utils.HandleServiceError(w, err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed",
			"operation", operation,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
}

// asOfParam parses an optional as_of query value as RFC 3339 or a plain date.
func asOfParam(r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
