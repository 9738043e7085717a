package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/sos"
)

// SOSHandler handles emergency alert endpoints.
type SOSHandler struct {
	service *sos.Service
	logger  zerolog.Logger
}

// NewSOSHandler creates a new SOSHandler.
func NewSOSHandler(service *sos.Service, logger zerolog.Logger) *SOSHandler {
	return &SOSHandler{service: service, logger: logger}
}

// RaiseSOS handles POST /v1/me/sos. The alert is queued for the worker,
// which notifies the user's guardians.
func (h *SOSHandler) RaiseSOS(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	var req models.SOSRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	alert, err := h.service.Raise(r.Context(), userID, sos.Location{
		Lat:            req.Location.Lat,
		Lon:            req.Location.Lon,
		AccuracyMeters: req.Location.AccuracyMeters,
	}, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, sos.ErrInvalidLocation):
			response.BadRequest(w, r, err.Error(), nil)
		case errors.Is(err, sos.ErrMessageTooLong):
			response.BadRequest(w, r, "validation error", []models.FieldError{
				{Field: "message", Message: "is too long", Code: "TOO_LONG"},
			})
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to queue sos alert")
			response.ServiceUnavailable(w, r, "alert could not be queued, call emergency services directly")
		}
		return
	}

	h.logger.Info().Str("user_id", userID).Str("alert_id", alert.ID).Msg("sos alert raised")
	response.Accepted(w, r, "/v1/me/sos/"+alert.ID, fromAlert(alert))
}
