package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/guardian"
)

// GuardianHandler handles guardian contact endpoints.
type GuardianHandler struct {
	service *guardian.Service
	logger  zerolog.Logger
}

// NewGuardianHandler creates a new GuardianHandler.
func NewGuardianHandler(service *guardian.Service, logger zerolog.Logger) *GuardianHandler {
	return &GuardianHandler{service: service, logger: logger}
}

// ListGuardians handles GET /v1/me/guardians.
func (h *GuardianHandler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	contacts, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list guardians")
		response.InternalError(w, r, "failed to list guardians")
		return
	}

	list := models.GuardianList{Items: make([]models.Guardian, len(contacts))}
	for i, c := range contacts {
		list.Items[i] = fromContact(c)
	}
	response.JSON(w, r, http.StatusOK, list)
}

// CreateGuardian handles POST /v1/me/guardians.
func (h *GuardianHandler) CreateGuardian(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	var req models.GuardianCreateRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	contact, err := h.service.Create(r.Context(), userID, req.Name, req.Phone)
	if err != nil {
		var validationErr *guardian.ValidationError
		switch {
		case errors.As(err, &validationErr):
			response.BadRequest(w, r, "validation error", validationErr.Errors)
		case errors.Is(err, guardian.ErrTooManyContacts):
			response.Conflict(w, r, "guardian contact limit reached")
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create guardian")
			response.InternalError(w, r, "failed to create guardian")
		}
		return
	}

	response.Created(w, r, "/v1/me/guardians/"+contact.ID, fromContact(contact))
}

// DeleteGuardian handles DELETE /v1/me/guardians/{guardianId}.
func (h *GuardianHandler) DeleteGuardian(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	id := chi.URLParam(r, "guardianId")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, guardian.ErrContactNotFound) {
			response.NotFound(w, r, "guardian not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to delete guardian")
		response.InternalError(w, r, "failed to delete guardian")
		return
	}

	response.NoContent(w, r)
}
