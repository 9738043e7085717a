package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/journey"
	"github.com/saferoute/saferoute/internal/routing"
)

// JourneyPlanner plans a trip across travel modes.
type JourneyPlanner interface {
	Plan(ctx context.Context, req journey.Request) (*journey.Plan, error)
}

// JourneyHandler handles journey planning endpoints.
type JourneyHandler struct {
	planner JourneyPlanner
	clock   Clock
	logger  zerolog.Logger
}

// NewJourneyHandler creates a new JourneyHandler.
func NewJourneyHandler(planner JourneyPlanner, clock Clock, logger zerolog.Logger) *JourneyHandler {
	return &JourneyHandler{planner: planner, clock: clock, logger: logger}
}

// PlanJourney handles POST /v1/journeys:plan.
func (h *JourneyHandler) PlanJourney(w http.ResponseWriter, r *http.Request) {
	var req models.JourneyPlanRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	plan, err := h.planner.Plan(r.Context(), journey.Request{
		Origin:           toCoordinate(req.Origin),
		Destination:      toCoordinate(req.Destination),
		OriginLabel:      req.OriginLabel,
		DestinationLabel: req.DestinationLabel,
		Modes:            toModes(req.Modes),
		Now:              h.clock.Local(req.DepartAt, req.TimeZone),
	})
	if err != nil {
		if errors.Is(err, journey.ErrInvalidLocation) || errors.Is(err, routing.ErrUnsupportedMode) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Msg("journey planning failed")
		response.InternalError(w, r, "journey planning failed")
		return
	}

	response.JSON(w, r, http.StatusOK, fromPlan(plan, h.clock.now()))
}
