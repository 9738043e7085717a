package handler

import (
	"net/http"
	"strings"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/eta"
	"github.com/saferoute/saferoute/internal/journey"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
)

// EstimateHandler exposes the safety and ETA pipelines on their own.
type EstimateHandler struct {
	safety journey.SafetyScorer
	eta    journey.TimeEstimator
	clock  Clock
}

// NewEstimateHandler creates a new EstimateHandler.
func NewEstimateHandler(scorer journey.SafetyScorer, estimator journey.TimeEstimator, clock Clock) *EstimateHandler {
	return &EstimateHandler{safety: scorer, eta: estimator, clock: clock}
}

// ScoreSafety handles POST /v1/safety:score. It always answers 200 once
// the input is valid; the provenance field says which tier produced it.
func (h *EstimateHandler) ScoreSafety(w http.ResponseWriter, r *http.Request) {
	var req models.SafetyScoreRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	est := h.safety.Score(r.Context(), safety.Query{
		Origin:      strings.TrimSpace(req.Origin),
		Destination: strings.TrimSpace(req.Destination),
		Mode:        routing.Mode(req.Mode),
		At:          h.clock.Local(req.At, req.TimeZone),
	})
	response.JSON(w, r, http.StatusOK, fromSafety(est))
}

// EstimateETA handles POST /v1/eta:estimate.
func (h *EstimateHandler) EstimateETA(w http.ResponseWriter, r *http.Request) {
	var req models.ETAEstimateRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	est := h.eta.Estimate(r.Context(), eta.Query{
		Origin:               strings.TrimSpace(req.Origin),
		Destination:          strings.TrimSpace(req.Destination),
		Mode:                 routing.Mode(req.Mode),
		RouteDurationSeconds: req.RouteDurationSeconds,
		DistanceMeters:       req.DistanceMeters,
		At:                   h.clock.Local(req.DepartAt, req.TimeZone),
	})
	response.JSON(w, r, http.StatusOK, fromETA(est))
}
