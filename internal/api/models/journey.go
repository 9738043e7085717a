package models

import "github.com/paulmach/orb/geojson"

// MaxModes bounds the modes accepted in one plan request.
const MaxModes = 3

// JourneyPlanRequest is the request body for POST /v1/journeys:plan.
type JourneyPlanRequest struct {
	Origin      *Point `json:"origin"`
	Destination *Point `json:"destination"`

	// OriginLabel and DestinationLabel are optional place names.
	OriginLabel      string `json:"originLabel,omitempty"`
	DestinationLabel string `json:"destinationLabel,omitempty"`

	// Modes defaults to every mode.
	Modes []Mode `json:"modes,omitempty"`

	// DepartAt defaults to now.
	DepartAt *Timestamp `json:"departAt,omitempty"`

	// TimeZone is the traveller's IANA zone. It sets the hour of day used
	// for time-of-day adjustments and the arrival clock.
	TimeZone string `json:"timeZone,omitempty"`
}

// Validate validates the plan request.
func (r *JourneyPlanRequest) Validate() []FieldError {
	errs := r.Origin.Validate("origin")
	errs = append(errs, r.Destination.Validate("destination")...)

	if len(r.Modes) > MaxModes {
		errs = append(errs, FieldError{Field: "modes", Message: "too many modes", Code: "TOO_MANY"})
	}
	for _, m := range r.Modes {
		errs = append(errs, validateMode("modes", m)...)
	}
	if len(r.OriginLabel) > maxPlaceLength {
		errs = append(errs, FieldError{Field: "originLabel", Message: "is too long", Code: "TOO_LONG"})
	}
	if len(r.DestinationLabel) > maxPlaceLength {
		errs = append(errs, FieldError{Field: "destinationLabel", Message: "is too long", Code: "TOO_LONG"})
	}
	return append(errs, ValidateTimeZone("timeZone", r.TimeZone)...)
}

// JourneyPlanResponse is the response for POST /v1/journeys:plan.
type JourneyPlanResponse struct {
	GeneratedAt Timestamp       `json:"generatedAt"`
	Origin      Point           `json:"origin"`
	Destination Point           `json:"destination"`
	DepartAt    Timestamp       `json:"departAt"`
	Options     []JourneyOption `json:"options"`
}

// JourneyOption is the plan for one travel mode.
type JourneyOption struct {
	Mode   Mode           `json:"mode"`
	Route  RouteInfo      `json:"route"`
	Safety SafetyEstimate `json:"safety"`
	ETA    TimeEstimate   `json:"eta"`
	Zones  []DangerZone   `json:"zones"`
}

// RouteQuality describes how a route was obtained.
type RouteQuality string

const (
	RouteQualityRouted    RouteQuality = "routed"
	RouteQualityCorrected RouteQuality = "corrected"
	RouteQualityEstimated RouteQuality = "estimated"
)

// RouteInfo is an acquired route.
type RouteInfo struct {
	DistanceMeters   float64           `json:"distanceMeters"`
	DurationSeconds  float64           `json:"durationSeconds"`
	Quality          RouteQuality      `json:"quality"`
	Corrected        bool              `json:"corrected"`
	CorrectionReason string            `json:"correctionReason,omitempty"`
	Provider         string            `json:"provider,omitempty"`
	Geometry         *geojson.Geometry `json:"geometry"`
	Polyline         string            `json:"polyline"`
}
