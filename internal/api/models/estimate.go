package models

import "strings"

// Upper bounds for client-supplied route figures.
const (
	MaxRouteDurationSeconds = 7 * 24 * 60 * 60
	MaxDistanceMeters       = 20_000_000
)

// SafetyEstimate is a safety score for one trip and mode.
type SafetyEstimate struct {
	Score       float64    `json:"score"`
	Explanation string     `json:"explanation"`
	Provenance  Provenance `json:"provenance"`
	Confidence  int        `json:"confidence"`
	Clamped     bool       `json:"clamped,omitempty"`
}

// TimeEstimate is a travel-time prediction for one trip and mode.
type TimeEstimate struct {
	Mode                    Mode       `json:"mode"`
	RouteDurationSeconds    float64    `json:"routeDurationSeconds"`
	BaseDurationSeconds     float64    `json:"baseDurationSeconds"`
	AdjustedDurationSeconds float64    `json:"adjustedDurationSeconds"`
	DepartAt                Timestamp  `json:"departAt"`
	ArrivalAt               Timestamp  `json:"arrivalAt"`
	ArrivalClock            string     `json:"arrivalClock"`
	Notes                   string     `json:"notes"`
	Provenance              Provenance `json:"provenance"`
	Confidence              int        `json:"confidence"`
	Corrected               bool       `json:"corrected,omitempty"`
	CorrectionReason        string     `json:"correctionReason,omitempty"`
}

// SafetyScoreRequest is the request body for POST /v1/safety:score.
type SafetyScoreRequest struct {
	// Origin and Destination are place names or "lat,lon" strings.
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	Mode        Mode       `json:"mode"`
	At          *Timestamp `json:"at,omitempty"`

	// TimeZone is the traveller's IANA zone, used for the hour of day.
	TimeZone string `json:"timeZone,omitempty"`
}

// Validate validates the safety score request.
func (r *SafetyScoreRequest) Validate() []FieldError {
	errs := validatePlaces(r.Origin, r.Destination)
	errs = append(errs, validateMode("mode", r.Mode)...)
	return append(errs, ValidateTimeZone("timeZone", r.TimeZone)...)
}

// ETAEstimateRequest is the request body for POST /v1/eta:estimate.
type ETAEstimateRequest struct {
	Origin               string     `json:"origin"`
	Destination          string     `json:"destination"`
	Mode                 Mode       `json:"mode"`
	RouteDurationSeconds float64    `json:"routeDurationSeconds"`
	DistanceMeters       float64    `json:"distanceMeters"`
	DepartAt             *Timestamp `json:"departAt,omitempty"`
	TimeZone             string     `json:"timeZone,omitempty"`
}

// Validate validates the ETA estimate request.
func (r *ETAEstimateRequest) Validate() []FieldError {
	errs := validatePlaces(r.Origin, r.Destination)
	errs = append(errs, validateMode("mode", r.Mode)...)
	switch {
	case r.RouteDurationSeconds <= 0:
		errs = append(errs, FieldError{Field: "routeDurationSeconds", Message: "must be positive", Code: "OUT_OF_RANGE"})
	case r.RouteDurationSeconds > MaxRouteDurationSeconds:
		errs = append(errs, FieldError{Field: "routeDurationSeconds", Message: "must not exceed 7 days", Code: "OUT_OF_RANGE"})
	}
	switch {
	case r.DistanceMeters < 0:
		errs = append(errs, FieldError{Field: "distanceMeters", Message: "must not be negative", Code: "OUT_OF_RANGE"})
	case r.DistanceMeters > MaxDistanceMeters:
		errs = append(errs, FieldError{Field: "distanceMeters", Message: "must not exceed 20000 km", Code: "OUT_OF_RANGE"})
	}
	return append(errs, ValidateTimeZone("timeZone", r.TimeZone)...)
}

const maxPlaceLength = 200

func validatePlaces(origin, destination string) []FieldError {
	var errs []FieldError
	for _, p := range []struct{ field, value string }{{"origin", origin}, {"destination", destination}} {
		v := strings.TrimSpace(p.value)
		switch {
		case v == "":
			errs = append(errs, FieldError{Field: p.field, Message: "is required", Code: "REQUIRED"})
		case len(v) > maxPlaceLength:
			errs = append(errs, FieldError{Field: p.field, Message: "is too long", Code: "TOO_LONG"})
		}
	}
	return errs
}
