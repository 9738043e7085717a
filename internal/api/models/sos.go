package models

// SOSLocation is where the user is when raising an alert.
type SOSLocation struct {
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	AccuracyMeters *float64 `json:"accuracyMeters,omitempty"`
}

// SOSRequest is the request body for POST /v1/me/sos.
type SOSRequest struct {
	Location *SOSLocation `json:"location"`
	Message  string       `json:"message,omitempty"`
}

// Validate validates the SOS request.
func (r *SOSRequest) Validate() []FieldError {
	if r.Location == nil {
		return []FieldError{{Field: "location", Message: "is required", Code: "REQUIRED"}}
	}
	errs := (&Point{Lat: r.Location.Lat, Lon: r.Location.Lon}).Validate("location")
	if a := r.Location.AccuracyMeters; a != nil && *a < 0 {
		errs = append(errs, FieldError{Field: "location.accuracyMeters", Message: "must not be negative", Code: "OUT_OF_RANGE"})
	}
	return errs
}

// SOSAlert is the response for POST /v1/me/sos.
type SOSAlert struct {
	ID       string      `json:"id"`
	Status   string      `json:"status"`
	Location SOSLocation `json:"location"`
	Message  string      `json:"message"`
	RaisedAt Timestamp   `json:"raisedAt"`
}

// SOSStatusQueued means the alert was handed to the dispatch queue.
const SOSStatusQueued = "QUEUED"
