// Package models provides request and response models for the SafeRoute API.
package models

import (
	"fmt"
	"math"
	"time"

	// Zone data for containers without a system zoneinfo database.
	_ "time/tzdata"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate ranges. field prefixes the reported field names.
func (p *Point) Validate(field string) []FieldError {
	if p == nil {
		return []FieldError{{Field: field, Message: "is required", Code: "REQUIRED"}}
	}

	var errs []FieldError
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, FieldError{Field: field + ".lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		errs = append(errs, FieldError{Field: field + ".lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	return errs
}

// Mode represents a travel mode.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeCycling Mode = "cycling"
	ModeDriving Mode = "driving"
)

// Valid reports whether m is a known travel mode.
func (m Mode) Valid() bool {
	return m == ModeWalking || m == ModeCycling || m == ModeDriving
}

func validateMode(field string, m Mode) []FieldError {
	if m.Valid() {
		return nil
	}
	return []FieldError{{
		Field:   field,
		Message: fmt.Sprintf("must be one of %s, %s, %s", ModeWalking, ModeCycling, ModeDriving),
		Code:    "INVALID_ENUM",
	}}
}

// Provenance identifies which tier produced an estimate.
type Provenance string

const (
	ProvenancePrimaryAI   Provenance = "primary_ai"
	ProvenanceSecondaryAI Provenance = "secondary_ai"
	ProvenanceHeuristic   Provenance = "heuristic"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time.Time that marshals as RFC 3339.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be an RFC 3339 string")
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// TimeOrZero returns the time a possibly nil timestamp points to.
func (t *Timestamp) TimeOrZero() time.Time {
	if t == nil {
		return time.Time{}
	}
	return time.Time(*t)
}

// ValidateTimeZone checks that name is empty or an IANA zone. "Local" is
// rejected since it would mean the server's zone.
func ValidateTimeZone(field, name string) []FieldError {
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil || name == "Local" {
		return []FieldError{{
			Field:   field,
			Message: "must be an IANA time zone such as Europe/London",
			Code:    "INVALID_FORMAT",
		}}
	}
	return nil
}

// LocalTime resolves the traveller's wall-clock time for a request.
//
// An explicit timestamp keeps its own UTC offset unless timeZone names a
// zone, in which case the same instant is shown in that zone. Without a
// timestamp, now is shown in timeZone, or in def when timeZone is empty.
// timeZone must already have passed validation.
func LocalTime(at *Timestamp, timeZone string, now time.Time, def *time.Location) time.Time {
	loc := def
	if loc == nil {
		loc = time.UTC
	}
	if timeZone != "" {
		if named, err := time.LoadLocation(timeZone); err == nil {
			loc = named
		}
	}

	if at != nil {
		if timeZone == "" {
			return at.Time()
		}
		return at.Time().In(loc)
	}
	return now.In(loc)
}
