package models_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/api/models"
)

func fields(errs []models.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestPoint_Validate(t *testing.T) {
	tests := []struct {
		name  string
		point *models.Point
		want  []string
	}{
		{"valid", &models.Point{Lat: 51.5, Lon: -0.12}, []string{}},
		{"missing", nil, []string{"origin"}},
		{"lat out of range", &models.Point{Lat: 91, Lon: 0}, []string{"origin.lat"}},
		{"lon out of range", &models.Point{Lat: 0, Lon: -181}, []string{"origin.lon"}},
		{"nan", &models.Point{Lat: math.NaN(), Lon: math.NaN()}, []string{"origin.lat", "origin.lon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fields(tt.point.Validate("origin")))
		})
	}
}

func TestJourneyPlanRequest_Validate(t *testing.T) {
	valid := models.JourneyPlanRequest{
		Origin:      &models.Point{Lat: 51.5, Lon: -0.12},
		Destination: &models.Point{Lat: 51.51, Lon: -0.1},
		Modes:       []models.Mode{models.ModeWalking, models.ModeCycling},
	}
	assert.Empty(t, valid.Validate())

	missing := models.JourneyPlanRequest{Modes: []models.Mode{"teleport"}}
	assert.Equal(t, []string{"origin", "destination", "modes"}, fields(missing.Validate()))
}

func TestSafetyScoreRequest_Validate(t *testing.T) {
	req := models.SafetyScoreRequest{Origin: "  ", Destination: "King's Cross", Mode: models.ModeWalking}
	assert.Equal(t, []string{"origin"}, fields(req.Validate()))
}

func TestETAEstimateRequest_Validate(t *testing.T) {
	req := models.ETAEstimateRequest{
		Origin:         "Camden",
		Destination:    "Soho",
		Mode:           models.ModeDriving,
		DistanceMeters: -1,
	}
	assert.Equal(t, []string{"routeDurationSeconds", "distanceMeters"}, fields(req.Validate()))
}

func TestETAEstimateRequest_ValidateUpperBounds(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		distance float64
		want     []string
	}{
		{"at the caps", models.MaxRouteDurationSeconds, models.MaxDistanceMeters, []string{}},
		{"duration overflows", 1e13, 1000, []string{"routeDurationSeconds"}},
		{"distance too long", 600, 3e7, []string{"distanceMeters"}},
		{"both", math.Inf(1), math.Inf(1), []string{"routeDurationSeconds", "distanceMeters"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := models.ETAEstimateRequest{
				Origin:               "Camden",
				Destination:          "Soho",
				Mode:                 models.ModeDriving,
				RouteDurationSeconds: tt.duration,
				DistanceMeters:       tt.distance,
			}
			errs := req.Validate()
			assert.Equal(t, tt.want, fields(errs))
			for _, e := range errs {
				assert.Equal(t, "OUT_OF_RANGE", e.Code)
			}
		})
	}
}

func TestValidateTimeZone(t *testing.T) {
	tests := []struct {
		name string
		zone string
		ok   bool
	}{
		{"empty", "", true},
		{"iana", "Europe/London", true},
		{"utc", "UTC", true},
		{"unknown", "Mars/Olympus", false},
		{"server local", "Local", false},
		{"offset", "+01:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := models.ValidateTimeZone("timeZone", tt.zone)
			if tt.ok {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, "timeZone", errs[0].Field)
		})
	}

	req := models.JourneyPlanRequest{
		Origin:      &models.Point{Lat: 51.5, Lon: -0.12},
		Destination: &models.Point{Lat: 51.51, Lon: -0.1},
		Modes:       []models.Mode{models.ModeWalking},
		TimeZone:    "Europe/Narnia",
	}
	assert.Equal(t, []string{"timeZone"}, fields(req.Validate()))
}

func TestLocalTime(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	now := time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC)
	bst := models.Timestamp(time.Date(2026, 10, 16, 17, 30, 0, 0, time.FixedZone("", 3600)))
	utc := models.Timestamp(time.Date(2026, 10, 16, 16, 30, 0, 0, time.UTC))

	t.Run("now in default zone", func(t *testing.T) {
		got := models.LocalTime(nil, "", now, nil)
		assert.Equal(t, 23, got.Hour())
		assert.Equal(t, time.UTC, got.Location())
	})

	t.Run("now in configured default", func(t *testing.T) {
		assert.Equal(t, 8, models.LocalTime(nil, "", now, tokyo).Hour())
	})

	t.Run("now in requested zone", func(t *testing.T) {
		assert.Equal(t, 8, models.LocalTime(nil, "Asia/Tokyo", now, time.UTC).Hour())
	})

	t.Run("explicit offset kept", func(t *testing.T) {
		got := models.LocalTime(&bst, "", now, tokyo)
		assert.Equal(t, 17, got.Hour())
		_, offset := got.Zone()
		assert.Equal(t, 3600, offset)
	})

	t.Run("explicit instant shown in requested zone", func(t *testing.T) {
		got := models.LocalTime(&utc, "Europe/London", now, nil)
		assert.Equal(t, 17, got.Hour())
		assert.Equal(t, "Europe/London", got.Location().String())
		assert.True(t, got.Equal(utc.Time()))
	})
}

func TestTimestamp_RequiresOffset(t *testing.T) {
	var ts models.Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"2026-10-16T08:30:00"`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`"2026-10-16T08:30:00+01:00"`), &ts))
	assert.Equal(t, "2026-10-16T08:30:00+01:00", time.Time(ts).Format(time.RFC3339))
}

func TestSOSRequest_Validate(t *testing.T) {
	acc := -5.0
	tests := []struct {
		name string
		req  models.SOSRequest
		want []string
	}{
		{"valid", models.SOSRequest{Location: &models.SOSLocation{Lat: 51.5, Lon: -0.1}}, []string{}},
		{"missing location", models.SOSRequest{}, []string{"location"}},
		{"bad accuracy", models.SOSRequest{Location: &models.SOSLocation{Lat: 51.5, Lon: -0.1, AccuracyMeters: &acc}}, []string{"location.accuracyMeters"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fields(tt.req.Validate()))
		})
	}
}

func TestTimestamp_JSON(t *testing.T) {
	ts := models.Timestamp(time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC))
	b, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-14T18:30:00Z"`, string(b))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, ts.Time().Equal(back.Time()))

	assert.Error(t, json.Unmarshal([]byte(`12`), &back))

	var nilTS *models.Timestamp
	assert.True(t, nilTS.TimeOrZero().IsZero())
}
