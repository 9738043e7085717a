package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
)

// ZoneLookup finds active danger zones. safety.ZoneRegistry satisfies it.
type ZoneLookup interface {
	Near(p routing.Coordinate, at time.Time) []safety.DangerZone
	Active(at time.Time) []safety.DangerZone
}

// ZoneHandler handles danger-zone endpoints.
type ZoneHandler struct {
	zones ZoneLookup
	clock Clock
}

// NewZoneHandler creates a new ZoneHandler.
func NewZoneHandler(zones ZoneLookup, clock Clock) *ZoneHandler {
	return &ZoneHandler{zones: zones, clock: clock}
}

// ListZones handles GET /v1/danger-zones?lat=&lon=&at=&tz=. Without a
// point it lists every zone active at the requested time.
func (h *ZoneHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		errs []models.FieldError
		at   *models.Timestamp
	)
	if raw := q.Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "at", Message: "must be an RFC 3339 timestamp", Code: "INVALID_FORMAT"})
		}
		ts := models.Timestamp(parsed)
		at = &ts
	}
	tz := q.Get("tz")
	errs = append(errs, models.ValidateTimeZone("tz", tz)...)

	rawLat, rawLon := q.Get("lat"), q.Get("lon")
	var point *models.Point
	switch {
	case rawLat == "" && rawLon == "":
	case rawLat == "" || rawLon == "":
		errs = append(errs, models.FieldError{Field: "point", Message: "lat and lon must be given together", Code: "REQUIRED"})
	default:
		lat, err := strconv.ParseFloat(rawLat, 64)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "lat", Message: "must be a number", Code: "INVALID_FORMAT"})
		}
		lon, err := strconv.ParseFloat(rawLon, 64)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "lon", Message: "must be a number", Code: "INVALID_FORMAT"})
		}
		point = &models.Point{Lat: lat, Lon: lon}
	}

	if len(errs) == 0 && point != nil {
		errs = point.Validate("point")
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return
	}

	when := h.clock.Local(at, tz)

	var zones []safety.DangerZone
	if point != nil {
		zones = h.zones.Near(toCoordinate(point), when)
	} else {
		zones = h.zones.Active(when)
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	response.JSON(w, r, http.StatusOK, models.DangerZoneList{
		At:    models.Timestamp(when),
		Zones: fromZones(zones),
	})
}
