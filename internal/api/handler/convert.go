package handler

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/eta"
	"github.com/saferoute/saferoute/internal/guardian"
	"github.com/saferoute/saferoute/internal/journey"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/internal/sos"
	"github.com/saferoute/saferoute/pkg/polyline"
)

func toCoordinate(p *models.Point) routing.Coordinate {
	return routing.Coordinate{Lat: p.Lat, Lon: p.Lon}
}

func fromCoordinate(c routing.Coordinate) models.Point {
	return models.Point{Lat: c.Lat, Lon: c.Lon}
}

func toModes(in []models.Mode) []routing.Mode {
	if len(in) == 0 {
		return nil
	}
	out := make([]routing.Mode, len(in))
	for i, m := range in {
		out[i] = routing.Mode(m)
	}
	return out
}

func fromSafety(e safety.Estimate) models.SafetyEstimate {
	return models.SafetyEstimate{
		Score:       e.Score,
		Explanation: e.Explanation,
		Provenance:  models.Provenance(e.Provenance),
		Confidence:  e.Confidence(),
		Clamped:     e.Clamped,
	}
}

func fromETA(e eta.Estimate) models.TimeEstimate {
	return models.TimeEstimate{
		Mode:                    models.Mode(e.Mode),
		RouteDurationSeconds:    e.RouteDurationSeconds,
		BaseDurationSeconds:     e.BaseDurationSeconds,
		AdjustedDurationSeconds: e.AdjustedDurationSeconds,
		DepartAt:                models.Timestamp(e.DepartAt),
		ArrivalAt:               models.Timestamp(e.ArrivalAt),
		ArrivalClock:            e.ArrivalClock,
		Notes:                   e.Notes,
		Provenance:              models.Provenance(e.Provenance),
		Confidence:              e.Confidence(),
		Corrected:               e.Corrected,
		CorrectionReason:        e.CorrectionReason,
	}
}

// fromRoute renders the geometry twice: as a GeoJSON LineString in lon/lat
// order for map layers and as a precision-5 encoded polyline for mobile clients.
func fromRoute(r routing.RouteResult) models.RouteInfo {
	line := make(orb.LineString, len(r.Geometry))
	coords := make([]polyline.Coordinate, len(r.Geometry))
	for i, c := range r.Geometry {
		line[i] = orb.Point{c.Lon, c.Lat}
		coords[i] = polyline.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}

	return models.RouteInfo{
		DistanceMeters:   r.DistanceMeters,
		DurationSeconds:  r.DurationSeconds,
		Quality:          models.RouteQuality(r.Quality),
		Corrected:        r.WasCorrected,
		CorrectionReason: r.CorrectionReason,
		Provider:         r.Provider,
		Geometry:         geojson.NewGeometry(line),
		Polyline:         polyline.Encode(coords),
	}
}

func fromZone(z safety.DangerZone) models.DangerZone {
	out := models.DangerZone{
		ID:           z.ID,
		Name:         z.Name,
		Center:       models.Point{Lat: z.Center.Lat, Lon: z.Center.Lon},
		RadiusMeters: z.RadiusMeters,
		Risk:         models.RiskLevel(z.Risk),
		Alternate:    z.Alternate,
	}
	if z.Window != nil {
		w := &models.ZoneWindow{StartHour: z.Window.StartHour, EndHour: z.Window.EndHour}
		for _, d := range z.Window.Days {
			w.Days = append(w.Days, strings.ToLower(d.String()))
		}
		out.Window = w
	}
	return out
}

func fromZones(zones []safety.DangerZone) []models.DangerZone {
	out := make([]models.DangerZone, len(zones))
	for i, z := range zones {
		out[i] = fromZone(z)
	}
	return out
}

func fromPlan(p *journey.Plan, generatedAt time.Time) models.JourneyPlanResponse {
	resp := models.JourneyPlanResponse{
		GeneratedAt: models.Timestamp(generatedAt),
		Origin:      fromCoordinate(p.Origin),
		Destination: fromCoordinate(p.Destination),
		DepartAt:    models.Timestamp(p.DepartAt),
		Options:     make([]models.JourneyOption, len(p.Options)),
	}
	for i, o := range p.Options {
		resp.Options[i] = models.JourneyOption{
			Mode:   models.Mode(o.Mode),
			Route:  fromRoute(o.Route),
			Safety: fromSafety(o.Safety),
			ETA:    fromETA(o.ETA),
			Zones:  fromZones(o.Zones),
		}
	}
	return resp
}

func fromContact(c *guardian.Contact) models.Guardian {
	return models.Guardian{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		CreatedAt: models.Timestamp(c.CreatedAt),
	}
}

func fromAlert(a *sos.Alert) models.SOSAlert {
	return models.SOSAlert{
		ID:     a.ID,
		Status: models.SOSStatusQueued,
		Location: models.SOSLocation{
			Lat:            a.Location.Lat,
			Lon:            a.Location.Lon,
			AccuracyMeters: a.Location.AccuracyMeters,
		},
		Message:  a.Message,
		RaisedAt: models.Timestamp(a.RaisedAt),
	}
}
