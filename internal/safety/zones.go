package safety

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/rtree"

	"github.com/saferoute/saferoute/internal/geo"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/pkg/polyline"
)

//go:embed zones.json
var defaultZonesJSON []byte

// routeSampleInterval is the spacing of points checked along a route.
const routeSampleInterval = 25.0

// ErrInvalidZone is returned when a zone definition fails validation.
var ErrInvalidZone = errors.New("invalid danger zone")

// RiskLevel grades a danger zone.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r.rank() > 0
}

// TimeWindow restricts when a zone applies. StartHour > EndHour wraps past
// midnight. Empty Days means every day.
type TimeWindow struct {
	StartHour int
	EndHour   int
	Days      []time.Weekday
}

// Active reports whether t falls inside the window. The day check uses the
// day the window started, so a Friday 22-05 window covers Saturday 02:00.
func (w *TimeWindow) Active(t time.Time) bool {
	if w == nil {
		return true
	}

	h := t.Hour()
	day := t.Weekday()

	var inHours bool
	switch {
	case w.StartHour == w.EndHour:
		inHours = true
	case w.StartHour < w.EndHour:
		inHours = h >= w.StartHour && h < w.EndHour
	default:
		inHours = h >= w.StartHour || h < w.EndHour
		if h < w.EndHour {
			day = (day + 6) % 7
		}
	}
	if !inHours {
		return false
	}

	if len(w.Days) == 0 {
		return true
	}
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

type timeWindowJSON struct {
	StartHour int      `json:"startHour"`
	EndHour   int      `json:"endHour"`
	Days      []string `json:"days,omitempty"`
}

// MarshalJSON writes days as lowercase names.
func (w TimeWindow) MarshalJSON() ([]byte, error) {
	out := timeWindowJSON{StartHour: w.StartHour, EndHour: w.EndHour}
	for _, d := range w.Days {
		out.Days = append(out.Days, strings.ToLower(d.String()))
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads days as weekday names.
func (w *TimeWindow) UnmarshalJSON(b []byte) error {
	var in timeWindowJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in.StartHour < 0 || in.StartHour > 23 || in.EndHour < 0 || in.EndHour > 23 {
		return fmt.Errorf("%w: window hours must be 0-23", ErrInvalidZone)
	}

	w.StartHour, w.EndHour, w.Days = in.StartHour, in.EndHour, nil
	for _, name := range in.Days {
		d, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidZone, name)
		}
		w.Days = append(w.Days, d)
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// LatLon is a zone centre.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DangerZone is a static circular region with a risk level.
type DangerZone struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Center       LatLon      `json:"center"`
	RadiusMeters float64     `json:"radiusMeters"`
	Risk         RiskLevel   `json:"risk"`
	Window       *TimeWindow `json:"window,omitempty"`
	Alternate    string      `json:"alternate,omitempty"`
}

// Contains reports whether the point lies inside the zone's circle.
func (z *DangerZone) Contains(lat, lon float64) bool {
	return geo.Haversine(z.Center.Lat, z.Center.Lon, lat, lon) <= z.RadiusMeters
}

func (z *DangerZone) validate() error {
	switch {
	case z.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidZone)
	case z.RadiusMeters <= 0:
		return fmt.Errorf("%w: %s has non-positive radius", ErrInvalidZone, z.ID)
	case !z.Risk.Valid():
		return fmt.Errorf("%w: %s has unknown risk %q", ErrInvalidZone, z.ID, z.Risk)
	}
	return routing.Coordinate{Lat: z.Center.Lat, Lon: z.Center.Lon}.Validate()
}

// ZoneRegistry indexes danger zones by bounding box. It is immutable after
// construction and safe for concurrent use.
type ZoneRegistry struct {
	zones []DangerZone
	index rtree.RTreeG[int]
}

// NewZoneRegistry validates and indexes zones.
func NewZoneRegistry(zones []DangerZone) (*ZoneRegistry, error) {
	r := &ZoneRegistry{zones: make([]DangerZone, len(zones))}
	seen := make(map[string]bool, len(zones))

	for i := range zones {
		z := zones[i]
		if err := z.validate(); err != nil {
			return nil, err
		}
		if seen[z.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidZone, z.ID)
		}
		seen[z.ID] = true
		r.zones[i] = z

		dLat := geo.MetersToLatDegrees(z.RadiusMeters)
		dLon := geo.MetersToLonDegrees(z.RadiusMeters, z.Center.Lat)
		r.index.Insert(
			[2]float64{z.Center.Lon - dLon, z.Center.Lat - dLat},
			[2]float64{z.Center.Lon + dLon, z.Center.Lat + dLat},
			i,
		)
	}
	return r, nil
}

// LoadZones reads zones from path, or the embedded default set when path is empty.
func LoadZones(path string, logger zerolog.Logger) (*ZoneRegistry, error) {
	data := defaultZonesJSON
	source := "embedded"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading danger zones: %w", err)
		}
		data, source = b, path
	}

	var zones []DangerZone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, fmt.Errorf("parsing danger zones from %s: %w", source, err)
	}

	reg, err := NewZoneRegistry(zones)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("source", source).
		Int("zones", reg.Len()).
		Msg("loaded danger zones")

	return reg, nil
}

// Len returns the number of zones.
func (r *ZoneRegistry) Len() int {
	return len(r.zones)
}

// Active returns every zone whose window is open at t, most severe first.
func (r *ZoneRegistry) Active(t time.Time) []DangerZone {
	hits := make(map[int]struct{})
	for i := range r.zones {
		if r.zones[i].Window.Active(t) {
			hits[i] = struct{}{}
		}
	}
	return r.sorted(hits)
}

// Near returns the zones containing the point that are active at t,
// most severe first.
func (r *ZoneRegistry) Near(p routing.Coordinate, t time.Time) []DangerZone {
	hits := make(map[int]struct{})
	r.collect(p, t, hits)
	return r.sorted(hits)
}

// AlongRoute returns the zones touched by the route geometry at t, most
// severe first. The geometry is sampled so long straight segments are
// checked between their vertices.
func (r *ZoneRegistry) AlongRoute(geometry []routing.Coordinate, t time.Time) []DangerZone {
	if len(geometry) == 0 {
		return nil
	}

	line := make([]polyline.Coordinate, len(geometry))
	for i, c := range geometry {
		line[i] = polyline.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}

	hits := make(map[int]struct{})
	for _, p := range polyline.Sample(line, routeSampleInterval) {
		r.collect(routing.Coordinate{Lat: p.Lat, Lon: p.Lon}, t, hits)
	}
	return r.sorted(hits)
}

func (r *ZoneRegistry) collect(p routing.Coordinate, t time.Time, hits map[int]struct{}) {
	pt := [2]float64{p.Lon, p.Lat}
	r.index.Search(pt, pt, func(_, _ [2]float64, i int) bool {
		z := &r.zones[i]
		if z.Contains(p.Lat, p.Lon) && z.Window.Active(t) {
			hits[i] = struct{}{}
		}
		return true
	})
}

func (r *ZoneRegistry) sorted(hits map[int]struct{}) []DangerZone {
	out := make([]DangerZone, 0, len(hits))
	for i := range hits {
		out = append(out, r.zones[i])
	}
	sort.Slice(out, func(a, b int) bool {
		if ra, rb := out[a].Risk.rank(), out[b].Risk.rank(); ra != rb {
			return ra > rb
		}
		return out[a].ID < out[b].ID
	})
	return out
}
