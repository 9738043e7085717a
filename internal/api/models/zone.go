package models

// RiskLevel grades a danger zone.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// DangerZone is a static circular region with a risk level.
type DangerZone struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Center       Point       `json:"center"`
	RadiusMeters float64     `json:"radiusMeters"`
	Risk         RiskLevel   `json:"risk"`
	Window       *ZoneWindow `json:"window,omitempty"`
	Alternate    string      `json:"alternate,omitempty"`
}

// ZoneWindow is when a zone applies. StartHour > EndHour wraps past midnight.
type ZoneWindow struct {
	StartHour int      `json:"startHour"`
	EndHour   int      `json:"endHour"`
	Days      []string `json:"days,omitempty"`
}

// DangerZoneList is the response for GET /v1/danger-zones.
type DangerZoneList struct {
	At    Timestamp    `json:"at"`
	Zones []DangerZone `json:"zones"`
}
