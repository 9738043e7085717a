package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "London to Paris",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 48.8566, lon2: 2.3522,
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
		{
			name: "Same point",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 51.5074, lon2: -0.1278,
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name: "Charing Cross to Liverpool Street",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 51.5155, lon2: -0.0922,
			wantMeters:       2_623,
			tolerancePercent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("Haversine() = %f, want 0", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine() = %.0f m, want %.0f m (off by %.2f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(51.5074, -0.1278, 51.5155, -0.0922)
	b := Haversine(51.5155, -0.0922, 51.5074, -0.1278)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("expected symmetric distance, got %f and %f", a, b)
	}
}

func TestHaversine_NaNPropagates(t *testing.T) {
	if got := Haversine(math.NaN(), 0, 0, 0); !math.IsNaN(got) {
		t.Errorf("expected NaN, got %f", got)
	}
}

func TestRadianConversion(t *testing.T) {
	if got := ToRadians(180); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("ToRadians(180) = %f", got)
	}
	if got := ToDegrees(math.Pi / 2); math.Abs(got-90) > 1e-12 {
		t.Errorf("ToDegrees(pi/2) = %f", got)
	}
}

func TestMetersToDegrees(t *testing.T) {
	// 1 degree of latitude is ~111.2 km.
	if got := MetersToLatDegrees(111_195); math.Abs(got-1) > 0.001 {
		t.Errorf("MetersToLatDegrees() = %f, want ~1", got)
	}
	// Longitude degrees widen away from the equator.
	if MetersToLonDegrees(1000, 60) <= MetersToLonDegrees(1000, 0) {
		t.Error("expected wider longitude span at higher latitude")
	}
	if got := MetersToLonDegrees(1000, 90); got != 180 {
		t.Errorf("expected cap at the pole, got %f", got)
	}
}
