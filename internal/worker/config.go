// Package worker provides background job processing for SafeRoute.
package worker

import (
	"time"

	"github.com/saferoute/saferoute/internal/routing"
)

// Corridor is a frequently planned origin/destination pair whose routes are
// kept warm in the routing cache.
type Corridor struct {
	// Name is the human-readable name of the corridor.
	Name string

	Origin      routing.Coordinate
	Destination routing.Coordinate

	// Modes to warm. Empty means every mode.
	Modes []routing.Mode

	// Priority determines warm-up order (lower = higher priority).
	Priority int
}

// WarmupConfig holds configuration for the corridor warm-up job.
type WarmupConfig struct {
	// Corridors to warm. If empty, uses DefaultCorridors.
	Corridors []Corridor

	// Concurrency is the number of concurrent route acquisitions.
	// Default: 3
	Concurrency int

	// Timeout bounds each route acquisition.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultWarmupConfig returns the default warm-up configuration.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Corridors:   DefaultCorridors(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultCorridors returns late-night corridors across central London.
func DefaultCorridors() []Corridor {
	return []Corridor{
		{
			Name:        "Soho to King's Cross",
			Priority:    1,
			Origin:      routing.Coordinate{Lat: 51.5136, Lon: -0.1365},
			Destination: routing.Coordinate{Lat: 51.5308, Lon: -0.1238},
		},
		{
			Name:        "Shoreditch to Liverpool Street",
			Priority:    1,
			Origin:      routing.Coordinate{Lat: 51.5246, Lon: -0.0768},
			Destination: routing.Coordinate{Lat: 51.5178, Lon: -0.0823},
		},
		{
			Name:        "Camden to Euston",
			Priority:    1,
			Origin:      routing.Coordinate{Lat: 51.5390, Lon: -0.1426},
			Destination: routing.Coordinate{Lat: 51.5282, Lon: -0.1337},
		},
		{
			Name:        "Brixton to Vauxhall",
			Priority:    2,
			Origin:      routing.Coordinate{Lat: 51.4613, Lon: -0.1156},
			Destination: routing.Coordinate{Lat: 51.4861, Lon: -0.1253},
		},
		{
			Name:        "Elephant and Castle to London Bridge",
			Priority:    2,
			Origin:      routing.Coordinate{Lat: 51.4946, Lon: -0.1005},
			Destination: routing.Coordinate{Lat: 51.5049, Lon: -0.0863},
		},
		{
			Name:        "Limehouse to Canary Wharf",
			Priority:    3,
			Origin:      routing.Coordinate{Lat: 51.5123, Lon: -0.0396},
			Destination: routing.Coordinate{Lat: 51.5054, Lon: -0.0235},
			Modes:       []routing.Mode{routing.ModeWalking, routing.ModeCycling},
		},
	}
}

// Task is one (corridor, mode) acquisition.
type Task struct {
	Corridor string
	Origin   routing.Coordinate
	Dest     routing.Coordinate
	Mode     routing.Mode
}

// Tasks expands the corridors into per-mode tasks in corridor order.
func (c WarmupConfig) Tasks() []Task {
	var tasks []Task
	for _, corridor := range c.Corridors {
		modes := corridor.Modes
		if len(modes) == 0 {
			modes = routing.AllModes
		}
		for _, m := range modes {
			tasks = append(tasks, Task{
				Corridor: corridor.Name,
				Origin:   corridor.Origin,
				Dest:     corridor.Destination,
				Mode:     m,
			})
		}
	}
	return tasks
}
