// Package polyline encodes and decodes route geometries in Google's encoded
// polyline format and samples points along them.
// The format is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"

	"github.com/saferoute/saferoute/internal/geo"
)

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode decodes a precision-5 polyline (Google, ORS).
func Decode(encoded string) []Coordinate {
	return DecodePrecision(encoded, 5)
}

// Encode encodes coordinates as a precision-5 polyline.
func Encode(coords []Coordinate) string {
	return EncodePrecision(coords, 5)
}

// DecodePrecision decodes a polyline encoded with the given number of
// decimal places (5 for Google/ORS, 6 for OSRM "polyline6").
func DecodePrecision(encoded string, precision int) []Coordinate {
	if encoded == "" {
		return nil
	}

	factor := math.Pow10(precision)
	var coords []Coordinate
	index, lat, lon := 0, 0, 0

	for index < len(encoded) {
		var d int
		d, index = decodeValue(encoded, index)
		lat += d
		d, index = decodeValue(encoded, index)
		lon += d

		coords = append(coords, Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return coords
}

func decodeValue(encoded string, index int) (int, int) {
	shift, result := 0, 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// EncodePrecision encodes coordinates with the given number of decimal places.
func EncodePrecision(coords []Coordinate, precision int) string {
	if len(coords) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	encoded := make([]byte, 0, len(coords)*6)
	prevLat, prevLon := 0, 0

	for _, c := range coords {
		lat := int(math.Round(c.Lat * factor))
		lon := int(math.Round(c.Lon * factor))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Sample returns points spaced intervalMeters apart along the line, always
// including the first and last vertex. A non-positive interval returns the
// input unchanged.
func Sample(coords []Coordinate, intervalMeters float64) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	if intervalMeters <= 0 || len(coords) == 1 {
		return coords
	}

	sampled := []Coordinate{coords[0]}
	// Distance travelled since the last emitted sample.
	carried := 0.0

	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		segment := geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		if segment == 0 {
			continue
		}

		// Offset along this segment of the next sample.
		next := intervalMeters - carried
		for next <= segment {
			f := next / segment
			sampled = append(sampled, Coordinate{
				Lat: a.Lat + f*(b.Lat-a.Lat),
				Lon: a.Lon + f*(b.Lon-a.Lon),
			})
			next += intervalMeters
		}
		carried = segment - (next - intervalMeters)
	}

	last := coords[len(coords)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}

	return sampled
}
