// Package polyline decodes and encodes the signed-delta polyline format
// (precision 1e-5 degrees) used by activity summaries.
package polyline

import (
	"errors"
	"math"
)

const precision = 1e5

// ErrMalformed is returned by DecodeStrict when the input ends in the middle
// of a value or a coordinate pair.
var ErrMalformed = errors.New("polyline: malformed input")

// LatLng is a point in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Decode is the lenient form: empty or malformed input yields nil.
func Decode(encoded string) []LatLng {
	pts, err := DecodeStrict(encoded)
	if err != nil {
		return nil
	}
	return pts
}

// DecodeStrict decodes encoded and reports truncated input.
func DecodeStrict(encoded string) ([]LatLng, error) {
	if encoded == "" {
		return nil, nil
	}

	pts := make([]LatLng, 0, len(encoded)/4)
	var lat, lng int64
	i := 0
	for i < len(encoded) {
		dLat, next, ok := readValue(encoded, i)
		if !ok {
			return nil, ErrMalformed
		}
		dLng, next, ok := readValue(encoded, next)
		if !ok {
			return nil, ErrMalformed
		}
		i = next
		lat += dLat
		lng += dLng
		pts = append(pts, LatLng{
			Lat: float64(lat) / precision,
			Lng: float64(lng) / precision,
		})
	}
	return pts, nil
}

// readValue reads one zig-zag varint starting at i.
func readValue(s string, i int) (int64, int, bool) {
	var result int64
	shift := uint(0)
	for {
		if i >= len(s) || shift > 60 {
			return 0, i, false
		}
		b := int64(s[i]) - 63
		i++
		if b < 0 || b > 0x3f {
			return 0, i, false
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, true
	}
	return result >> 1, i, true
}

// Encode is the inverse of Decode, rounding to 1e-5 degrees.
func Encode(pts []LatLng) string {
	if len(pts) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(pts)*6)
	var prevLat, prevLng int64
	for _, p := range pts {
		lat := int64(math.Round(p.Lat * precision))
		lng := int64(math.Round(p.Lng * precision))
		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return string(buf)
}

func appendValue(buf []byte, v int64) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		buf = append(buf, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}
