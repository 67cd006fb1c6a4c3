package tiles

import (
	"math"
)

const TileSize = 256

const maxMercatorLat = 85.05112878

// mercX/Y: lon/lat (deg) -> normalized mercator [0..1]
func mercX(lon float64) float64 { return (lon + 180.0) / 360.0 }
func mercY(lat float64) float64 {
	lat = math.Min(maxMercatorLat, math.Max(-maxMercatorLat, lat))
	s := math.Sin(lat * math.Pi / 180.0)
	return 0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)
}

// worldSize is the width of the world in pixels at zoom z.
func worldSize(z int) float64 { return float64(TileSize) * math.Exp2(float64(z)) }

// LonLatToPixel returns world-pixel coordinates at zoom z.
func LonLatToPixel(lon, lat float64, z int) (px, py float64) {
	ws := worldSize(z)
	return mercX(lon) * ws, mercY(lat) * ws
}

// BBoxPixels returns top-left and bottom-right world pixels of a bbox.
func BBoxPixels(minLon, minLat, maxLon, maxLat float64, z int) (tlx, tly, brx, bry float64) {
	tlx, tly = LonLatToPixel(minLon, maxLat, z)
	brx, bry = LonLatToPixel(maxLon, minLat, z)
	return
}

// CoveringTiles returns the inclusive tile range covering the bbox at zoom z.
func CoveringTiles(minLon, minLat, maxLon, maxLat float64, z int) (minTX, minTY, maxTX, maxTY int) {
	tlx, tly, brx, bry := BBoxPixels(minLon, minLat, maxLon, maxLat, z)
	minTX = int(math.Floor(tlx / TileSize))
	minTY = int(math.Floor(tly / TileSize))
	maxTX = int(math.Floor((brx - 1) / TileSize))
	maxTY = int(math.Floor((bry - 1) / TileSize))
	return
}

// ChooseZoom returns the lowest zoom at which the bbox is at least targetW
// pixels wide, so the mosaic is downscaled rather than upscaled. The result
// is clamped to the preset's range and lowered until at most maxTiles tiles
// are needed.
func ChooseZoom(minLon, minLat, maxLon, maxLat float64, targetW int, p Preset, maxTiles int) int {
	z := p.MaxZoom
	for zz := p.MinZoom; zz <= p.MaxZoom; zz++ {
		tlx, _, brx, _ := BBoxPixels(minLon, minLat, maxLon, maxLat, zz)
		if brx-tlx >= float64(targetW) {
			z = zz
			break
		}
	}
	for ; z > p.MinZoom; z-- {
		x0, y0, x1, y1 := CoveringTiles(minLon, minLat, maxLon, maxLat, z)
		if (x1-x0+1)*(y1-y0+1) <= maxTiles {
			break
		}
	}
	return z
}
