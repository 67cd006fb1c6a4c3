package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"sync"

	_ "image/gif"

	xdraw "golang.org/x/image/draw"
)

// MaxTiles caps the number of tiles fetched for one mosaic.
const MaxTiles = 64

// BuildMosaic fetches the tiles covering the bbox and resamples the stitched
// Web Mercator canvas onto an outW x outH raster that is linear in latitude,
// matching render.Projection.
func BuildMosaic(
	ctx context.Context,
	f *Fetcher,
	preset Preset,
	minLon, minLat, maxLon, maxLat float64,
	outW, outH int,
) (*image.RGBA, int, error) {
	z := ClampZoom(ChooseZoom(minLon, minLat, maxLon, maxLat, outW, preset, MaxTiles), preset)

	tlx, tly, brx, bry := BBoxPixels(minLon, minLat, maxLon, maxLat, z)
	minTX, minTY, maxTX, maxTY := CoveringTiles(minLon, minLat, maxLon, maxLat, z)
	wTiles, hTiles := maxTX-minTX+1, maxTY-minTY+1
	if wTiles <= 0 || hTiles <= 0 {
		return nil, z, fmt.Errorf("invalid tile range at zoom %d", z)
	}
	big := image.NewRGBA(image.Rect(0, 0, wTiles*TileSize, hTiles*TileSize))

	// качаем параллельно; первая ошибка отменяет остальных
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	type job struct{ X, Y int }
	jobs := make(chan job, wTiles*hTiles)
	errCh := make(chan error, 1)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := 6
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if wctx.Err() != nil {
					return
				}
				img, err := fetchTile(wctx, f, preset, z, j.X, j.Y)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
					return
				}
				offX := (j.X - minTX) * TileSize
				offY := (j.Y - minTY) * TileSize
				mu.Lock()
				draw.Draw(big, image.Rect(offX, offY, offX+TileSize, offY+TileSize), img, img.Bounds().Min, draw.Src)
				mu.Unlock()
			}
		}()
	}
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			jobs <- job{X: tx, Y: ty}
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, z, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, z, err
	}

	// тайлы в меркаторе, кадр линеен по широте: берём строку под каждую
	// строку кадра, по долготе меркатор и так линеен
	ox, oy := float64(minTX*TileSize), float64(minTY*TileSize)
	x0 := int(math.Floor(tlx - ox))
	x1 := int(math.Ceil(brx - ox))
	if x1 <= x0 || bry <= tly {
		return nil, z, fmt.Errorf("empty crop at zoom %d", z)
	}
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		lat := maxLat - (float64(y)+0.5)/float64(outH)*(maxLat-minLat)
		_, py := LonLatToPixel(minLon, lat, z)
		sy := int(math.Floor(py - oy))
		src := image.Rect(x0, sy, x1, sy+1).Intersect(big.Bounds())
		if src.Empty() {
			continue
		}
		xdraw.ApproxBiLinear.Scale(dst, image.Rect(0, y, outW, y+1), big, src, draw.Src, nil)
	}
	return dst, z, nil
}

func fetchTile(ctx context.Context, f *Fetcher, p Preset, z, x, y int) (image.Image, error) {
	u, err := p.FillURL(z, x, y)
	if err != nil {
		return nil, err
	}
	data, err := f.GetTile(ctx, u, p.Headers)
	if err != nil {
		return nil, fmt.Errorf("get tile %d/%d/%d: %w", z, x, y, err)
	}
	img, _, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode tile %d/%d/%d: %w", z, x, y, err)
	}
	return img, nil
}

func decodeImage(b []byte) (image.Image, string, error) {
	if len(b) >= 8 && bytes.Equal(b[:8], []byte{137, 80, 78, 71, 13, 10, 26, 10}) {
		img, err := png.Decode(bytes.NewReader(b))
		return img, "png", err
	}
	if len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF {
		img, err := jpeg.Decode(bytes.NewReader(b))
		return img, "jpeg", err
	}
	return image.Decode(bytes.NewReader(b))
}
