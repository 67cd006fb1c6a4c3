package tiles

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"net/http"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/s0ultr4d3r/routereel/render"
)

// ExpandStaticURL fills {minLon},{minLat},{maxLon},{maxLat},{w},{h}.
func ExpandStaticURL(tpl string, b render.Bounds, w, h int) string {
	r := strings.NewReplacer(
		"{minLon}", fmt.Sprintf("%.6f", b.West),
		"{minLat}", fmt.Sprintf("%.6f", b.South),
		"{maxLon}", fmt.Sprintf("%.6f", b.East),
		"{maxLat}", fmt.Sprintf("%.6f", b.North),
		"{w}", fmt.Sprintf("%d", w),
		"{h}", fmt.Sprintf("%d", h),
	)
	return strings.TrimSpace(r.Replace(tpl))
}

// FetchStaticMap downloads a single rendered map image (Mapbox/MapTiler
// style static APIs).
func FetchStaticMap(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(url), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("map HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	img, _, err := decodeImage(buf)
	return img, err
}

func scaleTo(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
