package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Encoder turns rendered frames into an animated image.
type Encoder interface {
	Encode(ctx context.Context, frames []*image.RGBA, delay time.Duration, progress func(done, total int)) ([]byte, error)
	// Ext is the file extension including the dot.
	Ext() string
}

// GIFEncoder writes a looping GIF. Frames are palettised in parallel with
// Floyd-Steinberg dithering.
type GIFEncoder struct {
	Palette color.Palette // palette.Plan9 if nil
	Workers int           // GOMAXPROCS if <= 0
	NoDither bool
}

func (g GIFEncoder) Ext() string { return ".gif" }

// Encode palettises frames and writes them with an infinite loop count.
func (g GIFEncoder) Encode(ctx context.Context, frames []*image.RGBA, delay time.Duration, progress func(done, total int)) ([]byte, error) {
	pal := g.Palette
	if pal == nil {
		pal = palette.Plan9
	}
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}
	hs := hundredths(delay)

	var (
		mu   sync.Mutex
		done int
	)
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, f := range frames {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			p := image.NewPaletted(f.Bounds(), pal)
			if g.NoDither {
				draw.Draw(p, p.Bounds(), f, f.Bounds().Min, draw.Src)
			} else {
				draw.FloydSteinberg.Draw(p, p.Bounds(), f, f.Bounds().Min)
			}
			out.Image[i] = p
			out.Delay[i] = hs

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(frames))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// hundredths converts a frame delay to GIF units, at least 1.
func hundredths(d time.Duration) int {
	h := int(math.Round(float64(d) / float64(10*time.Millisecond)))
	if h < 1 {
		h = 1
	}
	return h
}
