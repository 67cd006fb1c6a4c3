package export

import (
	"fmt"
	"image"
	"math"
	"sort"
	"time"
)

// Options describe one export.
type Options struct {
	Start, End time.Time
	Duration   time.Duration
	FPS        float64
	// Width and Height of the output; zero takes the region or view size.
	Width, Height int
	// Region is an optional pixel rectangle of the view to export.
	Region *image.Rectangle
}

// FrameCount is floor(duration x fps).
func (o Options) FrameCount() int {
	return int(math.Floor(o.Duration.Seconds() * o.FPS))
}

// Delay is the per-frame display time, 1000/fps ms.
func (o Options) Delay() time.Duration {
	return time.Duration(float64(time.Second) / o.FPS)
}

func (o Options) validate() error {
	switch {
	case o.FPS <= 0 || math.IsNaN(o.FPS):
		return fmt.Errorf("%w: fps must be > 0", ErrInvalidOptions)
	case o.Duration <= 0:
		return fmt.Errorf("%w: duration must be > 0", ErrInvalidOptions)
	case o.End.Before(o.Start):
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidOptions, o.End.Format(time.DateOnly), o.Start.Format(time.DateOnly))
	case o.FrameCount() < 1:
		return fmt.Errorf("%w: duration x fps gives no frames", ErrInvalidOptions)
	case o.Width < 0 || o.Height < 0:
		return fmt.Errorf("%w: negative size", ErrInvalidOptions)
	case o.Region != nil && o.Region.Empty():
		return fmt.Errorf("%w: empty region", ErrInvalidOptions)
	}
	return nil
}

// ActivityDays returns the distinct calendar days in loc, within
// [start, end], on which at least one of starts falls. Each day is given as
// its final instant, capped at end.
func ActivityDays(starts []time.Time, start, end time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	seen := make(map[string]time.Time)
	for _, t := range starts {
		if t.Before(start) || t.After(end) {
			continue
		}
		lt := t.In(loc)
		key := lt.Format(time.DateOnly)
		if _, ok := seen[key]; ok {
			continue
		}
		y, m, d := lt.Date()
		last := time.Date(y, m, d+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
		if last.After(end) {
			last = end
		}
		seen[key] = last
	}
	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Timestamps maps every frame to a virtual time. Frames are spread over the
// activity-bearing days only; without any, the range is sampled uniformly.
func Timestamps(days []time.Time, frameCount int, start, end time.Time) []time.Time {
	out := make([]time.Time, frameCount)
	if len(days) > 0 {
		for i := range out {
			out[i] = days[dayIndex(i, frameCount, len(days))]
		}
		return out
	}
	span := end.Sub(start)
	for i := range out {
		if frameCount == 1 {
			out[i] = end
			continue
		}
		out[i] = start.Add(time.Duration(float64(span) * float64(i) / float64(frameCount-1)))
	}
	return out
}

// dayIndex is floor(i/(frameCount-1) x numDays), clamped to the last day.
// A single frame shows the last day.
func dayIndex(i, frameCount, numDays int) int {
	if frameCount <= 1 {
		return numDays - 1
	}
	idx := int(math.Floor(float64(i) / float64(frameCount-1) * float64(numDays)))
	if idx >= numDays {
		idx = numDays - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Filename suggests an output name encoding the date range.
func Filename(start, end time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("routes_%s_to_%s.gif", start.In(loc).Format(time.DateOnly), end.In(loc).Format(time.DateOnly))
}
