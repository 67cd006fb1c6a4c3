package export

import (
	"testing"
	"time"
)

func TestActivityDays(t *testing.T) {
	starts := []time.Time{
		day("2024-01-01").Add(7 * time.Hour),
		day("2024-01-01").Add(18 * time.Hour),
		day("2024-01-06"),
		day("2023-12-31"), // before range
		day("2024-02-01"), // after range
	}
	days := ActivityDays(starts, day("2024-01-01"), day("2024-01-10"), nil)
	if len(days) != 2 {
		t.Fatalf("days = %v, want 2", days)
	}
	want := day("2024-01-02").Add(-time.Nanosecond)
	if !days[0].Equal(want) {
		t.Errorf("days[0] = %v, want end of 2024-01-01", days[0])
	}
}

func TestActivityDaysCappedAtEnd(t *testing.T) {
	end := day("2024-01-06").Add(12 * time.Hour)
	days := ActivityDays([]time.Time{day("2024-01-06").Add(time.Hour)}, day("2024-01-01"), end, nil)
	if len(days) != 1 || !days[0].Equal(end) {
		t.Errorf("days = %v, want [%v]", days, end)
	}
}

func TestActivityDaysLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// 22:00 UTC on the 1st is already the 2nd at UTC+3.
	starts := []time.Time{day("2024-01-01").Add(22 * time.Hour)}
	days := ActivityDays(starts, day("2024-01-01"), day("2024-01-10"), loc)
	if len(days) != 1 || days[0].In(loc).Day() != 2 {
		t.Errorf("days = %v, want the 2nd in UTC+3", days)
	}
}

func TestTimestampsDayMapping(t *testing.T) {
	days := []time.Time{day("2024-01-01"), day("2024-01-06")}
	ts := Timestamps(days, 10, day("2024-01-01"), day("2024-01-10"))
	for i, at := range ts {
		want := days[0]
		if i >= 5 {
			want = days[1]
		}
		if !at.Equal(want) {
			t.Errorf("frame %d = %v, want %v", i, at, want)
		}
	}
}

func TestTimestampsSingleFrameShowsLastDay(t *testing.T) {
	days := []time.Time{day("2024-01-01"), day("2024-01-06"), day("2024-01-08")}
	ts := Timestamps(days, 1, day("2024-01-01"), day("2024-01-10"))
	if len(ts) != 1 || !ts[0].Equal(days[2]) {
		t.Errorf("ts = %v, want last day", ts)
	}
}

func TestTimestampsLastFrameIsLastDay(t *testing.T) {
	days := []time.Time{day("2024-01-01"), day("2024-01-02"), day("2024-01-03")}
	ts := Timestamps(days, 7, day("2024-01-01"), day("2024-01-03"))
	if !ts[6].Equal(days[2]) {
		t.Errorf("last frame = %v, want %v", ts[6], days[2])
	}
}

func TestTimestampsUniformFallback(t *testing.T) {
	start, end := day("2024-01-01"), day("2024-01-05")
	ts := Timestamps(nil, 5, start, end)
	for i, at := range ts {
		want := start.Add(time.Duration(i) * 24 * time.Hour)
		if !at.Equal(want) {
			t.Errorf("frame %d = %v, want %v", i, at, want)
		}
	}
	if one := Timestamps(nil, 1, start, end); !one[0].Equal(end) {
		t.Errorf("single uniform frame = %v, want end", one[0])
	}
}

func TestFrameCountAndDelay(t *testing.T) {
	o := Options{Duration: 2500 * time.Millisecond, FPS: 4}
	if o.FrameCount() != 10 {
		t.Errorf("FrameCount = %d, want 10", o.FrameCount())
	}
	if o.Delay() != 250*time.Millisecond {
		t.Errorf("Delay = %v", o.Delay())
	}
	if hundredths(o.Delay()) != 25 {
		t.Errorf("hundredths = %d", hundredths(o.Delay()))
	}
	if hundredths(time.Millisecond) != 1 {
		t.Error("delay below 10ms must round up to 1")
	}
}
