package activity

import (
	"hash/fnv"
	"io"
	"math"
	"strconv"
	"time"
)

// SyntheticID derives a stable id for a record that arrived without one. The
// result is negative so it never collides with a source-assigned id.
func SyntheticID(a *Activity) int64 {
	h := fnv.New64a()
	for _, s := range []string{a.Kind(), a.StartDate.UTC().Format(time.RFC3339Nano), a.Name, a.Polyline} {
		_, _ = io.WriteString(h, s)
		_, _ = h.Write([]byte{0})
	}
	_, _ = io.WriteString(h, strconv.FormatFloat(a.Distance, 'g', -1, 64))
	return -int64(h.Sum64()&math.MaxInt64) - 1
}

// Unique makes ids usable as keys. Records with a zero id get a SyntheticID,
// bumped past any id already taken. A later record with an id seen before
// replaces the earlier one in place, so a refreshed copy wins. merged counts
// the replaced records.
func Unique(acts []Activity) (out []Activity, merged int) {
	out = make([]Activity, 0, len(acts))
	pos := make(map[int64]int, len(acts))
	var anon []Activity
	for _, a := range acts {
		if a.ID == 0 {
			anon = append(anon, a)
			continue
		}
		if i, ok := pos[a.ID]; ok {
			out[i] = a
			merged++
			continue
		}
		pos[a.ID] = len(out)
		out = append(out, a)
	}
	for _, a := range anon {
		id := SyntheticID(&a)
		for {
			if _, taken := pos[id]; !taken {
				break
			}
			id--
			if id >= 0 {
				id = -1
			}
		}
		a.ID = id
		pos[id] = len(out)
		out = append(out, a)
	}
	return out, merged
}
