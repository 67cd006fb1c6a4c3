// Package activity holds the read-only activity records and the decoded
// route geometry derived from them.
package activity

import (
	"sort"
	"strings"
	"time"
)

// DefaultType is used for activities that carry no type tag.
const DefaultType = "Other"

// Activity is an immutable input record. Polyline may be empty, in which case
// the activity has no geometry but still counts in statistics.
type Activity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"start_date"`
	Distance  float64   `json:"distance"` // meters
	Polyline  string    `json:"polyline,omitempty"`
}

// Kind returns the type tag, falling back to DefaultType.
func (a *Activity) Kind() string {
	if t := strings.TrimSpace(a.Type); t != "" {
		return t
	}
	return DefaultType
}

// Sorted returns a copy of acts ordered by start date, then id.
func Sorted(acts []Activity) []Activity {
	out := make([]Activity, len(acts))
	copy(out, acts)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TimeRange returns the min and max start date of acts.
func TimeRange(acts []Activity) (start, end time.Time, ok bool) {
	for i := range acts {
		t := acts[i].StartDate
		if !ok {
			start, end, ok = t, t, true
			continue
		}
		if t.Before(start) {
			start = t
		}
		if t.After(end) {
			end = t
		}
	}
	return start, end, ok
}

// Filter selects the active activity set.
type Filter struct {
	// Types limits the set to these type tags; empty means all types.
	Types []string
	// From and To bound start dates inclusively; zero values are open.
	From time.Time
	To   time.Time
}

// Apply returns the activities that pass f, preserving order.
func (f Filter) Apply(acts []Activity) []Activity {
	var allowed map[string]bool
	if len(f.Types) > 0 {
		allowed = make(map[string]bool, len(f.Types))
		for _, t := range f.Types {
			allowed[strings.ToLower(strings.TrimSpace(t))] = true
		}
	}
	out := make([]Activity, 0, len(acts))
	for i := range acts {
		a := &acts[i]
		if allowed != nil && !allowed[strings.ToLower(a.Kind())] {
			continue
		}
		if !f.From.IsZero() && a.StartDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && a.StartDate.After(f.To) {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Equal reports whether two filters select the same set.
func (f Filter) Equal(o Filter) bool {
	if !f.From.Equal(o.From) || !f.To.Equal(o.To) || len(f.Types) != len(o.Types) {
		return false
	}
	for i := range f.Types {
		if !strings.EqualFold(f.Types[i], o.Types[i]) {
			return false
		}
	}
	return true
}
