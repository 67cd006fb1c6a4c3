package activity

// TypeStats aggregates one activity type.
type TypeStats struct {
	Count    int
	Distance float64
}

// Stats summarises an activity set. Activities without geometry are counted.
type Stats struct {
	Count        int
	WithGeometry int
	Distance     float64
	ByType       map[string]TypeStats
}

// Summarize computes Stats for acts, decoding routes through r.
func Summarize(acts []Activity, r *Routes) Stats {
	s := Stats{ByType: make(map[string]TypeStats)}
	for i := range acts {
		a := &acts[i]
		s.Count++
		s.Distance += a.Distance
		ts := s.ByType[a.Kind()]
		ts.Count++
		ts.Distance += a.Distance
		s.ByType[a.Kind()] = ts
		if r != nil && r.Get(a) != nil {
			s.WithGeometry++
		}
	}
	return s
}
