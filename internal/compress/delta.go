package compress

import "sort"

// Delta expresses the difference between two chronologically adjacent
// compressed days. Added carries absolute orbs, Updated carries orb deltas
// (current − previous), Removed lists pattern indices that disappeared.
// Patterns with identical orb in both days produce no entry at all.
type Delta struct {
	Added   []Entry `json:"added"`
	Updated []Entry `json:"updated"`
	Removed []int   `json:"removed"`
}

// Empty reports whether the delta carries no changes.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Diff computes the delta from prev to curr. Output order is by ascending
// pattern index within each list, which keeps encodings stable across runs.
func Diff(prev, curr []Entry) Delta {
	prevOrbs := toMap(prev)
	currOrbs := toMap(curr)

	var d Delta
	for pattern, orb := range currOrbs {
		prevOrb, existed := prevOrbs[pattern]
		switch {
		case !existed:
			d.Added = append(d.Added, Entry{Pattern: pattern, Orb: orb})
		case orb != prevOrb:
			d.Updated = append(d.Updated, Entry{Pattern: pattern, Orb: orb - prevOrb})
		}
	}
	for pattern := range prevOrbs {
		if _, exists := currOrbs[pattern]; !exists {
			d.Removed = append(d.Removed, pattern)
		}
	}

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Pattern < d.Added[j].Pattern })
	sort.Slice(d.Updated, func(i, j int) bool { return d.Updated[i].Pattern < d.Updated[j].Pattern })
	sort.Ints(d.Removed)
	return d
}

// Apply reconstructs the current day from the previous day plus a delta.
// The result is sorted by pattern index; it round-trips Diff exactly at the
// pattern→orb mapping level.
func Apply(prev []Entry, d Delta) []Entry {
	orbs := toMap(prev)
	for _, e := range d.Added {
		orbs[e.Pattern] = e.Orb
	}
	for _, e := range d.Updated {
		orbs[e.Pattern] += e.Orb
	}
	for _, pattern := range d.Removed {
		delete(orbs, pattern)
	}

	out := make([]Entry, 0, len(orbs))
	for pattern, orb := range orbs {
		out = append(out, Entry{Pattern: pattern, Orb: orb})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}

func toMap(entries []Entry) map[int]int {
	m := make(map[int]int, len(entries))
	for _, e := range entries {
		m[e.Pattern] = e.Orb
	}
	return m
}
