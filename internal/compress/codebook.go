// Package compress encodes per-day aspect collections against a shared,
// window-scoped codebook so chronologically adjacent days can be shipped as
// small deltas instead of full lists.
package compress

import (
	"sort"

	"github.com/DHCross/WovenWebApp-sub001/internal/provider"
)

// Pattern maps a dense pattern index back to its (body-pair, aspect-type)
// combination, both as indices into the codebook's tables.
type Pattern struct {
	Pair   int `json:"pair"`
	Aspect int `json:"aspect"`
}

// Codebook is the shared symbol table for one window: sorted body names,
// sorted aspect-type names, body-pairs as sorted index tuples, and the
// pattern table assigning each observed (pair, aspect) combination a dense
// index. Built once from the full window corpus, read-only afterwards.
type Codebook struct {
	Bodies   []string  `json:"bodies"`
	Aspects  []string  `json:"aspects"`
	Pairs    [][2]int  `json:"pairs"`
	Patterns []Pattern `json:"patterns"`

	bodyIndex    map[string]int
	aspectIndex  map[string]int
	pairIndex    map[[2]int]int
	patternIndex map[[2]int]int // (pairIdx, aspectIdx) → pattern idx
}

// BuildCodebook scans every day's aspects and assembles the symbol tables.
// Bodies, aspect types, and pairs are sorted for determinism; pattern
// indices are assigned lazily in first-seen order (day order, then
// within-day order), matching the order compression will consume them in.
func BuildCodebook(days [][]provider.Aspect) *Codebook {
	bodySet := make(map[string]struct{})
	aspectSet := make(map[string]struct{})
	for _, day := range days {
		for _, a := range day {
			if !usable(a) {
				continue
			}
			bodySet[a.P1Name] = struct{}{}
			bodySet[a.P2Name] = struct{}{}
			aspectSet[a.Aspect] = struct{}{}
		}
	}

	cb := &Codebook{
		Bodies:       sortedKeys(bodySet),
		Aspects:      sortedKeys(aspectSet),
		bodyIndex:    make(map[string]int, len(bodySet)),
		aspectIndex:  make(map[string]int, len(aspectSet)),
		pairIndex:    make(map[[2]int]int),
		patternIndex: make(map[[2]int]int),
	}
	for i, b := range cb.Bodies {
		cb.bodyIndex[b] = i
	}
	for i, a := range cb.Aspects {
		cb.aspectIndex[a] = i
	}

	// Collect distinct unordered pairs, then sort for a deterministic table.
	pairSet := make(map[[2]int]struct{})
	for _, day := range days {
		for _, a := range day {
			if !usable(a) {
				continue
			}
			pairSet[cb.pairKey(a)] = struct{}{}
		}
	}
	for p := range pairSet {
		cb.Pairs = append(cb.Pairs, p)
	}
	sort.Slice(cb.Pairs, func(i, j int) bool {
		if cb.Pairs[i][0] != cb.Pairs[j][0] {
			return cb.Pairs[i][0] < cb.Pairs[j][0]
		}
		return cb.Pairs[i][1] < cb.Pairs[j][1]
	})
	for i, p := range cb.Pairs {
		cb.pairIndex[p] = i
	}

	// Assign pattern indices lazily across the corpus in encounter order.
	for _, day := range days {
		for _, a := range day {
			if !usable(a) {
				continue
			}
			key := [2]int{cb.pairIndex[cb.pairKey(a)], cb.aspectIndex[a.Aspect]}
			if _, seen := cb.patternIndex[key]; seen {
				continue
			}
			cb.patternIndex[key] = len(cb.Patterns)
			cb.Patterns = append(cb.Patterns, Pattern{Pair: key[0], Aspect: key[1]})
		}
	}

	return cb
}

// pairKey returns the unordered body pair as a sorted index tuple.
func (cb *Codebook) pairKey(a provider.Aspect) [2]int {
	i, j := cb.bodyIndex[a.P1Name], cb.bodyIndex[a.P2Name]
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}

// PatternIndex returns the dense pattern index for an aspect, if the
// combination was present in the window the codebook was built from.
func (cb *Codebook) PatternIndex(a provider.Aspect) (int, bool) {
	pi, ok := cb.pairIndex[cb.pairKey(a)]
	if !ok {
		return 0, false
	}
	ai, ok := cb.aspectIndex[a.Aspect]
	if !ok {
		return 0, false
	}
	idx, ok := cb.patternIndex[[2]int{pi, ai}]
	return idx, ok
}

// Lookup expands a pattern index back into its body names and aspect type.
func (cb *Codebook) Lookup(patternIdx int) (body1, body2, aspectType string, ok bool) {
	if patternIdx < 0 || patternIdx >= len(cb.Patterns) {
		return "", "", "", false
	}
	p := cb.Patterns[patternIdx]
	pair := cb.Pairs[p.Pair]
	return cb.Bodies[pair[0]], cb.Bodies[pair[1]], cb.Aspects[p.Aspect], true
}

// usable reports whether an aspect carries everything compression needs:
// both body names, an aspect type, and a numeric orb.
func usable(a provider.Aspect) bool {
	return a.P1Name != "" && a.P2Name != "" && a.Aspect != "" && a.Orb != nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
