package compress

import (
	"math"
	"sort"

	"github.com/DHCross/WovenWebApp-sub001/internal/provider"
)

// DefaultMaxAspects caps a compressed day at the N tightest-orb aspects.
const DefaultMaxAspects = 40

// Entry is one compressed aspect: a pattern index into the codebook and the
// orb in integer centidegrees. Integer orbs keep day-to-day diffing free of
// floating-point drift.
type Entry struct {
	Pattern int `json:"p"`
	Orb     int `json:"o"`
}

// CompressDay encodes one day's aspects against the codebook: unusable
// aspects are filtered, the rest sorted ascending by absolute orb and
// truncated to maxAspects (0 means DefaultMaxAspects), and each survivor
// emitted as (patternIndex, round(orb*100)).
func (cb *Codebook) CompressDay(aspects []provider.Aspect, maxAspects int) []Entry {
	if maxAspects <= 0 {
		maxAspects = DefaultMaxAspects
	}

	kept := make([]provider.Aspect, 0, len(aspects))
	for _, a := range aspects {
		if usable(a) {
			kept = append(kept, a)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return math.Abs(*kept[i].Orb) < math.Abs(*kept[j].Orb)
	})
	if len(kept) > maxAspects {
		kept = kept[:maxAspects]
	}

	entries := make([]Entry, 0, len(kept))
	for _, a := range kept {
		idx, ok := cb.PatternIndex(a)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Pattern: idx,
			Orb:     int(math.Round(*a.Orb * 100)),
		})
	}
	return entries
}
