package transit

import "github.com/DHCross/WovenWebApp-sub001/internal/subject"

// strategy is one rung of the fetch cascade: the formation used for the
// natal subject and for the transiting-position subject. Strategies are
// tried in slice order until one yields aspects or the attempt budget runs
// out; a failed strategy is never retried at this level.
type strategy struct {
	name    string
	natal   subject.Formation
	transit subject.Formation
}

// strategiesFor derives the cascade for a subject:
//
//  1. coordinate-priority, when usable coordinates exist;
//  2. city-priority, when city and nation exist (sole strategy without
//     coordinates, fallback otherwise);
//  3. alternate-formation, when both exist: the transiting subject's
//     formation is swapped relative to the primary, a last resort against
//     provider-side resolution quirks.
func strategiesFor(s subject.Subject) []strategy {
	hasCoords := subject.HasUsableLocation(s)
	hasCity := subject.HasCityLocation(s)

	var out []strategy
	if hasCoords {
		out = append(out, strategy{"coordinate", subject.FormationCoordinates, subject.FormationCoordinates})
	}
	if hasCity {
		out = append(out, strategy{"city", subject.FormationCity, subject.FormationCity})
	}
	if hasCoords && hasCity {
		out = append(out, strategy{"alternate", subject.FormationCoordinates, subject.FormationCity})
	}
	return out
}
