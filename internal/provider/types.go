package provider

import "github.com/DHCross/WovenWebApp-sub001/internal/subject"

// TransitRequest is the JSON body for the transit endpoints: the natal
// subject, a transiting-position subject pinned to one instant, and chart
// options.
type TransitRequest struct {
	FirstSubject   subject.APISubject `json:"first_subject"`
	TransitSubject subject.APISubject `json:"transit_subject"`
	Theme          string             `json:"theme,omitempty"`
	Language       string             `json:"lang,omitempty"`
}

// Aspect is one angular relationship between two bodies as the provider
// reports it. Orb is a pointer because the provider omits it for some
// derived points; downstream compression filters those out.
type Aspect struct {
	P1Name string   `json:"p1_name"`
	P2Name string   `json:"p2_name"`
	Aspect string   `json:"aspect"`
	Orb    *float64 `json:"orbit"`
}

// Planet is a transiting body's position summary. Only the fields the
// orchestrator consumes are declared; the rest stays in the raw document.
type Planet struct {
	Name       string `json:"name"`
	Retrograde bool   `json:"retrograde"`
}

// TransitResponse is the decoded provider reply. Raw holds the full response
// document so graphic-bearing fields (the rendered wheel, per-subject chart
// assets) can be extracted without re-fetching.
type TransitResponse struct {
	Status  string   `json:"status"`
	Aspects []Aspect `json:"aspects"`
	Transit struct {
		Planets []Planet `json:"planets"`
	} `json:"transit"`

	Raw map[string]any `json:"-"`
}

// RetroFlags collapses the transiting planet list into name → retrograde.
func (r *TransitResponse) RetroFlags() map[string]bool {
	if len(r.Transit.Planets) == 0 {
		return nil
	}
	flags := make(map[string]bool, len(r.Transit.Planets))
	for _, p := range r.Transit.Planets {
		flags[p.Name] = p.Retrograde
	}
	return flags
}
