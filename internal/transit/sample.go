package transit

import (
	"fmt"
	"time"

	"github.com/DHCross/WovenWebApp-sub001/internal/subject"
)

// Sample is one instant to query: the UTC timestamp, its resolved local
// civil time, the effective timezone, and an optional relocation label.
// Samples are produced once per window and consumed exactly once.
type Sample struct {
	UTC      time.Time
	Local    time.Time
	Timezone string
	Label    string
}

// DateKey returns the calendar-date key the result maps are keyed by.
func (s Sample) DateKey() string {
	return s.Local.Format("2006-01-02")
}

// BuildWindow expands a date range into ordered samples, one per step,
// anchored at local noon so daily aspect sets represent mid-day geometry.
// Dates are "YYYY-MM-DD"; step <= 0 means daily; the timezone goes through
// the normal alias/validation path and degrades to UTC.
func BuildWindow(startDate, endDate string, step time.Duration, tz string) ([]Sample, error) {
	loc := subject.LoadZone(tz)
	zone := subject.NormalizeTimezone(tz)

	start, err := time.ParseInLocation("2006-01-02", startDate, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing start date: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing end date: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}
	if step <= 0 {
		step = 24 * time.Hour
	}

	// Inclusive of the end date's sample.
	first := start.Add(12 * time.Hour)
	last := end.Add(12 * time.Hour)

	var samples []Sample
	for t := first; !t.After(last); t = t.Add(step) {
		local := t.In(loc)
		samples = append(samples, Sample{
			UTC:      t.UTC(),
			Local:    local,
			Timezone: zone,
		})
	}
	return samples, nil
}
