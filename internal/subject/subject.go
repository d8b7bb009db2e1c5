package subject

// Subject is an immutable birth record: who, when, and where. Location is
// either exact coordinates plus a timezone, or a city/nation pair the
// provider geocodes on its side. Orchestration never mutates a Subject.
type Subject struct {
	Name   string
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int

	Latitude  *float64
	Longitude *float64
	Timezone  string

	City   string
	Nation string
}

// HasUsableLocation reports whether the subject carries coordinates precise
// enough to skip provider-side geocoding: both coordinates present, in
// range, and a timezone string to anchor civil time. All call sites derive
// strict-mode behavior from this one predicate.
func HasUsableLocation(s Subject) bool {
	if s.Latitude == nil || s.Longitude == nil {
		return false
	}
	if *s.Latitude < -90 || *s.Latitude > 90 {
		return false
	}
	if *s.Longitude < -180 || *s.Longitude > 180 {
		return false
	}
	return s.Timezone != ""
}

// HasCityLocation reports whether the subject can be sent in city formation.
func HasCityLocation(s Subject) bool {
	return s.City != "" && s.Nation != ""
}
