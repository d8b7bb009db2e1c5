package subject

import "fmt"

// Formation selects how a built payload identifies the subject's location.
type Formation int

const (
	// FormationAuto picks coordinates when usable, city otherwise.
	FormationAuto Formation = iota
	// FormationCoordinates forces latitude/longitude/timezone.
	FormationCoordinates
	// FormationCity forces city/country-code.
	FormationCity
)

func (f Formation) String() string {
	switch f {
	case FormationCoordinates:
		return "coordinates"
	case FormationCity:
		return "city"
	default:
		return "auto"
	}
}

// Options carries the chart options the provider expects alongside every
// subject.
type Options struct {
	ZodiacType   string
	HousesSystem string
	Formation    Formation
}

// APISubject is the provider's request shape for one chart subject.
type APISubject struct {
	Name   string `json:"name"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Second int    `json:"second,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`

	City        string `json:"city,omitempty"`
	CountryCode string `json:"country_code,omitempty"`

	ZodiacType   string `json:"zodiac_type,omitempty"`
	HousesSystem string `json:"houses_system_identifier,omitempty"`
}

// Build converts a Subject into the provider's request shape.
//
// When the subject has usable coordinates (and Formation permits), the
// payload carries latitude, longitude, and timezone only. City and nation
// are deliberately withheld: sending both makes the provider re-geocode the
// city and silently overwrite the caller's exact coordinates with its guess.
// Without usable coordinates the payload falls back to city plus ISO
// country code.
func Build(s Subject, opts Options) (APISubject, error) {
	out := APISubject{
		Name:         s.Name,
		Year:         s.Year,
		Month:        s.Month,
		Day:          s.Day,
		Hour:         s.Hour,
		Minute:       s.Minute,
		Second:       s.Second,
		ZodiacType:   opts.ZodiacType,
		HousesSystem: opts.HousesSystem,
	}
	if out.ZodiacType == "" {
		out.ZodiacType = "Tropic"
	}
	if out.HousesSystem == "" {
		out.HousesSystem = "P"
	}

	formation := opts.Formation
	if formation == FormationAuto {
		if HasUsableLocation(s) {
			formation = FormationCoordinates
		} else {
			formation = FormationCity
		}
	}

	switch formation {
	case FormationCoordinates:
		if !HasUsableLocation(s) {
			return APISubject{}, fmt.Errorf("subject %q has no usable coordinates", s.Name)
		}
		out.Latitude = s.Latitude
		out.Longitude = s.Longitude
		out.Timezone = NormalizeTimezone(s.Timezone)
	case FormationCity:
		if !HasCityLocation(s) {
			return APISubject{}, fmt.Errorf("subject %q has no city/nation", s.Name)
		}
		out.City = s.City
		out.CountryCode = CountryCode(s.Nation)
		if s.Timezone != "" {
			out.Timezone = NormalizeTimezone(s.Timezone)
		}
	}

	return out, nil
}
