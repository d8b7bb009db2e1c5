package subject

import (
	"strings"
	"time"
)

// timezoneAliases maps zone abbreviations users actually type into the IANA
// identifiers the provider validates against. US zones dominate because
// that's where the bug reports came from.
var timezoneAliases = map[string]string{
	"EST":  "America/New_York",
	"EDT":  "America/New_York",
	"CST":  "America/Chicago",
	"CDT":  "America/Chicago",
	"MST":  "America/Denver",
	"MDT":  "America/Denver",
	"PST":  "America/Los_Angeles",
	"PDT":  "America/Los_Angeles",
	"AKST": "America/Anchorage",
	"AKDT": "America/Anchorage",
	"HST":  "Pacific/Honolulu",
	"AST":  "America/Puerto_Rico",
	"GMT":  "UTC",
	"BST":  "Europe/London",
	"CET":  "Europe/Paris",
	"CEST": "Europe/Paris",
	"IST":  "Asia/Kolkata",
	"JST":  "Asia/Tokyo",
	"AEST": "Australia/Sydney",
	"AEDT": "Australia/Sydney",
}

// NormalizeTimezone resolves a timezone string to a valid IANA identifier.
// Abbreviations go through the alias table first; whatever survives is
// validated against the system timezone database. Unresolvable values
// degrade to UTC so a bad zone never fails a request outright.
func NormalizeTimezone(tz string) string {
	t := strings.TrimSpace(tz)
	if t == "" {
		return "UTC"
	}
	if alias, ok := timezoneAliases[strings.ToUpper(t)]; ok {
		t = alias
	}
	if _, err := time.LoadLocation(t); err != nil {
		return "UTC"
	}
	return t
}

// LoadZone returns the *time.Location for a (possibly aliased) timezone
// string, falling back to UTC.
func LoadZone(tz string) *time.Location {
	loc, err := time.LoadLocation(NormalizeTimezone(tz))
	if err != nil {
		return time.UTC
	}
	return loc
}
