package subject

import "strings"

// countryCodes maps common country names (lowercased) to ISO 3166-1 alpha-2
// codes. Covers the names actually seen in stored subjects; anything else
// falls through to the first-two-letters heuristic.
var countryCodes = map[string]string{
	"united states":            "US",
	"united states of america": "US",
	"usa":                      "US",
	"america":                  "US",
	"united kingdom":           "GB",
	"great britain":            "GB",
	"england":                  "GB",
	"scotland":                 "GB",
	"wales":                    "GB",
	"canada":                   "CA",
	"mexico":                   "MX",
	"australia":                "AU",
	"new zealand":              "NZ",
	"ireland":                  "IE",
	"france":                   "FR",
	"germany":                  "DE",
	"italy":                    "IT",
	"spain":                    "ES",
	"portugal":                 "PT",
	"netherlands":              "NL",
	"belgium":                  "BE",
	"switzerland":              "CH",
	"austria":                  "AT",
	"sweden":                   "SE",
	"norway":                   "NO",
	"denmark":                  "DK",
	"finland":                  "FI",
	"iceland":                  "IS",
	"poland":                   "PL",
	"czech republic":           "CZ",
	"greece":                   "GR",
	"turkey":                   "TR",
	"russia":                   "RU",
	"ukraine":                  "UA",
	"china":                    "CN",
	"japan":                    "JP",
	"south korea":              "KR",
	"india":                    "IN",
	"pakistan":                 "PK",
	"israel":                   "IL",
	"egypt":                    "EG",
	"south africa":             "ZA",
	"nigeria":                  "NG",
	"brazil":                   "BR",
	"argentina":                "AR",
	"chile":                    "CL",
	"colombia":                 "CO",
	"peru":                     "PE",
	"venezuela":                "VE",
	"philippines":              "PH",
	"indonesia":                "ID",
	"thailand":                 "TH",
	"vietnam":                  "VN",
	"singapore":                "SG",
	"malaysia":                 "MY",
}

// CountryCode resolves a country name to its ISO two-letter code. Inputs
// that already look like a code pass through uppercased; unrecognized names
// degrade to the first two letters, uppercased, rather than failing the
// request.
func CountryCode(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if len(n) == 2 {
		return strings.ToUpper(n)
	}
	if code, ok := countryCodes[strings.ToLower(n)]; ok {
		return code
	}
	r := []rune(n)
	if len(r) < 2 {
		return strings.ToUpper(string(r))
	}
	return strings.ToUpper(string(r[:2]))
}
