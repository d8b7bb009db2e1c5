package subject

import "testing"

func TestNormalizeTimezone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"America/New_York", "America/New_York"},
		{"EST", "America/New_York"},
		{"pdt", "America/Los_Angeles"},
		{"GMT", "UTC"},
		{"", "UTC"},
		{"Not/AZone", "UTC"},
		{"  Europe/London  ", "Europe/London"},
	}
	for _, tt := range tests {
		if got := NormalizeTimezone(tt.in); got != tt.want {
			t.Errorf("NormalizeTimezone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadZone_FallsBackToUTC(t *testing.T) {
	loc := LoadZone("definitely-not-a-zone")
	if loc.String() != "UTC" {
		t.Errorf("LoadZone fallback = %q, want UTC", loc)
	}
}
