package transit

import (
	"testing"
	"time"
)

func TestBuildWindow_Daily(t *testing.T) {
	samples, err := BuildWindow("2025-06-01", "2025-06-07", 0, "America/New_York")
	if err != nil {
		t.Fatalf("BuildWindow: %v", err)
	}

	if len(samples) != 7 {
		t.Fatalf("got %d samples, want 7", len(samples))
	}
	if got := samples[0].DateKey(); got != "2025-06-01" {
		t.Errorf("first date = %s, want 2025-06-01", got)
	}
	if got := samples[6].DateKey(); got != "2025-06-07" {
		t.Errorf("last date = %s, want 2025-06-07", got)
	}
	if samples[0].Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", samples[0].Timezone)
	}
	if samples[0].Local.Hour() != 12 {
		t.Errorf("local hour = %d, want 12 (noon anchor)", samples[0].Local.Hour())
	}
	// EDT noon is 16:00 UTC.
	if samples[0].UTC.Hour() != 16 {
		t.Errorf("UTC hour = %d, want 16", samples[0].UTC.Hour())
	}
}

func TestBuildWindow_SingleDay(t *testing.T) {
	samples, err := BuildWindow("2025-06-01", "2025-06-01", 0, "UTC")
	if err != nil {
		t.Fatalf("BuildWindow: %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("got %d samples, want 1", len(samples))
	}
}

func TestBuildWindow_SubDailyStep(t *testing.T) {
	samples, err := BuildWindow("2025-06-01", "2025-06-02", 6*time.Hour, "UTC")
	if err != nil {
		t.Fatalf("BuildWindow: %v", err)
	}
	// Noon day 1 through noon day 2 at 6h steps: 5 instants.
	if len(samples) != 5 {
		t.Errorf("got %d samples, want 5", len(samples))
	}
}

func TestBuildWindow_AliasZoneDegradesGracefully(t *testing.T) {
	samples, err := BuildWindow("2025-06-01", "2025-06-02", 0, "EST")
	if err != nil {
		t.Fatalf("BuildWindow: %v", err)
	}
	if samples[0].Timezone != "America/New_York" {
		t.Errorf("Timezone = %q, want America/New_York via alias", samples[0].Timezone)
	}

	samples, err = BuildWindow("2025-06-01", "2025-06-02", 0, "Bad/Zone")
	if err != nil {
		t.Fatalf("BuildWindow with bad zone: %v", err)
	}
	if samples[0].Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC fallback", samples[0].Timezone)
	}
}

func TestBuildWindow_Errors(t *testing.T) {
	if _, err := BuildWindow("not-a-date", "2025-06-02", 0, "UTC"); err == nil {
		t.Error("expected error for bad start date")
	}
	if _, err := BuildWindow("2025-06-02", "2025-06-01", 0, "UTC"); err == nil {
		t.Error("expected error for inverted range")
	}
}
