package models

import "testing"

func TestSeverityFromName(t *testing.T) {
	if got := SeverityFromName("high", SeverityLow); got != SeverityHigh {
		t.Fatalf("expected HIGH, got %s", got)
	}
	if got := SeverityFromName("  Medium ", SeverityLow); got != SeverityMedium {
		t.Fatalf("expected MEDIUM, got %s", got)
	}
	if got := SeverityFromName("catastrophic", SeverityLow); got != SeverityLow {
		t.Fatalf("unknown name should fall back, got %s", got)
	}
	if got := SeverityFromName("", SeverityMedium); got != SeverityMedium {
		t.Fatalf("blank name should fall back, got %s", got)
	}
}

func TestHighestSeverity(t *testing.T) {
	if got := HighestSeverity(SeverityLow, SeverityHigh, SeverityMedium); got != SeverityHigh {
		t.Fatalf("expected HIGH, got %s", got)
	}
	if got := HighestSeverity(); got != SeverityLow {
		t.Fatalf("empty input should default to LOW, got %s", got)
	}
}
