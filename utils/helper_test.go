package utils

import (
	"strings"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("  12.50 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "12.5" {
		t.Fatalf("expected 12.5, got %s", d.String())
	}

	if _, err := ParseDecimal("   "); err == nil {
		t.Fatal("blank input should fail")
	}
	if _, err := ParseDecimal("12,50"); err == nil {
		t.Fatal("malformed input should fail")
	}
}

func TestNilIfEmpty(t *testing.T) {
	if NilIfEmpty("") != nil {
		t.Fatal("empty string should map to nil")
	}
	p := NilIfEmpty("total")
	if p == nil || *p != "total" {
		t.Fatalf("expected pointer to total, got %v", p)
	}
	if NilIfEmpty(0) != nil {
		t.Fatal("zero int should map to nil")
	}
}

func TestGenerateUniqueFilename(t *testing.T) {
	name := GenerateUniqueFilename()
	if name == "" {
		t.Fatal("expected a non-empty name")
	}
	if !strings.Contains(name, "_") {
		t.Fatalf("expected timestamp_random format, got %q", name)
	}
}
