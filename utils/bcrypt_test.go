package utils

import "testing"

func TestAPIKeyHashRoundTrip(t *testing.T) {
	hash, err := HashAPIKey("s3cret-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := CompareAPIKey(string(hash), "s3cret-key"); err != nil {
		t.Fatalf("matching key should compare clean: %v", err)
	}
	if err := CompareAPIKey(string(hash), "wrong-key"); err == nil {
		t.Fatal("mismatched key should fail comparison")
	}
}
