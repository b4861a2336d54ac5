package secret

import "testing"

func TestGenerateVerifyRoundTrip(t *testing.T) {
	s, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	h := HashOf(s)
	if !Verify(s, h) {
		t.Fatalf("Verify: expected secret to match its own hash")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := Generate()
	b, _ := Generate()
	if Verify(a, HashOf(b)) {
		t.Fatalf("Verify: expected mismatched secret/hash pair to fail")
	}
}

func TestParseSecretRoundTrip(t *testing.T) {
	s, _ := Generate()
	parsed, err := ParseSecret(s.String())
	if err != nil {
		t.Fatalf("ParseSecret: %v", err)
	}
	if parsed != s {
		t.Fatalf("ParseSecret: round trip mismatch")
	}
}

func TestParseSecretRejectsBadLength(t *testing.T) {
	if _, err := ParseSecret("deadbeef"); err == nil {
		t.Fatalf("ParseSecret: expected error on short input")
	}
}
