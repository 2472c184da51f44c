package password

import "testing"

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewHasher()

	hash, err := h.Hash("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "" || hash == "password1" {
		t.Fatalf("expected opaque digest, got %q", hash)
	}
	if !h.Verify("password1", hash) {
		t.Fatalf("expected hash to verify against original plaintext")
	}
	if h.Verify("password2", hash) {
		t.Fatalf("expected different plaintext to fail verification")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := NewHasher()

	first, err := h.Hash("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := h.Hash("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected per-call salts to yield distinct digests")
	}
	if !h.Verify("password1", first) || !h.Verify("password1", second) {
		t.Fatalf("expected both digests to verify against the plaintext")
	}
}

func TestVerifyMalformedHashFailsClosed(t *testing.T) {
	h := NewHasher()

	for _, malformed := range []string{"", "not-a-bcrypt-hash", "$2a$garbage"} {
		if h.Verify("password1", malformed) {
			t.Fatalf("expected malformed hash %q to fail verification", malformed)
		}
	}
}
