package cipher

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"
)

func TestDigestMatchesOneShot(t *testing.T) {
	input := []byte("the quick brown fox")
	want := sha256.Sum256(input)

	d := NewDigest()
	if err := d.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := d.Update(input[:9]); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := d.Update(input[9:]); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	sum, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !bytes.Equal(sum, want[:]) {
		t.Error("streamed digest differs from one-shot")
	}
	if !bytes.Equal(SumSHA256(input), want[:]) {
		t.Error("SumSHA256 differs from crypto/sha256")
	}
}

func TestDigestStateMachine(t *testing.T) {
	d := NewDigest()

	if err := d.Update([]byte("early")); !errors.Is(err, ErrBadState) {
		t.Errorf("Update before Init = %v, want ErrBadState", err)
	}
	if _, err := d.Finalize(); !errors.Is(err, ErrBadState) {
		t.Errorf("Finalize before Init = %v, want ErrBadState", err)
	}
	if _, err := d.Sum(); !errors.Is(err, ErrBadState) {
		t.Errorf("Sum before Finalize = %v, want ErrBadState", err)
	}

	if err := d.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := d.Init(); !errors.Is(err, ErrBadState) {
		t.Errorf("double Init = %v, want ErrBadState", err)
	}

	sum, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// Sum repeats the finalized digest.
	again, err := d.Sum()
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if !bytes.Equal(sum, again) {
		t.Error("Sum differs from Finalize result")
	}

	if err := d.Update([]byte("late")); !errors.Is(err, ErrBadState) {
		t.Errorf("Update after Finalize = %v, want ErrBadState", err)
	}

	d.Reset()
	if err := d.Init(); err != nil {
		t.Errorf("Init after Reset failed: %v", err)
	}
}

func TestDeriveKey(t *testing.T) {
	secret := []byte("master secret")

	a, err := DeriveKey(secret, nil, []byte("purpose-a"), 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("derived %d bytes, want 32", len(a))
	}

	// Deterministic for the same inputs.
	a2, err := DeriveKey(secret, nil, []byte("purpose-a"), 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if !bytes.Equal(a, a2) {
		t.Error("derivation is not deterministic")
	}

	// Different info yields unrelated keys.
	b, err := DeriveKey(secret, nil, []byte("purpose-b"), 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("different info produced the same key")
	}

	if _, err := DeriveKey(nil, nil, nil, 32); !errors.Is(err, ErrBadKey) {
		t.Errorf("empty secret = %v, want ErrBadKey", err)
	}
	if _, err := DeriveKey(secret, nil, nil, 0); !errors.Is(err, ErrBadKey) {
		t.Errorf("zero length = %v, want ErrBadKey", err)
	}
}

func TestDeriveStreamKey(t *testing.T) {
	for _, suite := range suites() {
		key, nonce, err := DeriveStreamKey(suite, []byte("secret"), []byte("salt"), "session-1")
		if err != nil {
			t.Fatalf("DeriveStreamKey failed: %v", err)
		}
		if len(key) != suite.KeySize() {
			t.Errorf("key length = %d, want %d", len(key), suite.KeySize())
		}
		if len(nonce) != suite.NonceSize() {
			t.Errorf("nonce length = %d, want %d", len(nonce), suite.NonceSize())
		}
		if bytes.Equal(key[:suite.NonceSize()], nonce) {
			t.Error("nonce should be domain-separated from the key")
		}

		// The derived material drives a working stream end to end.
		ciphertext, tag, err := Seal(suite, key, nonce, nil, []byte("derived"))
		if err != nil {
			t.Fatalf("Seal with derived key failed: %v", err)
		}
		out, err := Open(suite, key, nonce, nil, ciphertext, tag)
		if err != nil {
			t.Fatalf("Open with derived key failed: %v", err)
		}
		if string(out) != "derived" {
			t.Errorf("round trip produced %q", out)
		}
	}
}
