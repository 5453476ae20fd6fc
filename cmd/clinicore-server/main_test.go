package main

import (
	"encoding/hex"
	"testing"
)

func TestResolveSigningKey_FromHex(t *testing.T) {
	want := make([]byte, 32)
	for i := range want {
		want[i] = byte(i)
	}
	hexStr := hex.EncodeToString(want)

	key, random, err := resolveSigningKey(hexStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if random {
		t.Error("expected random=false when key is configured")
	}
	if hex.EncodeToString(key) != hexStr {
		t.Errorf("key mismatch: got %x, want %x", key, want)
	}
}

func TestResolveSigningKey_InvalidHex(t *testing.T) {
	_, _, err := resolveSigningKey("not-valid-hex!!!")
	if err == nil {
		t.Fatal("expected error for invalid hex, got nil")
	}
}

func TestResolveSigningKey_RandomGeneration(t *testing.T) {
	key, random, err := resolveSigningKey("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !random {
		t.Error("expected random=true when no key is configured")
	}
	if len(key) != 32 {
		t.Errorf("expected 32-byte key, got %d bytes", len(key))
	}

	key2, _, err := resolveSigningKey("")
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if hex.EncodeToString(key) == hex.EncodeToString(key2) {
		t.Error("two random keys should not be identical")
	}
}
