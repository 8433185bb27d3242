package util

import (
	"testing"
)

func TestHashCode(t *testing.T) {
	h1 := HashCode([]byte("v1.metadata.json"))
	h2 := HashCode([]byte("v2.metadata.json"))
	if h1 == h2 {
		t.Errorf("different keys hashed to the same value: %d", h1)
	}
	if h1 != HashCode([]byte("v1.metadata.json")) {
		t.Error("hash is not stable for the same key")
	}
}

func TestHashCodeEmpty(t *testing.T) {
	// 空键也要有稳定的哈希值
	if HashCode(nil) != HashCode([]byte{}) {
		t.Error("nil and empty key should hash the same")
	}
}
