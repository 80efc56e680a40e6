package common

import (
	"testing"
	"time"
)

func TestGenerateRandByteArray_Basic(t *testing.T) {
	b := GenerateRandByteArray(32)
	if len(b) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(b))
	}
	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatal("expected random bytes, got all zeros")
	}
}

func TestRandDuration_WithinBounds(t *testing.T) {
	min, max := 100*time.Millisecond, 300*time.Millisecond
	for i := 0; i < 100; i++ {
		d := RandDuration(min, max)
		if d < min || d > max {
			t.Fatalf("duration %v out of [%v, %v]", d, min, max)
		}
	}
}

func TestRandDuration_CollapsedRange(t *testing.T) {
	if d := RandDuration(0, 0); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
	if d := RandDuration(5*time.Second, time.Second); d != 5*time.Second {
		t.Fatalf("expected min when max < min, got %v", d)
	}
}

func TestWipeByteArray(t *testing.T) {
	b := []byte{1, 2, 3}
	WipeByteArray(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not wiped: %d", i, v)
		}
	}
	WipeByteArray(nil) // must not panic
}
