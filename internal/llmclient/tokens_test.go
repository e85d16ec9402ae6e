package llmclient

import (
	"strings"
	"testing"
)

func TestCountTokens_EmptyIsZero(t *testing.T) {
	if got := CountTokens(""); got != 0 {
		t.Fatalf("empty text: got %d, want 0", got)
	}
	if got := CountTokens("   \n\t "); got != 0 {
		t.Fatalf("whitespace text: got %d, want 0", got)
	}
}

func TestCountTokens_Monotonic(t *testing.T) {
	prev := 0
	for _, n := range []int{1, 4, 16, 64, 256, 1024} {
		got := CountTokens(strings.Repeat("a", n))
		if got < prev {
			t.Fatalf("tokens decreased: %d chars -> %d, previous %d", n, got, prev)
		}
		prev = got
	}
}

func TestCountTokens_RoughlyCharsOverFour(t *testing.T) {
	if got := CountTokens(strings.Repeat("a", 400)); got != 100 {
		t.Fatalf("400 chars: got %d, want 100", got)
	}
	// Ceiling, not floor.
	if got := CountTokens("abcde"); got != 2 {
		t.Fatalf("5 chars: got %d, want 2", got)
	}
}
