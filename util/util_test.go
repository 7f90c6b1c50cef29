package util

import (
	"math"
	"testing"
)

func TestSuffixStringCompact(t *testing.T) {
	cases := []struct {
		val  uint64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1k"},
		{1500, "1.5k"},
		{1000000, "1M"},
		{2500000000, "2.5G"},
		{4000000000000, "4T"},
	}
	for _, c := range cases {
		if got := SuffixString(c.val, 0); got != c.want {
			t.Errorf("SuffixString(%d, 0) = %q, want %q", c.val, got, c.want)
		}
	}
}

func TestSuffixStringSignificantDigits(t *testing.T) {
	cases := []struct {
		val  uint64
		sig  int
		want string
	}{
		{1500000, 3, "1.50M"},
		{1500000, 2, "1.5M"},
		{123456789, 4, "123.5M"},
		{500, 3, "500"},
	}
	for _, c := range cases {
		if got := SuffixString(c.val, c.sig); got != c.want {
			t.Errorf("SuffixString(%d, %d) = %q, want %q", c.val, c.sig, got, c.want)
		}
	}
}

func TestCalculateNetworkDifficultyGenesis(t *testing.T) {
	// the lowest-difficulty compact target must come out as exactly 1
	if got := CalculateNetworkDifficulty(0x1d00ffff); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("difficulty(0x1d00ffff) = %v, want 1", got)
	}
}

func TestCalculateNetworkDifficultyScalesWithTarget(t *testing.T) {
	// halving the mantissa roughly doubles the difficulty
	base := CalculateNetworkDifficulty(0x1d00ffff)
	harder := CalculateNetworkDifficulty(0x1d007fff)
	if harder <= base {
		t.Fatalf("smaller target must mean higher difficulty: %v <= %v", harder, base)
	}
	ratio := harder / base
	if ratio < 1.9 || ratio > 2.1 {
		t.Fatalf("difficulty ratio = %v, want ~2", ratio)
	}
}
