package statistics

import "testing"

func TestRecentNSum(t *testing.T) {
	hr := NewHashRate(10)
	for _, v := range []float64{1, 2, 3, 4} {
		hr.Add(v)
	}
	if got := hr.RecentNSum(2); got != 7 {
		t.Errorf("RecentNSum(2) = %v, want 7", got)
	}
	if got := hr.RecentNSum(4); got != 10 {
		t.Errorf("RecentNSum(4) = %v, want 10", got)
	}
}

func TestRecentNSumClampsToRecorded(t *testing.T) {
	hr := NewHashRate(10)
	hr.Add(5)
	// asking for more than was recorded must not count empty slots
	if got := hr.RecentNSum(8); got != 5 {
		t.Errorf("RecentNSum(8) = %v, want 5", got)
	}
}

func TestRecentNAvg(t *testing.T) {
	hr := NewHashRate(10)
	if got := hr.RecentNAvg(5); got != 0 {
		t.Errorf("empty RecentNAvg = %v, want 0", got)
	}
	for _, v := range []float64{100, 200} {
		hr.Add(v)
	}
	if got := hr.RecentNAvg(2); got != 150 {
		t.Errorf("RecentNAvg(2) = %v, want 150", got)
	}
	if got := hr.RecentNAvg(10); got != 150 {
		t.Errorf("clamped RecentNAvg(10) = %v, want 150", got)
	}
}

func TestRingWrapsAround(t *testing.T) {
	hr := NewHashRate(3)
	for _, v := range []float64{1, 2, 3, 4} {
		hr.Add(v)
	}
	// oldest value (1) has been overwritten
	if got := hr.RecentNSum(3); got != 9 {
		t.Errorf("RecentNSum(3) after wrap = %v, want 9", got)
	}
}
