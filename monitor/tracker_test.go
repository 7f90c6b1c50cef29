package monitor

import "testing"

func TestTrackerFirstReplyProducesNoRate(t *testing.T) {
	tr := newChipTracker(1, 1)
	rate, ok, err := tr.recordReply(0, 1000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || rate != 0 {
		t.Fatalf("first reply must not produce a rate, got rate=%v ok=%v", rate, ok)
	}
}

func TestTrackerComputesRate(t *testing.T) {
	tr := newChipTracker(1, 1)
	tr.recordReply(0, 1000, 0)
	rate, ok, err := tr.recordReply(0, 2000, 1000)
	if err != nil || !ok {
		t.Fatalf("expected rate, got ok=%v err=%v", ok, err)
	}
	if rate != 1000 {
		t.Fatalf("rate = %v, want 1000", rate)
	}
}

func TestTrackerCountsPerHashScale(t *testing.T) {
	tr := newChipTracker(1, 256)
	tr.recordReply(0, 0, 0)
	rate, _, _ := tr.recordReply(0, 1000, 1000)
	if rate != 256000 {
		t.Fatalf("scaled rate = %v, want 256000", rate)
	}
}

func TestTrackerCounterWraparound(t *testing.T) {
	tr := newChipTracker(1, 1)
	tr.recordReply(0, 0xFFFFFFF0, 0)
	rate, ok, err := tr.recordReply(0, 0x00000010, 1000)
	if err != nil || !ok {
		t.Fatalf("expected rate, got ok=%v err=%v", ok, err)
	}
	// delta across the wrap is 0x20 counts over one second
	if rate != 32 {
		t.Fatalf("wraparound rate = %v, want 32", rate)
	}
}

func TestTrackerRejectsNonMonotonicReply(t *testing.T) {
	tr := newChipTracker(1, 1)
	tr.recordReply(0, 1000, 1000)
	if _, _, err := tr.recordReply(0, 5000, 1000); err != ErrNonPositiveInterval {
		t.Fatalf("same-timestamp reply: err = %v, want ErrNonPositiveInterval", err)
	}
	if _, _, err := tr.recordReply(0, 5000, 500); err != ErrNonPositiveInterval {
		t.Fatalf("earlier-timestamp reply: err = %v, want ErrNonPositiveInterval", err)
	}

	// the rejected replies must not have touched the stored reference
	rate, ok, err := tr.recordReply(0, 2000, 2000)
	if err != nil || !ok {
		t.Fatalf("expected rate after recovery, got ok=%v err=%v", ok, err)
	}
	if rate != 1000 {
		t.Fatalf("rate after rejected replies = %v, want 1000", rate)
	}
}

func TestTrackerOutOfRangeIndex(t *testing.T) {
	tr := newChipTracker(4, 1)
	if _, _, err := tr.recordReply(4, 0, 0); err != ErrChipIndexOutOfRange {
		t.Fatalf("err = %v, want ErrChipIndexOutOfRange", err)
	}
	if _, _, err := tr.recordReply(-1, 0, 0); err != ErrChipIndexOutOfRange {
		t.Fatalf("err = %v, want ErrChipIndexOutOfRange", err)
	}
}

func TestTrackerTotalRateIncludesSilentChips(t *testing.T) {
	tr := newChipTracker(3, 1)
	tr.recordReply(0, 0, 0)
	tr.recordReply(0, 100, 1000)
	tr.recordReply(1, 0, 0)
	tr.recordReply(1, 300, 1000)
	// chip 2 never reported at all, contributes zero
	if got := tr.totalRate(); got != 400 {
		t.Fatalf("totalRate = %v, want 400", got)
	}
}
