package monitor

import "errors"

var (
	// ErrChipIndexOutOfRange means the dispatcher handed us an index outside
	// the configured chip range. That is a caller defect, not a runtime
	// condition; the sample is dropped and the event counted.
	ErrChipIndexOutOfRange = errors.New("monitor: chip index out of range")

	// ErrNonPositiveInterval means a reply's timestamp did not advance past
	// the previous one for the same chip, e.g. a duplicated or reordered
	// reply. The sample is discarded and the previous reference kept so it
	// cannot poison future deltas.
	ErrNonPositiveInterval = errors.New("monitor: non-positive sample interval")
)

// chipSample is the last known state of one physical ASIC chip.
type chipSample struct {
	lastCounter   uint32
	lastTimestamp int64 // ms, monotonically non-decreasing
	lastRateHz    float64
	seen          bool
}

// chipTracker turns raw 32-bit hardware counter readings into per-chip
// instantaneous hashrates. Counter wraparound is handled by doing the delta
// in uint32 arithmetic: a single wrap between samples comes out right, two
// or more wraps are indistinguishable from a small delta and accepted as a
// limitation of the 32-bit register.
type chipTracker struct {
	chips         []chipSample
	countsPerHash float64
}

func newChipTracker(chipCount int, countsPerHash float64) *chipTracker {
	return &chipTracker{
		chips:         make([]chipSample, chipCount),
		countsPerHash: countsPerHash,
	}
}

// recordReply ingests one counter reading for chip at nowMs. ok is false for
// the first reading of a chip, which only establishes the delta reference.
func (t *chipTracker) recordReply(chip int, counter uint32, nowMs int64) (rateHz float64, ok bool, err error) {
	if chip < 0 || chip >= len(t.chips) {
		return 0, false, ErrChipIndexOutOfRange
	}

	c := &t.chips[chip]
	if !c.seen {
		c.lastCounter = counter
		c.lastTimestamp = nowMs
		c.seen = true
		return 0, false, nil
	}

	deltaMs := nowMs - c.lastTimestamp
	if deltaMs <= 0 {
		return 0, false, ErrNonPositiveInterval
	}

	delta := counter - c.lastCounter // uint32 wraparound intended

	rateHz = float64(delta) * t.countsPerHash * 1000.0 / float64(deltaMs)

	c.lastCounter = counter
	c.lastTimestamp = nowMs
	c.lastRateHz = rateHz
	return rateHz, true, nil
}

// totalRate sums the last known rate of every chip. Chips that never
// produced a rate contribute zero, so one dead chip degrades the total
// instead of blocking it.
func (t *chipTracker) totalRate() float64 {
	var sum float64
	for i := range t.chips {
		sum += t.chips[i].lastRateHz
	}
	return sum
}

func (t *chipTracker) chipRate(chip int) float64 {
	return t.chips[chip].lastRateHz
}
