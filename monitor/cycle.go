package monitor

// cycle tracks which chips have reported during the current measurement
// period. A cycle completes either organically, when every configured chip
// has reported a rate, or via the deadline, so a stalled chip degrades the
// published metric instead of silencing it.
type cycle struct {
	reported   []bool
	numPending int
	startMs    int64
	deadlineMs int64
}

func newCycle(chipCount int, deadlineMs, nowMs int64) *cycle {
	return &cycle{
		reported:   make([]bool, chipCount),
		numPending: chipCount,
		startMs:    nowMs,
		deadlineMs: deadlineMs,
	}
}

// note marks chip as reported and returns true when the cycle is complete.
func (c *cycle) note(chip int, nowMs int64) bool {
	if !c.reported[chip] {
		c.reported[chip] = true
		c.numPending--
	}
	return c.numPending == 0 || c.expired(nowMs)
}

func (c *cycle) expired(nowMs int64) bool {
	return nowMs-c.startMs > c.deadlineMs
}

func (c *cycle) reset(nowMs int64) {
	for i := range c.reported {
		c.reported[i] = false
	}
	c.numPending = len(c.reported)
	c.startMs = nowMs
}
