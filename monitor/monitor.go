package monitor

import (
	"sync"
	"time"

	"github.com/nerdqaxe/qaxeminer/statistics"

	"go.uber.org/zap"
)

const (
	// ErrataFactor compensates the systematic undercount of the hash counter
	// register's sampling window. Confirmed by long-term averages against
	// pool-reported hashrate.
	ErrataFactor = 1.046

	// DefaultPollInterval is how often the background task checks for a
	// stalled cycle. DefaultCycleDeadline is how long a cycle may stay open
	// waiting for chips before it is force-published. The poll interval is
	// deliberately shorter than the deadline so an expired cycle is
	// published at most ~one tick late.
	DefaultPollInterval  = 1000 * time.Millisecond
	DefaultCycleDeadline = 5000 * time.Millisecond

	medianWindow = 5
)

// Board supplies the static chip configuration, queried once at Start.
type Board interface {
	AsicCount() int
}

// Asic supplies the per-architecture scale between counter increments and
// hashes, queried once at Start.
type Asic interface {
	CountsPerHash() float64
}

// HashrateMonitor converts asynchronous per-chip counter replies into a
// stable aggregate device hashrate. All mutable state sits behind a single
// mutex; the intake path, the background liveness task and any number of
// status readers may run concurrently. No lock is ever held across I/O.
type HashrateMonitor struct {
	mu      sync.Mutex
	started bool

	tracker *chipTracker
	cycle   *cycle
	median  *Median
	history *statistics.HashRate

	hashrate float64 // raw total at last publish
	smoothed float64

	errata       float64
	pollInterval time.Duration
	deadline     time.Duration

	// diagnostics
	droppedSamples  uint64
	outOfRangeCalls uint64

	quit   chan struct{}
	now    func() time.Time // swapped out in tests
	logger *zap.Logger
}

// New returns an unstarted monitor with the default cadence and erratum
// correction.
func New(logger *zap.Logger) *HashrateMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HashrateMonitor{
		errata:       ErrataFactor,
		pollInterval: DefaultPollInterval,
		deadline:     DefaultCycleDeadline,
		now:          time.Now,
		logger:       logger,
	}
}

// SetErrataFactor overrides the empirical correction factor. Only valid
// before Start.
func (m *HashrateMonitor) SetErrataFactor(f float64) {
	m.errata = f
}

// SetCadence overrides the liveness poll interval and the cycle deadline.
// Only valid before Start.
func (m *HashrateMonitor) SetCadence(poll, deadline time.Duration) {
	m.pollInterval = poll
	m.deadline = deadline
}

// Start captures the chip count and counter scale from the collaborators,
// allocates per-chip state and launches the background liveness task. It
// returns false on a second Start or a zero chip count, leaving nothing
// running.
func (m *HashrateMonitor) Start(board Board, asic Asic) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		m.logger.Error("hashrate monitor already started")
		return false
	}
	count := board.AsicCount()
	if count <= 0 {
		m.logger.Error("hashrate monitor needs at least one chip", zap.Int("asiccount", count))
		return false
	}

	nowMs := m.now().UnixMilli()
	m.tracker = newChipTracker(count, asic.CountsPerHash())
	m.cycle = newCycle(count, m.deadline.Milliseconds(), nowMs)
	m.median = NewMedian(medianWindow, 0)
	m.history = statistics.NewHashRate(statistics.DefaultCapacity)
	m.quit = make(chan struct{})
	m.started = true

	go m.taskLoop()

	m.logger.Info("hashrate monitor started",
		zap.Int("asiccount", count),
		zap.Duration("deadline", m.deadline))
	return true
}

// Stop terminates the background task. Published metrics stay readable.
func (m *HashrateMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	close(m.quit)
	m.started = false
}

// OnRegisterReply is the intake entry point, called by the receive/dispatch
// path once per decoded register reply. It holds the lock for the duration
// of the bookkeeping only and performs no I/O, so it never stalls the
// serial receive path.
func (m *HashrateMonitor) OnRegisterReply(chip int, counterNow uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}

	nowMs := m.now().UnixMilli()
	rate, ok, err := m.tracker.recordReply(chip, counterNow, nowMs)
	switch err {
	case nil:
	case ErrChipIndexOutOfRange:
		m.outOfRangeCalls++
		m.logger.Error("register reply for chip out of range", zap.Int("chip", chip))
		return
	case ErrNonPositiveInterval:
		m.droppedSamples++
		m.logger.Debug("discarded non-monotonic register reply", zap.Int("chip", chip))
		return
	default:
		return
	}
	if !ok {
		// first reply for this chip, only establishes the delta reference
		return
	}

	m.logger.Debug("chip rate updated", zap.Int("chip", chip), zap.Float64("ratehz", rate))

	if m.cycle.note(chip, nowMs) {
		m.publishLocked(nowMs)
	}
}

// forcePublishIfExpired is the deadline fallback, shared between the
// background task and tests. It publishes carrying forward the last known
// rate of any chip that stayed silent this cycle.
func (m *HashrateMonitor) forcePublishIfExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	nowMs := m.now().UnixMilli()
	if m.cycle.expired(nowMs) {
		m.publishLocked(nowMs)
	}
}

// publishLocked recomputes the aggregate, feeds the smoothing filter and
// opens the next cycle. Callers must hold m.mu.
func (m *HashrateMonitor) publishLocked(nowMs int64) {
	raw := m.tracker.totalRate() * m.errata
	m.hashrate = raw
	m.smoothed = m.median.Update(raw)
	m.history.Add(raw)
	m.cycle.reset(nowMs)

	m.logger.Debug("hashrate published",
		zap.Float64("rawhz", raw),
		zap.Float64("smoothedhz", m.smoothed))
}

func (m *HashrateMonitor) taskLoop() {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.forcePublishIfExpired()
		}
	}
}

// Hashrate returns the raw aggregate of the last completed cycle, in H/s.
func (m *HashrateMonitor) Hashrate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashrate
}

// SmoothedTotalChipHashrate returns the median-filtered aggregate, in H/s.
func (m *HashrateMonitor) SmoothedTotalChipHashrate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smoothed
}

// ChipHashrates returns a copy of every chip's last computed rate.
func (m *HashrateMonitor) ChipHashrates() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracker == nil {
		return nil
	}
	rates := make([]float64, len(m.tracker.chips))
	for i := range rates {
		rates[i] = m.tracker.chipRate(i)
	}
	return rates
}

// RecentAverage returns the mean of the last n published raw totals.
func (m *HashrateMonitor) RecentAverage(n int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.history == nil {
		return 0
	}
	return m.history.RecentNAvg(n)
}

// DroppedSamples reports how many replies were discarded for non-monotonic
// timestamps, for diagnostics.
func (m *HashrateMonitor) DroppedSamples() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.droppedSamples
}
