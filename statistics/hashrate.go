package statistics

// DefaultCapacity holds roughly one hour of published totals at the default
// five second publish cadence.
const DefaultCapacity = 720

// HashRate is a fixed ring of published aggregate hashrate samples, one
// entry per publish. It is not synchronized; the owning monitor guards it
// with its own lock.
type HashRate struct {
	dataSeries []float64
	currentPos int
	filled     int
}

func NewHashRate(capacity int) *HashRate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &HashRate{dataSeries: make([]float64, capacity)}
}

func (hr *HashRate) Add(num float64) {
	hr.currentPos = (hr.currentPos + 1) % len(hr.dataSeries)
	hr.dataSeries[hr.currentPos] = num
	if hr.filled < len(hr.dataSeries) {
		hr.filled++
	}
}

// RecentNSum sums the most recent n samples, clamped to what has actually
// been recorded.
func (hr *HashRate) RecentNSum(recentn int) (sum float64) {
	if recentn > hr.filled {
		recentn = hr.filled
	}
	for i := 0; i < recentn; i++ {
		pos := hr.currentPos - i
		if pos < 0 {
			pos += len(hr.dataSeries)
		}
		sum += hr.dataSeries[pos]
	}
	return
}

// RecentNAvg is the mean of the most recent n samples, zero when nothing
// has been recorded yet.
func (hr *HashRate) RecentNAvg(recentn int) float64 {
	if recentn > hr.filled {
		recentn = hr.filled
	}
	if recentn == 0 {
		return 0
	}
	return hr.RecentNSum(recentn) / float64(recentn)
}
