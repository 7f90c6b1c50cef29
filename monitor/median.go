package monitor

// Median is a fixed-capacity sliding-window median filter. The window size
// must be odd so the median is always one of the observed samples, never an
// interpolation. A single wild sample (corrupted counter, delayed reply)
// moves the mean a lot but leaves the median untouched.
type Median struct {
	buf []float64
	idx int
}

// NewMedian returns a filter over the last size samples. Slots start out
// filled with init, so early outputs are biased towards init until the
// window saturates. An even size is a programming error.
func NewMedian(size int, init float64) *Median {
	if size <= 0 || size%2 == 0 {
		panic("monitor: median window size must be positive and odd")
	}
	m := &Median{buf: make([]float64, size)}
	for i := range m.buf {
		m.buf[i] = init
	}
	return m
}

// Update records value as the newest sample, dropping the oldest, and
// returns the median of the current window.
func (m *Median) Update(value float64) float64 {
	m.buf[m.idx] = value
	m.idx = (m.idx + 1) % len(m.buf)

	tmp := make([]float64, len(m.buf))
	copy(tmp, m.buf)

	// insertion sort, window is small
	for i := 1; i < len(tmp); i++ {
		key := tmp[i]
		j := i
		for j > 0 && tmp[j-1] > key {
			tmp[j] = tmp[j-1]
			j--
		}
		tmp[j] = key
	}

	return tmp[len(tmp)/2]
}
