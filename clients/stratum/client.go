package stratum

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerdqaxe/qaxeminer/types"

	"go.uber.org/zap"
)

const (
	probeInterval = 5 * time.Second
	deadBackoff   = 30 * time.Second

	// connect failures before the pool is declared dead
	sickLimit = 3
)

// Client keeps one pool connection alive and exposes its state to the
// status API. It implements clients.Client.
type Client struct {
	pool   types.Pool
	host   string
	port   uint16
	logger *zap.Logger

	mu        sync.Mutex
	transport *Transport
	status    types.PoolConnectionStates
	failures  int
	accept    int32
	reject    int32
	diff      float64
	lastOK    int64

	quit     chan struct{}
	stopOnce sync.Once
}

// NewClient builds a client for one configured pool. The URL scheme picks
// the transport: stratum+ssl / stratum+tls dial TLS, anything else plain
// TCP.
func NewClient(pool types.Pool, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	host, port, useTLS := parsePoolURL(pool.URL)
	if pool.TLS {
		useTLS = true
	}

	t := NewTCPTransport()
	if useTLS {
		t = NewTLSTransport()
	}

	return &Client{
		pool:      pool,
		host:      host,
		port:      port,
		logger:    logger,
		transport: t,
		status:    types.NotReady,
		quit:      make(chan struct{}),
	}
}

// Start runs the connect/supervise loop until Stop. Meant to be launched
// as a goroutine.
func (c *Client) Start() {
	for {
		select {
		case <-c.quit:
			return
		default:
		}

		if err := c.transport.Connect(c.host, c.port); err != nil {
			c.noteFailure(err)
			if c.PoolConnectionStates() == types.Dead {
				c.logger.Warn("pool dead, retry after backoff",
					zap.String("pool", c.pool.URL))
				if !c.sleep(deadBackoff) {
					return
				}
			} else if !c.sleep(probeInterval) {
				return
			}
			continue
		}

		c.noteConnected()
		c.logger.Info("pool connected", zap.String("pool", c.pool.URL))

		// supervise until the transport drops
		for c.transport.IsConnected() {
			if !c.sleep(probeInterval) {
				return
			}
		}

		c.setStatus(types.Sick)
		c.logger.Warn("pool connection lost, reconnecting",
			zap.String("pool", c.pool.URL))
	}
}

func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
		c.transport.Close()
	})
}

func (c *Client) PoolConnectionStates() types.PoolConnectionStates {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) GetPoolStats() (stats types.PoolStates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats.Status = c.status
	stats.User = c.pool.User
	stats.PoolAddr = c.pool.URL
	stats.Accept = c.accept
	stats.Reject = c.reject
	stats.Diff = c.diff
	stats.LastAccepted = c.lastOK
	stats.Active = c.pool.Primary
	return
}

// Transport exposes the byte pipe. The stratum protocol layer that speaks
// over it lives outside this package; it attaches here and reports share
// results through RecordShare.
func (c *Client) Transport() *Transport {
	return c.transport
}

// RecordShare accumulates one submitted share into the pool stats.
func (c *Client) RecordShare(accepted bool, diff float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if accepted {
		c.accept++
		c.lastOK = time.Now().Unix()
	} else {
		c.reject++
	}
	c.diff = diff
}

func (c *Client) noteConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = types.Alive
	c.failures = 0
	c.lastOK = time.Now().Unix()
}

func (c *Client) noteFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= sickLimit {
		c.status = types.Dead
	} else {
		c.status = types.Sick
	}
	c.logger.Debug("pool connect failed",
		zap.String("pool", c.pool.URL),
		zap.Int("failures", c.failures),
		zap.Error(err))
}

func (c *Client) setStatus(s types.PoolConnectionStates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// sleep waits d or returns false when the client is stopping.
func (c *Client) sleep(d time.Duration) bool {
	select {
	case <-c.quit:
		return false
	case <-time.After(d):
		return true
	}
}

// parsePoolURL splits "stratum+tcp://host:port" into its parts. A missing
// or unparsable port falls back to 3333.
func parsePoolURL(url string) (host string, port uint16, useTLS bool) {
	rest := url
	if i := strings.Index(rest, "://"); i >= 0 {
		scheme := rest[:i]
		rest = rest[i+3:]
		useTLS = scheme == "stratum+ssl" || scheme == "stratum+tls"
	}

	host = rest
	port = 3333
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		host = rest[:i]
		if p, err := strconv.ParseUint(rest[i+1:], 10, 16); err == nil {
			port = uint16(p)
		}
	}
	return
}
