package stratum

import (
	"net"
	"testing"
	"time"

	"github.com/nerdqaxe/qaxeminer/types"

	"go.uber.org/zap"
)

func TestParsePoolURL(t *testing.T) {
	cases := []struct {
		url  string
		host string
		port uint16
		tls  bool
	}{
		{"stratum+tcp://pool.example.com:3333", "pool.example.com", 3333, false},
		{"stratum+ssl://pool.example.com:443", "pool.example.com", 443, true},
		{"stratum+tls://pool.example.com:4433", "pool.example.com", 4433, true},
		{"pool.example.com:9000", "pool.example.com", 9000, false},
		{"pool.example.com", "pool.example.com", 3333, false},
	}
	for _, c := range cases {
		host, port, useTLS := parsePoolURL(c.url)
		if host != c.host || port != c.port || useTLS != c.tls {
			t.Errorf("parsePoolURL(%q) = (%q, %d, %v), want (%q, %d, %v)",
				c.url, host, port, useTLS, c.host, c.port, c.tls)
		}
	}
}

func TestClientStartsNotReady(t *testing.T) {
	c := NewClient(types.Pool{URL: "stratum+tcp://localhost:3333"}, zap.NewNop())
	if got := c.PoolConnectionStates(); got != types.NotReady {
		t.Fatalf("initial state = %v, want NotReady", got)
	}
}

func TestClientConnectsToLocalListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	c := NewClient(types.Pool{URL: "stratum+tcp://" + ln.Addr().String(), User: "worker"}, zap.NewNop())
	go c.Start()
	defer c.Stop()

	deadline := time.After(3 * time.Second)
	for c.PoolConnectionStates() != types.Alive {
		select {
		case <-deadline:
			t.Fatalf("client never reached Alive, state = %v", c.PoolConnectionStates())
		case <-time.After(10 * time.Millisecond):
		}
	}

	stats := c.GetPoolStats()
	if stats.User != "worker" {
		t.Errorf("stats.User = %q, want %q", stats.User, "worker")
	}
	if stats.Status != types.Alive {
		t.Errorf("stats.Status = %v, want Alive", stats.Status)
	}
}

func TestRecordShareFeedsPoolStats(t *testing.T) {
	c := NewClient(types.Pool{URL: "stratum+tcp://localhost:3333"}, zap.NewNop())
	if c.Transport() == nil {
		t.Fatalf("Transport() = nil, want the client's pipe")
	}

	c.RecordShare(true, 512)
	c.RecordShare(true, 1024)
	c.RecordShare(false, 1024)

	stats := c.GetPoolStats()
	if stats.Accept != 2 || stats.Reject != 1 {
		t.Fatalf("accept/reject = %d/%d, want 2/1", stats.Accept, stats.Reject)
	}
	if stats.Diff != 1024 {
		t.Errorf("stats.Diff = %v, want 1024", stats.Diff)
	}
	if stats.LastAccepted == 0 {
		t.Errorf("LastAccepted not set by an accepted share")
	}
}

func TestClientFailuresEscalateToDead(t *testing.T) {
	// a port nothing listens on
	c := NewClient(types.Pool{URL: "stratum+tcp://127.0.0.1:1"}, zap.NewNop())
	for i := 0; i < sickLimit; i++ {
		c.noteFailure(nil)
	}
	if got := c.PoolConnectionStates(); got != types.Dead {
		t.Fatalf("state after %d failures = %v, want Dead", sickLimit, got)
	}
}
