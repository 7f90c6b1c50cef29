//Package stratum maintains the byte pipe to an upstream pool: TCP or TLS
// dialing with keepalive, bounded send/recv deadlines and a reconnection
// state machine. Protocol framing is intentionally not handled here.
package stratum

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 30 * time.Second
	keepAlive   = 30 * time.Second
)

// Transport is a TCP or TLS connection to one pool endpoint. All methods
// are safe for concurrent use.
type Transport struct {
	useTLS bool

	mu   sync.Mutex
	conn net.Conn
}

func NewTCPTransport() *Transport { return &Transport{} }
func NewTLSTransport() *Transport { return &Transport{useTLS: true} }

// Connect dials host:port, replacing any previous connection.
func (t *Transport) Connect(host string, port uint16) error {
	t.Close()

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}

	var (
		conn net.Conn
		err  error
	)
	if t.useTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: host})
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("stratum: connect %s: %w", addr, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *Transport) Send(data []byte) (int, error) {
	conn := t.current()
	if conn == nil {
		return 0, net.ErrClosed
	}
	conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	return conn.Write(data)
}

func (t *Transport) Recv(buf []byte) (int, error) {
	conn := t.current()
	if conn == nil {
		return 0, net.ErrClosed
	}
	conn.SetReadDeadline(time.Now().Add(ioTimeout))
	return conn.Read(buf)
}

func (t *Transport) IsConnected() bool {
	return t.current() != nil
}

func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

func (t *Transport) current() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}
