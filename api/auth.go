package api

import (
	"crypto/rand"
	"encoding/base32"
	"net/http"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

const (
	// failed-attempt limiter: failLimit wrong codes inside failWindow block
	// further attempts for blockDuration. The block is not extended by
	// attempts made while it is active; TOTP codes rotate every 30 s anyway.
	failLimit     = 5
	failWindow    = 60 * time.Second
	blockDuration = 300 * time.Second

	sessionTTL = time.Hour
)

// OTPGuard authenticates mutating control-plane requests with a TOTP code
// (X-TOTP header) or a session token previously issued for a valid code
// (X-OTP-Session header). An empty secret disables the guard.
type OTPGuard struct {
	secret string
	logger *zap.Logger

	mu        sync.Mutex
	failTimes [failLimit]int64 // unix ms, newest at index 0
	blockExp  int64            // unix ms, 0 when unblocked
	sessions  map[string]int64 // token -> expiry unix ms

	now func() time.Time
}

func NewOTPGuard(secret string, logger *zap.Logger) *OTPGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPGuard{
		secret:   secret,
		logger:   logger,
		sessions: make(map[string]int64),
		now:      time.Now,
	}
}

func (g *OTPGuard) Enabled() bool {
	return g.secret != ""
}

// Require wraps a handler with OTP/session authentication.
func (g *OTPGuard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next(w, r)
			return
		}
		if g.isBlocked() {
			http.Error(w, "blocked for 5 minutes", http.StatusUnauthorized)
			return
		}

		if sess := r.Header.Get("X-OTP-Session"); sess != "" && g.verifySession(sess) {
			next(w, r)
			return
		}
		if code := r.Header.Get("X-TOTP"); code != "" && g.validate(code) {
			next(w, r)
			return
		}

		g.logger.Error("totp validation failed", zap.String("remote", r.RemoteAddr))
		g.recordFailure()
		http.Error(w, "OTP/Session required", http.StatusUnauthorized)
	}
}

// IssueSession exchanges a valid TOTP code for a session token.
func (g *OTPGuard) IssueSession(code string) (token string, ok bool) {
	if g.isBlocked() {
		return "", false
	}
	if !g.validate(code) {
		g.recordFailure()
		return "", false
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", false
	}
	token = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)

	g.mu.Lock()
	g.sessions[token] = g.now().Add(sessionTTL).UnixMilli()
	g.mu.Unlock()
	return token, true
}

func (g *OTPGuard) validate(code string) bool {
	return totp.Validate(code, g.secret)
}

func (g *OTPGuard) verifySession(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.sessions[token]
	if !ok {
		return false
	}
	if exp <= g.now().UnixMilli() {
		delete(g.sessions, token)
		return false
	}
	return true
}

func (g *OTPGuard) isBlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blockExp != 0 && g.blockExp > g.now().UnixMilli()
}

// recordFailure notes one failed attempt and starts a block once failLimit
// failures land inside failWindow.
func (g *OTPGuard) recordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixMilli()

	// an expired block clears the failure history
	if g.blockExp != 0 && g.blockExp <= ts {
		g.blockExp = 0
		g.failTimes = [failLimit]int64{}
	}

	// keep the newest timestamp at index 0
	for i := failLimit - 1; i > 0; i-- {
		g.failTimes[i] = g.failTimes[i-1]
	}
	g.failTimes[0] = ts

	if g.failTimes[failLimit-1] != 0 {
		delta := g.failTimes[0] - g.failTimes[failLimit-1]
		if delta < failWindow.Milliseconds() {
			g.blockExp = ts + blockDuration.Milliseconds()
			g.failTimes = [failLimit]int64{}
			g.logger.Error("too many OTP failures, blocking")
		}
	}
}
