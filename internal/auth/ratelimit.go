package auth

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter keeps one token bucket per client IP.
type IPLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMinute func() int
	current   int
	limit     rate.Limit
	burst     int
	now       func() time.Time
}

// NewIPLimiter allows perMinute events per IP with a burst of the same size.
func NewIPLimiter(perMinute int) *IPLimiter {
	return NewIPLimiterFunc(func() int { return perMinute })
}

// NewIPLimiterFunc reads the per-minute budget on every Allow. A changed value gives
// every IP a fresh bucket of the new size. Values <= 0 mean 5.
func NewIPLimiterFunc(perMinute func() int) *IPLimiter {
	l := &IPLimiter{
		visitors:  make(map[string]*visitor),
		perMinute: perMinute,
		now:       time.Now,
	}
	l.setRate(perMinute())
	return l
}

func (l *IPLimiter) setRate(n int) {
	if n <= 0 {
		n = 5
	}
	l.current = n
	l.limit = rate.Every(time.Minute / time.Duration(n))
	l.burst = n
}

// Allow consumes one token for ip.
func (l *IPLimiter) Allow(ip string) bool {
	n := l.perMinute()

	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 {
		n = 5
	}
	if n != l.current {
		l.setRate(n)
	}
	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	} else if v.limiter.Burst() != l.burst {
		v.limiter = rate.NewLimiter(l.limit, l.burst)
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Cleanup forgets IPs idle for longer than maxIdle.
func (l *IPLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-maxIdle)
	removed := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (l *IPLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup(10 * interval)
		}
	}
}

// ClientIP returns the client address. With trustedProxies > 0 it reads the X-Forwarded-For
// entry appended by the outermost trusted proxy; otherwise forwarding headers are ignored.
func ClientIP(r *http.Request, trustedProxies int) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" && trustedProxies > 0 {
		parts := strings.Split(fwd, ",")
		if idx := len(parts) - trustedProxies; idx >= 0 {
			if ip := strings.TrimSpace(parts[idx]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
