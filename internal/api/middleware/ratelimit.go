package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

type visitors struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     float64
	burst   int
}

// clientIP keys visitors by the connection address. Forwarding headers are
// only honoured when the router installs chi's RealIP in front of this.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (v *visitors) allow(ip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	le, ok := v.entries[ip]
	if !ok {
		le = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(v.rps), v.burst)}
		v.entries[ip] = le
	}
	le.last = time.Now()
	return le.limiter.Allow()
}

func (v *visitors) gc(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			v.mu.Lock()
			for k, e := range v.entries {
				if time.Since(e.last) > 10*time.Minute {
					delete(v.entries, k)
				}
			}
			v.mu.Unlock()
		}
	}
}

// RateLimit applies an IP-based token bucket limiter. Idle visitors are
// forgotten until ctx is done.
func RateLimit(ctx context.Context, rps float64, burst int) func(http.Handler) http.Handler {
	v := &visitors{entries: map[string]*limiterEntry{}, rps: rps, burst: burst}
	go v.gc(ctx)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.allow(clientIP(r)) {
				writeDetail(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
