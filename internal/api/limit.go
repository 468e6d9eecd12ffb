package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
)

// clientIP extracts the client address of r. With trustProxy the first
// X-Forwarded-For entry, then X-Real-IP, take precedence over RemoteAddr.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// evalLimiter caps the evaluations a single client may have queued or
// running. Evaluations run one at a time, so without a cap one client can
// occupy the queue.
type evalLimiter struct {
	mu       sync.Mutex
	inFlight map[string]int
	maxPerIP int
}

func newEvalLimiter(maxPerIP int) *evalLimiter {
	return &evalLimiter{inFlight: make(map[string]int), maxPerIP: maxPerIP}
}

// acquire registers an evaluation for ip, or reports false when ip is at
// its limit.
func (l *evalLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.maxPerIP > 0 && l.inFlight[ip] >= l.maxPerIP {
		return false
	}
	l.inFlight[ip]++
	return true
}

func (l *evalLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight[ip]--
	if l.inFlight[ip] <= 0 {
		delete(l.inFlight, ip)
	}
}
