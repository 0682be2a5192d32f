// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. A key may spend limit requests at
// once and regains one every duration/limit.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    int           // bucket size
	duration time.Duration // time to refill a full bucket
	ttl      time.Duration // idle buckets older than this are dropped
	stop     chan struct{}
	once     sync.Once
	now      func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing limit requests per key per duration. Call
// Stop to end its cleanup goroutine.
func New(limit int, duration time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	l := &Limiter{
		buckets:  make(map[string]*bucket),
		limit:    limit,
		duration: duration,
		ttl:      duration * 2,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go l.cleanupLoop()
	return l
}

func (l *Limiter) bucket(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(l.Interval()), l.limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// Allow reports whether a request for key may proceed, and spends a token
// if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.bucket(key, now).lim.AllowN(now, 1)
}

// Remaining returns how many requests key may make right now.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return l.limit
	}
	if tokens := int(b.lim.TokensAt(l.now())); tokens > 0 {
		return tokens
	}
	return 0
}

// Reset gives key a full bucket again.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Interval is the time it takes one spent request to come back.
func (l *Limiter) Interval() time.Duration {
	return l.duration / time.Duration(l.limit)
}

// Stop ends the cleanup goroutine. The limiter keeps working afterwards.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Done is closed once Stop has been called.
func (l *Limiter) Done() <-chan struct{} {
	return l.stop
}

// Group tracks the limiters an app creates so shutdown can stop them
// together. A nil Group hands out untracked limiters.
type Group struct {
	mu       sync.Mutex
	limiters []*Limiter
	stopped  bool
}

// New creates a limiter like the package-level New and tracks it. Limiters
// created after Stop come back already stopped.
func (g *Group) New(limit int, duration time.Duration) *Limiter {
	l := New(limit, duration)
	if g == nil {
		return l
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiters = append(g.limiters, l)
	if g.stopped {
		l.Stop()
	}
	return l
}

// Len returns the number of tracked limiters.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.limiters)
}

// Stop stops every tracked limiter. It is safe to call more than once.
func (g *Group) Stop() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for _, l := range g.limiters {
		l.Stop()
	}
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, b := range l.buckets {
				if now.Sub(b.lastSeen) > l.ttl {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the limit with 429 and a JSON body. key
// picks the bucket for a request; an empty key is never limited.
func Middleware(l *Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if k := key(r); k != "" && !l.Allow(k) {
				Reject(w, l.Interval())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Reject writes the 429 response.
func Reject(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests, try again later"}`))
}

// ClientIP returns the address of the connecting peer. Forwarding headers
// are ignored; use ClientIPBehind when the app runs behind a proxy.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}

// ClientIPBehind returns a key function that honours X-Forwarded-For and
// X-Real-IP only on requests whose peer is one of the trusted proxies. The
// forwarded chain is read right to left and the first hop that is not a
// trusted proxy is the client. With no trusted proxies it is ClientIP.
func ClientIPBehind(trusted []netip.Prefix) func(*http.Request) string {
	if len(trusted) == 0 {
		return ClientIP
	}
	isTrusted := func(s string) bool {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, p := range trusted {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := ClientIP(r)
		if !isTrusted(peer) {
			return peer
		}

		if xff := strings.Join(r.Header.Values("X-Forwarded-For"), ","); xff != "" {
			hops := strings.Split(xff, ",")
			client := peer
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if _, err := netip.ParseAddr(hop); err != nil {
					break
				}
				client = hop
				if !isTrusted(hop) {
					break
				}
			}
			return client
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if _, err := netip.ParseAddr(xri); err == nil {
				return xri
			}
		}
		return peer
	}
}

// ParseProxies parses a comma-separated list of proxy addresses. Entries are
// single IPs or CIDR prefixes; blanks are skipped.
func ParseProxies(s string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.Contains(f, "/") {
			p, err := netip.ParsePrefix(f)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", f, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(f)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", f, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
