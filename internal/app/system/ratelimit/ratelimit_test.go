package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Buckets(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Error("third request should be limited")
	}
	if !l.Allow("b") {
		t.Error("keys are limited independently")
	}
	if got := l.Remaining("a"); got != 0 {
		t.Errorf("Remaining(a) = %d, want 0", got)
	}

	now = now.Add(31 * time.Second)
	if got := l.Remaining("a"); got != 1 {
		t.Errorf("Remaining(a) after half the window = %d, want 1", got)
	}
	now = now.Add(30 * time.Second)
	if !l.Allow("a") || !l.Allow("a") {
		t.Error("a refilled bucket should admit a full burst again")
	}
	l.Reset("a")
	if got := l.Remaining("a"); got != 2 {
		t.Errorf("Remaining after Reset = %d, want 2", got)
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	h := Middleware(l, ClientIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := func(remote, forwarded string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = remote + ":40000"
		if forwarded != "" {
			r.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	if rec := req("203.0.113.7", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("first request = %d", rec.Code)
	}
	rec := req("203.0.113.7", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	// A made-up forwarding header does not buy a fresh bucket.
	for _, spoof := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		if rec := req("203.0.113.7", spoof); rec.Code != http.StatusTooManyRequests {
			t.Errorf("X-Forwarded-For %s = %d, want 429", spoof, rec.Code)
		}
	}
	if rec := req("198.51.100.2", ""); rec.Code != http.StatusNoContent {
		t.Errorf("other client = %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded ignored", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "192.0.2.1:1234", "192.0.2.1"},
		{"real ip ignored", map[string]string{"X-Real-IP": "198.51.100.2"}, "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
		{"ipv6", nil, "[2001:db8::1]:443", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIPBehind(t *testing.T) {
	trusted, err := ParseProxies("10.0.0.0/8, 192.0.2.10")
	if err != nil {
		t.Fatalf("ParseProxies: %v", err)
	}
	key := ClientIPBehind(trusted)

	tests := []struct {
		name      string
		remote    string
		forwarded []string
		realIP    string
		want      string
	}{
		{"untrusted peer keeps its own address", "203.0.113.9:1", []string{"1.1.1.1"}, "", "203.0.113.9"},
		{"trusted peer forwards the client", "10.1.2.3:1", []string{"203.0.113.7"}, "", "203.0.113.7"},
		{"spoofed hops left of the client are skipped", "10.1.2.3:1", []string{"1.1.1.1, 203.0.113.7"}, "", "203.0.113.7"},
		{"chain of trusted proxies", "192.0.2.10:1", []string{"203.0.113.7, 10.9.9.9"}, "", "203.0.113.7"},
		{"repeated headers join", "10.1.2.3:1", []string{"1.1.1.1", "203.0.113.7"}, "", "203.0.113.7"},
		{"garbage hop stops the walk", "10.1.2.3:1", []string{"203.0.113.7, junk, 10.0.0.2"}, "", "10.0.0.2"},
		{"real ip from trusted peer", "10.1.2.3:1", nil, " 198.51.100.2 ", "198.51.100.2"},
		{"invalid real ip", "10.1.2.3:1", nil, "nope", "10.1.2.3"},
		{"no headers", "10.1.2.3:1", nil, "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for _, v := range tt.forwarded {
				r.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := key(r); got != tt.want {
				t.Errorf("key() = %q, want %q", got, tt.want)
			}
		})
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:1"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := ClientIPBehind(nil)(r); got != "10.1.2.3" {
		t.Errorf("no trusted proxies: key() = %q, want the peer", got)
	}
}

func TestParseProxies(t *testing.T) {
	got, err := ParseProxies(" 10.0.0.1/8 , ,::1, 192.0.2.4")
	if err != nil {
		t.Fatalf("ParseProxies: %v", err)
	}
	want := []string{"10.0.0.0/8", "::1/128", "192.0.2.4/32"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if got, err := ParseProxies(""); err != nil || len(got) != 0 {
		t.Errorf("empty list = %v, %v", got, err)
	}
	for _, bad := range []string{"10.0.0.0/33", "proxy.local"} {
		if _, err := ParseProxies(bad); err == nil {
			t.Errorf("ParseProxies(%q) should fail", bad)
		}
	}
}

func TestGroup_Stop(t *testing.T) {
	var g Group
	a := g.New(5, time.Minute)
	b := g.New(5, time.Hour)
	if g.Len() != 2 {
		t.Fatalf("Len = %d, want 2", g.Len())
	}

	g.Stop()
	g.Stop()
	for i, l := range []*Limiter{a, b} {
		select {
		case <-l.Done():
		default:
			t.Errorf("limiter %d not stopped", i)
		}
	}
	if !a.Allow("k") {
		t.Error("a stopped limiter still limits")
	}

	late := g.New(1, time.Minute)
	select {
	case <-late.Done():
	default:
		t.Error("limiter created after Stop should come back stopped")
	}

	var nilGroup *Group
	l := nilGroup.New(1, time.Minute)
	defer l.Stop()
	if nilGroup.Len() != 0 {
		t.Error("nil group tracks nothing")
	}
	nilGroup.Stop()
}
