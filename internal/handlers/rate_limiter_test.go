package handlers

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientLimiterRefillsOverWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newClientLimiter(5, 10*time.Minute, func() time.Time { return now })

	for i := range 5 {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("sixth request inside the window should be rejected")
	}

	// One token comes back every two minutes.
	now = now.Add(2*time.Minute + time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected a refilled token")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("only one token should have been refilled")
	}
}

func TestClientLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, time.Minute, func() time.Time { return now }).(*clientLimiter)

	l.Allow("a")
	l.Allow("b")
	now = now.Add(time.Minute)
	l.Allow("c")

	if len(l.clients) != 1 {
		t.Fatalf("expected idle clients to be evicted, have %d", len(l.clients))
	}
}

func TestNewClientLimiterDisabled(t *testing.T) {
	if newClientLimiter(0, time.Minute, nil) != nil {
		t.Fatal("expected nil limiter for zero limit")
	}
	if newClientLimiter(5, 0, nil) != nil {
		t.Fatal("expected nil limiter for zero window")
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	req := httptest.NewRequest("POST", "/contact", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	if got := clientKey(req); got != "203.0.113.9" {
		t.Fatalf("unexpected key %q", got)
	}
}
