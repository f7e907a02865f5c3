package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowUntilLimit(t *testing.T) {
	l := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("fourth attempt should be blocked")
	}
	if l.Remaining("k") != 0 {
		t.Errorf("Remaining = %d, want 0", l.Remaining("k"))
	}
	if !l.Allow("other") {
		t.Error("keys are independent")
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("k") || l.Allow("k") {
		t.Fatal("expected one allowed attempt then a block")
	}
	now = now.Add(61 * time.Second)
	if !l.Allow("k") {
		t.Error("a new window should allow again")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)
	l.Allow("k")
	l.Reset("k")
	if l.Remaining("k") != 1 {
		t.Errorf("Remaining after reset = %d, want 1", l.Remaining("k"))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr", "", "", "10.0.0.1:1234", "10.0.0.1"},
		{"forwarded for", "203.0.113.5, 10.0.0.1", "", "10.0.0.1:1234", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.1:1234", "198.51.100.7"},
		{"no port", "", "", "10.0.0.9", "10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/login", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter_PerEmail(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	r := httptest.NewRequest("POST", "/login", nil)

	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "Ana@Example.pt"); !ok {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	if ok, msg := ll.Check(r, "ana@example.pt"); ok || msg == "" {
		t.Error("third attempt for the same email should be blocked with a message")
	}
	ll.ResetEmail("ANA@example.pt")
	if ok, _ := ll.Check(r, "ana@example.pt"); !ok {
		t.Error("reset should clear the email counter")
	}
}
