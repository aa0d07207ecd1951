package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteLimiterAllow(t *testing.T) {
	l := NewWriteLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("key") {
			t.Fatalf("write %d should be allowed", i+1)
		}
	}
	if l.Allow("key") {
		t.Error("4th write should be denied")
	}
	if !l.Allow("other") {
		t.Error("other clients have their own window")
	}
}

func TestWriteLimiterWindowReset(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewWriteLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("key")
	if l.Allow("key") {
		t.Error("should be blocked within window")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("key") {
		t.Error("should be allowed after window expires")
	}
}

func TestWriteLimiterSweep(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewWriteLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("expired")
	now = now.Add(2 * time.Minute)
	l.Allow("active")
	l.Sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.windows["expired"]; ok {
		t.Error("expired window should have been dropped")
	}
	if _, ok := l.windows["active"]; !ok {
		t.Error("active window should still exist")
	}
}

func TestWriteLimiterDisabled(t *testing.T) {
	l := NewWriteLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !l.Allow("key") {
			t.Fatal("limit 0 must not block")
		}
	}
}

func TestLimitWritesOnlyCountsWrites(t *testing.T) {
	l := NewWriteLimiter(1, time.Minute)
	handler := LimitWrites(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/events", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/events", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("first POST: status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/events/1/delete", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second POST: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "10.0.0.1:1234", "203.0.113.7"},
		{"single forwarded", "203.0.113.8", "10.0.0.1:1234", "203.0.113.8"},
		{"remote addr", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := RealIP(r); got != tt.want {
				t.Errorf("RealIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
