package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doReq(h http.Handler, addr string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/content/list", nil)
	req.RemoteAddr = addr
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAllowsUnderLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := New(ctx, WithRate(100, 10))
	h := l.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		if code := doReq(h, "127.0.0.1:50000"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, code)
		}
	}
}

func TestDeniesOverBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var denied int
	var first int
	l := New(ctx,
		WithRate(0.001, 2),
		WithOnDenied(func(string) { denied++ }),
		WithOnFirstDenied(func(string) { first++ }),
	)
	h := l.Middleware(okHandler())

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, doReq(h, "10.0.0.9:1234"))
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst should admit first two, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests || codes[3] != http.StatusTooManyRequests {
		t.Fatalf("over-burst should be denied, got %v", codes)
	}
	if denied != 2 {
		t.Errorf("OnDenied called %d times, want 2", denied)
	}
	if first != 1 {
		t.Errorf("OnFirstDenied called %d times, want 1", first)
	}
}

func TestPerIPIsolation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := New(ctx, WithRate(0.001, 1))
	h := l.Middleware(okHandler())

	if code := doReq(h, "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("first ip first request = %d", code)
	}
	if code := doReq(h, "10.0.0.1:1"); code != http.StatusTooManyRequests {
		t.Fatalf("first ip second request = %d", code)
	}
	// other ip unaffected
	if code := doReq(h, "10.0.0.2:1"); code != http.StatusOK {
		t.Fatalf("second ip = %d", code)
	}
}

func TestCapacityBound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var capHit bool
	l := New(ctx, WithRate(100, 10), WithMaxVisitors(1), WithOnCapacity(func() { capHit = true }))
	h := l.Middleware(okHandler())

	if code := doReq(h, "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("first visitor = %d", code)
	}
	if code := doReq(h, "10.0.0.2:1"); code != http.StatusTooManyRequests {
		t.Fatalf("over-capacity visitor = %d", code)
	}
	if !capHit {
		t.Fatal("OnCapacity not called")
	}
}

func TestEviction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := New(ctx, WithRate(100, 10), WithTTL(20*time.Millisecond))
	h := l.Middleware(okHandler())

	doReq(h, "10.0.0.1:1")
	time.Sleep(60 * time.Millisecond)

	l.mu.Lock()
	n := len(l.visitors)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle visitor evicted, %d remain", n)
	}
}
