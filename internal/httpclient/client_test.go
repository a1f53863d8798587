package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/everstacklabs/modelscout/internal/errs"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestClient(opts ...Option) *Client {
	base := []Option{WithSleep(noSleep), WithoutJitter()}
	return New(append(base, opts...)...)
}

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient()
	resp, err := c.Get(context.Background(), "test", srv.URL, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestRetryOnRetryableStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"request timeout", http.StatusRequestTimeout},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
		{"bad gateway", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(tt.status)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			c := newTestClient()
			if _, err := c.Get(context.Background(), "test", srv.URL, nil); err != nil {
				t.Fatalf("Get() error = %v, want recovery on third attempt", err)
			}
			if got := calls.Load(); got != 3 {
				t.Errorf("calls = %d, want 3", got)
			}
		})
	}
}

func TestExhaustedRetriesIsNetworkError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient()
	_, err := c.Get(context.Background(), "test", srv.URL, nil)
	if err == nil {
		t.Fatal("Get() error = nil, want network error")
	}
	if errs.KindOf(err) != errs.KindNetwork {
		t.Errorf("kind = %q, want %q", errs.KindOf(err), errs.KindNetwork)
	}
	// One initial attempt plus one retry per backoff slot.
	if got := calls.Load(); got != int32(len(DefaultBackoff)+1) {
		t.Errorf("calls = %d, want %d", got, len(DefaultBackoff)+1)
	}
}

func TestTerminalStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind errs.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, errs.KindAuth},
		{"forbidden", http.StatusForbidden, errs.KindAuth},
		{"not found", http.StatusNotFound, errs.KindNetwork},
		{"unprocessable", http.StatusUnprocessableEntity, errs.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newTestClient()
			_, err := c.Get(context.Background(), "test", srv.URL, nil)
			if err == nil {
				t.Fatal("Get() error = nil")
			}
			if errs.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %q, want %q", errs.KindOf(err), tt.wantKind)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("calls = %d, want 1 (terminal status must not retry)", got)
			}
		})
	}
}

func TestGetJSONMalformedBodyIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data": [truncated`))
	}))
	defer srv.Close()

	c := newTestClient()
	var out struct {
		Data []string `json:"data"`
	}
	err := c.GetJSON(context.Background(), "test", srv.URL, nil, &out)
	if errs.KindOf(err) != errs.KindMalformed {
		t.Errorf("kind = %q, want %q", errs.KindOf(err), errs.KindMalformed)
	}
}

func TestSleepReceivesBackoffSchedule(t *testing.T) {
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(WithSleep(sleep), WithoutJitter(), WithBackoff([]time.Duration{time.Second, 2 * time.Second}))
	_, _ = c.Get(context.Background(), "test", srv.URL, nil)

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("sleep calls = %d, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestJitterBounds(t *testing.T) {
	d := 2 * time.Second
	for i := 0; i < 200; i++ {
		got := applyJitter(d)
		if got < d/2 || got > d+d/2 {
			t.Fatalf("applyJitter(%v) = %v, outside [%v, %v]", d, got, d/2, d+d/2)
		}
	}
}

func TestCancelledContextStopsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(WithoutJitter(), WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return context.Canceled
	}))
	_, err := c.Get(ctx, "test", srv.URL, nil)
	if err == nil {
		t.Fatal("Get() error = nil, want error after cancellation")
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v does not carry taxonomy", err)
	}
}
