package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/aluiziolira/redeem-code-bot/config"
	"github.com/jarcoal/httpmock"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.WikiURL = "http://wiki.test/redeem"
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond
	return cfg
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func TestFetchReturnsBody(t *testing.T) {
	cfg := testConfig()
	page := `<html><body><table class="redeemcode"></table></body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.WikiURL, htmlResponder(page))

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.collector.WithTransport(transport)

	body, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != page {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchRetriesUntilSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3
	page := "<html>ok</html>"

	calls := 0
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.WikiURL, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return httpmock.NewStringResponse(http.StatusInternalServerError, ""), nil
		}
		return htmlResponder(page)(req)
	})

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.collector.WithTransport(transport)

	body, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != page {
		t.Fatalf("body = %q", body)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2

	calls := 0
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.WikiURL, func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(http.StatusServiceUnavailable, ""), nil
	})

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.collector.WithTransport(transport)

	_, err = f.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var status ErrHTTPStatus
	if !errors.As(err, &status) || status.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected ErrHTTPStatus 503, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 5
	cfg.RetryBackoff = time.Hour
	cfg.RetryBackoffMax = time.Hour

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.WikiURL, func(*http.Request) (*http.Response, error) {
		return httpmock.NewStringResponse(http.StatusInternalServerError, ""), nil
	})

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.collector.WithTransport(transport)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = f.Fetch(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation should interrupt the backoff wait")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestBackoffCapped(t *testing.T) {
	cfg := testConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	for attempt := 1; attempt <= 6; attempt++ {
		if delay := f.backoff(attempt); delay > cfg.RetryBackoffMax {
			t.Fatalf("backoff(%d) = %v exceeds max %v", attempt, delay, cfg.RetryBackoffMax)
		}
	}
	if f.backoff(2) <= f.backoff(1) {
		t.Fatal("backoff should grow between early attempts")
	}
}

func TestNewFetcherRejectsBadURL(t *testing.T) {
	for _, bad := range []string{"http://", "://nope"} {
		cfg := testConfig()
		cfg.WikiURL = bad
		if _, err := NewFetcher(cfg, NewMetrics()); err == nil {
			t.Fatalf("expected error for url %q", bad)
		}
	}
}
