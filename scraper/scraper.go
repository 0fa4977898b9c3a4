// Package scraper fetches the wiki page markup with a bounded retry budget.
package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aluiziolira/redeem-code-bot/config"
	"github.com/gocolly/colly/v2"
)

// Fetcher wraps a colly collector that repeatedly fetches a single page.
// Fetch is called once per cycle; cycles never overlap, so the response
// state guarded by mu only protects against colly's own callbacks.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	mu       sync.Mutex
	body     []byte
	fetchErr error
}

// NewFetcher builds a fetcher for the configured wiki URL.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.WikiURL)
	if err != nil {
		return nil, fmt.Errorf("parse wiki url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("wiki url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
	}
	f.registerHandlers()
	return f, nil
}

func (f *Fetcher) registerHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		f.Metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.Metrics.ObserveDuration(time.Since(start))
		}
		f.mu.Lock()
		f.body = r.Body
		f.fetchErr = nil
		f.mu.Unlock()
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		classified := classifyError(err, statusCode)
		f.Metrics.IncError(errorTypeLabel(classified))

		f.mu.Lock()
		f.body = nil
		f.fetchErr = classified
		f.mu.Unlock()
	})
}

// Fetch issues the GET against the wiki URL, retrying with exponential
// backoff until the budget is exhausted, and returns the raw page body.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			f.Metrics.IncRetries()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.backoff(attempt)):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f.mu.Lock()
		f.body, f.fetchErr = nil, nil
		f.mu.Unlock()

		// A non-2xx status surfaces both as a Visit error and through
		// OnError; prefer the classified error when it exists.
		if err := f.collector.Visit(f.cfg.WikiURL); err != nil {
			f.mu.Lock()
			classified := f.fetchErr
			f.mu.Unlock()
			if classified != nil {
				lastErr = classified
			} else {
				lastErr = fmt.Errorf("visit %s: %w", f.cfg.WikiURL, err)
			}
			continue
		}
		f.collector.Wait()

		f.mu.Lock()
		body, fetchErr := f.body, f.fetchErr
		f.mu.Unlock()

		if fetchErr != nil {
			lastErr = fetchErr
			continue
		}
		if body == nil {
			lastErr = fmt.Errorf("no response body for %s", f.cfg.WikiURL)
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", f.cfg.WikiURL, f.cfg.MaxRetries+1, lastErr)
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
