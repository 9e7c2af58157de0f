// Package fetcher retrieves pages and probes links over HTTP with a
// per-request timeout, bounded retry and a per-audit rate limit.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/auditsmith/internal/metrics"
)

// Options configures a Fetcher
type Options struct {
	Timeout           time.Duration // per attempt
	Retries           int           // extra attempts after the first
	RetryBackoff      time.Duration // doubled after every attempt
	RequestsPerSecond float64       // 0 disables rate limiting
	UserAgent         string
	MaxBodyBytes      int64
}

// Response is a successfully retrieved document
type Response struct {
	URL         string
	FinalURL    string // after redirects
	StatusCode  int
	ContentType string
	Body        []byte
	LoadTime    time.Duration
	Attempts    int
}

// FetchError reports a URL that could not be retrieved after all attempts.
// StatusCode is zero for transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrHTTPStatus is wrapped by FetchError when the server answered with an
// error status.
var ErrHTTPStatus = errors.New("error status")

// Fetcher owns the pooled transport shared by every audit. It is safe for
// concurrent use and holds no per-audit state; requests go through a Session.
type Fetcher struct {
	transport *http.Transport
	opts      Options
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
}

// Session is the fetch state of one audit: its own cookie jar and rate
// limit over the shared transport. It is safe for concurrent use.
type Session struct {
	*Fetcher
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Fetcher. m may be nil.
func New(opts Options, log logrus.FieldLogger, m *metrics.Metrics) *Fetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Fetcher{
		transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     30 * time.Second,
		},
		opts:    opts,
		log:     log,
		metrics: m,
	}
}

// NewSession opens a session for one audit
func (f *Fetcher) NewSession() *Session {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	limit := rate.Inf
	burst := 1
	if f.opts.RequestsPerSecond > 0 {
		limit = rate.Limit(f.opts.RequestsPerSecond)
		burst = int(f.opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &Session{
		Fetcher: f,
		// attempt timeouts come from the request context
		client:  &http.Client{Transport: f.transport, Jar: jar},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Fetch retrieves rawURL, retrying transport failures, 5xx and 429 up to
// Options.Retries times. Any other status >= 400 fails immediately.
func (f *Session) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	attempts := f.opts.Retries + 1
	backoff := f.opts.RetryBackoff
	var lastErr *FetchError

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, retryable, err := f.attempt(ctx, rawURL)
		if err == nil {
			resp.Attempts = attempt
			return resp, nil
		}
		lastErr = &FetchError{URL: rawURL, Attempts: attempt, Err: err}
		if resp != nil {
			lastErr.StatusCode = resp.StatusCode
		}
		if ctx.Err() != nil {
			lastErr.Err = ctx.Err()
			return nil, lastErr
		}
		if !retryable || attempt == attempts {
			break
		}

		f.log.WithFields(logrus.Fields{"url": rawURL, "attempt": attempt}).WithError(err).Debug("retrying fetch")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			lastErr.Err = ctx.Err()
			return nil, lastErr
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (f *Session) attempt(ctx context.Context, rawURL string) (resp *Response, retryable bool, err error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	f.setHeaders(req)

	start := time.Now()
	httpResp, err := f.client.Do(req)
	if err != nil {
		f.observe("error", start)
		return nil, true, err
	}
	defer httpResp.Body.Close()

	resp = &Response{
		URL:         rawURL,
		FinalURL:    httpResp.Request.URL.String(),
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
	}
	if httpResp.StatusCode >= 400 {
		f.observe("status", start)
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4<<10))
		retryable = httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests
		return resp, retryable, fmt.Errorf("%w %d", ErrHTTPStatus, httpResp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		f.observe("error", start)
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	resp.Body = body
	resp.LoadTime = time.Since(start)
	f.observe("ok", start)
	return resp, false, nil
}

func (f *Fetcher) observe(outcome string, start time.Time) {
	f.metrics.Fetches.WithLabelValues(outcome).Inc()
	f.metrics.FetchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

// Probe checks that rawURL exists. It issues a HEAD request and falls back to
// GET when the server does not support HEAD. A nil error means reachable.
func (f *Session) Probe(ctx context.Context, rawURL string) error {
	status, err := f.probe(ctx, http.MethodHead, rawURL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented || status == http.StatusForbidden) {
		status, err = f.probe(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		f.metrics.Probes.WithLabelValues("error").Inc()
		return &FetchError{URL: rawURL, Attempts: 1, Err: err}
	}
	if status >= 400 {
		f.metrics.Probes.WithLabelValues("status").Inc()
		return &FetchError{URL: rawURL, StatusCode: status, Attempts: 1, Err: fmt.Errorf("%w %d", ErrHTTPStatus, status)}
	}
	f.metrics.Probes.WithLabelValues("ok").Inc()
	return nil
}

func (f *Session) probe(ctx context.Context, method, rawURL string) (int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	f.setHeaders(req)
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	return resp.StatusCode, nil
}

// Robots fetches robots.txt for the site rooted at base ("scheme://host").
// Any failure yields a permissive group so crawling is never blocked by an
// unreachable robots.txt.
func (f *Session) Robots(ctx context.Context, base string) *robotstxt.Group {
	allowAll, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/robots.txt", nil)
	if err != nil {
		return allowAll.FindGroup(f.opts.UserAgent)
	}
	f.setHeaders(req)
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.WithField("site", base).WithError(err).Debug("robots.txt unavailable")
		return allowAll.FindGroup(f.opts.UserAgent)
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		f.log.WithField("site", base).WithError(err).Warn("robots.txt unparsable, ignoring")
		return allowAll.FindGroup(f.opts.UserAgent)
	}
	return robots.FindGroup(f.opts.UserAgent)
}
