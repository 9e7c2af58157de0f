// Package audit is the SEO audit engine: it validates a request, crawls the
// site, analyzes every page and assembles the scored, prioritized result.
package audit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/metrics"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/aggregator"
	"github.com/amosWeiskopf/auditsmith/pkg/analyzer"
	"github.com/amosWeiskopf/auditsmith/pkg/autofix"
	"github.com/amosWeiskopf/auditsmith/pkg/crawler"
	"github.com/amosWeiskopf/auditsmith/pkg/fetcher"
	"github.com/amosWeiskopf/auditsmith/pkg/impact"
	"github.com/amosWeiskopf/auditsmith/pkg/recommender"
	"github.com/amosWeiskopf/auditsmith/pkg/scorer"
	"github.com/amosWeiskopf/auditsmith/pkg/utils"
)

// Depth bounds of a request
const (
	MinDepth = 1
	MaxDepth = 4
)

// Request is one audit request as received from a caller
type Request struct {
	URL     string `json:"url"`
	Depth   int    `json:"depth"`
	AutoFix bool   `json:"auto_fix"`
}

// Engine runs audits. It holds no per-audit state, so one Engine serves
// concurrent audits; only the HTTP connection pool and metrics are shared.
// Cookies and the rate limit live in a fetch session opened per audit.
type Engine struct {
	config      *config.Config
	log         logrus.FieldLogger
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	fetcher     *fetcher.Fetcher
	crawler     *crawler.Crawler
	analyzer    *analyzer.Analyzer
	scorer      *scorer.Scorer
	recommender *recommender.Recommender
	simulator   *impact.Simulator
	mutator     autofix.Mutator
	now         func() time.Time
}

// Option customizes an Engine
type Option func(*Engine)

// WithMutator replaces the patch-writing mutator used for auto-fix
func WithMutator(m autofix.Mutator) Option {
	return func(e *Engine) { e.mutator = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine from a validated configuration
func New(cfg *config.Config, log logrus.FieldLogger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	f := fetcher.New(fetcher.Options{
		Timeout:           cfg.Crawler.Timeout,
		Retries:           cfg.Crawler.Retries,
		RetryBackoff:      cfg.Crawler.RetryBackoff,
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		UserAgent:         cfg.Crawler.UserAgent,
		MaxBodyBytes:      cfg.Crawler.MaxBodyBytes,
	}, log.WithField("component", "fetcher"), m)
	s := scorer.New(cfg.Scoring)

	e := &Engine{
		config:   cfg,
		log:      log,
		registry: registry,
		metrics:  m,
		fetcher:  f,
		crawler: crawler.New(func() crawler.PageFetcher { return f.NewSession() }, crawler.Options{
			MaxWorkers:         cfg.Crawler.MaxWorkers,
			MaxPages:           cfg.Crawler.MaxPages,
			FollowRobotsTxt:    cfg.Crawler.FollowRobotsTxt,
			CheckExternalLinks: cfg.Crawler.CheckExternalLinks,
			CheckBoundaryLinks: cfg.Crawler.CheckBoundaryLinks,
		}, log.WithField("component", "crawler"), m),
		analyzer:    analyzer.New(cfg.Analyzer, log.WithField("component", "analyzer")),
		scorer:      s,
		recommender: recommender.New(s, cfg.Recommendations),
		simulator:   impact.New(s, cfg.Impact),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.mutator == nil {
		e.mutator = autofix.NewFSMutator(afero.NewOsFs(), cfg.AutoFix.PatchDir)
	}
	return e, nil
}

// Registry returns the prometheus registry holding the engine's collectors
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// Validate checks req and turns it into a crawl configuration. A URL
// without a scheme gets http:// prepended.
func (e *Engine) Validate(req Request) (models.CrawlConfig, error) {
	seed, u, err := normalizeSeed(req.URL)
	if err != nil {
		return models.CrawlConfig{}, err
	}
	if req.Depth < MinDepth || req.Depth > MaxDepth {
		return models.CrawlConfig{}, &ValidationError{
			Field:   "depth",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinDepth, MaxDepth, req.Depth),
		}
	}
	return models.CrawlConfig{
		SeedURL:  seed,
		MaxDepth: req.Depth,
		AutoFix:  req.AutoFix,
		Scope: models.HostScope{
			Host:              u.Hostname(),
			IncludeSubdomains: e.config.Crawler.IncludeSubdomains,
		},
	}, nil
}

func normalizeSeed(raw string) (string, *url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, &ValidationError{Field: "url", Message: "URL is required"}
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, &ValidationError{Field: "url", Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, &ValidationError{Field: "url", Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Hostname() == "" || strings.ContainsAny(u.Hostname(), " \t") {
		return "", nil, &ValidationError{Field: "url", Message: "URL has no valid host"}
	}
	seed, err := utils.NormalizeURL(u.String())
	if err != nil {
		return "", nil, &ValidationError{Field: "url", Message: err.Error()}
	}
	normalized, _ := url.Parse(seed)
	return seed, normalized, nil
}

// Audit runs one complete audit. It fails outright only on validation
// errors, an unreachable seed, or a deadline that passed before any page
// was analyzed; any other trouble is reflected in the result.
func (e *Engine) Audit(ctx context.Context, req Request) (*models.AuditResult, error) {
	start := e.now()
	cfg, err := e.Validate(req)
	if err != nil {
		e.metrics.Audits.WithLabelValues(KindValidation).Inc()
		return nil, err
	}

	id := "audit_" + uuid.NewString()
	log := e.log.WithFields(logrus.Fields{"audit_id": id, "url": cfg.SeedURL, "depth": cfg.MaxDepth})
	log.Info("audit started")

	ctx, cancel := context.WithTimeout(ctx, e.config.Audit.Deadline)
	defer cancel()

	crawled, err := e.crawler.Crawl(ctx, cfg)
	if err != nil {
		e.metrics.Audits.WithLabelValues(ErrorKind(err)).Inc()
		return nil, err
	}
	if len(crawled.Pages) == 0 {
		if crawled.Truncated {
			err = ErrDeadlineExceeded
		} else {
			err = fmt.Errorf("%w: no analyzable page at %s", ErrSeedUnreachable, cfg.SeedURL)
		}
		e.metrics.Audits.WithLabelValues(ErrorKind(err)).Inc()
		log.WithError(err).Warn("audit failed")
		return nil, err
	}

	totalPages := len(crawled.Pages)
	findings := append(append([]models.Finding(nil), crawled.LinkFindings...), e.analyzer.AnalyzeSite(crawled.Pages)...)
	issues := aggregator.Aggregate(findings)
	score, breakdown := e.scorer.Score(issues, totalPages)
	recs := e.recommender.Recommend(issues, totalPages)

	remaining := issues
	fixed := 0
	if cfg.AutoFix {
		executor := autofix.New(e.mutator, log.WithField("component", "autofix"), e.metrics)
		recs, fixed = executor.Execute(ctx, issues, recs)
		if fixed > 0 {
			remaining = autofix.Remaining(issues, recs)
			score, breakdown = e.scorer.Score(remaining, totalPages)
		}
	}

	status := models.AuditComplete
	if crawled.Truncated {
		status = models.AuditDegraded
	}
	result := &models.AuditResult{
		AuditID:           id,
		URL:               cfg.SeedURL,
		Timestamp:         start.UTC(),
		Status:            status,
		Degraded:          crawled.Truncated,
		SEOScore:          score,
		CategoryBreakdown: breakdown,
		CrawlSummary: models.CrawlSummary{
			TotalPages:  totalPages,
			BrokenLinks: crawled.BrokenLinks,
			CrawlTime:   scorer.Round2(crawled.CrawlTime.Seconds()),
		},
		Issues:          issues,
		Recommendations: recs,
		SimulatedImpact: e.simulator.Simulate(score, remaining, recs, totalPages),
		AutoFixedCount:  fixed,
	}

	elapsed := e.now().Sub(start)
	e.metrics.Audits.WithLabelValues(status).Inc()
	e.metrics.AuditDuration.Observe(elapsed.Seconds())
	log.WithFields(logrus.Fields{
		"status":  status,
		"score":   score,
		"pages":   totalPages,
		"issues":  len(issues),
		"fixed":   fixed,
		"elapsed": elapsed,
	}).Info("audit finished")
	return result, nil
}

// QuickCheck fetches and analyzes a single page without crawling or link
// checking.
func (e *Engine) QuickCheck(ctx context.Context, rawURL string) (*models.PageCheck, error) {
	seed, _, err := normalizeSeed(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Audit.Deadline)
	defer cancel()

	resp, err := e.fetcher.NewSession().Fetch(ctx, seed)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, ErrDeadlineExceeded
		}
		return nil, fmt.Errorf("%w: %v", ErrSeedUnreachable, err)
	}

	page := models.PageRecord{
		URL:         seed,
		Content:     resp.Body,
		ContentType: resp.ContentType,
		StatusCode:  resp.StatusCode,
		LoadTimeMS:  resp.LoadTime.Milliseconds(),
	}
	issues := aggregator.Aggregate(e.analyzer.Analyze(page, nil))
	score, _ := e.scorer.Score(issues, 1)
	return &models.PageCheck{
		URL:       seed,
		Score:     score,
		Issues:    issues,
		Timestamp: e.now().UTC(),
	}, nil
}
