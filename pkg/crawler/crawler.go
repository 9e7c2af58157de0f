// Package crawler walks a site breadth-first within a depth bound and host
// scope, recording every fetched page and the validity of every link.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/amosWeiskopf/auditsmith/internal/metrics"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/extractor"
	"github.com/amosWeiskopf/auditsmith/pkg/utils"
)

// Check IDs of the findings produced by the crawler
const (
	CheckBrokenInternalLink      = "broken_internal_link"
	CheckUnreachableExternalLink = "unreachable_external_link"
)

// ErrSeedUnreachable is returned when the seed page itself cannot be fetched.
var ErrSeedUnreachable = errors.New("seed URL unreachable")

// Result contains the results of a crawl operation
type Result struct {
	Pages        []models.PageRecord
	LinkFindings []models.Finding
	BrokenLinks  int
	CrawlTime    time.Duration
	// Truncated is set when the context ended before the frontier was
	// exhausted.
	Truncated bool
}

type linkQueueEntry struct {
	URL   string
	Depth int
}

// target states
type targetState int

const (
	stateUnknown targetState = iota
	stateOK
	stateBroken
	stateDisallowed
)

// Crawler is stateless between crawls; every Crawl call gets its own run.
type Crawler struct {
	sessions SessionFunc
	opts    Options
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// New creates a Crawler. m may be nil.
func New(sessions SessionFunc, opts Options, log logrus.FieldLogger, m *metrics.Metrics) *Crawler {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Crawler{sessions: sessions, opts: opts, log: log, metrics: m}
}

// run is the per-crawl mutable state. mu guards the visited set, the next
// frontier level and the recorded results.
type run struct {
	fetcher PageFetcher
	cfg    models.CrawlConfig
	scope  models.HostScope
	robots *robotstxt.Group

	mu        sync.Mutex
	visited   map[string]bool
	next      []linkQueueEntry
	pages     []models.PageRecord
	states    map[string]targetState
	causes    map[string]error
	fetched   int
	truncated bool

	probes singleflight.Group
}

func (r *run) setState(u string, s targetState, cause error) {
	r.mu.Lock()
	r.states[u] = s
	if cause != nil {
		r.causes[u] = cause
	}
	r.mu.Unlock()
}

func (r *run) state(u string) targetState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[u]
}

func (r *run) markTruncated() {
	r.mu.Lock()
	r.truncated = true
	r.mu.Unlock()
}

// Crawl traverses the site described by cfg. It returns ErrSeedUnreachable
// when the seed fails; any other fetch failure becomes a link finding.
func (c *Crawler) Crawl(ctx context.Context, cfg models.CrawlConfig) (*Result, error) {
	seed, err := utils.NormalizeURL(cfg.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	seedURL, _ := url.Parse(seed)

	start := time.Now()
	r := &run{
		fetcher: c.sessions(),
		cfg:     cfg,
		scope:   cfg.Scope,
		visited: map[string]bool{seed: true},
		states:  make(map[string]targetState),
		causes:  make(map[string]error),
	}
	if r.scope.Host == "" {
		r.scope.Host = seedURL.Hostname()
	}
	if c.opts.FollowRobotsTxt {
		r.robots = r.fetcher.Robots(ctx, seedURL.Scheme+"://"+seedURL.Host)
	}

	frontier := []linkQueueEntry{{URL: seed, Depth: 0}}
	for len(frontier) > 0 {
		c.crawlLevel(ctx, r, frontier)
		if frontier[0].Depth == 0 && r.state(seed) == stateBroken {
			return nil, fmt.Errorf("%w: %v", ErrSeedUnreachable, r.causes[seed])
		}

		r.mu.Lock()
		frontier, r.next = r.next, nil
		r.mu.Unlock()

		if ctx.Err() != nil {
			if len(frontier) > 0 {
				r.markTruncated()
			}
			break
		}
	}

	c.checkBoundaryLinks(ctx, r)

	result := c.assemble(r)
	result.CrawlTime = time.Since(start)
	c.log.WithFields(logrus.Fields{
		"seed":         seed,
		"pages":        len(result.Pages),
		"broken_links": result.BrokenLinks,
		"truncated":    result.Truncated,
		"duration":     result.CrawlTime,
	}).Info("crawl finished")
	return result, nil
}

// crawlLevel fetches one BFS level through a pool of MaxWorkers goroutines.
func (c *Crawler) crawlLevel(ctx context.Context, r *run, level []linkQueueEntry) {
	var g errgroup.Group
	g.SetLimit(c.opts.MaxWorkers)
	for _, entry := range level {
		if ctx.Err() != nil {
			r.markTruncated()
			break
		}
		entry := entry
		g.Go(func() error {
			c.visit(ctx, r, entry)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Crawler) visit(ctx context.Context, r *run, entry linkQueueEntry) {
	log := c.log.WithFields(logrus.Fields{"url": entry.URL, "depth": entry.Depth})
	if ctx.Err() != nil {
		r.markTruncated()
		return
	}

	pageURL, err := url.Parse(entry.URL)
	if err != nil {
		r.setState(entry.URL, stateBroken, err)
		return
	}
	if r.robots != nil && !r.robots.Test(pageURL.RequestURI()) {
		log.Debug("skipped, disallowed by robots.txt")
		r.setState(entry.URL, stateDisallowed, nil)
		return
	}

	r.mu.Lock()
	if c.opts.MaxPages > 0 && r.fetched >= c.opts.MaxPages {
		r.mu.Unlock()
		log.Debug("skipped, page limit reached")
		return
	}
	r.fetched++
	r.mu.Unlock()

	resp, err := r.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		if ctx.Err() != nil {
			r.markTruncated()
			return
		}
		log.WithError(err).Warn("fetch failed")
		r.setState(entry.URL, stateBroken, err)
		return
	}
	r.setState(entry.URL, stateOK, nil)

	if !utils.IsWebpageMIME(resp.ContentType) {
		log.WithField("content_type", resp.ContentType).Debug("not a web page, not analyzed")
		return
	}

	pageAt, base := entry.URL, pageURL
	if final, finalURL, ok := redirectTarget(entry.URL, resp.FinalURL); ok {
		r.mu.Lock()
		if r.visited[final] {
			r.mu.Unlock()
			log.WithField("final_url", final).Debug("redirect target already crawled")
			return
		}
		r.visited[final] = true
		r.states[final] = stateOK
		r.mu.Unlock()

		pageAt, base = final, finalURL
		if entry.Depth == 0 && base.Hostname() != r.scope.Host {
			// the seed redirected to another host; that host is the site
			log.WithField("host", base.Hostname()).Info("seed redirected, adopting host scope")
			r.scope.Host = base.Hostname()
		}
	}

	links := c.resolveLinks(base, resp.Body, r.scope, log)
	record := models.PageRecord{
		URL:         pageAt,
		Depth:       entry.Depth,
		Content:     resp.Body,
		ContentType: resp.ContentType,
		StatusCode:  resp.StatusCode,
		LoadTimeMS:  resp.LoadTime.Milliseconds(),
		Links:       links,
	}

	var external []string
	r.mu.Lock()
	r.pages = append(r.pages, record)
	for _, link := range links {
		if !link.Internal {
			external = append(external, link.URL)
			continue
		}
		if !utils.IsWebpageURL(link.URL) || r.visited[link.URL] {
			continue
		}
		if entry.Depth+1 >= r.cfg.MaxDepth {
			continue
		}
		r.visited[link.URL] = true
		r.next = append(r.next, linkQueueEntry{URL: link.URL, Depth: entry.Depth + 1})
	}
	r.mu.Unlock()

	c.metrics.PagesCrawled.Inc()
	log.WithField("links", len(links)).Debug("crawled")

	if c.opts.CheckExternalLinks {
		for _, target := range external {
			c.probe(ctx, r, target)
		}
	}
}

// redirectTarget returns the normalized URL a fetch of requested ended up at,
// when that differs from requested.
func redirectTarget(requested, final string) (string, *url.URL, bool) {
	if final == "" {
		return "", nil, false
	}
	normalized, err := utils.NormalizeURL(final)
	if err != nil || normalized == requested {
		return "", nil, false
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", nil, false
	}
	return normalized, u, true
}

// resolveLinks resolves, normalizes and deduplicates the page's outbound
// links and classifies them against the host scope.
func (c *Crawler) resolveLinks(base *url.URL, body []byte, scope models.HostScope, log logrus.FieldLogger) []models.Link {
	raw, err := extractor.ExtractLinks(body)
	if err != nil {
		log.WithError(err).Warn("link extraction failed")
		return nil
	}

	seen := make(map[string]bool, len(raw))
	links := make([]models.Link, 0, len(raw))
	for _, l := range raw {
		abs, ok := utils.ResolveURL(base, l.Href)
		if !ok || seen[abs] {
			continue
		}
		seen[abs] = true
		u, err := url.Parse(abs)
		if err != nil {
			continue
		}
		links = append(links, models.Link{
			URL:      abs,
			Anchor:   l.Anchor,
			Internal: scope.Contains(u),
		})
	}
	return links
}

// probe checks a target once per crawl. Concurrent probes of the same target
// share one request.
func (c *Crawler) probe(ctx context.Context, r *run, target string) {
	if r.state(target) != stateUnknown {
		return
	}
	_, _, _ = r.probes.Do(target, func() (interface{}, error) {
		if r.state(target) != stateUnknown {
			return nil, nil
		}
		err := r.fetcher.Probe(ctx, target)
		switch {
		case err == nil:
			r.setState(target, stateOK, nil)
		case ctx.Err() != nil:
			r.markTruncated()
		default:
			c.log.WithField("url", target).WithError(err).Debug("link unreachable")
			r.setState(target, stateBroken, err)
		}
		return nil, nil
	})
}

// checkBoundaryLinks probes in-scope targets that were linked but never
// fetched, typically because they sit beyond the depth bound.
func (c *Crawler) checkBoundaryLinks(ctx context.Context, r *run) {
	if !c.opts.CheckBoundaryLinks || ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	pending := make(map[string]bool)
	for _, p := range r.pages {
		for _, link := range p.Links {
			if link.Internal && r.states[link.URL] == stateUnknown {
				pending[link.URL] = true
			}
		}
	}
	r.mu.Unlock()

	targets := make([]string, 0, len(pending))
	for t := range pending {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	var g errgroup.Group
	g.SetLimit(c.opts.MaxWorkers)
	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		target := target
		g.Go(func() error {
			c.probe(ctx, r, target)
			return nil
		})
	}
	_ = g.Wait()
}

// assemble builds the Result. Pages are ordered by (depth, url) and link
// findings by page so the output does not depend on worker interleaving.
func (c *Crawler) assemble(r *run) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	pages := append([]models.PageRecord(nil), r.pages...)
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Depth != pages[j].Depth {
			return pages[i].Depth < pages[j].Depth
		}
		return pages[i].URL < pages[j].URL
	})

	broken := make(map[string]bool)
	var findings []models.Finding
	for _, p := range pages {
		var internal, external []string
		for _, link := range p.Links {
			if r.states[link.URL] != stateBroken {
				continue
			}
			broken[link.URL] = true
			if link.Internal {
				internal = append(internal, link.URL)
			} else {
				external = append(external, link.URL)
			}
		}
		if len(internal) > 0 {
			sort.Strings(internal)
			findings = append(findings, models.Finding{
				PageURL:  p.URL,
				CheckID:  CheckBrokenInternalLink,
				Severity: models.Critical,
				Detail:   fmt.Sprintf("%d broken internal link(s)", len(internal)),
				Evidence: internal,
			})
		}
		if len(external) > 0 {
			sort.Strings(external)
			findings = append(findings, models.Finding{
				PageURL:  p.URL,
				CheckID:  CheckUnreachableExternalLink,
				Severity: models.High,
				Detail:   fmt.Sprintf("%d unreachable external link(s)", len(external)),
				Evidence: external,
			})
		}
	}

	return &Result{
		Pages:        pages,
		LinkFindings: findings,
		BrokenLinks:  len(broken),
		Truncated:    r.truncated,
	}
}
