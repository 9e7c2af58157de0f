package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/logging"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/analyzer"
	"github.com/amosWeiskopf/auditsmith/pkg/autofix"
)

const cleanHead = `<title>%s</title>
<meta name="description" content="A useful description of this page">
<meta name="viewport" content="width=device-width, initial-scale=1">`

func article(topic string) string {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "<p>Paragraph %d covers %s in enough detail for a curious reader.</p>\n", i, topic)
	}
	return b.String()
}

func htmlPage(head, body string) string {
	return "<!DOCTYPE html><html><head>" + head + "</head><body>" + body + "</body></html>"
}

func cleanPage(title, extra string) string {
	return htmlPage(fmt.Sprintf(cleanHead, title), "<h1>"+title+"</h1>"+extra+article(title))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Crawler.RequestsPerSecond = 0
	cfg.Crawler.Timeout = 300 * time.Millisecond
	cfg.Crawler.RetryBackoff = 10 * time.Millisecond
	cfg.Crawler.FollowRobotsTxt = false
	cfg.Crawler.CheckExternalLinks = false
	cfg.Audit.Deadline = 10 * time.Second
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, fs afero.Fs) *Engine {
	t.Helper()
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	e, err := New(cfg, logging.Discard(), WithMutator(autofix.NewFSMutator(fs, "/patches")))
	require.NoError(t, err)
	return e
}

// site serves pages by path and counts every request
func site(t *testing.T, pages map[string]string) (*httptest.Server, *int64) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestAuditDepthOneFetchesOnlyHomepage(t *testing.T) {
	server, hits := site(t, map[string]string{
		"/":      cleanPage("Home", `<a href="/about">About</a><a href="/blog">Blog</a>`),
		"/about": cleanPage("About", ""),
		"/blog":  cleanPage("Blog", ""),
	})
	cfg := testConfig()
	cfg.Crawler.CheckBoundaryLinks = false

	res, err := newTestEngine(t, cfg, nil).Audit(context.Background(), Request{URL: server.URL, Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CrawlSummary.TotalPages)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
	assert.Equal(t, models.AuditComplete, res.Status)
	assert.False(t, res.Degraded)
}

func TestAuditMissingTitleAndH1(t *testing.T) {
	server, _ := site(t, map[string]string{
		"/": htmlPage(
			`<meta name="description" content="d"><meta name="viewport" content="width=device-width">`,
			article("a page without headings"),
		),
	})

	res, err := newTestEngine(t, testConfig(), nil).Audit(context.Background(), Request{URL: server.URL, Depth: 1})
	require.NoError(t, err)

	require.Len(t, res.Issues, 2)
	assert.Equal(t, analyzer.CheckMissingH1, res.Issues[0].CheckID)
	assert.Equal(t, models.Critical, res.Issues[0].Severity)
	assert.Equal(t, analyzer.CheckMissingTitle, res.Issues[1].CheckID)
	assert.Equal(t, models.High, res.Issues[1].Severity)

	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, 1, res.Recommendations[0].FixPriority)
	assert.Equal(t, analyzer.CheckMissingH1, res.Recommendations[0].CheckID)
	assert.Equal(t, 2, res.Recommendations[1].FixPriority)

	assert.Equal(t, 70.0, res.SEOScore)
	assert.Equal(t, 30.0, res.SimulatedImpact.ScoreImprovement)
	assert.Equal(t, "Medium", res.SimulatedImpact.ConfidenceLevel)
}

func TestAuditCleanSite(t *testing.T) {
	server, _ := site(t, map[string]string{
		"/": cleanPage("Home", ""),
	})

	res, err := newTestEngine(t, testConfig(), nil).Audit(context.Background(), Request{URL: server.URL, Depth: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, 100.0, res.SEOScore)
	assert.Zero(t, res.SimulatedImpact.ScoreImprovement)
	assert.Equal(t, "High", res.SimulatedImpact.ConfidenceLevel)
	assert.True(t, strings.HasPrefix(res.AuditID, "audit_"))
	assert.Equal(t, server.URL+"/", res.URL)
}

func TestAuditRedirectedSeedCountsOnce(t *testing.T) {
	home := cleanPage("Home", `<a href="/home">Home</a><a href="/">Start</a>`)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/home", http.StatusMovedPermanently)
		case "/home":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, home)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	res, err := newTestEngine(t, testConfig(), nil).Audit(context.Background(), Request{URL: server.URL, Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CrawlSummary.TotalPages)
	assert.Empty(t, res.Issues)
	assert.Equal(t, 100.0, res.SEOScore)
}

func TestAuditsDoNotShareCookies(t *testing.T) {
	var mu sync.Mutex
	var cookies []string
	page := cleanPage("Home", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cookies = append(cookies, r.Header.Get("Cookie"))
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "first", Path: "/"})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Crawler.CheckBoundaryLinks = false
	e := newTestEngine(t, cfg, nil)
	for i := 0; i < 2; i++ {
		_, err := e.Audit(context.Background(), Request{URL: server.URL, Depth: 1})
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", ""}, cookies)
}

func TestAuditAutoFixAltText(t *testing.T) {
	server, _ := site(t, map[string]string{
		"/": cleanPage("Gallery", `<img src="/one.jpg"><img src="/two.jpg">`),
	})
	fs := afero.NewMemMapFs()

	res, err := newTestEngine(t, testConfig(), fs).Audit(context.Background(), Request{URL: server.URL, Depth: 1, AutoFix: true})
	require.NoError(t, err)

	require.Len(t, res.Recommendations, 1)
	rec := res.Recommendations[0]
	assert.Equal(t, analyzer.CheckMissingAltText, rec.CheckID)
	assert.Equal(t, models.StatusFixed, rec.Status)
	assert.Equal(t, 1, res.AutoFixedCount)

	// the fixed issue no longer costs points
	assert.Equal(t, 100.0, res.SEOScore)
	assert.Zero(t, res.SimulatedImpact.ScoreImprovement)

	files, err := afero.Glob(fs, "/patches/*/missing_alt_text.patch.html")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestAuditAutoFixDisabledLeavesPending(t *testing.T) {
	server, _ := site(t, map[string]string{
		"/": cleanPage("Gallery", `<img src="/one.jpg">`),
	})

	res, err := newTestEngine(t, testConfig(), nil).Audit(context.Background(), Request{URL: server.URL, Depth: 1})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, models.StatusPending, res.Recommendations[0].Status)
	assert.Equal(t, 95.0, res.SEOScore)
	assert.Equal(t, 5.0, res.SimulatedImpact.ScoreImprovement)
}

func TestAuditInternalLinkTimeout(t *testing.T) {
	var slowHits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, cleanPage("Home", `<a href="/slow">Slow</a><a href="/fast">Fast</a>`))
		case "/fast":
			fmt.Fprint(w, cleanPage("Fast", ""))
		case "/slow":
			atomic.AddInt64(&slowHits, 1)
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	res, err := newTestEngine(t, testConfig(), nil).Audit(context.Background(), Request{URL: server.URL, Depth: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(&slowHits))
	assert.Equal(t, 2, res.CrawlSummary.TotalPages)
	assert.Equal(t, 1, res.CrawlSummary.BrokenLinks)
	require.NotEmpty(t, res.Issues)
	assert.Equal(t, analyzer.CheckBrokenInternalLink, res.Issues[0].CheckID)
	assert.Equal(t, []string{server.URL + "/"}, res.Issues[0].AffectedPages)
}

func TestAuditValidation(t *testing.T) {
	server, hits := site(t, map[string]string{"/": cleanPage("Home", "")})

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"empty url", Request{URL: "", Depth: 1}, "url"},
		{"bad url", Request{URL: "http://exa mple.com", Depth: 1}, "url"},
		{"unsupported scheme", Request{URL: "ftp://example.com", Depth: 1}, "url"},
		{"depth too small", Request{URL: server.URL, Depth: 0}, "depth"},
		{"depth too large", Request{URL: server.URL, Depth: 5}, "depth"},
	}

	e := newTestEngine(t, testConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Audit(context.Background(), tt.req)
			assert.Nil(t, res)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, KindValidation, ErrorKind(err))
		})
	}
	assert.Zero(t, atomic.LoadInt64(hits))
}

func TestAuditPrependsScheme(t *testing.T) {
	server, _ := site(t, map[string]string{"/": cleanPage("Home", "")})

	res, err := newTestEngine(t, testConfig(), nil).Audit(context.Background(), Request{
		URL:   strings.TrimPrefix(server.URL, "http://"),
		Depth: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/", res.URL)
}

func TestAuditSeedUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestEngine(t, testConfig(), nil).Audit(context.Background(), Request{URL: server.URL, Depth: 2})
	assert.ErrorIs(t, err, ErrSeedUnreachable)
	assert.Equal(t, KindSeedUnreachable, ErrorKind(err))
}

func TestAuditDeadlineBeforeAnyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Crawler.Timeout = 5 * time.Second
	cfg.Audit.Deadline = 100 * time.Millisecond

	_, err := newTestEngine(t, cfg, nil).Audit(context.Background(), Request{URL: server.URL, Depth: 1})
	assert.ErrorIs(t, err, ErrDeadlineExceeded)
	assert.Equal(t, KindDeadlineExceeded, ErrorKind(err))
}

func TestAuditDeadlineAfterSeedIsDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			fmt.Fprint(w, cleanPage("Home", `<a href="/slow">Slow</a>`))
			return
		}
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Crawler.Timeout = 5 * time.Second
	cfg.Audit.Deadline = 400 * time.Millisecond

	res, err := newTestEngine(t, cfg, nil).Audit(context.Background(), Request{URL: server.URL, Depth: 3})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, models.AuditDegraded, res.Status)
	assert.Equal(t, 1, res.CrawlSummary.TotalPages)
	assert.Zero(t, res.CrawlSummary.BrokenLinks)
}

func TestQuickCheck(t *testing.T) {
	server, _ := site(t, map[string]string{
		"/": htmlPage(fmt.Sprintf(cleanHead, "Quick"), "<p>Short page.</p>"),
	})

	check, err := newTestEngine(t, testConfig(), nil).QuickCheck(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/", check.URL)

	ids := make([]string, len(check.Issues))
	for i, is := range check.Issues {
		ids[i] = is.CheckID
	}
	assert.Equal(t, []string{analyzer.CheckMissingH1, analyzer.CheckThinContent}, ids)
	assert.Equal(t, 75.0, check.Score)
}

func TestQuickCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := newTestEngine(t, testConfig(), nil).QuickCheck(context.Background(), server.URL+"/missing")
	assert.ErrorIs(t, err, ErrSeedUnreachable)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Crawler.MaxWorkers = 0
	_, err := New(cfg, logging.Discard())
	assert.Error(t, err)
}
