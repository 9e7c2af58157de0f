package models

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HostScope restricts crawling to the seed's own site. Other hosts are
// link-checked but never traversed.
type HostScope struct {
	Host              string `json:"host"`
	IncludeSubdomains bool   `json:"include_subdomains"`
}

// Contains reports whether u belongs to the scope.
func (s HostScope) Contains(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if host == s.Host {
		return true
	}
	if !s.IncludeSubdomains {
		return false
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(s.Host)
	if err != nil {
		return false
	}
	return host == root || strings.HasSuffix(host, "."+root)
}

// CrawlConfig is one audit request. It is built once and never mutated.
type CrawlConfig struct {
	SeedURL  string    `json:"seed_url"`
	MaxDepth int       `json:"max_depth"`
	AutoFix  bool      `json:"auto_fix"`
	Scope    HostScope `json:"host_scope"`
}

// PageRecord represents one fetched page
type PageRecord struct {
	URL         string `json:"url"`
	Depth       int    `json:"depth"`
	Content     []byte `json:"-"`
	ContentType string `json:"content_type"`
	StatusCode  int    `json:"status_code"`
	LoadTimeMS  int64  `json:"load_time_ms"`
	Links       []Link `json:"links"`
}

// Link is an outbound hyperlink, already resolved and normalized
type Link struct {
	URL      string `json:"url"`
	Anchor   string `json:"anchor"`
	Internal bool   `json:"internal"`
}

// Finding is one check failure observed on one page
type Finding struct {
	PageURL  string   `json:"page_url"`
	CheckID  string   `json:"check_id"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
	Evidence []string `json:"evidence,omitempty"`
}
