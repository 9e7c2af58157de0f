package crawler

import (
	"context"

	"github.com/temoto/robotstxt"

	"github.com/amosWeiskopf/auditsmith/pkg/fetcher"
)

// PageFetcher is what the crawler needs from the network layer.
// *fetcher.Session satisfies it.
type PageFetcher interface {
	// Fetch retrieves a page, retrying as configured
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)

	// Probe performs a cheap existence check of a link target
	Probe(ctx context.Context, url string) error

	// Robots returns the robots.txt rules that apply to the crawler
	Robots(ctx context.Context, base string) *robotstxt.Group
}

// SessionFunc opens the PageFetcher used by one crawl, so cookies and rate
// limits never carry over between crawls.
type SessionFunc func() PageFetcher

// Options contains configuration for the crawler
type Options struct {
	MaxWorkers         int  // Size of the fetch worker pool
	MaxPages           int  // Maximum pages fetched per crawl, 0 for no limit
	FollowRobotsTxt    bool // Respect robots.txt
	CheckExternalLinks bool // Probe out-of-scope link targets
	CheckBoundaryLinks bool // Probe in-scope targets beyond the depth bound
}
