package analyzer

import (
	"sort"

	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/crawler"
)

// Check IDs emitted by the page analyzer. The two link checks are emitted by
// the crawler and only catalogued here.
const (
	CheckBrokenInternalLink      = crawler.CheckBrokenInternalLink
	CheckUnreachableExternalLink = crawler.CheckUnreachableExternalLink
	CheckMissingH1               = "missing_h1"
	CheckDuplicateH1             = "duplicate_h1"
	CheckNoindexWithoutCanonical = "noindex_without_canonical"
	CheckMissingTitle            = "missing_title"
	CheckDuplicateTitle          = "duplicate_title"
	CheckMissingMetaDescription  = "missing_meta_description"
	CheckBrokenSchema            = "broken_schema"
	CheckMissingViewport         = "missing_viewport"
	CheckMissingAltText          = "missing_alt_text"
	CheckThinContent             = "thin_content"
	CheckSlowPage                = "slow_page"
	CheckDuplicateContent        = "duplicate_content"
	CheckMalformedMarkup         = "malformed_markup"
)

// Check describes one entry of the check catalog
type Check struct {
	ID          string
	Severity    models.Severity
	Category    models.Category
	Title       string
	Description string
}

var catalog = map[string]Check{
	CheckBrokenInternalLink: {
		Severity:    models.Critical,
		Category:    models.CategoryLinks,
		Title:       "Broken Internal Links",
		Description: "Links to pages on this site fail to load",
	},
	CheckMissingH1: {
		Severity:    models.Critical,
		Category:    models.CategoryContent,
		Title:       "Missing H1 Tag",
		Description: "Page should have exactly one H1 tag",
	},
	CheckDuplicateH1: {
		Severity:    models.Critical,
		Category:    models.CategoryContent,
		Title:       "Multiple H1 Tags",
		Description: "Page has more than one H1 tag. Should have only one",
	},
	CheckNoindexWithoutCanonical: {
		Severity:    models.Critical,
		Category:    models.CategoryMarkup,
		Title:       "Noindex Without Canonical",
		Description: "Page is marked noindex and declares no canonical URL, so it drops out of the index",
	},
	CheckMissingTitle: {
		Severity:    models.High,
		Category:    models.CategoryContent,
		Title:       "Missing Page Title",
		Description: "Page title tag is missing",
	},
	CheckDuplicateTitle: {
		Severity:    models.High,
		Category:    models.CategoryContent,
		Title:       "Duplicate Page Title",
		Description: "Title is repeated within the page or shared with another page",
	},
	CheckMissingMetaDescription: {
		Severity:    models.High,
		Category:    models.CategoryContent,
		Title:       "Missing Meta Description",
		Description: "Page meta description is missing",
	},
	CheckBrokenSchema: {
		Severity:    models.High,
		Category:    models.CategoryMarkup,
		Title:       "Broken Schema Markup",
		Description: "Structured data is not valid JSON-LD or lacks @context/@type",
	},
	CheckUnreachableExternalLink: {
		Severity:    models.High,
		Category:    models.CategoryLinks,
		Title:       "Unreachable External Links",
		Description: "Links to other sites do not respond",
	},
	CheckMissingViewport: {
		Severity:    models.Medium,
		Category:    models.CategoryMobile,
		Title:       "Missing Mobile Viewport Meta Tag",
		Description: "Page is not optimized for mobile devices",
	},
	CheckMissingAltText: {
		Severity:    models.Medium,
		Category:    models.CategoryContent,
		Title:       "Missing Image Alt Text",
		Description: "Too many images are missing alt text",
	},
	CheckThinContent: {
		Severity:    models.Medium,
		Category:    models.CategoryContent,
		Title:       "Thin Content",
		Description: "Page has too few words in its main content",
	},
	CheckSlowPage: {
		Severity:    models.Low,
		Category:    models.CategoryPerformance,
		Title:       "Slow Page Load",
		Description: "Page took too long to load",
	},
	CheckDuplicateContent: {
		Severity:    models.Low,
		Category:    models.CategoryContent,
		Title:       "Near-Duplicate Content",
		Description: "Page content is nearly identical to another page on the site",
	},
	CheckMalformedMarkup: {
		Severity:    models.Low,
		Category:    models.CategoryMarkup,
		Title:       "Malformed Markup",
		Description: "Page markup has errors that browsers silently repair",
	},
}

func init() {
	for id, c := range catalog {
		c.ID = id
		catalog[id] = c
	}
}

// Lookup returns the catalog entry for a check ID
func Lookup(id string) (Check, bool) {
	c, ok := catalog[id]
	return c, ok
}

// Catalog returns every check ordered by (severity, id)
func Catalog() []Check {
	checks := make([]Check, 0, len(catalog))
	for _, c := range catalog {
		checks = append(checks, c)
	}
	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Severity != checks[j].Severity {
			return checks[i].Severity < checks[j].Severity
		}
		return checks[i].ID < checks[j].ID
	})
	return checks
}
