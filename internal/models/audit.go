package models

import "time"

// Recommendation statuses
const (
	StatusPending = "pending"
	StatusFixed   = "fixed"
)

// Audit result statuses
const (
	AuditComplete = "complete"
	AuditDegraded = "degraded"
)

// Category groups check types for the score breakdown.
type Category string

const (
	CategoryContent     Category = "content"
	CategoryLinks       Category = "links"
	CategoryPerformance Category = "performance"
	CategoryMarkup      Category = "markup"
	CategoryMobile      Category = "mobile"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryContent, CategoryLinks, CategoryPerformance, CategoryMarkup, CategoryMobile}

// Issue is one check type aggregated across every page where it failed.
type Issue struct {
	ID            string   `json:"id"`
	CheckID       string   `json:"check_id"`
	Category      Category `json:"category"`
	Severity      Severity `json:"severity"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AffectedPages []string `json:"links"`
	Count         int      `json:"count"`

	// Evidence keeps the per-page evidence so auto-fix templates can be
	// rendered for each affected page.
	Evidence map[string][]string `json:"-" yaml:"-"`
}

// Recommendation is the remediation plan entry for one Issue.
type Recommendation struct {
	ID                     string   `json:"id"`
	CheckID                string   `json:"check_id"`
	Severity               Severity `json:"severity"`
	FixPriority            int      `json:"fix_priority"`
	Title                  string   `json:"title"`
	Description            string   `json:"description"`
	AffectedPages          int      `json:"affected_pages"`
	Difficulty             string   `json:"implementation_difficulty"`
	TimeToFixMinutes       int      `json:"time_to_fix_minutes"`
	EstimatedRankingImpact string   `json:"estimated_ranking_impact"`
	EstimatedTrafficImpact string   `json:"estimated_traffic_impact"`
	CodeSnippet            string   `json:"code_snippet"`
	Status                 string   `json:"status"`
	AutoFixable            bool     `json:"auto_fixable"`
	Note                   string   `json:"note,omitempty"`
}

// ImpactProjection is the simulated outcome of applying the pending fixes.
type ImpactProjection struct {
	CurrentScore                       float64 `json:"current_score"`
	EstimatedScoreAfterFixes           float64 `json:"estimated_score_after_fixes"`
	ScoreImprovement                   float64 `json:"score_improvement"`
	EstimatedTrafficImprovementPercent float64 `json:"estimated_traffic_improvement_percent"`
	EstimatedKeywordRankingImprovement string  `json:"estimated_keyword_ranking_improvement"`
	TimeframeToSeeResultsDays          int     `json:"timeframe_to_see_results_days"`
	ConfidenceLevel                    string  `json:"confidence_level"`
}

// CrawlSummary is the crawl part of an AuditResult. CrawlTime is in seconds.
type CrawlSummary struct {
	TotalPages  int     `json:"total_pages"`
	BrokenLinks int     `json:"broken_links"`
	CrawlTime   float64 `json:"crawl_time"`
}

// AuditResult is the final, immutable output of one audit.
type AuditResult struct {
	AuditID           string               `json:"audit_id"`
	URL               string               `json:"url"`
	Timestamp         time.Time            `json:"timestamp"`
	Status            string               `json:"status"`
	Degraded          bool                 `json:"degraded"`
	SEOScore          float64              `json:"seo_score"`
	CategoryBreakdown map[Category]float64 `json:"category_breakdown"`
	CrawlSummary      CrawlSummary         `json:"crawl_summary"`
	Issues            []Issue              `json:"issues"`
	Recommendations   []Recommendation     `json:"recommendations"`
	SimulatedImpact   ImpactProjection     `json:"simulated_impact"`
	AutoFixedCount    int                  `json:"auto_fixed_count"`
}

// PageCheck is the result of checking a single page without crawling.
type PageCheck struct {
	URL       string    `json:"url"`
	Score     float64   `json:"score"`
	Issues    []Issue   `json:"issues"`
	Timestamp time.Time `json:"timestamp"`
}
