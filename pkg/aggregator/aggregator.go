// Package aggregator folds per-page findings into site-wide issues.
package aggregator

import (
	"sort"

	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/analyzer"
)

// Aggregate groups findings by check ID. Each group becomes one Issue whose
// severity is the most severe in the group and whose affected pages are the
// distinct source pages. The result does not depend on the order of
// findings; issues are sorted by (severity, check_id).
func Aggregate(findings []models.Finding) []models.Issue {
	type group struct {
		severity models.Severity
		pages    map[string]bool
		evidence map[string][]string
	}
	groups := make(map[string]*group)

	for _, f := range findings {
		g, ok := groups[f.CheckID]
		if !ok {
			g = &group{severity: f.Severity, pages: make(map[string]bool), evidence: make(map[string][]string)}
			groups[f.CheckID] = g
		}
		if f.Severity.MoreSevereThan(g.severity) {
			g.severity = f.Severity
		}
		g.pages[f.PageURL] = true
		g.evidence[f.PageURL] = mergeEvidence(g.evidence[f.PageURL], f.Evidence)
	}

	issues := make([]models.Issue, 0, len(groups))
	for checkID, g := range groups {
		pages := make([]string, 0, len(g.pages))
		for p := range g.pages {
			pages = append(pages, p)
		}
		sort.Strings(pages)

		issue := models.Issue{
			ID:            "issue_" + checkID,
			CheckID:       checkID,
			Category:      models.CategoryContent,
			Severity:      g.severity,
			Title:         checkID,
			AffectedPages: pages,
			Count:         len(pages),
			Evidence:      g.evidence,
		}
		if c, ok := analyzer.Lookup(checkID); ok {
			issue.Category = c.Category
			issue.Title = c.Title
			issue.Description = c.Description
		}
		issues = append(issues, issue)
	}

	Sort(issues)
	return issues
}

// Sort orders issues by (severity, check_id)
func Sort(issues []models.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity < issues[j].Severity
		}
		return issues[i].CheckID < issues[j].CheckID
	})
}

// mergeEvidence returns the sorted union of a and b
func mergeEvidence(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, e := range list {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	sort.Strings(out)
	return out
}
