// Package recommender turns issues into a prioritized remediation plan.
package recommender

import (
	"fmt"
	"sort"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/scorer"
)

// Recommender maps issues to templated recommendations
type Recommender struct {
	scorer *scorer.Scorer
	config config.RecommendationsConfig
}

// New creates a Recommender. s supplies the severity weights.
func New(s *scorer.Scorer, cfg config.RecommendationsConfig) *Recommender {
	return &Recommender{scorer: s, config: cfg}
}

// Recommend returns one pending recommendation per issue, ranked by
// (severity weight desc, affected pages desc, check_id asc). FixPriority is
// the 1-based rank.
func (r *Recommender) Recommend(issues []models.Issue, totalPages int) []models.Recommendation {
	if totalPages <= 0 {
		totalPages = 1
	}

	ranked := append([]models.Issue(nil), issues...)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := r.scorer.Weight(ranked[i].Severity), r.scorer.Weight(ranked[j].Severity)
		if wi != wj {
			return wi > wj
		}
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].CheckID < ranked[j].CheckID
	})

	recs := make([]models.Recommendation, 0, len(ranked))
	for i, issue := range ranked {
		tmpl := TemplateFor(issue.CheckID)
		ranking := r.scorer.Weight(issue.Severity) * r.config.RankingFactor * float64(issue.Count) / float64(totalPages)
		traffic := ranking * r.config.TrafficFactor

		recs = append(recs, models.Recommendation{
			ID:                     "rec_" + issue.CheckID,
			CheckID:                issue.CheckID,
			Severity:               issue.Severity,
			FixPriority:            i + 1,
			Title:                  issue.Title,
			Description:            tmpl.Description,
			AffectedPages:          issue.Count,
			Difficulty:             tmpl.Difficulty,
			TimeToFixMinutes:       tmpl.Minutes,
			EstimatedRankingImpact: percent(ranking),
			EstimatedTrafficImpact: percent(traffic),
			CodeSnippet:            tmpl.Snippet,
			Status:                 models.StatusPending,
			AutoFixable:            tmpl.AutoFixable,
		})
	}
	return recs
}

func percent(v float64) string {
	return fmt.Sprintf("+%.1f%%", v)
}
