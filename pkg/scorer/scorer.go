// Package scorer reduces issues to the 0-100 SEO score.
package scorer

import (
	"math"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/models"
)

// Scorer applies the severity weight table
type Scorer struct {
	weights config.WeightTable
	pageCap int
}

// New creates a Scorer from the scoring config section
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{weights: cfg.Weights, pageCap: cfg.PageCap}
}

// Weight returns the penalty weight of a severity
func (s *Scorer) Weight(sev models.Severity) float64 {
	switch sev {
	case models.Critical:
		return s.weights.Critical
	case models.High:
		return s.weights.High
	case models.Medium:
		return s.weights.Medium
	case models.Low:
		return s.weights.Low
	}
	return 0
}

// Penalty is the number of points one issue costs on a site of totalPages.
func (s *Scorer) Penalty(issue models.Issue, totalPages int) float64 {
	if totalPages <= 0 {
		totalPages = 1
	}
	count := issue.Count
	if s.pageCap > 0 && count > s.pageCap {
		count = s.pageCap
	}
	return s.Weight(issue.Severity) * float64(count) / float64(totalPages)
}

// Score starts from 100 and subtracts every issue's penalty. The result is
// clamped to [0,100] and rounded to two decimals. The breakdown sums the
// penalties per category.
func (s *Scorer) Score(issues []models.Issue, totalPages int) (float64, map[models.Category]float64) {
	breakdown := make(map[models.Category]float64, len(models.Categories))
	for _, c := range models.Categories {
		breakdown[c] = 0
	}

	total := 0.0
	for _, issue := range issues {
		p := s.Penalty(issue, totalPages)
		total += p
		breakdown[issue.Category] += p
	}
	for c, p := range breakdown {
		breakdown[c] = Round2(p)
	}
	return Round2(Clamp(100 - total)), breakdown
}

// Clamp limits v to [0,100]
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Round2 rounds to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
