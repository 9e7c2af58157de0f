// Package impact projects the outcome of applying the remediation plan.
package impact

import (
	"fmt"
	"math"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/scorer"
)

// Confidence levels
const (
	ConfidenceLow    = "Low"
	ConfidenceMedium = "Medium"
	ConfidenceHigh   = "High"
)

// Simulator holds the heuristic projection table
type Simulator struct {
	scorer *scorer.Scorer
	config config.ImpactConfig
}

// New creates a Simulator. s must be the scorer that produced the score.
func New(s *scorer.Scorer, cfg config.ImpactConfig) *Simulator {
	return &Simulator{scorer: s, config: cfg}
}

// Simulate projects the score after every pending recommendation is applied.
// The recovered penalty is the scorer's penalty of each pending issue, so the
// estimate never exceeds 100 and the improvement is never negative.
func (s *Simulator) Simulate(score float64, issues []models.Issue, recs []models.Recommendation, totalPages int) models.ImpactProjection {
	byCheck := make(map[string]models.Issue, len(issues))
	critical := 0
	for _, issue := range issues {
		byCheck[issue.CheckID] = issue
		if issue.Severity == models.Critical {
			critical++
		}
	}

	recovered := 0.0
	for _, rec := range recs {
		if rec.Status != models.StatusPending {
			continue
		}
		if issue, ok := byCheck[rec.CheckID]; ok {
			recovered += s.scorer.Penalty(issue, totalPages)
		}
	}
	recovered *= s.config.RecoveryFactor

	current := scorer.Round2(score)
	estimated := scorer.Round2(math.Min(100, current+recovered))
	improvement := scorer.Round2(math.Max(0, estimated-current))

	return models.ImpactProjection{
		CurrentScore:                       current,
		EstimatedScoreAfterFixes:           estimated,
		ScoreImprovement:                   improvement,
		EstimatedTrafficImprovementPercent: scorer.Round2(improvement * s.config.TrafficPerPoint),
		EstimatedKeywordRankingImprovement: fmt.Sprintf("+%d positions", int(math.Round(improvement*s.config.PositionsPerPoint))),
		TimeframeToSeeResultsDays:          s.timeframe(improvement),
		ConfidenceLevel:                    confidence(critical),
	}
}

func (s *Simulator) timeframe(improvement float64) int {
	switch {
	case improvement < s.config.SmallImprovement:
		return s.config.SmallDays
	case improvement < s.config.MediumImprovement:
		return s.config.MediumDays
	default:
		return s.config.LargeDays
	}
}

func confidence(criticalIssues int) string {
	switch {
	case criticalIssues >= 3:
		return ConfidenceLow
	case criticalIssues >= 1:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}
