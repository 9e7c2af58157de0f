package impact

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/recommender"
	"github.com/amosWeiskopf/auditsmith/pkg/scorer"
)

type pipeline struct {
	scorer      *scorer.Scorer
	recommender *recommender.Recommender
	simulator   *Simulator
}

func newPipeline() pipeline {
	cfg := config.Default()
	s := scorer.New(cfg.Scoring)
	return pipeline{
		scorer:      s,
		recommender: recommender.New(s, cfg.Recommendations),
		simulator:   New(s, cfg.Impact),
	}
}

func (p pipeline) run(issues []models.Issue, pages int) models.ImpactProjection {
	score, _ := p.scorer.Score(issues, pages)
	recs := p.recommender.Recommend(issues, pages)
	return p.simulator.Simulate(score, issues, recs, pages)
}

func TestSimulateNoIssues(t *testing.T) {
	got := newPipeline().run(nil, 5)
	assert.Equal(t, 100.0, got.CurrentScore)
	assert.Equal(t, 100.0, got.EstimatedScoreAfterFixes)
	assert.Zero(t, got.ScoreImprovement)
	assert.Zero(t, got.EstimatedTrafficImprovementPercent)
	assert.Equal(t, "+0 positions", got.EstimatedKeywordRankingImprovement)
	assert.Equal(t, 30, got.TimeframeToSeeResultsDays)
	assert.Equal(t, ConfidenceHigh, got.ConfidenceLevel)
}

func TestSimulate(t *testing.T) {
	issues := []models.Issue{
		{CheckID: "missing_h1", Severity: models.Critical, Count: 1},
		{CheckID: "missing_title", Severity: models.High, Count: 1},
	}
	got := newPipeline().run(issues, 1)

	assert.Equal(t, 70.0, got.CurrentScore)
	assert.Equal(t, 100.0, got.EstimatedScoreAfterFixes)
	assert.Equal(t, 30.0, got.ScoreImprovement)
	assert.Equal(t, 75.0, got.EstimatedTrafficImprovementPercent)
	assert.Equal(t, "+6 positions", got.EstimatedKeywordRankingImprovement)
	assert.Equal(t, 90, got.TimeframeToSeeResultsDays)
	assert.Equal(t, ConfidenceMedium, got.ConfidenceLevel)
}

func TestSimulateSkipsFixedRecommendations(t *testing.T) {
	p := newPipeline()
	issues := []models.Issue{
		{CheckID: "missing_viewport", Severity: models.Medium, Count: 1},
		{CheckID: "thin_content", Severity: models.Medium, Count: 1},
	}
	recs := p.recommender.Recommend(issues, 2)
	for i := range recs {
		if recs[i].CheckID == "missing_viewport" {
			recs[i].Status = models.StatusFixed
		}
	}

	got := p.simulator.Simulate(95, issues, recs, 2)
	assert.Equal(t, 2.5, got.ScoreImprovement)
	assert.Equal(t, 97.5, got.EstimatedScoreAfterFixes)
}

func TestSimulateConfidence(t *testing.T) {
	tests := []struct {
		critical int
		want     string
	}{
		{0, ConfidenceHigh},
		{1, ConfidenceMedium},
		{2, ConfidenceMedium},
		{3, ConfidenceLow},
		{6, ConfidenceLow},
	}
	for _, tt := range tests {
		var issues []models.Issue
		for i := 0; i < tt.critical; i++ {
			issues = append(issues, models.Issue{CheckID: string(rune('a' + i)), Severity: models.Critical, Count: 1})
		}
		assert.Equal(t, tt.want, newPipeline().run(issues, 100).ConfidenceLevel, "critical=%d", tt.critical)
	}
}

func TestSimulateTimeframe(t *testing.T) {
	s := newPipeline().simulator
	assert.Equal(t, 30, s.timeframe(0))
	assert.Equal(t, 30, s.timeframe(9.99))
	assert.Equal(t, 60, s.timeframe(10))
	assert.Equal(t, 60, s.timeframe(24.99))
	assert.Equal(t, 90, s.timeframe(25))
}

func TestSimulateInvariants(t *testing.T) {
	p := newPipeline()
	rng := rand.New(rand.NewSource(7))
	checks := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	for i := 0; i < 200; i++ {
		pages := 1 + rng.Intn(30)
		var issues []models.Issue
		for _, id := range checks {
			if rng.Intn(2) == 0 {
				continue
			}
			issues = append(issues, models.Issue{
				CheckID:  id,
				Severity: models.Severities[rng.Intn(len(models.Severities))],
				Count:    1 + rng.Intn(pages),
			})
		}
		got := p.run(issues, pages)

		assert.GreaterOrEqual(t, got.ScoreImprovement, 0.0)
		assert.LessOrEqual(t, got.EstimatedScoreAfterFixes, 100.0)
		assert.InDelta(t, got.EstimatedScoreAfterFixes, got.CurrentScore+got.ScoreImprovement, 1e-9)
	}
}
