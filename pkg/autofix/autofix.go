// Package autofix applies the automatable recommendation templates.
package autofix

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/amosWeiskopf/auditsmith/internal/metrics"
	"github.com/amosWeiskopf/auditsmith/internal/models"
)

// Executor drives a Mutator over the auto-fixable recommendations
type Executor struct {
	mutator Mutator
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// New creates an Executor. m may be nil.
func New(mutator Mutator, log logrus.FieldLogger, m *metrics.Metrics) *Executor {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Executor{mutator: mutator, log: log, metrics: m}
}

// Execute applies every pending auto-fixable recommendation to each of its
// issue's affected pages. A recommendation becomes fixed only when every page
// was patched; otherwise it stays pending with a note. It returns the updated
// recommendations and the number fixed. Failures never abort the run.
func (e *Executor) Execute(ctx context.Context, issues []models.Issue, recs []models.Recommendation) ([]models.Recommendation, int) {
	byCheck := make(map[string]models.Issue, len(issues))
	for _, issue := range issues {
		byCheck[issue.CheckID] = issue
	}

	out := append([]models.Recommendation(nil), recs...)
	fixed := 0
	for i := range out {
		rec := &out[i]
		if !rec.AutoFixable || rec.Status != models.StatusPending {
			continue
		}
		issue, ok := byCheck[rec.CheckID]
		if !ok {
			continue
		}

		log := e.log.WithFields(logrus.Fields{"check": rec.CheckID, "pages": len(issue.AffectedPages)})
		if err := e.apply(ctx, rec, issue); err != nil {
			rec.Note = fmt.Sprintf("auto-fix failed: %v", err)
			e.metrics.AutoFixes.WithLabelValues("failed").Inc()
			log.WithError(err).Warn("auto-fix failed")
			continue
		}
		rec.Status = models.StatusFixed
		rec.Note = ""
		fixed++
		e.metrics.AutoFixes.WithLabelValues("fixed").Inc()
		log.Info("auto-fix applied")
	}
	return out, fixed
}

func (e *Executor) apply(ctx context.Context, rec *models.Recommendation, issue models.Issue) error {
	for _, page := range issue.AffectedPages {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := Patch{
			PageURL:  page,
			CheckID:  rec.CheckID,
			Snippet:  rec.CodeSnippet,
			Evidence: issue.Evidence[page],
		}
		if err := e.mutator.Apply(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", page, err)
		}
	}
	return nil
}

// Remaining returns the issues whose recommendation was not fixed, which is
// what the post-fix score is computed from.
func Remaining(issues []models.Issue, recs []models.Recommendation) []models.Issue {
	fixed := make(map[string]bool)
	for _, r := range recs {
		if r.Status == models.StatusFixed {
			fixed[r.CheckID] = true
		}
	}
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if !fixed[issue.CheckID] {
			out = append(out, issue)
		}
	}
	return out
}
