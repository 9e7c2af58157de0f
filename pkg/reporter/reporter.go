// Package reporter renders audit results for people and spreadsheets.
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/amosWeiskopf/auditsmith/internal/models"
)

// Supported formats
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatXLSX     = "xlsx"
)

// Formats lists every supported format
var Formats = []string{FormatJSON, FormatYAML, FormatHTML, FormatMarkdown, FormatXLSX}

// Reporter handles report generation in various formats
type Reporter struct {
	html *template.Template
}

// New creates a new Reporter instance
func New() *Reporter {
	return &Reporter{
		html: template.Must(template.New("report").Funcs(template.FuncMap{"grade": Grade}).Parse(htmlTemplate)),
	}
}

// Render writes result to w in the given format
func (r *Reporter) Render(w io.Writer, result *models.AuditResult, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return r.generateJSON(w, result)
	case FormatYAML, "yml":
		return r.generateYAML(w, result)
	case FormatHTML:
		return r.generateHTML(w, result)
	case FormatMarkdown, "md":
		return r.generateMarkdown(w, result)
	case FormatXLSX:
		return r.generateXLSX(w, result)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Grade maps a score to a letter grade
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// generateJSON creates a JSON formatted report
func (r *Reporter) generateJSON(w io.Writer, result *models.AuditResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return nil
}

// generateYAML re-encodes the JSON document as block-style YAML so both
// formats share field names and order.
func (r *Reporter) generateYAML(w io.Writer, result *models.AuditResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to convert report: %w", err)
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// blockStyle turns flow mappings and sequences into block style. Scalars keep
// their quoting so strings stay strings.
func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// generateHTML creates an HTML formatted report
func (r *Reporter) generateHTML(w io.Writer, result *models.AuditResult) error {
	var buf bytes.Buffer
	if err := r.html.Execute(&buf, result); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// generateMarkdown creates a Markdown formatted report
func (r *Reporter) generateMarkdown(w io.Writer, result *models.AuditResult) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# SEO Audit for %s\n\n", result.URL)
	fmt.Fprintf(&buf, "*Audit %s, generated on %s*\n\n", result.AuditID, result.Timestamp.Format("January 2, 2006 15:04 MST"))
	if result.Degraded {
		fmt.Fprintf(&buf, "> The crawl hit the audit deadline; results cover only the pages reached.\n\n")
	}

	fmt.Fprintf(&buf, "## Summary\n\n")
	fmt.Fprintf(&buf, "**SEO Score:** %.2f/100 (grade %s)\n\n", result.SEOScore, Grade(result.SEOScore))
	fmt.Fprintf(&buf, "| Metric | Value |\n")
	fmt.Fprintf(&buf, "|--------|-------|\n")
	fmt.Fprintf(&buf, "| Pages crawled | %d |\n", result.CrawlSummary.TotalPages)
	fmt.Fprintf(&buf, "| Broken links | %d |\n", result.CrawlSummary.BrokenLinks)
	fmt.Fprintf(&buf, "| Crawl time | %.2fs |\n", result.CrawlSummary.CrawlTime)
	fmt.Fprintf(&buf, "| Auto-fixed | %d |\n\n", result.AutoFixedCount)

	if len(result.CategoryBreakdown) > 0 {
		fmt.Fprintf(&buf, "### Penalty by Category\n\n")
		fmt.Fprintf(&buf, "| Category | Points lost |\n")
		fmt.Fprintf(&buf, "|----------|-------------|\n")
		for _, c := range sortedCategories(result.CategoryBreakdown) {
			fmt.Fprintf(&buf, "| %s | %.2f |\n", c, result.CategoryBreakdown[c])
		}
		fmt.Fprintf(&buf, "\n")
	}

	if len(result.Issues) > 0 {
		fmt.Fprintf(&buf, "## Issues\n\n")
		for _, issue := range result.Issues {
			fmt.Fprintf(&buf, "### %s\n", issue.Title)
			fmt.Fprintf(&buf, "- **Severity:** %s\n", issue.Severity)
			fmt.Fprintf(&buf, "- **Category:** %s\n", issue.Category)
			fmt.Fprintf(&buf, "- **Description:** %s\n", issue.Description)
			fmt.Fprintf(&buf, "- **Affected pages:** %d\n", issue.Count)
			for _, page := range issue.AffectedPages {
				fmt.Fprintf(&buf, "  - %s\n", page)
			}
			fmt.Fprintf(&buf, "\n")
		}
	}

	if len(result.Recommendations) > 0 {
		fmt.Fprintf(&buf, "## Recommendations\n\n")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(&buf, "### %d. %s\n", rec.FixPriority, rec.Title)
			fmt.Fprintf(&buf, "- **Status:** %s\n", rec.Status)
			fmt.Fprintf(&buf, "- **Difficulty:** %s (%d min)\n", rec.Difficulty, rec.TimeToFixMinutes)
			fmt.Fprintf(&buf, "- **Impact:** ranking %s, traffic %s\n", rec.EstimatedRankingImpact, rec.EstimatedTrafficImpact)
			fmt.Fprintf(&buf, "- **Description:** %s\n", rec.Description)
			if rec.Note != "" {
				fmt.Fprintf(&buf, "- **Note:** %s\n", rec.Note)
			}
			fmt.Fprintf(&buf, "\n```html\n%s\n```\n\n", rec.CodeSnippet)
		}
	}

	imp := result.SimulatedImpact
	fmt.Fprintf(&buf, "## Projected Impact\n\n")
	fmt.Fprintf(&buf, "- Score: %.2f -> %.2f (+%.2f)\n", imp.CurrentScore, imp.EstimatedScoreAfterFixes, imp.ScoreImprovement)
	fmt.Fprintf(&buf, "- Traffic: +%.2f%%\n", imp.EstimatedTrafficImprovementPercent)
	fmt.Fprintf(&buf, "- Keyword ranking: %s\n", imp.EstimatedKeywordRankingImprovement)
	fmt.Fprintf(&buf, "- Timeframe: %d days\n", imp.TimeframeToSeeResultsDays)
	fmt.Fprintf(&buf, "- Confidence: %s\n", imp.ConfidenceLevel)

	_, err := buf.WriteTo(w)
	return err
}

// generateXLSX writes a workbook with summary, issue and recommendation
// sheets
func (r *Reporter) generateXLSX(w io.Writer, result *models.AuditResult) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	imp := result.SimulatedImpact
	rows := [][]interface{}{
		{"Audit ID", result.AuditID},
		{"URL", result.URL},
		{"Timestamp", result.Timestamp.Format("2006-01-02 15:04:05 MST")},
		{"Status", result.Status},
		{"SEO Score", result.SEOScore},
		{"Grade", Grade(result.SEOScore)},
		{"Pages crawled", result.CrawlSummary.TotalPages},
		{"Broken links", result.CrawlSummary.BrokenLinks},
		{"Crawl time (s)", result.CrawlSummary.CrawlTime},
		{"Estimated score after fixes", imp.EstimatedScoreAfterFixes},
		{"Score improvement", imp.ScoreImprovement},
		{"Traffic improvement (%)", imp.EstimatedTrafficImprovementPercent},
		{"Keyword ranking", imp.EstimatedKeywordRankingImprovement},
		{"Timeframe (days)", imp.TimeframeToSeeResultsDays},
		{"Confidence", imp.ConfidenceLevel},
	}
	if err := writeRows(f, summary, nil, rows); err != nil {
		return err
	}

	issueRows := make([][]interface{}, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issueRows = append(issueRows, []interface{}{
			issue.Severity.String(), string(issue.Category), issue.Title, issue.Count, strings.Join(issue.AffectedPages, "\n"),
		})
	}
	if err := writeRows(f, "Issues", []interface{}{"Severity", "Category", "Title", "Pages", "Affected pages"}, issueRows); err != nil {
		return err
	}

	recRows := make([][]interface{}, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		recRows = append(recRows, []interface{}{
			rec.FixPriority, rec.Title, rec.Severity.String(), rec.AffectedPages, rec.Difficulty,
			rec.TimeToFixMinutes, rec.EstimatedRankingImpact, rec.EstimatedTrafficImpact, rec.Status, rec.Note,
		})
	}
	recHeader := []interface{}{"Priority", "Title", "Severity", "Pages", "Difficulty", "Minutes", "Ranking impact", "Traffic impact", "Status", "Note"}
	if err := writeRows(f, "Recommendations", recHeader, recRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeRows fills sheet, creating it if needed. A non-nil header becomes a
// bold first row.
func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}
	row := 1
	if header != nil {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &header); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err == nil {
			last, _ := excelize.CoordinatesToCellName(len(header), row)
			_ = f.SetCellStyle(sheet, cell, last, style)
		}
		row++
	}
	for _, values := range rows {
		values := values
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
		}
		row++
	}
	return nil
}

func sortedCategories(m map[models.Category]float64) []models.Category {
	out := make([]models.Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
