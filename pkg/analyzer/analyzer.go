// Package analyzer runs the fixed battery of SEO checks over fetched pages.
package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/extractor"
	"github.com/amosWeiskopf/auditsmith/pkg/utils"
)

const (
	// maxEvidence bounds how many evidence items a single finding carries
	maxEvidence = 10
	// maxSnippet bounds quoted page text in details and evidence, in runes
	maxSnippet = 120
)

// Analyzer performs the page checks
type Analyzer struct {
	config config.AnalyzerConfig
	log    logrus.FieldLogger
}

// New creates a new Analyzer instance
func New(cfg config.AnalyzerConfig, log logrus.FieldLogger) *Analyzer {
	return &Analyzer{config: cfg, log: log}
}

// AnalyzeSite analyzes every page of one crawl. Pages are visited in
// (depth, url) order so "already seen" comparisons do not depend on the order
// the crawler finished them in.
func (a *Analyzer) AnalyzeSite(pages []models.PageRecord) []models.Finding {
	ordered := append([]models.PageRecord(nil), pages...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Depth != ordered[j].Depth {
			return ordered[i].Depth < ordered[j].Depth
		}
		return ordered[i].URL < ordered[j].URL
	})

	idx := NewContentIndex()
	var findings []models.Finding
	for _, page := range ordered {
		findings = append(findings, a.Analyze(page, idx)...)
	}
	return findings
}

// Analyze runs every check against one page. idx carries the titles and
// content fingerprints of pages analyzed earlier in the same audit; it may be
// nil for a standalone check.
func (a *Analyzer) Analyze(page models.PageRecord, idx *ContentIndex) []models.Finding {
	if idx == nil {
		idx = NewContentIndex()
	}
	f := &pageFindings{url: page.URL}

	doc, err := extractor.Extract(page.Content, page.URL)
	if err != nil {
		f.add(CheckMalformedMarkup, utils.TruncateText(err.Error(), maxSnippet))
		return f.list
	}
	if len(doc.ParseProblems) > 0 {
		f.add(CheckMalformedMarkup, fmt.Sprintf("%d markup problem(s)", len(doc.ParseProblems)), snippets(doc.ParseProblems)...)
	}

	a.checkTitle(f, doc, idx)
	a.checkHeadings(f, doc)
	a.checkMeta(f, doc)
	a.checkSchema(f, doc)
	a.checkImages(f, doc)

	if doc.WordCount < a.config.ThinContentWords {
		f.add(CheckThinContent, fmt.Sprintf("Page has %d words. Minimum %d words recommended", doc.WordCount, a.config.ThinContentWords))
	}
	if page.LoadTimeMS > a.config.SlowPageMS {
		f.add(CheckSlowPage, fmt.Sprintf("Page loaded in %d ms, threshold is %d ms", page.LoadTimeMS, a.config.SlowPageMS))
	}
	if hash, ok := simhash(doc.Text); ok {
		if other, sim := idx.nearest(page.URL, hash); other != "" && sim >= a.config.DuplicateSimilarity {
			f.add(CheckDuplicateContent, fmt.Sprintf("Content is %.0f%% similar to %s", sim*100, other), other)
		}
	}

	a.log.WithFields(logrus.Fields{"url": page.URL, "findings": len(f.list)}).Debug("page analyzed")
	return f.list
}

// pageFindings collects the findings of one page
type pageFindings struct {
	url  string
	list []models.Finding
}

func (f *pageFindings) add(checkID, detail string, evidence ...string) {
	c := catalog[checkID]
	// missing_alt_text evidence drives auto-fix patches and is kept whole
	if len(evidence) > maxEvidence && checkID != CheckMissingAltText {
		evidence = evidence[:maxEvidence]
	}
	f.list = append(f.list, models.Finding{
		PageURL:  f.url,
		CheckID:  checkID,
		Severity: c.Severity,
		Detail:   detail,
		Evidence: evidence,
	})
}

// snippets shortens quoted page text for use as evidence
func snippets(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = utils.TruncateText(item, maxSnippet)
	}
	return out
}

func (a *Analyzer) checkTitle(f *pageFindings, doc *extractor.Document, idx *ContentIndex) {
	title := doc.Title()
	switch {
	case title == "":
		f.add(CheckMissingTitle, "Page title tag is missing")
	case len(doc.Titles) > 1:
		f.add(CheckDuplicateTitle, fmt.Sprintf("Page has %d title tags", len(doc.Titles)), snippets(doc.Titles)...)
		idx.seenTitle(title, f.url)
	default:
		if prev, dup := idx.seenTitle(title, f.url); dup {
			f.add(CheckDuplicateTitle, fmt.Sprintf("Title %q is also used by %s", utils.TruncateText(title, maxSnippet), prev), prev)
		}
	}
}

func (a *Analyzer) checkHeadings(f *pageFindings, doc *extractor.Document) {
	nonEmpty := 0
	for _, h := range doc.H1s {
		if h != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		f.add(CheckMissingH1, "Page has no H1 tag")
	}
	if len(doc.H1s) > 1 {
		f.add(CheckDuplicateH1, fmt.Sprintf("Page has %d H1 tags. Should have only one", len(doc.H1s)), snippets(doc.H1s)...)
	}
}

func (a *Analyzer) checkMeta(f *pageFindings, doc *extractor.Document) {
	if doc.MetaDescription == "" {
		f.add(CheckMissingMetaDescription, "Page meta description is missing")
	}
	if doc.Viewport == "" {
		f.add(CheckMissingViewport, "Page has no viewport meta tag")
	}
	if strings.Contains(doc.Robots, "noindex") && doc.Canonical == "" {
		f.add(CheckNoindexWithoutCanonical, fmt.Sprintf("robots meta is %q and no canonical link is declared", doc.Robots))
	}
}

func (a *Analyzer) checkSchema(f *pageFindings, doc *extractor.Document) {
	var problems []string
	for i, block := range doc.StructuredData {
		if msg := validateJSONLD(block); msg != "" {
			problems = append(problems, fmt.Sprintf("block %d: %s", i+1, msg))
		}
	}
	if len(problems) > 0 {
		f.add(CheckBrokenSchema, fmt.Sprintf("%d of %d structured data block(s) are invalid", len(problems), len(doc.StructuredData)), snippets(problems)...)
	}
}

// validateJSONLD returns a description of what is wrong with block, or "".
func validateJSONLD(block string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(block)), &v); err != nil {
		return "invalid JSON: " + err.Error()
	}
	switch node := v.(type) {
	case map[string]interface{}:
		return validateNode(node)
	case []interface{}:
		if len(node) == 0 {
			return "empty array"
		}
		for _, item := range node {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return "array item is not an object"
			}
			if msg := validateNode(obj); msg != "" {
				return msg
			}
		}
		return ""
	default:
		return "not an object"
	}
}

func validateNode(node map[string]interface{}) string {
	if _, ok := node["@context"]; !ok {
		return "missing @context"
	}
	_, hasType := node["@type"]
	_, hasGraph := node["@graph"]
	if !hasType && !hasGraph {
		return "missing @type"
	}
	return ""
}

func (a *Analyzer) checkImages(f *pageFindings, doc *extractor.Document) {
	if len(doc.Images) == 0 {
		return
	}
	var missing []string
	for _, img := range doc.Images {
		if !img.HasAlt {
			missing = append(missing, img.Src)
		}
	}
	coverage := float64(len(doc.Images)-len(missing)) / float64(len(doc.Images))
	if coverage < a.config.AltCoverageThreshold {
		f.add(CheckMissingAltText,
			fmt.Sprintf("%d of %d images (%.0f%%) are missing alt text", len(missing), len(doc.Images), 100*float64(len(missing))/float64(len(doc.Images))),
			missing...)
	}
}
