package recommender

import "github.com/amosWeiskopf/auditsmith/pkg/analyzer"

// Difficulty ratings
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

const snippetUnavailable = "<!-- Code snippet not available -->"

// Template is the remediation text attached to one check
type Template struct {
	Description string
	Difficulty  string
	Minutes     int
	Snippet     string
	AutoFixable bool
}

var templates = map[string]Template{
	analyzer.CheckBrokenInternalLink: {
		Description: "Update or remove links that point to missing pages, or 301-redirect the old URLs to their replacements.",
		Difficulty:  DifficultyMedium,
		Minutes:     60,
		Snippet:     `<a href="/existing-page">Working link</a>`,
	},
	analyzer.CheckMissingH1: {
		Description: "Add a single descriptive H1 heading that states the topic of the page.",
		Difficulty:  DifficultyEasy,
		Minutes:     15,
		Snippet:     `<h1>Your Main Heading</h1>`,
	},
	analyzer.CheckDuplicateH1: {
		Description: "Keep one H1 per page and demote the other headings to H2.",
		Difficulty:  DifficultyMedium,
		Minutes:     20,
		Snippet:     "<h1>Your Main Heading</h1>\n<h2>Section Heading</h2>",
	},
	analyzer.CheckNoindexWithoutCanonical: {
		Description: "Declare a canonical URL on noindex pages, or drop noindex if the page should rank.",
		Difficulty:  DifficultyEasy,
		Minutes:     10,
		Snippet:     `<link rel="canonical" href="https://example.com/page">`,
		AutoFixable: true,
	},
	analyzer.CheckMissingTitle: {
		Description: "Add a unique title of 50-60 characters to every page.",
		Difficulty:  DifficultyEasy,
		Minutes:     5,
		Snippet:     `<title>Your Page Title - Your Brand</title>`,
		AutoFixable: true,
	},
	analyzer.CheckDuplicateTitle: {
		Description: "Give every page exactly one title tag whose text is not shared with other pages.",
		Difficulty:  DifficultyEasy,
		Minutes:     10,
		Snippet:     `<title>Unique Page Title - Your Brand</title>`,
	},
	analyzer.CheckMissingMetaDescription: {
		Description: "Write unique, compelling meta descriptions of 150-160 characters for all pages.",
		Difficulty:  DifficultyEasy,
		Minutes:     5,
		Snippet:     `<meta name="description" content="Your 150-160 character description here">`,
		AutoFixable: true,
	},
	analyzer.CheckBrokenSchema: {
		Description: "Fix the JSON-LD blocks so they parse and declare @context and @type.",
		Difficulty:  DifficultyMedium,
		Minutes:     45,
		Snippet: `<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Organization",
  "name": "Your Organization",
  "url": "https://example.com"
}
</script>`,
	},
	analyzer.CheckUnreachableExternalLink: {
		Description: "Replace or remove outbound links to sites that no longer respond.",
		Difficulty:  DifficultyMedium,
		Minutes:     30,
		Snippet:     `<a href="https://example.org/current-page" rel="noopener">Updated reference</a>`,
	},
	analyzer.CheckMissingViewport: {
		Description: "Add a responsive viewport meta tag so the page renders correctly on mobile devices.",
		Difficulty:  DifficultyEasy,
		Minutes:     5,
		Snippet:     `<meta name="viewport" content="width=device-width, initial-scale=1.0">`,
		AutoFixable: true,
	},
	analyzer.CheckMissingAltText: {
		Description: "Describe every meaningful image with an alt attribute.",
		Difficulty:  DifficultyEasy,
		Minutes:     30,
		Snippet:     `<img src="image.jpg" alt="Descriptive alt text">`,
		AutoFixable: true,
	},
	analyzer.CheckThinContent: {
		Description: "Add more valuable, relevant content to pages with less than 300 words.",
		Difficulty:  DifficultyEasy,
		Minutes:     60,
		Snippet:     snippetUnavailable,
	},
	analyzer.CheckSlowPage: {
		Description: "Reduce page weight: compress images, lazy-load below-the-fold media and enable caching.",
		Difficulty:  DifficultyHard,
		Minutes:     120,
		Snippet:     `<img src="image.webp" loading="lazy" width="800" height="600" alt="Descriptive alt text">`,
	},
	analyzer.CheckDuplicateContent: {
		Description: "Merge near-identical pages or point the copies at the original with a canonical link.",
		Difficulty:  DifficultyHard,
		Minutes:     90,
		Snippet:     `<link rel="canonical" href="https://example.com/original-page">`,
	},
	analyzer.CheckMalformedMarkup: {
		Description: "Fix the markup errors reported by an HTML validator.",
		Difficulty:  DifficultyMedium,
		Minutes:     30,
		Snippet:     snippetUnavailable,
	},
}

var fallbackTemplate = Template{
	Description: "Review the affected pages and resolve the reported problem.",
	Difficulty:  DifficultyHard,
	Minutes:     30,
	Snippet:     snippetUnavailable,
}

// TemplateFor returns the remediation template of a check
func TemplateFor(checkID string) Template {
	if t, ok := templates[checkID]; ok {
		return t
	}
	return fallbackTemplate
}

// AutoFixable reports whether a check has an automatable template
func AutoFixable(checkID string) bool {
	return templates[checkID].AutoFixable
}
