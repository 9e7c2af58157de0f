// Package extractor pulls the SEO-relevant structure out of an HTML document.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/amosWeiskopf/auditsmith/pkg/utils"
)

// maxParseProblems bounds how many markup problems are reported per page.
const maxParseProblems = 5

// Document is the structure of one page as the checks see it
type Document struct {
	Titles          []string
	MetaDescription string
	Robots          string
	Canonical       string
	Viewport        string
	H1s             []string
	Images          []Image
	StructuredData  []string // raw application/ld+json blocks
	Links           []RawLink
	Text            string // main content, falls back to the whole body text
	WordCount       int
	ParseProblems   []string
}

// Image is an <img> element
type Image struct {
	Src    string
	Alt    string
	HasAlt bool
}

// RawLink is an <a href> as written in the markup
type RawLink struct {
	Href   string
	Anchor string
}

// Title returns the first non-empty title or ""
func (d *Document) Title() string {
	for _, t := range d.Titles {
		if t != "" {
			return t
		}
	}
	return ""
}

// Extract parses body. Markup problems never fail extraction; they are
// reported in ParseProblems and the rest of the document is read best-effort.
func Extract(body []byte, pageURL string) (*Document, error) {
	d := &Document{ParseProblems: scanMarkup(body)}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	doc.Find("title").Each(func(_ int, s *goquery.Selection) {
		d.Titles = append(d.Titles, utils.CleanText(s.Text()))
	})
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "description":
			if d.MetaDescription == "" {
				d.MetaDescription = strings.TrimSpace(content)
			}
		case "robots":
			d.Robots = strings.ToLower(strings.TrimSpace(content))
		case "viewport":
			d.Viewport = strings.TrimSpace(content)
		}
	})
	doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if !strings.EqualFold(strings.TrimSpace(rel), "canonical") {
			return
		}
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" && d.Canonical == "" {
			d.Canonical = strings.TrimSpace(href)
		}
	})
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		d.H1s = append(d.H1s, utils.CleanText(s.Text()))
	})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		alt, hasAlt := s.Attr("alt")
		d.Images = append(d.Images, Image{
			Src:    src,
			Alt:    alt,
			HasAlt: hasAlt && strings.TrimSpace(alt) != "",
		})
	})
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		d.StructuredData = append(d.StructuredData, s.Text())
	})
	d.Links = links(doc)

	d.Text = mainText(body, pageURL, doc)
	d.WordCount = utils.WordCount(d.Text)
	return d, nil
}

// ExtractLinks returns only the hyperlinks of a document. The crawler uses it
// to expand the frontier without running the full extraction.
func ExtractLinks(body []byte) ([]RawLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return links(doc), nil
}

func links(doc *goquery.Document) []RawLink {
	var out []RawLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		anchor := utils.CleanText(s.Text())
		if anchor == "" {
			if alt, ok := s.Find("img[alt]").First().Attr("alt"); ok {
				anchor = alt
			}
		}
		out = append(out, RawLink{Href: href, Anchor: anchor})
	})
	return out
}

func mainText(body []byte, pageURL string, doc *goquery.Document) string {
	opts := trafilatura.Options{}
	if u, err := url.Parse(pageURL); err == nil {
		opts.OriginalURL = u
	}
	result, err := trafilatura.Extract(bytes.NewReader(body), opts)
	if err == nil && result != nil && strings.TrimSpace(result.ContentText) != "" {
		return utils.CleanText(result.ContentText)
	}
	return fallbackText(doc)
}

func fallbackText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return utils.CleanText(body.Text())
}

// voidElements never have end tags
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// scanMarkup tokenizes body and reports problems a browser would silently
// repair: invalid UTF-8, tokenizer errors and end tags without a matching
// open element.
func scanMarkup(body []byte) []string {
	var problems []string
	report := func(format string, args ...interface{}) {
		if len(problems) < maxParseProblems {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	if !utf8.Valid(body) {
		report("document is not valid UTF-8")
	}

	var open []string
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				report("tokenizer error: %v", err)
			}
			return problems
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !voidElements[tag] {
				open = append(open, tag)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			i := len(open) - 1
			for ; i >= 0; i-- {
				if open[i] == tag {
					break
				}
			}
			if i < 0 {
				report("stray end tag </%s>", tag)
				continue
			}
			open = open[:i]
		}
	}
}
