package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var spaceRun = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace runs and trims the result
func CleanText(text string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

// WordCount counts words, treating any run of letters or digits as a word
func WordCount(text string) int {
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\'' && r != '-'
	}))
}

// TruncateText shortens text to at most maxRunes runes, cutting back to the
// last space when there is one, and marks the cut with "..."
func TruncateText(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	truncated := runes[:maxRunes]
	for i := len(truncated) - 1; i > 0; i-- {
		if unicode.IsSpace(truncated[i]) {
			truncated = truncated[:i]
			break
		}
	}
	return string(truncated) + "..."
}

// Shingles splits normalized text into overlapping word n-grams
func Shingles(text string, size int) []string {
	words := strings.Fields(strings.ToLower(CleanText(text)))
	if len(words) == 0 {
		return nil
	}
	if len(words) < size {
		return []string{strings.Join(words, " ")}
	}
	out := make([]string, 0, len(words)-size+1)
	for i := 0; i+size <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+size], " "))
	}
	return out
}
