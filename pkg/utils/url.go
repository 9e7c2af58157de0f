package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL normalizes an absolute URL for consistent comparison: the
// scheme and host are lowercased, default ports and fragments are dropped and
// an empty path becomes "/".
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", raw)
	}
	normalizeParsed(u)
	return u.String(), nil
}

func normalizeParsed(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
}

// ResolveURL resolves ref against base and normalizes the result. Only
// http(s) targets are returned; anything else yields ok == false.
func ResolveURL(base *url.URL, ref string) (resolved string, ok bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(refURL)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}
	normalizeParsed(abs)
	return abs.String(), true
}

// IsWebpageURL reports whether a URL looks like an HTML page rather than a
// static asset
func IsWebpageURL(pageURL string) bool {
	lowercaseURL := strings.ToLower(pageURL)
	if i := strings.IndexAny(lowercaseURL, "?#"); i >= 0 {
		lowercaseURL = lowercaseURL[:i]
	}
	nonWebExts := []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".pdf", ".zip", ".mp4", ".mp3", ".css", ".js", ".ico", ".xml"}
	for _, ext := range nonWebExts {
		if strings.HasSuffix(lowercaseURL, ext) {
			return false
		}
	}
	return true
}

// IsWebpageMIME reports whether a Content-Type header denotes markup
func IsWebpageMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.Split(strings.ToLower(contentType), ";")[0])
	switch mimeType {
	case "", "text/html", "application/xhtml+xml", "application/xhtml":
		return true
	}
	return false
}
