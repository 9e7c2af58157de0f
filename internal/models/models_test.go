package models

import (
	"encoding/json"
	"net/url"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrder(t *testing.T) {
	assert.True(t, Critical.MoreSevereThan(High))
	assert.True(t, High.MoreSevereThan(Medium))
	assert.True(t, Medium.MoreSevereThan(Low))
	assert.False(t, Low.MoreSevereThan(Low))

	shuffled := []Severity{Low, Critical, Medium, High}
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].MoreSevereThan(shuffled[j]) })
	assert.Equal(t, Severities, shuffled)
}

func TestSeverityJSON(t *testing.T) {
	data, err := json.Marshal(Finding{CheckID: "missing_h1", Severity: Critical})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"critical"`)

	var s Severity
	require.NoError(t, json.Unmarshal([]byte(`"Medium"`), &s))
	assert.Equal(t, Medium, s)

	assert.Error(t, json.Unmarshal([]byte(`"urgent"`), &s))
	_, err = json.Marshal(Severity(9))
	assert.Error(t, err)
}

func TestParseSeverity(t *testing.T) {
	for _, s := range Severities {
		got, err := ParseSeverity(" " + s.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseSeverity("")
	assert.Error(t, err)
}

func TestHostScopeContains(t *testing.T) {
	tests := []struct {
		name  string
		scope HostScope
		url   string
		want  bool
	}{
		{"same host", HostScope{Host: "example.com"}, "https://example.com/a", true},
		{"port ignored", HostScope{Host: "127.0.0.1"}, "http://127.0.0.1:8080/", true},
		{"case folded", HostScope{Host: "example.com"}, "https://EXAMPLE.com/", true},
		{"other host", HostScope{Host: "example.com"}, "https://other.org/", false},
		{"subdomain excluded", HostScope{Host: "example.com"}, "https://blog.example.com/", false},
		{"subdomain included", HostScope{Host: "www.example.com", IncludeSubdomains: true}, "https://blog.example.com/", true},
		{"registrable root included", HostScope{Host: "www.example.com", IncludeSubdomains: true}, "https://example.com/", true},
		{"lookalike rejected", HostScope{Host: "example.com", IncludeSubdomains: true}, "https://notexample.com/", false},
		{"no host", HostScope{Host: "example.com"}, "/relative", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.scope.Contains(u))
		})
	}
}

func TestIssueEvidenceNotSerialized(t *testing.T) {
	data, err := json.Marshal(Issue{
		ID:            "issue_missing_alt_text",
		CheckID:       "missing_alt_text",
		Severity:      Medium,
		AffectedPages: []string{"https://example.com/"},
		Count:         1,
		Evidence:      map[string][]string{"https://example.com/": {"a.png"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "a.png")
	assert.Contains(t, string(data), `"links":["https://example.com/"]`)
}
