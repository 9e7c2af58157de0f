package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity classifies a check failure. Lower values are more severe, so the
// natural integer order is also the display and tie-break order.
type Severity int

const (
	Critical Severity = iota
	High
	Medium
	Low
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{Critical, High, Medium, Low}

var severityNames = map[Severity]string{
	Critical: "critical",
	High:     "high",
	Medium:   "medium",
	Low:      "low",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MoreSevereThan reports whether s ranks ahead of other.
func (s Severity) MoreSevereThan(other Severity) bool {
	return s < other
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// ParseSeverity converts a lowercase (or mixed case) name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}
