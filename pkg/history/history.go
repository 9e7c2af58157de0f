// Package history keeps the most recent audit results in memory.
package history

import (
	"sync"
	"time"

	"github.com/amosWeiskopf/auditsmith/internal/models"
)

// Summary is the history listing entry of one audit
type Summary struct {
	AuditID    string    `json:"audit_id"`
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
	SEOScore   float64   `json:"seo_score"`
	TotalPages int       `json:"total_pages"`
	IssueCount int       `json:"issue_count"`
}

// Store is a fixed-capacity ring buffer of results. When full, the oldest
// result is evicted. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []*models.AuditResult
	next    int
	size    int
}

// NewStore creates a Store holding at most capacity results
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{entries: make([]*models.AuditResult, capacity)}
}

// Add records a result
func (s *Store) Add(result *models.AuditResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.next] = result
	s.next = (s.next + 1) % len(s.entries)
	if s.size < len(s.entries) {
		s.size++
	}
}

// Get returns the result with the given audit ID
func (s *Store) Get(id string) (*models.AuditResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := 0; i < s.size; i++ {
		if r := s.at(i); r.AuditID == id {
			return r, true
		}
	}
	return nil, false
}

// List returns summaries of the stored results, newest first
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, s.size)
	for i := 0; i < s.size; i++ {
		r := s.at(i)
		out = append(out, Summary{
			AuditID:    r.AuditID,
			URL:        r.URL,
			Timestamp:  r.Timestamp,
			Status:     r.Status,
			SEOScore:   r.SEOScore,
			TotalPages: r.CrawlSummary.TotalPages,
			IssueCount: len(r.Issues),
		})
	}
	return out
}

// Len returns the number of stored results
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// at returns the i-th newest entry. Callers hold mu.
func (s *Store) at(i int) *models.AuditResult {
	n := len(s.entries)
	return s.entries[(s.next-1-i+n)%n]
}
