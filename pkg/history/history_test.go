package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/auditsmith/internal/models"
)

func result(i int) *models.AuditResult {
	return &models.AuditResult{
		AuditID:  fmt.Sprintf("audit_%d", i),
		URL:      fmt.Sprintf("https://site%d.example/", i),
		SEOScore: float64(i),
		Issues:   make([]models.Issue, i%3),
	}
}

func TestStoreNewestFirst(t *testing.T) {
	s := NewStore(5)
	for i := 1; i <= 3; i++ {
		s.Add(result(i))
	}

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "audit_3", list[0].AuditID)
	assert.Equal(t, "audit_1", list[2].AuditID)
	assert.Equal(t, 2, list[1].IssueCount)

	r, ok := s.Get("audit_2")
	require.True(t, ok)
	assert.Equal(t, "https://site2.example/", r.URL)
}

func TestStoreEvictsOldest(t *testing.T) {
	s := NewStore(3)
	for i := 1; i <= 7; i++ {
		s.Add(result(i))
	}

	assert.Equal(t, 3, s.Len())
	ids := []string{}
	for _, e := range s.List() {
		ids = append(ids, e.AuditID)
	}
	assert.Equal(t, []string{"audit_7", "audit_6", "audit_5"}, ids)

	_, ok := s.Get("audit_4")
	assert.False(t, ok)
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore(0)
	assert.Empty(t, s.List())
	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Add(result(1))
	s.Add(result(2))
	assert.Equal(t, 1, s.Len())
}

func TestStoreConcurrentAdd(t *testing.T) {
	s := NewStore(50)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(result(i))
			_ = s.List()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}
