package autofix

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/auditsmith/internal/logging"
	"github.com/amosWeiskopf/auditsmith/internal/models"
)

type failingMutator struct {
	failCheck string
	applied   []Patch
}

func (m *failingMutator) Apply(_ context.Context, p Patch) error {
	if p.CheckID == m.failCheck {
		return errors.New("permission denied")
	}
	m.applied = append(m.applied, p)
	return nil
}

func fixture() ([]models.Issue, []models.Recommendation) {
	issues := []models.Issue{
		{
			CheckID:       "missing_alt_text",
			Severity:      models.Medium,
			AffectedPages: []string{"https://example.com/", "https://example.com/gallery?page=2"},
			Count:         2,
			Evidence: map[string][]string{
				"https://example.com/":               {"/logo.png"},
				"https://example.com/gallery?page=2": {"/a.jpg", "/b.jpg"},
			},
		},
		{CheckID: "missing_meta_description", Severity: models.High, AffectedPages: []string{"https://example.com/"}, Count: 1},
		{CheckID: "missing_h1", Severity: models.Critical, AffectedPages: []string{"https://example.com/"}, Count: 1},
	}
	recs := []models.Recommendation{
		{CheckID: "missing_h1", Status: models.StatusPending, FixPriority: 1},
		{CheckID: "missing_meta_description", Status: models.StatusPending, AutoFixable: true, FixPriority: 2,
			CodeSnippet: `<meta name="description" content="Your 150-160 character description here">`},
		{CheckID: "missing_alt_text", Status: models.StatusPending, AutoFixable: true, FixPriority: 3,
			CodeSnippet: `<img src="image.jpg" alt="Descriptive alt text">`},
	}
	return issues, recs
}

func TestExecuteWritesPatches(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewFSMutator(fs, "/patches")
	issues, recs := fixture()

	out, fixed := New(m, logging.Discard(), nil).Execute(context.Background(), issues, recs)
	assert.Equal(t, 2, fixed)
	assert.Equal(t, models.StatusPending, out[0].Status)
	assert.Equal(t, models.StatusFixed, out[1].Status)
	assert.Equal(t, models.StatusFixed, out[2].Status)

	// input is not mutated
	assert.Equal(t, models.StatusPending, recs[2].Status)

	data, err := afero.ReadFile(fs, m.PatchPath("https://example.com/gallery?page=2", "missing_alt_text"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `<img src="/a.jpg" alt="Descriptive alt text">`)
	assert.Contains(t, string(data), `<img src="/b.jpg" alt="Descriptive alt text">`)

	data, err = afero.ReadFile(fs, m.PatchPath("https://example.com/", "missing_meta_description"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `<meta name="description"`)

	exists, _ := afero.Exists(fs, m.PatchPath("https://example.com/", "missing_h1"))
	assert.False(t, exists)
}

func TestExecuteFailureLeavesPending(t *testing.T) {
	issues, recs := fixture()
	m := &failingMutator{failCheck: "missing_alt_text"}

	out, fixed := New(m, logging.Discard(), nil).Execute(context.Background(), issues, recs)
	assert.Equal(t, 1, fixed)
	assert.Equal(t, models.StatusFixed, out[1].Status)
	assert.Empty(t, out[1].Note)
	assert.Equal(t, models.StatusPending, out[2].Status)
	assert.Contains(t, out[2].Note, "permission denied")
	require.Len(t, m.applied, 1)
	assert.Equal(t, "missing_meta_description", m.applied[0].CheckID)
}

func TestExecuteCancelledContext(t *testing.T) {
	issues, recs := fixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, fixed := New(NewFSMutator(afero.NewMemMapFs(), "/p"), logging.Discard(), nil).Execute(ctx, issues, recs)
	assert.Zero(t, fixed)
	for _, r := range out[1:] {
		assert.Equal(t, models.StatusPending, r.Status)
		assert.NotEmpty(t, r.Note)
	}
}

func TestRemaining(t *testing.T) {
	issues, recs := fixture()
	recs[2].Status = models.StatusFixed

	left := Remaining(issues, recs)
	require.Len(t, left, 2)
	for _, issue := range left {
		assert.NotEqual(t, "missing_alt_text", issue.CheckID)
	}
}

func TestRenderCanonical(t *testing.T) {
	out := Render(Patch{
		PageURL: "https://example.com/a?b=1&c=2",
		CheckID: "noindex_without_canonical",
		Snippet: `<link rel="canonical" href="https://example.com/page">`,
	})
	assert.Contains(t, out, `<link rel="canonical" href="https://example.com/a?b=1&amp;c=2">`)
}

func TestRenderChoosesShapeByCheck(t *testing.T) {
	out := Render(Patch{
		PageURL:  "https://example.com/",
		CheckID:  "slow_page",
		Snippet:  `<img src="photo.webp" loading="lazy" alt="...">`,
		Evidence: []string{"/hero.png"},
	})
	assert.Contains(t, out, `<img src="photo.webp" loading="lazy" alt="...">`)
	assert.NotContains(t, out, "hero.png")
}

func TestRenderEveryMissingAltImage(t *testing.T) {
	var srcs []string
	for i := 0; i < 25; i++ {
		srcs = append(srcs, fmt.Sprintf("/img/%02d.png", i))
	}
	out := Render(Patch{
		PageURL:  "https://example.com/gallery",
		CheckID:  "missing_alt_text",
		Snippet:  `<img src="image.jpg" alt="Descriptive text about the image">`,
		Evidence: srcs,
	})
	assert.Equal(t, 25, strings.Count(out, "<img "))
	assert.Contains(t, out, `<img src="/img/24.png" alt="Descriptive alt text">`)
}

func TestPageDir(t *testing.T) {
	assert.Equal(t, "example.com", pageDir("https://example.com/"))
	assert.Equal(t, "example.com_blog_post-1", pageDir("https://example.com/blog/post-1"))
	assert.Equal(t, "example.com_search_q_go", pageDir("https://example.com/search?q=go"))
	assert.Equal(t, "page", pageDir("/"))
}
