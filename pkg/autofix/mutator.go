package autofix

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/amosWeiskopf/auditsmith/pkg/analyzer"
)

// Patch is one templated change to one page
type Patch struct {
	PageURL  string
	CheckID  string
	Snippet  string
	Evidence []string
}

// Mutator applies patches to a site. Implementations must be safe to call
// sequentially for many pages of one audit.
type Mutator interface {
	Apply(ctx context.Context, p Patch) error
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FSMutator writes every patch as a file under Dir, one directory per page.
// Deploying the patches is left to the site owner.
type FSMutator struct {
	fs  afero.Fs
	dir string
}

// NewFSMutator creates a FSMutator rooted at dir on fs
func NewFSMutator(fs afero.Fs, dir string) *FSMutator {
	return &FSMutator{fs: fs, dir: dir}
}

// Apply writes the rendered patch for p
func (m *FSMutator) Apply(ctx context.Context, p Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(m.dir, pageDir(p.PageURL))
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create patch directory: %w", err)
	}
	path := filepath.Join(dir, p.CheckID+".patch.html")
	if err := afero.WriteFile(m.fs, path, []byte(Render(p)), 0o644); err != nil {
		return fmt.Errorf("write patch: %w", err)
	}
	return nil
}

// PatchPath returns where the FSMutator stores the patch of checkID for pageURL
func (m *FSMutator) PatchPath(pageURL, checkID string) string {
	return filepath.Join(m.dir, pageDir(pageURL), checkID+".patch.html")
}

// Render produces the markup to insert. Image patches get one tag per image
// found without alt text; canonical patches point at the page itself.
func Render(p Patch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- auditsmith %s for %s -->\n", p.CheckID, p.PageURL)
	switch {
	case p.CheckID == analyzer.CheckMissingAltText && len(p.Evidence) > 0:
		for _, src := range p.Evidence {
			fmt.Fprintf(&b, "<img src=\"%s\" alt=\"Descriptive alt text\">\n", html.EscapeString(src))
		}
	case p.CheckID == analyzer.CheckNoindexWithoutCanonical:
		fmt.Fprintf(&b, "<link rel=\"canonical\" href=\"%s\">\n", html.EscapeString(p.PageURL))
	default:
		b.WriteString(p.Snippet)
		b.WriteString("\n")
	}
	return b.String()
}

func pageDir(pageURL string) string {
	name := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		name = u.Host + u.EscapedPath()
		if u.RawQuery != "" {
			name += "_" + u.RawQuery
		}
	}
	name = strings.Trim(unsafePathChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "page"
	}
	return name
}
