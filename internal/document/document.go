// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document assembles the final deliverable: a formatted
// bibliography in the requested citation style appended to the draft text,
// written as a Markdown document on disk.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/paperbot/pkg/types"
)

// Built describes a document written to disk.
type Built struct {
	Filename string
	Path     string
}

// Build writes the draft and its bibliography as a Markdown document under
// outputDir. The filename is a slug of the topic plus a short unique
// suffix, so repeated drafts of one topic never collide.
func Build(outputDir string, draft types.Draft) (Built, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Built{}, fmt.Errorf("creating output directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.md", slug(draft.Topic), uuid.NewString()[:8])
	path := filepath.Join(outputDir, filename)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", draft.Topic)
	fmt.Fprintf(&b, "*Generated %s — %s style, ~%d pages*\n\n",
		draft.CreatedAt.Format("2006-01-02"), draft.Format, draft.LengthPages)
	b.WriteString(draft.Content)
	if draft.Bibliography != "" {
		b.WriteString("\n\n## References\n\n")
		b.WriteString(draft.Bibliography)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return Built{}, fmt.Errorf("writing document: %w", err)
	}
	return Built{Filename: filename, Path: path}, nil
}

// slug returns a filesystem-safe stem derived from the topic.
func slug(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(topic)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		s = "paper"
	}
	return s
}

// FormatBibliography renders the source list in the requested citation
// style, one entry per line in source order.
func FormatBibliography(sources []types.SourceRecord, format types.CitationFormat) string {
	var b strings.Builder
	for i, s := range sources {
		switch format {
		case types.FormatMLA:
			b.WriteString(mlaEntry(s))
		case types.FormatChicago:
			b.WriteString(chicagoEntry(s))
		default:
			b.WriteString(apaEntry(s))
		}
		if i < len(sources)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// apaEntry renders: Doe, J., & Smith, A. (2022). Title. https://doi.org/...
func apaEntry(s types.SourceRecord) string {
	var b strings.Builder
	b.WriteString(joinAuthors(s.Authors, apaName, ", ", ", & "))
	if s.Year > 0 {
		fmt.Fprintf(&b, " (%d).", s.Year)
	}
	fmt.Fprintf(&b, " %s.", s.Title)
	if s.DOI != "" {
		fmt.Fprintf(&b, " https://doi.org/%s", s.DOI)
	}
	return strings.TrimSpace(b.String())
}

// mlaEntry renders: Doe, Jane, and Alex Smith. "Title." 2022, doi:...
func mlaEntry(s types.SourceRecord) string {
	var b strings.Builder
	if len(s.Authors) > 0 {
		b.WriteString(mlaName(s.Authors[0]))
		if len(s.Authors) == 2 {
			b.WriteString(", and " + s.Authors[1])
		} else if len(s.Authors) > 2 {
			b.WriteString(", et al")
		}
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "%q", s.Title+".")
	if s.Year > 0 {
		fmt.Fprintf(&b, " %d", s.Year)
	}
	if s.DOI != "" {
		fmt.Fprintf(&b, ", doi:%s", s.DOI)
	}
	b.WriteString(".")
	return strings.TrimSpace(b.String())
}

// chicagoEntry renders: Doe, Jane, and Alex Smith. 2022. "Title." https://doi.org/...
func chicagoEntry(s types.SourceRecord) string {
	var b strings.Builder
	if len(s.Authors) > 0 {
		b.WriteString(mlaName(s.Authors[0]))
		for _, a := range s.Authors[1:] {
			b.WriteString(", and " + a)
		}
		b.WriteString(". ")
	}
	if s.Year > 0 {
		fmt.Fprintf(&b, "%d. ", s.Year)
	}
	fmt.Fprintf(&b, "%q", s.Title+".")
	if s.DOI != "" {
		fmt.Fprintf(&b, " https://doi.org/%s", s.DOI)
	}
	return strings.TrimSpace(b.String())
}

// apaName renders "Jane Doe" as "Doe, J.". Single-token names pass through.
func apaName(name string) string {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name
	}
	given := name[:idx]
	family := name[idx+1:]
	var initials strings.Builder
	for _, part := range strings.Fields(given) {
		initials.WriteString(string([]rune(part)[0]) + ".")
		initials.WriteString(" ")
	}
	return family + ", " + strings.TrimSpace(initials.String())
}

// mlaName renders "Jane Doe" as "Doe, Jane". Single-token names pass through.
func mlaName(name string) string {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name
	}
	return name[idx+1:] + ", " + name[:idx]
}

// joinAuthors renders every author through render, joining with sep and
// using lastSep before the final author.
func joinAuthors(authors []string, render func(string) string, sep, lastSep string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return render(authors[0])
	}
	parts := make([]string, len(authors))
	for i, a := range authors {
		parts[i] = render(a)
	}
	return strings.Join(parts[:len(parts)-1], sep) + lastSep + parts[len(parts)-1]
}
