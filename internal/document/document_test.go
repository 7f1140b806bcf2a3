// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paperbot/pkg/types"
)

var twoAuthors = types.SourceRecord{
	Title:   "Climate adaptation in smallholder farming",
	Authors: []string{"Jane Doe", "Alex Smith"},
	Year:    2022,
	DOI:     "10.1016/j.agsy.2021.103123",
}

func TestFormatBibliographyAPA(t *testing.T) {
	got := FormatBibliography([]types.SourceRecord{twoAuthors}, types.FormatAPA)
	want := "Doe, J., & Smith, A. (2022). Climate adaptation in smallholder farming. https://doi.org/10.1016/j.agsy.2021.103123"
	if got != want {
		t.Errorf("APA entry:\ngot  %q\nwant %q", got, want)
	}
}

func TestFormatBibliographyMLA(t *testing.T) {
	got := FormatBibliography([]types.SourceRecord{twoAuthors}, types.FormatMLA)
	for _, part := range []string{"Doe, Jane, and Alex Smith.", `"Climate adaptation in smallholder farming."`, "2022", "doi:10.1016/j.agsy.2021.103123"} {
		if !strings.Contains(got, part) {
			t.Errorf("MLA entry %q missing %q", got, part)
		}
	}
}

func TestFormatBibliographyChicago(t *testing.T) {
	got := FormatBibliography([]types.SourceRecord{twoAuthors}, types.FormatChicago)
	for _, part := range []string{"Doe, Jane, and Alex Smith.", "2022.", `"Climate adaptation in smallholder farming."`, "https://doi.org/10.1016"} {
		if !strings.Contains(got, part) {
			t.Errorf("Chicago entry %q missing %q", got, part)
		}
	}
}

func TestFormatBibliographyOnePerLine(t *testing.T) {
	sources := []types.SourceRecord{
		{Title: "First", Year: 2021, DOI: "10.1/a"},
		{Title: "Second", Year: 2022, DOI: "10.2/b"},
	}
	got := FormatBibliography(sources, types.FormatAPA)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2\n%s", len(lines), got)
	}
	if !strings.Contains(lines[0], "First") || !strings.Contains(lines[1], "Second") {
		t.Errorf("order not preserved:\n%s", got)
	}
}

func TestBuildWritesDocument(t *testing.T) {
	dir := t.TempDir()
	draft := types.Draft{
		Topic:        "Climate change impacts on agriculture",
		Content:      "## Introduction\n\nRising temperatures [1]...",
		Format:       types.FormatAPA,
		LengthPages:  5,
		Bibliography: "Doe, J. (2022). A source.",
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	built, err := Build(dir, draft)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.HasPrefix(built.Filename, "climate-change-impacts-on-agriculture") {
		t.Errorf("filename = %q", built.Filename)
	}
	if !strings.HasSuffix(built.Filename, ".md") {
		t.Errorf("filename = %q", built.Filename)
	}

	data, err := os.ReadFile(built.Path)
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}
	text := string(data)
	for _, part := range []string{
		"# Climate change impacts on agriculture",
		"APA style, ~5 pages",
		"Rising temperatures [1]",
		"## References",
		"Doe, J. (2022). A source.",
	} {
		if !strings.Contains(text, part) {
			t.Errorf("document missing %q", part)
		}
	}
}

func TestBuildUniqueFilenames(t *testing.T) {
	dir := t.TempDir()
	draft := types.Draft{Topic: "Same topic", Content: "x"}

	a, err := Build(dir, draft)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := Build(dir, draft)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a.Filename == b.Filename {
		t.Errorf("filenames collide: %q", a.Filename)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Climate Change!", "climate-change"},
		{"  ", "paper"},
		{"非ラテン文字", "paper"},
	}
	for _, tt := range tests {
		got := slug(tt.in)
		if got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := slug(strings.Repeat("long ", 20))
	if len(long) > 40 {
		t.Errorf("slug too long: %q", long)
	}
}
