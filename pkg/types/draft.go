// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CitationFormat selects the citation and bibliography style.
type CitationFormat string

const (
	FormatAPA     CitationFormat = "APA"
	FormatMLA     CitationFormat = "MLA"
	FormatChicago CitationFormat = "Chicago"
)

// Valid reports whether f is a supported citation format.
func (f CitationFormat) Valid() bool {
	switch f {
	case FormatAPA, FormatMLA, FormatChicago:
		return true
	}
	return false
}

// Draft is a generated paper draft as produced by the drafting pipeline.
type Draft struct {
	// ID uniquely identifies the draft within the process (UUID).
	ID string `json:"id" yaml:"id"`

	// Topic is the confirmed research topic the draft was generated for.
	Topic string `json:"topic" yaml:"topic"`

	// Content is the full draft text with inline citations.
	Content string `json:"content" yaml:"content"`

	// Format is the citation style used for inline citations and the bibliography.
	Format CitationFormat `json:"format" yaml:"format"`

	// LengthPages is the requested length in pages.
	LengthPages int `json:"length_pages" yaml:"length_pages"`

	// Sources lists the approved sources the draft cites.
	Sources []SourceRecord `json:"sources" yaml:"sources"`

	// PlagiarismScore is the checker's score in [0, 1]; lower is better.
	PlagiarismScore float64 `json:"plagiarism_score" yaml:"plagiarism_score"`

	// Bibliography is the formatted reference list appended to the document.
	Bibliography string `json:"bibliography,omitempty" yaml:"bibliography,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// DraftSummary is the compact record of the most recently produced draft,
// kept on the session and persisted with history entries.
type DraftSummary struct {
	ID              string         `json:"id" yaml:"id"`
	Topic           string         `json:"topic" yaml:"topic"`
	Format          CitationFormat `json:"format" yaml:"format"`
	LengthPages     int            `json:"length_pages" yaml:"length_pages"`
	PlagiarismScore float64        `json:"plagiarism_score" yaml:"plagiarism_score"`
	DocumentLink    string         `json:"document_link,omitempty" yaml:"document_link,omitempty"`
	Filename        string         `json:"filename,omitempty" yaml:"filename,omitempty"`
}
