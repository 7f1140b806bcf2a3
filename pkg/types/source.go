// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paperbot pipeline:
// candidate sources, drafts, history entries, intake requests, and the
// configuration structs for every stage.
package types

// SourceRecord represents a candidate source returned by an academic API
// query. DOI is the deduplication key when present, otherwise the title.
type SourceRecord struct {
	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// DOI is the Digital Object Identifier, e.g. "10.1145/1234567.1234568".
	DOI string `json:"doi" yaml:"doi"`

	// Abstract is the paper abstract or summary, possibly empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// URL points at the source landing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// CitationKey is the external reference-manager key assigned on import,
	// empty until the source is imported.
	CitationKey string `json:"citation_key,omitempty" yaml:"citation_key,omitempty"`

	// Backend identifies which search backend found this record
	// (e.g. "semantic_scholar", "crossref").
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// UserType classifies who the bot is talking to. Set once per chat via the
// mode-selection keyboard; guest until chosen.
type UserType string

const (
	UserStudent UserType = "student"
	UserTutor   UserType = "tutor"
	UserMixed   UserType = "mixed"
	UserGuest   UserType = "guest"
)

// Valid reports whether t is one of the selectable user types.
func (t UserType) Valid() bool {
	switch t {
	case UserStudent, UserTutor, UserMixed, UserGuest:
		return true
	}
	return false
}
