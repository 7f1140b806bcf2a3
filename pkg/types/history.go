// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HistoryEntry is one durable record in a chat's append-only history.
// Past entries are never mutated in place.
type HistoryEntry struct {
	// ChatID keys the entry to its conversation.
	ChatID int64 `json:"chat_id" yaml:"chat_id"`

	// Action names what happened: "mode_selected", "draft_generated",
	// "feedback", "revision_requested", and so on.
	Action string `json:"action" yaml:"action"`

	// Topic is the research topic the action relates to, if any.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	// Tags label the entry for later filtering.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Draft carries the draft summary for drafting-related entries.
	Draft *DraftSummary `json:"draft,omitempty" yaml:"draft,omitempty"`

	// Rating is a 1-5 feedback rating, 0 when the entry is not feedback.
	Rating int `json:"rating,omitempty" yaml:"rating,omitempty"`

	// Comment is free-text feedback attached to low ratings.
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// ChatRecord is the durable per-chat row: role, identifiers, and the
// document bookkeeping that outlives the in-memory session.
type ChatRecord struct {
	ChatID        int64     `json:"chat_id" yaml:"chat_id"`
	Role          UserType  `json:"role" yaml:"role"`
	StudentID     string    `json:"student_id,omitempty" yaml:"student_id,omitempty"`
	Buffer        string    `json:"buffer,omitempty" yaml:"buffer,omitempty"`
	Deadline      time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	FolderID      string    `json:"folder_id,omitempty" yaml:"folder_id,omitempty"`
	DocumentLinks []string  `json:"document_links,omitempty" yaml:"document_links,omitempty"`
	Shared        bool      `json:"shared" yaml:"shared"`
	PaymentStatus string    `json:"payment_status,omitempty" yaml:"payment_status,omitempty"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}
