// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paperbot/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.HistoryConfig{DataDir: t.TempDir(), MaxEntries: 50})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	entries := []types.HistoryEntry{
		{ChatID: 7, Action: "draft_generated", Topic: "Climate change", Tags: []string{"climate", "agriculture"}},
		{ChatID: 7, Action: "rated", Topic: "Climate change", Rating: 4},
		{ChatID: 9, Action: "draft_generated", Topic: "Other chat"},
	}
	for _, e := range entries {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.List(ctx, 7, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Action != "draft_generated" || got[1].Action != "rated" {
		t.Errorf("order wrong: %q then %q", got[0].Action, got[1].Action)
	}
	if got[0].ChatID != 7 {
		t.Errorf("ChatID = %d", got[0].ChatID)
	}
	if len(got[0].Tags) != 2 || got[0].Tags[0] != "climate" {
		t.Errorf("Tags = %v", got[0].Tags)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("timestamp not filled")
	}
	if got[1].Rating != 4 {
		t.Errorf("Rating = %d", got[1].Rating)
	}
}

func TestListTagFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Append(ctx, types.HistoryEntry{ChatID: 1, Action: "draft_generated", Topic: "A", Tags: []string{"climate"}})
	s.Append(ctx, types.HistoryEntry{ChatID: 1, Action: "draft_generated", Topic: "B", Tags: []string{"economics"}})
	s.Append(ctx, types.HistoryEntry{ChatID: 1, Action: "draft_generated", Topic: "C", Tags: []string{"climate", "policy"}})

	got, err := s.List(ctx, 1, "climate")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Topic != "A" || got[1].Topic != "C" {
		t.Errorf("topics = %q, %q", got[0].Topic, got[1].Topic)
	}
}

func TestListMaxEntries(t *testing.T) {
	s, err := NewStore(types.HistoryConfig{DataDir: t.TempDir(), MaxEntries: 3})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Append(ctx, types.HistoryEntry{ChatID: 1, Action: "draft_generated"})
	}
	got, err := s.List(ctx, 1, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestAppendDraftSummary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := types.HistoryEntry{
		ChatID: 2,
		Action: "draft_generated",
		Topic:  "Quantum computing",
		Draft: &types.DraftSummary{
			ID:              "d1",
			Topic:           "Quantum computing",
			Format:          types.FormatMLA,
			LengthPages:     8,
			PlagiarismScore: 0.04,
			DocumentLink:    "https://drive.google.com/file/d/x/view",
			Filename:        "quantum-computing-abc123.md",
		},
	}
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.List(ctx, 2, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got[0].Draft == nil {
		t.Fatal("draft summary not round-tripped")
	}
	if got[0].Draft.Format != types.FormatMLA || got[0].Draft.PlagiarismScore != 0.04 {
		t.Errorf("draft = %+v", got[0].Draft)
	}
}

func TestAppendValidation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, types.HistoryEntry{Action: "x"}); err == nil {
		t.Error("expected error for missing chat id")
	}
	if err := s.Append(ctx, types.HistoryEntry{ChatID: 1}); err == nil {
		t.Error("expected error for missing action")
	}
}

func TestTopics(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, topic := range []string{"Alpha", "Beta", "Alpha", "Gamma"} {
		s.Append(ctx, types.HistoryEntry{ChatID: 3, Action: "draft_generated", Topic: topic})
	}
	s.Append(ctx, types.HistoryEntry{ChatID: 3, Action: "rated"})

	got, err := s.Topics(ctx, 3, 5)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("topics = %v", got)
	}
	if got[0] != "Gamma" {
		t.Errorf("newest first: got %v", got)
	}
}

func TestUpsertAndGetChat(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	missing, err := s.GetChat(ctx, 42)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown chat, got %+v", missing)
	}

	rec := types.ChatRecord{
		ChatID:        42,
		Role:          types.UserStudent,
		StudentID:     "s-100",
		Buffer:        "notes about the topic",
		Deadline:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		DocumentLinks: []string{"https://drive.google.com/a"},
		Shared:        true,
		PaymentStatus: "paid",
	}
	if err := s.UpsertChat(ctx, rec); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}

	got, err := s.GetChat(ctx, 42)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if got.Role != types.UserStudent || got.StudentID != "s-100" || !got.Shared {
		t.Errorf("chat = %+v", got)
	}
	if !got.Deadline.Equal(rec.Deadline) {
		t.Errorf("deadline = %v", got.Deadline)
	}
	if len(got.DocumentLinks) != 1 {
		t.Errorf("links = %v", got.DocumentLinks)
	}

	// Second upsert replaces the row, not duplicates it.
	rec.PaymentStatus = "refunded"
	if err := s.UpsertChat(ctx, rec); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}
	got, _ = s.GetChat(ctx, 42)
	if got.PaymentStatus != "refunded" {
		t.Errorf("PaymentStatus = %q", got.PaymentStatus)
	}
}

func TestSetRoleAndAddDocumentLink(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SetRole(ctx, 5, types.UserTutor); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if err := s.AddDocumentLink(ctx, 5, "https://drive.google.com/one"); err != nil {
		t.Fatalf("AddDocumentLink: %v", err)
	}
	if err := s.AddDocumentLink(ctx, 5, "https://drive.google.com/two"); err != nil {
		t.Fatalf("AddDocumentLink: %v", err)
	}
	if err := s.AddDocumentLink(ctx, 5, ""); err != nil {
		t.Fatalf("AddDocumentLink empty: %v", err)
	}

	got, err := s.GetChat(ctx, 5)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if got.Role != types.UserTutor {
		t.Errorf("Role = %q", got.Role)
	}
	if len(got.DocumentLinks) != 2 {
		t.Errorf("links = %v", got.DocumentLinks)
	}
}

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.SetRole(ctx, 8, types.UserStudent)
	s.Append(ctx, types.HistoryEntry{ChatID: 8, Action: "draft_generated", Topic: "Soil health", Tags: []string{"agronomy"}})

	var b strings.Builder
	if err := s.ExportYAML(ctx, 8, &b); err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	out := b.String()
	for _, part := range []string{"chat:", "entries:", "Soil health", "agronomy", "student"} {
		if !strings.Contains(out, part) {
			t.Errorf("export missing %q:\n%s", part, out)
		}
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := types.HistoryConfig{DataDir: dir, MaxEntries: 50}
	ctx := context.Background()

	s, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Append(ctx, types.HistoryEntry{ChatID: 1, Action: "draft_generated", Topic: "Persisted"})
	s.Close()

	s2, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.List(ctx, 1, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Topic != "Persisted" {
		t.Errorf("entries after reopen = %+v", got)
	}
}
