// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"testing"
	"time"

	"github.com/pdiddy/paperbot/pkg/types"
)

func TestStoreGetCreatesIdle(t *testing.T) {
	st := NewStore(time.Hour)
	s := st.Get(1)
	if s.Phase() != PhaseIdle {
		t.Errorf("phase = %q", s.Phase())
	}
	if st.Get(1) != s {
		t.Error("second Get returned a different session")
	}
	if st.Get(2) == s {
		t.Error("distinct chats share a session")
	}
}

func TestResetClearsEverythingButRole(t *testing.T) {
	st := NewStore(time.Hour)
	s := st.Get(1)

	s.SetRole(types.UserStudent)
	s.SetPhase(PhaseCollecting)
	s.SetWaitingFor(WaitRevisionText)
	s.AppendInput("topic text")
	s.SetKeywords([]string{"kw"})
	gen := s.Generation()
	s.RecordSources(gen, []types.SourceRecord{{Title: "A"}})
	s.ApproveAll()
	s.IncRetries()

	s.Reset()

	if s.Phase() != PhaseIdle || s.WaitingFor() != WaitNone {
		t.Errorf("phase/waiting = %q/%q", s.Phase(), s.WaitingFor())
	}
	if len(s.Inputs()) != 0 || len(s.Keywords()) != 0 || len(s.Sources()) != 0 {
		t.Error("collected state survived reset")
	}
	if len(s.Approved()) != 0 || s.Retries() != 0 || s.Draft() != nil {
		t.Error("pipeline state survived reset")
	}
	if s.Role() != types.UserStudent {
		t.Errorf("role = %q, want preserved", s.Role())
	}
}

func TestStaleGenerationDiscarded(t *testing.T) {
	s := newSession(1)
	gen := s.Generation()

	s.Reset() // user cancelled while search was in flight

	if s.RecordSources(gen, []types.SourceRecord{{Title: "late"}}) {
		t.Error("stale RecordSources applied")
	}
	if len(s.Sources()) != 0 || s.Phase() != PhaseIdle {
		t.Error("stale results mutated the session")
	}
	if s.RecordDraft(gen, &types.Draft{ID: "late"}) {
		t.Error("stale RecordDraft applied")
	}
	if s.Draft() != nil {
		t.Error("stale draft stored")
	}
}

func TestSetPhaseIfRejectsStaleGeneration(t *testing.T) {
	s := newSession(1)
	gen := s.Generation()

	s.Reset() // cancel raced the failure handler

	if s.SetPhaseIf(gen, PhaseAwaitingConfirmation) {
		t.Error("stale SetPhaseIf applied")
	}
	if s.Phase() != PhaseIdle {
		t.Errorf("phase = %q", s.Phase())
	}
	if !s.SetPhaseIf(s.Generation(), PhaseCollecting) {
		t.Error("current SetPhaseIf rejected")
	}
	if s.Phase() != PhaseCollecting {
		t.Errorf("phase = %q", s.Phase())
	}
}

func TestRecordSourcesResetsApprovals(t *testing.T) {
	s := newSession(1)
	gen := s.Generation()

	if !s.RecordSources(gen, []types.SourceRecord{{Title: "A"}, {Title: "B"}}) {
		t.Fatal("RecordSources rejected current generation")
	}
	if s.Phase() != PhaseAwaitingSourceApproval {
		t.Errorf("phase = %q", s.Phase())
	}
	s.ApproveSource(0)

	s.RecordSources(gen, []types.SourceRecord{{Title: "C"}})
	if got := s.Approved(); len(got) != 0 {
		t.Errorf("approvals survived a new candidate list: %v", got)
	}
}

func TestApproveSourceOutOfRange(t *testing.T) {
	s := newSession(1)
	s.RecordSources(s.Generation(), []types.SourceRecord{{Title: "A"}})

	s.ApproveSource(-1)
	s.ApproveSource(5)
	if got := s.Approved(); len(got) != 0 {
		t.Errorf("out-of-range approvals took effect: %v", got)
	}

	s.ApproveSource(0)
	s.ApproveSource(0) // repeat press is idempotent
	if got := s.Approved(); len(got) != 1 || got[0].Title != "A" {
		t.Errorf("approved = %v", got)
	}
}

func TestApprovedPreservesCandidateOrder(t *testing.T) {
	s := newSession(1)
	s.RecordSources(s.Generation(), []types.SourceRecord{
		{Title: "first"}, {Title: "second"}, {Title: "third"},
	})
	s.ApproveSource(2)
	s.ApproveSource(0)

	got := s.Approved()
	if len(got) != 2 || got[0].Title != "first" || got[1].Title != "third" {
		t.Errorf("approved = %v", got)
	}

	s.ApproveAll()
	if got := s.Approved(); len(got) != 3 {
		t.Errorf("ApproveAll approved %d", len(got))
	}
}

func TestRecordDraft(t *testing.T) {
	s := newSession(1)
	gen := s.Generation()

	d := &types.Draft{ID: "d1", Topic: "T"}
	if !s.RecordDraft(gen, d) {
		t.Fatal("RecordDraft rejected current generation")
	}
	if s.Phase() != PhaseAwaitingFeedback {
		t.Errorf("phase = %q", s.Phase())
	}
	if s.Draft() != d {
		t.Error("draft not stored")
	}
}

func TestRetriesCounter(t *testing.T) {
	s := newSession(1)
	if s.IncRetries() != 1 || s.IncRetries() != 2 {
		t.Error("IncRetries not sequential")
	}
	s.ResetRetries()
	if s.Retries() != 0 {
		t.Errorf("Retries = %d after reset", s.Retries())
	}
}

func TestAppendInputCounts(t *testing.T) {
	s := newSession(1)
	if n := s.AppendInput("one"); n != 1 {
		t.Errorf("n = %d", n)
	}
	if n := s.AppendInput("two"); n != 2 {
		t.Errorf("n = %d", n)
	}
	in := s.Inputs()
	if len(in) != 2 || in[0] != "one" {
		t.Errorf("inputs = %v", in)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := newSession(7)
	s.SetRole(types.UserTutor)
	s.AppendInput("text")
	s.RecordSources(s.Generation(), []types.SourceRecord{{Title: "A"}, {Title: "B"}})
	s.ApproveSource(1)

	snap := s.Snapshot()
	if snap.ChatID != 7 || snap.Role != types.UserTutor {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Approved) != 1 || snap.Approved[0] != 1 {
		t.Errorf("approved = %v", snap.Approved)
	}

	snap.Sources[0].Title = "mutated"
	if s.Sources()[0].Title != "A" {
		t.Error("snapshot aliases session state")
	}
}
