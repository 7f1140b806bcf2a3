// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds the ephemeral per-chat conversation state: which
// phase the dialogue is in, what the user has typed so far, candidate
// sources and approvals, and the draft in flight. Sessions live in memory
// with a TTL; expiry is equivalent to /cancel. Durable facts go to the
// history store instead.
package session

import (
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/paperbot/pkg/types"
)

// Phase is where a chat's dialogue currently stands.
type Phase string

const (
	PhaseIdle                   Phase = "idle"
	PhaseCollecting             Phase = "collecting"
	PhaseAwaitingConfirmation   Phase = "awaiting_confirmation"
	PhaseProcessingSources      Phase = "processing_sources"
	PhaseAwaitingSourceApproval Phase = "awaiting_source_approval"
	PhaseDrafting               Phase = "drafting"
	PhaseAwaitingFeedback       Phase = "awaiting_feedback"
)

// Waiting marks that the next plain-text message is an answer to a direct
// question, routed before any phase handling.
type Waiting string

const (
	WaitNone         Waiting = ""
	WaitRevisionText Waiting = "revision_text"
	WaitCommentText  Waiting = "comment_text"
)

// Session is the mutable state of one chat. All methods are safe for
// concurrent use; reads of compound state go through Snapshot.
type Session struct {
	mu sync.Mutex

	chatID     int64
	phase      Phase
	waitingFor Waiting
	role       types.UserType
	inputs     []string
	intake     types.Intake
	keywords   []string
	sources    []types.SourceRecord
	approved   map[int]bool
	draft      *types.Draft
	pending    string
	retries    int

	// generation invalidates async work started for an earlier state of
	// this chat. It bumps on reset, so results from cancelled pipelines
	// are discarded instead of applied.
	generation uint64
}

// Snapshot is a consistent copy of a session's state for read-side use.
type Snapshot struct {
	ChatID     int64
	Phase      Phase
	WaitingFor Waiting
	Role       types.UserType
	Inputs     []string
	Intake     types.Intake
	Keywords   []string
	Sources    []types.SourceRecord
	Approved   []int
	Draft      *types.Draft
	Retries    int
	Generation uint64
}

func newSession(chatID int64) *Session {
	return &Session{
		chatID:   chatID,
		phase:    PhaseIdle,
		approved: map[int]bool{},
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ChatID:     s.chatID,
		Phase:      s.phase,
		WaitingFor: s.waitingFor,
		Role:       s.role,
		Inputs:     append([]string(nil), s.inputs...),
		Intake:     s.intake,
		Keywords:   append([]string(nil), s.keywords...),
		Sources:    append([]types.SourceRecord(nil), s.sources...),
		Draft:      s.draft,
		Retries:    s.retries,
		Generation: s.generation,
	}
	for i := range s.sources {
		if s.approved[i] {
			snap.Approved = append(snap.Approved, i)
		}
	}
	return snap
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPhase moves the dialogue to phase.
func (s *Session) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

// SetPhaseIf moves the dialogue to phase only when gen is still current,
// so async work cannot move a session that was reset under it. Returns
// whether the move happened.
func (s *Session) SetPhaseIf(gen uint64, p Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.phase = p
	return true
}

// WaitingFor returns the pending direct-question marker.
func (s *Session) WaitingFor() Waiting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingFor
}

// SetWaitingFor marks (or clears, with WaitNone) the direct question the
// next text message answers.
func (s *Session) SetWaitingFor(w Waiting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitingFor = w
}

// Generation returns the token async work must present when reporting back.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Reset returns the session to idle and invalidates in-flight work. The
// selected role survives; everything else is cleared.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseIdle
	s.waitingFor = WaitNone
	s.inputs = nil
	s.intake = types.Intake{}
	s.keywords = nil
	s.sources = nil
	s.approved = map[int]bool{}
	s.draft = nil
	s.pending = ""
	s.retries = 0
	s.generation++
}

// Role returns the selected user role.
func (s *Session) Role() types.UserType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// SetRole records the role chosen on /start.
func (s *Session) SetRole(r types.UserType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = r
}

// AppendInput adds one piece of collected intake text (typed, OCR'd, or
// transcribed) and returns how many pieces are buffered.
func (s *Session) AppendInput(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, text)
	return len(s.inputs)
}

// ClearInputs drops the collected intake text once it has been consumed.
func (s *Session) ClearInputs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = nil
}

// Inputs returns the collected intake text in arrival order.
func (s *Session) Inputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inputs...)
}

// SetIntake stores the parsed intake derived from the collected inputs.
func (s *Session) SetIntake(in types.Intake) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intake = in
}

// Intake returns the parsed intake.
func (s *Session) Intake() types.Intake {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intake
}

// SetKeywords stores the generated search keywords.
func (s *Session) SetKeywords(kw []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = append([]string(nil), kw...)
}

// Keywords returns the generated search keywords.
func (s *Session) Keywords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keywords...)
}

// RecordSources stores the candidate list for approval and clears prior
// approvals. It is a no-op returning false when gen is stale, so a search
// finishing after /cancel cannot resurrect the session.
func (s *Session) RecordSources(gen uint64, sources []types.SourceRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.sources = append([]types.SourceRecord(nil), sources...)
	s.approved = map[int]bool{}
	s.phase = PhaseAwaitingSourceApproval
	return true
}

// Sources returns the candidate list.
func (s *Session) Sources() []types.SourceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.SourceRecord(nil), s.sources...)
}

// ApproveSource marks candidate i approved. Out-of-range indices are
// ignored; a stale button from a superseded list must not corrupt state.
func (s *Session) ApproveSource(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.sources) {
		return
	}
	s.approved[i] = true
}

// ApproveAll marks every candidate approved.
func (s *Session) ApproveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sources {
		s.approved[i] = true
	}
}

// Approved returns the approved sources in candidate order.
func (s *Session) Approved() []types.SourceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.SourceRecord
	for i, src := range s.sources {
		if s.approved[i] {
			out = append(out, src)
		}
	}
	return out
}

// RecordDraft stores the generated draft and moves to feedback. It is a
// no-op returning false when gen is stale.
func (s *Session) RecordDraft(gen uint64, d *types.Draft) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.draft = d
	s.phase = PhaseAwaitingFeedback
	return true
}

// Draft returns the draft in flight, nil when there is none.
func (s *Session) Draft() *types.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetPendingRevision stores a revised draft awaiting the user's
// apply-or-discard decision.
func (s *Session) SetPendingRevision(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = text
}

// TakePendingRevision returns the pending revision and clears it. Empty
// means none is pending.
func (s *Session) TakePendingRevision() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = ""
	return p
}

// Retries returns how many plagiarism-triggered regenerations have run.
func (s *Session) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// IncRetries bumps the regeneration counter and returns the new value.
func (s *Session) IncRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
	return s.retries
}

// ResetRetries clears the regeneration counter for a fresh pipeline run.
func (s *Session) ResetRetries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = 0
}

// Store keeps sessions keyed by chat id, expiring idle ones after the TTL.
type Store struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewStore builds a session store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{cache: gocache.New(ttl, 10*time.Minute)}
}

// Get returns the chat's session, creating an idle one if absent or
// expired. Each access refreshes the TTL.
func (st *Store) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := strconv.FormatInt(chatID, 10)
	if v, ok := st.cache.Get(key); ok {
		s := v.(*Session)
		st.cache.SetDefault(key, s)
		return s
	}
	s := newSession(chatID)
	st.cache.SetDefault(key, s)
	return s
}
