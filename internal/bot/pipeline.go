// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paperbot/internal/document"
	"github.com/pdiddy/paperbot/internal/llm"
	"github.com/pdiddy/paperbot/internal/session"
	"github.com/pdiddy/paperbot/internal/telegram"
	"github.com/pdiddy/paperbot/pkg/types"
)

// runSourceSearch generates keywords and fans out the academic search.
// gen pins the results to the dialogue state that requested them: if the
// user cancels while the search is in flight, the results are dropped.
func (b *Bot) runSourceSearch(ctx context.Context, s *session.Session, chatID int64, gen uint64) {
	intake := s.Intake()

	prior, err := b.history.Topics(ctx, chatID, 5)
	if err != nil {
		b.log.Warn("prior topics lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	keywords := llm.GenerateKeywords(ctx, b.completer, intake.Topic, prior)
	s.SetKeywords(keywords)
	b.log.Info("keywords generated", zap.Int64("chat_id", chatID), zap.Strings("keywords", keywords))

	out, err := b.searcher.Search(ctx, keywords)
	if s.Generation() != gen {
		b.log.Info("search results discarded, session superseded", zap.Int64("chat_id", chatID))
		return
	}
	if err != nil {
		b.log.Error("source search failed", zap.Int64("chat_id", chatID), zap.Error(err))
		if !s.SetPhaseIf(gen, session.PhaseAwaitingConfirmation) {
			return
		}
		b.send(ctx, telegram.OutgoingMessage{
			ChatID:   chatID,
			Text:     "The academic search services are unavailable right now. Try processing again in a minute.",
			Keyboard: confirmKeyboard(),
		})
		b.alertOperator(ctx, chatID, fmt.Sprintf("source search failed: %v", err))
		return
	}
	if len(out.Results) == 0 {
		if !s.SetPhaseIf(gen, session.PhaseAwaitingConfirmation) {
			return
		}
		b.send(ctx, telegram.OutgoingMessage{
			ChatID:   chatID,
			Text:     "I couldn't find recent sources for that topic. Add detail or rephrase, then process again.",
			Keyboard: confirmKeyboard(),
		})
		return
	}

	if !s.RecordSources(gen, out.Results) {
		return
	}

	text := fmt.Sprintf("I found %d candidate source(s):\n\n%s\n\nApprove the ones to cite.", len(out.Results), formatSourceList(out.Results))
	if len(out.BackendErrors) > 0 {
		text += fmt.Sprintf("\n\nNote: %d search backend(s) did not respond, so the list may be shorter than usual.", len(out.BackendErrors))
	}
	b.send(ctx, telegram.OutgoingMessage{ChatID: chatID, Text: text, Keyboard: sourceKeyboard(len(out.Results))})
}

// runDraft generates the draft, gates it on the originality check, builds
// and uploads the document, and delivers it with a rating keyboard.
func (b *Bot) runDraft(ctx context.Context, s *session.Session, chatID int64, gen uint64) {
	intake := s.Intake()
	sources := s.Approved()

	maxRetries := b.cfg.Bot.DraftMaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	threshold := b.plagiarismThreshold()

	var content string
	var score float64
	scoreKnown := false
	manualReview := false
	note := ""

	for {
		system, user, err := llm.DraftPrompt(intake.Topic, sources, intake.Format, intake.LengthPages, note)
		if err != nil {
			b.failDraft(ctx, s, chatID, gen, fmt.Errorf("building draft prompt: %w", err))
			return
		}
		content, err = b.completer.Complete(ctx, system, user)
		if s.Generation() != gen {
			return
		}
		if err != nil {
			b.failDraft(ctx, s, chatID, gen, fmt.Errorf("draft generation: %w", err))
			return
		}

		score, err = b.plagiarism.CheckPlagiarism(ctx, content)
		if s.Generation() != gen {
			return
		}
		if err != nil {
			// The draft is still usable; deliver it with the check marked
			// unverified rather than discarding the work.
			b.log.Warn("plagiarism check failed", zap.Int64("chat_id", chatID), zap.Error(err))
			scoreKnown = false
			break
		}
		scoreKnown = true

		if score <= threshold {
			break
		}
		if s.IncRetries() > maxRetries {
			manualReview = true
			break
		}
		b.log.Info("regenerating draft over originality threshold",
			zap.Int64("chat_id", chatID), zap.Float64("score", score), zap.Int("attempt", s.Retries()))
		note = fmt.Sprintf("A previous attempt scored %.0f%% on an originality check. Rephrase substantially in your own words; do not quote sources at length.", score*100)
	}

	draft := types.Draft{
		ID:           uuid.NewString()[:8],
		Topic:        intake.Topic,
		Content:      content,
		Format:       intake.Format,
		LengthPages:  intake.LengthPages,
		Sources:      sources,
		Bibliography: document.FormatBibliography(sources, intake.Format),
		CreatedAt:    time.Now().UTC(),
	}
	if scoreKnown {
		draft.PlagiarismScore = score
	}

	b.deliverDraft(ctx, s, chatID, gen, &draft, deliveryNote(scoreKnown, manualReview, score, threshold))
}

func (b *Bot) plagiarismThreshold() float64 {
	if t := b.cfg.Bot.PlagiarismThreshold; t > 0 {
		return t
	}
	return 0.10
}

// deliveryNote phrases the originality outcome for the caption.
func deliveryNote(scoreKnown, manualReview bool, score, threshold float64) string {
	switch {
	case manualReview:
		return fmt.Sprintf("Originality check stayed at %.0f%% after repeated rewrites; please review the draft manually before submitting.", score*100)
	case !scoreKnown:
		return "The originality check was unavailable, so this draft is unverified."
	case score > threshold:
		return fmt.Sprintf("Originality check flagged %.0f%% similarity; please review the draft manually before submitting.", score*100)
	default:
		return fmt.Sprintf("Originality check passed (%.0f%% similarity).", score*100)
	}
}

// deliverDraft builds the document, uploads it, imports citations, records
// history, and hands the file to the user.
func (b *Bot) deliverDraft(ctx context.Context, s *session.Session, chatID int64, gen uint64, draft *types.Draft, note string) {
	built, err := document.Build(b.cfg.Bot.OutputDir, *draft)
	if err != nil {
		b.failDraft(ctx, s, chatID, gen, fmt.Errorf("building document: %w", err))
		return
	}

	link := ""
	if b.uploader.Configured() {
		f, err := os.Open(built.Path)
		if err == nil {
			link, err = b.uploader.Upload(ctx, built.Filename, f)
			f.Close()
		}
		if err != nil {
			b.log.Warn("upload failed, document stays local", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}

	if b.citations.Configured() {
		for _, src := range draft.Sources {
			if _, err := b.citations.ImportCitation(ctx, src); err != nil {
				b.log.Warn("citation import failed", zap.String("doi", src.DOI), zap.Error(err))
			}
		}
	}

	if !s.RecordDraft(gen, draft) {
		// Cancelled while building; keep the file on disk but say nothing.
		b.log.Info("draft discarded, session superseded", zap.Int64("chat_id", chatID))
		return
	}

	intake := s.Intake()
	tags := intake.Tags
	if len(tags) == 0 {
		kw := s.Keywords()
		if len(kw) > 3 {
			kw = kw[:3]
		}
		tags = kw
	}
	summary := draftSummary(draft)
	summary.DocumentLink = link
	summary.Filename = built.Filename
	if err := b.history.Append(ctx, types.HistoryEntry{
		ChatID: chatID,
		Action: "draft_generated",
		Topic:  draft.Topic,
		Tags:   tags,
		Draft:  summary,
	}); err != nil {
		b.log.Warn("recording draft failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	if link != "" {
		if err := b.history.AddDocumentLink(ctx, chatID, link); err != nil {
			b.log.Warn("recording document link failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}

	caption := note
	if link != "" {
		caption += "\nOnline copy: " + link
	}
	f, err := os.Open(built.Path)
	if err != nil {
		b.failDraft(ctx, s, chatID, gen, fmt.Errorf("reading built document: %w", err))
		return
	}
	sendErr := b.transport.SendDocument(ctx, chatID, built.Filename, f, caption)
	f.Close()
	if sendErr != nil {
		b.log.Warn("document delivery failed", zap.Int64("chat_id", chatID), zap.Error(sendErr))
		fallback := "Your draft is ready but the file upload to the chat failed."
		if link != "" {
			fallback += " You can still open it here: " + link
		}
		b.reply(ctx, chatID, fallback)
	}

	b.send(ctx, telegram.OutgoingMessage{
		ChatID:   chatID,
		Text:     "How did I do? Rate the draft, or use /revise to request changes.",
		Keyboard: ratingKeyboard(draft.ID),
	})
}

// failDraft reports a pipeline failure and returns the chat to source
// approval so the user can retry without redoing the search.
func (b *Bot) failDraft(ctx context.Context, s *session.Session, chatID int64, gen uint64, err error) {
	b.log.Error("draft pipeline failed", zap.Int64("chat_id", chatID), zap.Error(err))
	if !s.SetPhaseIf(gen, session.PhaseAwaitingSourceApproval) {
		return
	}
	b.reply(ctx, chatID, "Something went wrong while drafting. Your approved sources are intact; try drafting again in a moment.")
	b.alertOperator(ctx, chatID, fmt.Sprintf("draft pipeline failed: %v", err))
}

// handleRevisionText runs the requested revision and offers an
// apply-or-discard preview.
func (b *Bot) handleRevisionText(ctx context.Context, s *session.Session, request string) {
	chatID := s.Snapshot().ChatID
	d := s.Draft()
	if d == nil {
		b.reply(ctx, chatID, "There is no draft to revise yet.")
		return
	}

	b.reply(ctx, chatID, "Revising the draft, one moment.")
	gen := s.Generation()
	b.spawn(func() {
		system, user := llm.RevisionPrompt(d.Content, request)
		revised, err := b.completer.Complete(ctx, system, user)
		if s.Generation() != gen {
			return
		}
		if err != nil {
			b.log.Error("revision failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't produce the revision right now. Try /revise again in a moment.")
			return
		}

		s.SetPendingRevision(revised)
		b.send(ctx, telegram.OutgoingMessage{
			ChatID:   chatID,
			Text:     "Here is how the revision starts:\n\n" + truncate(revised, 400) + "\n\nApply it?",
			Keyboard: revisionKeyboard(),
		})
	})
}

// applyRevision replaces the draft content, re-checks originality, and
// redelivers the rebuilt document.
func (b *Bot) applyRevision(ctx context.Context, s *session.Session, chatID int64, gen uint64, revised string) {
	d := s.Draft()
	if d == nil || s.Generation() != gen {
		return
	}

	updated := *d
	updated.Content = revised
	updated.CreatedAt = time.Now().UTC()

	score, err := b.plagiarism.CheckPlagiarism(ctx, revised)
	scoreKnown := err == nil
	if err != nil {
		b.log.Warn("plagiarism check failed on revision", zap.Int64("chat_id", chatID), zap.Error(err))
	} else {
		updated.PlagiarismScore = score
	}
	if s.Generation() != gen {
		return
	}

	if err := b.history.Append(ctx, types.HistoryEntry{
		ChatID: chatID,
		Action: "revision_applied",
		Topic:  updated.Topic,
		Draft:  draftSummary(&updated),
	}); err != nil {
		b.log.Warn("recording revision failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	b.deliverDraft(ctx, s, chatID, gen, &updated, deliveryNote(scoreKnown, false, score, b.plagiarismThreshold()))
}
