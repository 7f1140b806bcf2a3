// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paperbot/internal/session"
	"github.com/pdiddy/paperbot/internal/telegram"
	"github.com/pdiddy/paperbot/internal/validate"
	"github.com/pdiddy/paperbot/pkg/types"
)

// HandleUpdate routes one inbound update through the dialogue state
// machine. Callers serialize updates per chat; this method assumes no
// other update for the same chat is in flight.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	switch {
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *telegram.Message) {
	chatID := m.Chat.ID
	s := b.sessions.Get(chatID)

	if strings.HasPrefix(m.Text, "/") {
		b.handleCommand(ctx, s, m)
		return
	}

	// A pending direct question routes the next text before any phase
	// handling.
	if m.Text != "" {
		switch s.WaitingFor() {
		case session.WaitRevisionText:
			s.SetWaitingFor(session.WaitNone)
			b.handleRevisionText(ctx, s, m.Text)
			return
		case session.WaitCommentText:
			s.SetWaitingFor(session.WaitNone)
			b.handleCommentText(ctx, s, m.Text)
			return
		}
	}

	text, ok := b.extractInput(ctx, s, m)
	if !ok {
		return
	}

	switch s.Phase() {
	case session.PhaseProcessingSources, session.PhaseDrafting:
		b.reply(ctx, chatID, "Still working on your current request. Use /cancel to abandon it first.")
		return
	case session.PhaseAwaitingSourceApproval:
		b.reply(ctx, chatID, "Use the buttons to approve sources, or /cancel to start over.")
		return
	case session.PhaseAwaitingFeedback:
		// A new topic supersedes the finished request.
		s.Reset()
	}

	if s.Role() == "" {
		s.AppendInput(text)
		s.SetPhase(session.PhaseCollecting)
		b.send(ctx, telegram.OutgoingMessage{ChatID: chatID, Text: welcomeText, Keyboard: roleKeyboard()})
		return
	}

	n := s.AppendInput(text)
	s.SetPhase(session.PhaseCollecting)
	b.send(ctx, telegram.OutgoingMessage{
		ChatID:   chatID,
		Text:     fmt.Sprintf("Got it (%d input(s) so far). Add more details, or process the request now.", n),
		Keyboard: confirmKeyboard(),
	})
}

// extractInput turns the message into intake text: plain text passes
// through, photos go through OCR, voice notes through transcription.
func (b *Bot) extractInput(ctx context.Context, s *session.Session, m *telegram.Message) (string, bool) {
	chatID := m.Chat.ID

	switch {
	case m.Text != "":
		return m.Text, true

	case len(m.Photo) > 0:
		// The last size is the largest.
		fileID := m.Photo[len(m.Photo)-1].FileID
		data, err := b.transport.DownloadFile(ctx, fileID)
		if err != nil {
			b.log.Warn("photo download failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't download that photo. Please try again or type the text instead.")
			return "", false
		}
		text, err := b.media.PerformOCR(ctx, data, "photo.jpg")
		if err != nil || strings.TrimSpace(text) == "" {
			b.log.Warn("ocr failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't read any text in that image. Please try a clearer photo or type the text.")
			return "", false
		}
		if m.Caption != "" {
			text = m.Caption + "\n" + text
		}
		return text, true

	case m.Voice != nil:
		data, err := b.transport.DownloadFile(ctx, m.Voice.FileID)
		if err != nil {
			b.log.Warn("voice download failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't download that voice note. Please try again or type your request.")
			return "", false
		}
		text, err := b.media.TranscribeVoice(ctx, data, "voice.ogg")
		if err != nil || strings.TrimSpace(text) == "" {
			b.log.Warn("transcription failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't transcribe that voice note. Please try again or type your request.")
			return "", false
		}
		return text, true
	}

	b.reply(ctx, chatID, "Send me your topic as text, a photo, or a voice note.")
	return "", false
}

func (b *Bot) handleCommand(ctx context.Context, s *session.Session, m *telegram.Message) {
	chatID := m.Chat.ID
	fields := strings.Fields(m.Text)
	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	switch cmd {
	case "/start":
		b.send(ctx, telegram.OutgoingMessage{ChatID: chatID, Text: welcomeText, Keyboard: roleKeyboard()})

	case "/help":
		b.reply(ctx, chatID, helpText)

	case "/status":
		text := statusText(s.Snapshot())
		if rec, err := b.history.GetChat(ctx, chatID); err == nil && rec != nil {
			if rec.Shared {
				text += "\nYour documents are shared with the course folder."
			}
			if rec.PaymentStatus != "" {
				text += "\nPayment status: " + rec.PaymentStatus + "."
			}
		}
		b.reply(ctx, chatID, text)

	case "/cancel":
		s.Reset()
		b.reply(ctx, chatID, cancelledText)

	case "/sources":
		sources := s.Sources()
		if len(sources) == 0 {
			b.reply(ctx, chatID, "No source candidates right now. Send a topic to start a search.")
			return
		}
		msg := telegram.OutgoingMessage{ChatID: chatID, Text: "Current candidates:\n\n" + formatSourceList(sources)}
		if s.Phase() == session.PhaseAwaitingSourceApproval {
			msg.Keyboard = sourceKeyboard(len(sources))
		}
		b.send(ctx, msg)

	case "/revise":
		if s.Draft() == nil {
			b.reply(ctx, chatID, "There is no draft to revise yet.")
			return
		}
		s.SetWaitingFor(session.WaitRevisionText)
		b.reply(ctx, chatID, "What should I change? Describe the revision in one message.")

	case "/report":
		var buf bytes.Buffer
		if err := b.history.ExportYAML(ctx, chatID, &buf); err != nil {
			b.log.Warn("report export failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't assemble the report right now. Please try again.")
			return
		}
		if err := b.transport.SendDocument(ctx, chatID, "activity-report.yaml", &buf, "Your activity report"); err != nil {
			b.log.Warn("report send failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't deliver the report file. Please try again.")
		}

	case "/files":
		rec, err := b.history.GetChat(ctx, chatID)
		if err != nil {
			b.log.Warn("files lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(ctx, chatID, "I couldn't look up your files right now.")
			return
		}
		if rec == nil || len(rec.DocumentLinks) == 0 {
			b.reply(ctx, chatID, "No documents yet. Finish a draft and it will show up here.")
			return
		}
		var sb strings.Builder
		sb.WriteString("Your documents:\n")
		for i, link := range rec.DocumentLinks {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, link)
		}
		b.reply(ctx, chatID, strings.TrimRight(sb.String(), "\n"))

	case "/history":
		tag := ""
		if len(args) > 0 {
			tag = strings.ToLower(args[0])
		}
		b.sendHistory(ctx, chatID, tag)

	default:
		b.reply(ctx, chatID, "Unknown command. Try /help.")
	}
}

// sendHistory renders the chat's activity log, optionally filtered by tag.
// The unfiltered view offers tag filter buttons when tags exist.
func (b *Bot) sendHistory(ctx context.Context, chatID int64, tag string) {
	entries, err := b.history.List(ctx, chatID, tag)
	if err != nil {
		b.log.Warn("history lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(ctx, chatID, "I couldn't load your history right now.")
		return
	}
	if len(entries) == 0 {
		if tag != "" {
			b.reply(ctx, chatID, fmt.Sprintf("No history entries tagged %q.", tag))
		} else {
			b.reply(ctx, chatID, "No history yet.")
		}
		return
	}

	var sb strings.Builder
	tagSet := map[string]bool{}
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s  %s", e.Timestamp.Format("2006-01-02"), e.Action)
		if e.Topic != "" {
			fmt.Fprintf(&sb, ": %s", e.Topic)
		}
		if e.Rating > 0 {
			fmt.Fprintf(&sb, " (%d/5)", e.Rating)
		}
		sb.WriteString("\n")
		for _, t := range e.Tags {
			tagSet[t] = true
		}
	}

	msg := telegram.OutgoingMessage{ChatID: chatID, Text: strings.TrimRight(sb.String(), "\n")}
	if tag == "" && len(tagSet) > 0 {
		row := telegram.Row()
		for t := range tagSet {
			row = append(row, telegram.Btn("#"+t, tagFilterTag(t)))
			if len(row) == 4 {
				break
			}
		}
		msg.Keyboard = telegram.Keyboard(row)
	}
	b.send(ctx, msg)
}

func (b *Bot) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	answer := func(text string) {
		if err := b.transport.AnswerCallback(ctx, q.ID, text); err != nil {
			b.log.Warn("answer callback failed", zap.Error(err))
		}
	}

	cb, ok := ParseCallback(q.Data)
	if !ok || q.Message == nil {
		answer("That button is no longer valid.")
		return
	}

	chatID := q.Message.Chat.ID
	s := b.sessions.Get(chatID)

	switch cb.Kind {
	case KindSelectType:
		s.SetRole(cb.Role)
		if err := b.history.SetRole(ctx, chatID, cb.Role); err != nil {
			b.log.Warn("persisting role failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		answer("")
		if len(s.Inputs()) > 0 {
			b.send(ctx, telegram.OutgoingMessage{
				ChatID:   chatID,
				Text:     "Thanks! I kept what you already sent. Add more details, or process the request now.",
				Keyboard: confirmKeyboard(),
			})
		} else {
			s.SetPhase(session.PhaseCollecting)
			b.reply(ctx, chatID, "Great. Send me your paper topic as text, a photo of the assignment, or a voice note.")
		}

	case KindConfirmProcess:
		// A stale confirm button replayed mid-pipeline must not restart
		// the search or touch approvals.
		if p := s.Phase(); p != session.PhaseCollecting && p != session.PhaseAwaitingConfirmation {
			answer("That request is no longer active.")
			return
		}
		if len(s.Inputs()) == 0 {
			answer("Send a topic first.")
			return
		}
		if s.Role() == "" {
			answer("")
			b.send(ctx, telegram.OutgoingMessage{ChatID: chatID, Text: welcomeText, Keyboard: roleKeyboard()})
			return
		}
		intake := parseIntake(s.Inputs(), s.Role())
		if result := validate.Intake(intake); !result.Valid() {
			answer("")
			b.reply(ctx, chatID, "I can't process that yet:\n"+result.String())
			return
		}
		s.SetIntake(intake)
		s.SetPhase(session.PhaseProcessingSources)
		answer("")
		b.reply(ctx, chatID, fmt.Sprintf("Working on %q: generating keywords and searching recent academic sources. I'll be back shortly.", intake.Topic))
		gen := s.Generation()
		b.spawn(func() { b.runSourceSearch(ctx, s, chatID, gen) })

	case KindApproveSource:
		if s.Phase() != session.PhaseAwaitingSourceApproval {
			answer("That source list is no longer active.")
			return
		}
		if cb.Index >= len(s.Sources()) {
			// Stale button from a superseded list.
			answer("That source is no longer on the list.")
			return
		}
		s.ApproveSource(cb.Index)
		answer(fmt.Sprintf("Source %d approved (%d total).", cb.Index+1, len(s.Approved())))

	case KindApproveAll:
		if s.Phase() != session.PhaseAwaitingSourceApproval {
			answer("That source list is no longer active.")
			return
		}
		s.ApproveAll()
		answer("")
		b.beginDraft(ctx, s, chatID)

	case KindStartDraft:
		if s.Phase() != session.PhaseAwaitingSourceApproval {
			answer("That source list is no longer active.")
			return
		}
		if len(s.Approved()) == 0 {
			answer("Approve at least one source first.")
			return
		}
		answer("")
		b.beginDraft(ctx, s, chatID)

	case KindCancelSources:
		answer("")
		s.Reset()
		b.reply(ctx, chatID, cancelledText)

	case KindRate:
		d := s.Draft()
		if d == nil || d.ID != cb.DraftID {
			answer("That draft is no longer active.")
			return
		}
		entry := types.HistoryEntry{
			ChatID: chatID,
			Action: "feedback",
			Topic:  d.Topic,
			Rating: cb.Rating,
			Draft:  draftSummary(d),
		}
		if err := b.history.Append(ctx, entry); err != nil {
			b.log.Warn("recording feedback failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		answer("")
		if cb.Rating <= 3 {
			s.SetWaitingFor(session.WaitCommentText)
			b.reply(ctx, chatID, "Sorry it fell short. What should be better next time?")
		} else {
			b.reply(ctx, chatID, "Thanks for the rating! Send a new topic whenever you need another paper.")
		}

	case KindFilterTag:
		answer("")
		b.sendHistory(ctx, chatID, cb.Tag)

	case KindRevisionApply:
		revised := s.TakePendingRevision()
		if revised == "" || s.Draft() == nil {
			answer("That revision is no longer available.")
			return
		}
		answer("")
		gen := s.Generation()
		b.spawn(func() { b.applyRevision(ctx, s, chatID, gen, revised) })

	case KindRevisionDiscard:
		s.TakePendingRevision()
		answer("Keeping the original draft.")
	}
}

// beginDraft moves the chat into drafting and launches the pipeline.
func (b *Bot) beginDraft(ctx context.Context, s *session.Session, chatID int64) {
	approved := s.Approved()
	s.SetPhase(session.PhaseDrafting)
	s.ResetRetries()
	// The intake is parsed; the raw input buffer has served its purpose.
	s.ClearInputs()
	b.reply(ctx, chatID, fmt.Sprintf("Drafting with %d source(s). This can take a minute or two.", len(approved)))
	gen := s.Generation()
	b.spawn(func() { b.runDraft(ctx, s, chatID, gen) })
}

func (b *Bot) handleCommentText(ctx context.Context, s *session.Session, text string) {
	chatID := s.Snapshot().ChatID
	entry := types.HistoryEntry{
		ChatID:  chatID,
		Action:  "feedback_comment",
		Comment: text,
	}
	if d := s.Draft(); d != nil {
		entry.Topic = d.Topic
		entry.Draft = draftSummary(d)
	}
	if err := b.history.Append(ctx, entry); err != nil {
		b.log.Warn("recording comment failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.reply(ctx, chatID, "Noted, thank you. I'll do better on the next one.")
}

func draftSummary(d *types.Draft) *types.DraftSummary {
	return &types.DraftSummary{
		ID:              d.ID,
		Topic:           d.Topic,
		Format:          d.Format,
		LengthPages:     d.LengthPages,
		PlagiarismScore: d.PlagiarismScore,
	}
}

// truncate shortens preview text at a rune boundary.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
