// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paperbot/internal/session"
	"github.com/pdiddy/paperbot/internal/telegram"
	"github.com/pdiddy/paperbot/pkg/types"
)

const welcomeText = `Hi! I help you research and draft academic papers with real, cited sources.

Who am I working with today?`

const helpText = `Send me a topic as text, a photo of an assignment, or a voice note. I will:

1. Generate search keywords and find recent academic sources.
2. Let you approve the sources you want cited.
3. Draft the paper with inline citations and run an originality check.
4. Build the document and upload it for you.

Commands:
/start - choose your role and begin
/status - where we are right now
/sources - show the current source candidates
/revise - request changes to the latest draft
/report - export this chat's activity as a file
/files - list your generated documents
/history - show past activity, e.g. /history climate
/cancel - abandon the current request
/help - this message`

const cancelledText = "Cancelled. Send a new topic whenever you are ready."

func roleKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		telegram.Row(
			telegram.Btn("Student", tagSelectType(types.UserStudent)),
			telegram.Btn("Tutor", tagSelectType(types.UserTutor)),
		),
		telegram.Row(
			telegram.Btn("Both", tagSelectType(types.UserMixed)),
			telegram.Btn("Just looking", tagSelectType(types.UserGuest)),
		),
	)
}

func confirmKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		telegram.Row(telegram.Btn("Process request", tagConfirmProcess)),
	)
}

// sourceKeyboard renders one approve button per candidate plus the
// approve-all and cancel rows.
func sourceKeyboard(n int) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i := 0; i < n; i++ {
		rows = append(rows, telegram.Row(
			telegram.Btn(fmt.Sprintf("Approve %d", i+1), tagApproveSource(i)),
		))
	}
	rows = append(rows, telegram.Row(
		telegram.Btn("Approve all & draft", tagApproveAll),
	))
	rows = append(rows, telegram.Row(
		telegram.Btn("Draft with approved", tagStartDraft),
		telegram.Btn("Cancel", tagCancelSources),
	))
	return telegram.Keyboard(rows...)
}

func ratingKeyboard(draftID string) *telegram.InlineKeyboardMarkup {
	row := telegram.Row()
	for n := 1; n <= 5; n++ {
		row = append(row, telegram.Btn(strings.Repeat("★", n), tagRate(draftID, n)))
	}
	return telegram.Keyboard(row)
}

func revisionKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		telegram.Row(
			telegram.Btn("Apply revision", tagRevisionApply),
			telegram.Btn("Keep original", tagRevisionDiscard),
		),
	)
}

// formatSourceList renders the candidate list for the approval message.
func formatSourceList(sources []types.SourceRecord) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s", i+1, s.Title)
		if len(s.Authors) > 0 {
			fmt.Fprintf(&b, " — %s", s.Authors[0])
			if len(s.Authors) > 1 {
				b.WriteString(" et al.")
			}
		}
		if s.Year > 0 {
			fmt.Fprintf(&b, " (%d)", s.Year)
		}
		if s.DOI != "" {
			fmt.Fprintf(&b, "\n   doi: %s", s.DOI)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// statusText describes the current phase in user terms.
func statusText(snap session.Snapshot) string {
	switch snap.Phase {
	case session.PhaseIdle:
		return "Nothing in progress. Send a topic to begin."
	case session.PhaseCollecting:
		return fmt.Sprintf("Collecting your request: %d input(s) so far. Send more or press Process.", len(snap.Inputs))
	case session.PhaseAwaitingConfirmation:
		return "Waiting for you to confirm the request."
	case session.PhaseProcessingSources:
		return "Searching academic sources. This can take a moment."
	case session.PhaseAwaitingSourceApproval:
		return fmt.Sprintf("Waiting for source approval: %d candidate(s), %d approved.", len(snap.Sources), len(snap.Approved))
	case session.PhaseDrafting:
		return "Drafting your paper. This can take a minute or two."
	case session.PhaseAwaitingFeedback:
		if snap.Draft != nil {
			return fmt.Sprintf("Draft %q is ready. Rate it, or use /revise to request changes.", snap.Draft.Topic)
		}
		return "Draft is ready. Rate it, or use /revise to request changes."
	}
	return "Nothing in progress. Send a topic to begin."
}
