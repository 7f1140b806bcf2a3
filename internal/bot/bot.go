// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bot is the conversation controller: it routes Telegram updates
// through the per-chat dialogue state machine and drives the paper
// pipeline (keywords, source search, approval, drafting, originality gate,
// document build, upload).
package bot

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperbot/internal/eden"
	"github.com/pdiddy/paperbot/internal/history"
	"github.com/pdiddy/paperbot/internal/llm"
	"github.com/pdiddy/paperbot/internal/search"
	"github.com/pdiddy/paperbot/internal/session"
	"github.com/pdiddy/paperbot/internal/storage"
	"github.com/pdiddy/paperbot/internal/telegram"
	"github.com/pdiddy/paperbot/internal/zotero"
	"github.com/pdiddy/paperbot/pkg/types"
)

// Transport is the chat surface the controller talks through. Implemented
// by telegram.Client and by fakes in tests.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, msg telegram.OutgoingMessage) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	SendDocument(ctx context.Context, chatID int64, filename string, content io.Reader, caption string) error
}

// Media converts photos and voice notes into text.
type Media interface {
	PerformOCR(ctx context.Context, image []byte, filename string) (string, error)
	TranscribeVoice(ctx context.Context, audio []byte, filename string) (string, error)
}

// PlagiarismChecker scores a draft for originality, 0 to 1.
type PlagiarismChecker interface {
	CheckPlagiarism(ctx context.Context, text string) (float64, error)
}

// Searcher runs the academic source search for a keyword set.
type Searcher interface {
	Search(ctx context.Context, keywords []string) (search.Output, error)
}

// CitationImporter pushes approved sources into a reference library.
type CitationImporter interface {
	Configured() bool
	ImportCitation(ctx context.Context, src types.SourceRecord) (string, error)
}

// Uploader stores built documents in the cloud.
type Uploader interface {
	Configured() bool
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

// HistoryStore is the durable per-chat record.
type HistoryStore interface {
	Append(ctx context.Context, e types.HistoryEntry) error
	List(ctx context.Context, chatID int64, tag string) ([]types.HistoryEntry, error)
	Topics(ctx context.Context, chatID int64, limit int) ([]string, error)
	SetRole(ctx context.Context, chatID int64, role types.UserType) error
	AddDocumentLink(ctx context.Context, chatID int64, link string) error
	GetChat(ctx context.Context, chatID int64) (*types.ChatRecord, error)
	ExportYAML(ctx context.Context, chatID int64, w io.Writer) error
}

// Bot wires the dialogue state machine to its adapters.
type Bot struct {
	cfg types.Config
	log *zap.Logger

	transport  Transport
	media      Media
	plagiarism PlagiarismChecker
	searcher   Searcher
	completer  llm.Completer
	citations  CitationImporter
	uploader   Uploader
	history    HistoryStore
	sessions   *session.Store

	// spawn runs pipeline work off the per-chat dispatch loop. Tests
	// replace it with an inline call for determinism.
	spawn func(func())

	mu     sync.Mutex
	queues map[int64]chan telegram.Update
	wg     sync.WaitGroup
}

// searchAdapter binds the fan-out search to configured backends and
// cross-checks DOIs that did not come from CrossRef itself.
type searchAdapter struct {
	backends []search.Backend
	cfg      types.SearchConfig
	http     *http.Client
}

func (a *searchAdapter) Search(ctx context.Context, keywords []string) (search.Output, error) {
	out, err := search.Search(ctx, keywords, a.backends, a.cfg)
	if err != nil {
		return out, err
	}

	// A DOI reported by another backend may be stale or mistyped; drop
	// records whose DOI CrossRef says does not resolve. Resolution errors
	// keep the record, only a definitive miss removes it.
	kept := out.Results[:0]
	for _, r := range out.Results {
		if r.DOI != "" && r.Backend != "crossref" {
			rec, err := search.ValidateDOI(ctx, a.http, r.DOI, a.cfg)
			if err == nil && rec == nil {
				continue
			}
		}
		kept = append(kept, r)
	}
	out.Results = kept
	return out, nil
}

// New assembles the bot from config with the production adapters.
func New(cfg types.Config, log *zap.Logger, store *history.Store) *Bot {
	edenClient := eden.NewClient(cfg.Eden)

	searchTimeout := cfg.Search.Timeout
	if searchTimeout <= 0 {
		searchTimeout = 30 * time.Second
	}
	searchHTTP := &http.Client{Timeout: searchTimeout}

	var backends []search.Backend
	if cfg.Search.EnableSemanticScholar {
		backends = append(backends, &search.SemanticScholarBackend{Client: searchHTTP, APIKey: cfg.Search.SemanticScholarAPIKey})
	}
	if cfg.Search.EnableCrossRef {
		backends = append(backends, &search.CrossRefBackend{Client: searchHTTP})
	}

	return &Bot{
		cfg:        cfg,
		log:        log,
		transport:  telegram.NewClient(cfg.Telegram),
		media:      edenClient,
		plagiarism: edenClient,
		searcher:   &searchAdapter{backends: backends, cfg: cfg.Search, http: searchHTTP},
		completer:  llm.NewClient(cfg.LLM),
		citations:  zotero.NewClient(cfg.Zotero),
		uploader:   storage.NewClient(cfg.Storage),
		history:    store,
		sessions:   session.NewStore(cfg.Bot.SessionTTL),
		spawn:      func(fn func()) { go fn() },
		queues:     map[int64]chan telegram.Update{},
	}
}

// Run long-polls for updates until ctx is done. Updates for the same chat
// are handled in arrival order; distinct chats run concurrently.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("bot started", zap.Duration("poll_timeout", b.cfg.Telegram.PollTimeout))

	var offset int64
	for ctx.Err() == nil {
		updates, err := b.transport.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			b.log.Warn("poll failed", zap.Error(err))
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.dispatch(ctx, u)
		}
	}

	b.mu.Lock()
	for _, q := range b.queues {
		close(q)
	}
	b.queues = map[int64]chan telegram.Update{}
	b.mu.Unlock()
	b.wg.Wait()

	b.log.Info("bot stopped")
	return ctx.Err()
}

// dispatch hands the update to its chat's serial worker, starting one on
// first contact.
func (b *Bot) dispatch(ctx context.Context, u telegram.Update) {
	chatID := updateChatID(u)
	if chatID == 0 {
		return
	}

	b.mu.Lock()
	q, ok := b.queues[chatID]
	if !ok {
		q = make(chan telegram.Update, 16)
		b.queues[chatID] = q
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for upd := range q {
				b.HandleUpdate(ctx, upd)
			}
		}()
	}
	b.mu.Unlock()

	select {
	case q <- u:
	case <-ctx.Done():
	}
}

func updateChatID(u telegram.Update) int64 {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// send delivers a reply, logging delivery failures rather than failing the
// dialogue step.
func (b *Bot) send(ctx context.Context, msg telegram.OutgoingMessage) {
	if err := b.transport.SendMessage(ctx, msg); err != nil {
		b.log.Warn("send failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, telegram.OutgoingMessage{ChatID: chatID, Text: text})
}

// alertOperator notifies the admin chat about a pipeline failure. Silent
// when no admin chat is configured.
func (b *Bot) alertOperator(ctx context.Context, chatID int64, text string) {
	b.log.Error("pipeline failure", zap.Int64("chat_id", chatID), zap.String("alert", text))
	if b.cfg.Telegram.AdminChatID == 0 {
		return
	}
	b.send(ctx, telegram.OutgoingMessage{
		ChatID: b.cfg.Telegram.AdminChatID,
		Text:   "paperbot alert: " + text,
	})
}
