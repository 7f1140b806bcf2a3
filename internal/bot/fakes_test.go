// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/pdiddy/paperbot/internal/search"
	"github.com/pdiddy/paperbot/internal/session"
	"github.com/pdiddy/paperbot/internal/telegram"
	"github.com/pdiddy/paperbot/pkg/types"
)

type sentDocument struct {
	ChatID   int64
	Filename string
	Content  string
	Caption  string
}

type fakeTransport struct {
	mu        sync.Mutex
	messages  []telegram.OutgoingMessage
	answers   []string
	documents []sentDocument
	fileData  []byte
	fileErr   error
}

func (f *fakeTransport) GetUpdates(context.Context, int64) ([]telegram.Update, error) {
	return nil, nil
}

func (f *fakeTransport) SendMessage(_ context.Context, msg telegram.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeTransport) DownloadFile(context.Context, string) ([]byte, error) {
	return f.fileData, f.fileErr
}

func (f *fakeTransport) SendDocument(_ context.Context, chatID int64, filename string, content io.Reader, caption string) error {
	data, _ := io.ReadAll(content)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, sentDocument{ChatID: chatID, Filename: filename, Content: string(data), Caption: caption})
	return nil
}

func (f *fakeTransport) lastMessage(t *testing.T) telegram.OutgoingMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		t.Fatal("no messages sent")
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeTransport) lastAnswer(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		t.Fatal("no callback answers")
	}
	return f.answers[len(f.answers)-1]
}

type fakeMedia struct {
	ocrText       string
	ocrErr        error
	transcript    string
	transcribeErr error
}

func (f *fakeMedia) PerformOCR(context.Context, []byte, string) (string, error) {
	return f.ocrText, f.ocrErr
}

func (f *fakeMedia) TranscribeVoice(context.Context, []byte, string) (string, error) {
	return f.transcript, f.transcribeErr
}

// fakePlagiarism returns scores in sequence, repeating the last one.
type fakePlagiarism struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakePlagiarism) CheckPlagiarism(context.Context, string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	i := f.calls - 1
	if i >= len(f.scores) {
		i = len(f.scores) - 1
	}
	return f.scores[i], nil
}

type fakeSearcher struct {
	out      search.Output
	err      error
	keywords []string
	calls    int
}

func (f *fakeSearcher) Search(_ context.Context, keywords []string) (search.Output, error) {
	f.keywords = keywords
	f.calls++
	return f.out, f.err
}

// fakeCompleter answers prompts in sequence, recording each user prompt.
type fakeCompleter struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.prompts) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

type fakeCitations struct {
	configured bool
	imported   []types.SourceRecord
}

func (f *fakeCitations) Configured() bool { return f.configured }

func (f *fakeCitations) ImportCitation(_ context.Context, src types.SourceRecord) (string, error) {
	f.imported = append(f.imported, src)
	return "KEY", nil
}

type fakeUploader struct {
	configured bool
	link       string
	err        error
	uploads    []string
}

func (f *fakeUploader) Configured() bool { return f.configured }

func (f *fakeUploader) Upload(_ context.Context, filename string, _ io.Reader) (string, error) {
	f.uploads = append(f.uploads, filename)
	return f.link, f.err
}

// fakeHistory keeps everything in memory.
type fakeHistory struct {
	mu      sync.Mutex
	entries []types.HistoryEntry
	chats   map[int64]*types.ChatRecord
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{chats: map[int64]*types.ChatRecord{}}
}

func (f *fakeHistory) Append(_ context.Context, e types.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) List(_ context.Context, chatID int64, tag string) ([]types.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.HistoryEntry
	for _, e := range f.entries {
		if e.ChatID != chatID {
			continue
		}
		if tag != "" && !hasTag(e.Tags, tag) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (f *fakeHistory) Topics(_ context.Context, chatID int64, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].ChatID == chatID && f.entries[i].Topic != "" {
			out = append(out, f.entries[i].Topic)
		}
	}
	return out, nil
}

func (f *fakeHistory) SetRole(_ context.Context, chatID int64, role types.UserType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.chats[chatID]
	if c == nil {
		c = &types.ChatRecord{ChatID: chatID}
		f.chats[chatID] = c
	}
	c.Role = role
	return nil
}

func (f *fakeHistory) AddDocumentLink(_ context.Context, chatID int64, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.chats[chatID]
	if c == nil {
		c = &types.ChatRecord{ChatID: chatID}
		f.chats[chatID] = c
	}
	c.DocumentLinks = append(c.DocumentLinks, link)
	return nil
}

func (f *fakeHistory) GetChat(_ context.Context, chatID int64) (*types.ChatRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats[chatID], nil
}

func (f *fakeHistory) ExportYAML(_ context.Context, chatID int64, w io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(w, "entries: %d\n", len(f.entries))
	return nil
}

func (f *fakeHistory) byAction(action string) []types.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.HistoryEntry
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// testEnv bundles a bot wired to fakes. Pipeline work runs inline via
// spawn, so handler calls complete synchronously.
type testEnv struct {
	bot        *Bot
	transport  *fakeTransport
	media      *fakeMedia
	plagiarism *fakePlagiarism
	searcher   *fakeSearcher
	completer  *fakeCompleter
	citations  *fakeCitations
	uploader   *fakeUploader
	history    *fakeHistory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		transport: &fakeTransport{},
		media:     &fakeMedia{},
		plagiarism: &fakePlagiarism{
			scores: []float64{0.05},
		},
		searcher: &fakeSearcher{
			out: search.Output{Results: []types.SourceRecord{
				{Title: "First source", Authors: []string{"Jane Doe"}, Year: 2023, DOI: "10.1/a"},
				{Title: "Second source", Authors: []string{"Alex Smith"}, Year: 2024, DOI: "10.2/b"},
			}},
		},
		completer: &fakeCompleter{responses: []string{"keyword one\nkeyword two", "Draft body [1]."}},
		citations: &fakeCitations{},
		uploader:  &fakeUploader{},
		history:   newFakeHistory(),
	}

	cfg := types.Config{}
	cfg.Bot.OutputDir = t.TempDir()
	cfg.Bot.PlagiarismThreshold = 0.10
	cfg.Bot.DraftMaxRetries = 2

	env.bot = &Bot{
		cfg:        cfg,
		log:        zap.NewNop(),
		transport:  env.transport,
		media:      env.media,
		plagiarism: env.plagiarism,
		searcher:   env.searcher,
		completer:  env.completer,
		citations:  env.citations,
		uploader:   env.uploader,
		history:    env.history,
		sessions:   session.NewStore(0),
		spawn:      func(fn func()) { fn() },
		queues:     map[int64]chan telegram.Update{},
	}
	return env
}

func textUpdate(chatID int64, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{Chat: telegram.Chat{ID: chatID}, Text: text}}
}

func callbackUpdate(chatID int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cbid",
		Data:    data,
		Message: &telegram.Message{Chat: telegram.Chat{ID: chatID}},
	}}
}

func photoUpdate(chatID int64) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		Chat:  telegram.Chat{ID: chatID},
		Photo: []telegram.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}
}

func voiceUpdate(chatID int64) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		Chat:  telegram.Chat{ID: chatID},
		Voice: &telegram.Voice{FileID: "voice", Duration: 4},
	}}
}

var errFake = errors.New("boom")
