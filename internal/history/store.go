// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists the durable, chat-keyed record of what the bot
// did: an append-only entry log per chat plus one bookkeeping row per chat.
// Sessions are ephemeral; this store is what survives a restart.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperbot/pkg/types"
)

const dbFile = "paperbot.db"

// Store manages the history SQLite database.
type Store struct {
	db         *sql.DB
	maxEntries int
}

// NewStore opens or creates the history database at dataDir/paperbot.db,
// creating the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 50
	}

	s := &Store{db: db, maxEntries: maxEntries}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			chat_id INTEGER PRIMARY KEY,
			role TEXT,
			student_id TEXT,
			buffer TEXT,
			deadline TEXT,
			folder_id TEXT,
			document_links TEXT,
			shared INTEGER NOT NULL DEFAULT 0,
			payment_status TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			topic TEXT,
			tags TEXT,
			ts TEXT NOT NULL,
			draft TEXT,
			rating INTEGER NOT NULL DEFAULT 0,
			comment TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_chat_id ON entries(chat_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Append adds one entry to a chat's history. Entries are never updated or
// deleted afterwards. A zero timestamp is filled with the current time.
func (s *Store) Append(ctx context.Context, e types.HistoryEntry) error {
	if e.ChatID == 0 {
		return fmt.Errorf("history entry without chat id")
	}
	if e.Action == "" {
		return fmt.Errorf("history entry without action")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	tagsJSON, _ := json.Marshal(e.Tags)
	draftJSON := ""
	if e.Draft != nil {
		b, err := json.Marshal(e.Draft)
		if err != nil {
			return fmt.Errorf("encoding draft summary: %w", err)
		}
		draftJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (chat_id, action, topic, tags, ts, draft, rating, comment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ChatID, e.Action, e.Topic, string(tagsJSON),
		e.Timestamp.UTC().Format(time.RFC3339Nano), draftJSON, e.Rating, e.Comment,
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// List returns a chat's history in insertion order, optionally filtered by
// tag, capped at the configured maximum.
func (s *Store) List(ctx context.Context, chatID int64, tag string) ([]types.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, topic, tags, ts, draft, rating, comment
		 FROM entries WHERE chat_id = ? ORDER BY rowid`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var tagsJSON, ts, draftJSON string
		if err := rows.Scan(&e.Action, &e.Topic, &tagsJSON, &ts, &draftJSON, &e.Rating, &e.Comment); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.ChatID = chatID
		json.Unmarshal([]byte(tagsJSON), &e.Tags)
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = t
		}
		if draftJSON != "" {
			var d types.DraftSummary
			if err := json.Unmarshal([]byte(draftJSON), &d); err == nil {
				e.Draft = &d
			}
		}

		if tag != "" && !hasTag(e.Tags, tag) {
			continue
		}
		out = append(out, e)
		if len(out) == s.maxEntries {
			break
		}
	}
	return out, rows.Err()
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Topics returns the most recent distinct topics for a chat, newest first,
// for keyword-generation context.
func (s *Store) Topics(ctx context.Context, chatID int64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT topic FROM entries
		 WHERE chat_id = ? AND topic != '' ORDER BY rowid DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertChat writes the per-chat bookkeeping row.
func (s *Store) UpsertChat(ctx context.Context, c types.ChatRecord) error {
	if c.ChatID == 0 {
		return fmt.Errorf("chat record without chat id")
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}

	linksJSON, _ := json.Marshal(c.DocumentLinks)
	deadline := ""
	if !c.Deadline.IsZero() {
		deadline = c.Deadline.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (chat_id, role, student_id, buffer, deadline, folder_id, document_links, shared, payment_status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
			role=excluded.role, student_id=excluded.student_id, buffer=excluded.buffer,
			deadline=excluded.deadline, folder_id=excluded.folder_id,
			document_links=excluded.document_links, shared=excluded.shared,
			payment_status=excluded.payment_status, updated_at=excluded.updated_at`,
		c.ChatID, string(c.Role), c.StudentID, c.Buffer, deadline,
		c.FolderID, string(linksJSON), boolToInt(c.Shared), c.PaymentStatus,
		c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting chat: %w", err)
	}
	return nil
}

// GetChat reads the per-chat row. Returns nil when the chat has no row yet.
func (s *Store) GetChat(ctx context.Context, chatID int64) (*types.ChatRecord, error) {
	var c types.ChatRecord
	var role, deadline, linksJSON, updatedAt string
	var shared int

	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, role, student_id, buffer, deadline, folder_id, document_links, shared, payment_status, updated_at
		 FROM chats WHERE chat_id = ?`, chatID,
	).Scan(&c.ChatID, &role, &c.StudentID, &c.Buffer, &deadline, &c.FolderID, &linksJSON, &shared, &c.PaymentStatus, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chat: %w", err)
	}

	c.Role = types.UserType(role)
	c.Shared = shared != 0
	json.Unmarshal([]byte(linksJSON), &c.DocumentLinks)
	if t, err := time.Parse(time.RFC3339, deadline); err == nil {
		c.Deadline = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		c.UpdatedAt = t
	}
	return &c, nil
}

// SetRole updates just the role on the chat row, creating it if needed.
func (s *Store) SetRole(ctx context.Context, chatID int64, role types.UserType) error {
	c, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if c == nil {
		c = &types.ChatRecord{ChatID: chatID}
	}
	c.Role = role
	c.UpdatedAt = time.Now().UTC()
	return s.UpsertChat(ctx, *c)
}

// AddDocumentLink appends a document link to the chat row, creating it if needed.
func (s *Store) AddDocumentLink(ctx context.Context, chatID int64, link string) error {
	if link == "" {
		return nil
	}
	c, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if c == nil {
		c = &types.ChatRecord{ChatID: chatID}
	}
	c.DocumentLinks = append(c.DocumentLinks, link)
	c.UpdatedAt = time.Now().UTC()
	return s.UpsertChat(ctx, *c)
}

// exportFile mirrors the report layout written by ExportYAML.
type exportFile struct {
	Chat    *types.ChatRecord    `yaml:"chat,omitempty"`
	Entries []types.HistoryEntry `yaml:"entries"`
}

// ExportYAML writes a chat's row and full history as YAML to w, for the
// /report command and the history CLI.
func (s *Store) ExportYAML(ctx context.Context, chatID int64, w io.Writer) error {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	entries, err := s.List(ctx, chatID, "")
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(exportFile{Chat: chat, Entries: entries})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
