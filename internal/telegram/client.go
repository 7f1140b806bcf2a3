// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package telegram implements the chat transport: a Bot API client for
// long-polling updates, sending replies and inline keyboards, and fetching
// media files.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/paperbot/internal/httputil"
	"github.com/pdiddy/paperbot/pkg/types"
)

// apiBase is the Bot API endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API for a single bot token.
type Client struct {
	http        *http.Client
	token       string
	pollTimeout time.Duration
}

// NewClient builds a transport client from config. The token must be
// non-empty; the caller validates that at startup.
func NewClient(cfg types.TelegramConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		token:       cfg.Token,
		pollTimeout: poll,
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", apiBase, c.token, method)
}

// GetUpdates long-polls for updates past offset. It returns an empty slice
// when the poll times out with nothing new.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := url.Values{
		"offset":  {strconv.FormatInt(offset, 10)},
		"timeout": {strconv.Itoa(int(c.pollTimeout.Seconds()))},
	}

	var out updatesResponse
	err := httputil.GetJSON(ctx, c.http, "telegram", c.methodURL("getUpdates")+"?"+params.Encode(), nil, &out)
	if err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getUpdates: %s", out.Description)
	}
	return out.Result, nil
}

// SendMessage sends a reply, optionally with an inline keyboard.
func (c *Client) SendMessage(ctx context.Context, msg OutgoingMessage) error {
	body := map[string]any{
		"chat_id": msg.ChatID,
		"text":    msg.Text,
	}
	if msg.Keyboard != nil {
		body["reply_markup"] = msg.Keyboard
	}
	if msg.Markdown {
		body["parse_mode"] = "Markdown"
	}

	var out apiResponse
	if err := httputil.PostJSON(ctx, c.http, "telegram", c.methodURL("sendMessage"), nil, body, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("telegram sendMessage: %s", out.Description)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops showing a
// progress spinner. A non-empty text pops a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	body := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		body["text"] = text
	}

	var out apiResponse
	if err := httputil.PostJSON(ctx, c.http, "telegram", c.methodURL("answerCallbackQuery"), nil, body, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("telegram answerCallbackQuery: %s", out.Description)
	}
	return nil
}

// DownloadFile resolves a file ID via getFile and downloads its contents.
// Used for inbound photos and voice notes handed to the OCR and
// transcription adapters.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	params := url.Values{"file_id": {fileID}}

	var meta fileResponse
	err := httputil.GetJSON(ctx, c.http, "telegram", c.methodURL("getFile")+"?"+params.Encode(), nil, &meta)
	if err != nil {
		return nil, err
	}
	if !meta.OK || meta.Result.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile: %s", meta.Description)
	}

	fileURL := fmt.Sprintf("%s/file/bot%s/%s", apiBase, c.token, meta.Result.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("telegram file download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram file download returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SendDocument uploads a file to the chat as a document attachment.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, content io.Reader, caption string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("building sendDocument form: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return fmt.Errorf("building sendDocument form: %w", err)
		}
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("building sendDocument form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("building sendDocument form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("building sendDocument form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return fmt.Errorf("creating sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("parsing sendDocument response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram sendDocument: %s", out.Description)
	}
	return nil
}
