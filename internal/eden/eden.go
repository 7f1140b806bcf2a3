// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eden wraps the Eden AI endpoints the bot delegates to: OCR for
// photo input, speech-to-text for voice input, and plagiarism detection
// for the draft quality gate.
package eden

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pdiddy/paperbot/internal/httputil"
	"github.com/pdiddy/paperbot/pkg/types"
)

// edenAPIBase is the Eden AI endpoint root. Declared as a var so tests can
// substitute an httptest server.
var edenAPIBase = "https://api.edenai.run/v2"

// Client talks to the Eden AI API.
type Client struct {
	http *http.Client
	cfg  types.EdenConfig
}

// NewClient builds an Eden AI client from config, filling provider defaults.
func NewClient(cfg types.EdenConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.OCRProvider == "" {
		cfg.OCRProvider = "google"
	}
	if cfg.OCRFallbackProvider == "" {
		cfg.OCRFallbackProvider = "amazon"
	}
	if cfg.SpeechProvider == "" {
		cfg.SpeechProvider = "openai"
	}
	if cfg.PlagiarismProvider == "" {
		cfg.PlagiarismProvider = "originalityai"
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// providerResult is the per-provider block Eden AI returns for text tasks.
type providerResult struct {
	Status      string  `json:"status"`
	Text        string  `json:"text,omitempty"`
	PlagiaScore float64 `json:"plagia_score,omitempty"`
	Error       struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// PerformOCR extracts text from an image. The primary provider is tried
// first; on failure the fallback provider is tried before the error
// propagates, so a single flaky provider does not lose the user's photo.
func (c *Client) PerformOCR(ctx context.Context, image []byte, filename string) (string, error) {
	text, err := c.ocrWith(ctx, c.cfg.OCRProvider, image, filename)
	if err == nil {
		return text, nil
	}
	text, fbErr := c.ocrWith(ctx, c.cfg.OCRFallbackProvider, image, filename)
	if fbErr == nil {
		return text, nil
	}
	return "", fmt.Errorf("OCR failed (%s: %v; %s fallback: %v)", c.cfg.OCRProvider, err, c.cfg.OCRFallbackProvider, fbErr)
}

func (c *Client) ocrWith(ctx context.Context, provider string, image []byte, filename string) (string, error) {
	out, err := c.postFile(ctx, "/ocr/ocr", provider, image, filename)
	if err != nil {
		return "", err
	}
	return c.providerText(out, provider, "OCR")
}

// TranscribeVoice converts a voice note to text.
func (c *Client) TranscribeVoice(ctx context.Context, audio []byte, filename string) (string, error) {
	out, err := c.postFile(ctx, "/audio/speech_to_text", c.cfg.SpeechProvider, audio, filename)
	if err != nil {
		return "", err
	}
	return c.providerText(out, c.cfg.SpeechProvider, "transcription")
}

// CheckPlagiarism scores a text for plagiarism. The score is in [0, 1];
// lower is more original.
func (c *Client) CheckPlagiarism(ctx context.Context, text string) (float64, error) {
	body := map[string]any{
		"providers": c.cfg.PlagiarismProvider,
		"text":      text,
	}

	var out map[string]providerResult
	err := httputil.PostJSON(ctx, c.http, "Eden AI", edenAPIBase+"/text/plagia_detection", c.authHeaders(), body, &out)
	if err != nil {
		return 0, err
	}

	res, ok := out[c.cfg.PlagiarismProvider]
	if !ok || res.Status != "success" {
		return 0, fmt.Errorf("Eden AI plagiarism provider %s failed: %s", c.cfg.PlagiarismProvider, res.Error.Message)
	}
	if res.PlagiaScore < 0 || res.PlagiaScore > 1 {
		return 0, fmt.Errorf("Eden AI plagiarism score %f out of range", res.PlagiaScore)
	}
	return res.PlagiaScore, nil
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}

// postFile uploads a media file with the providers field and decodes the
// per-provider response map.
func (c *Client) postFile(ctx context.Context, path, provider string, data []byte, filename string) (map[string]providerResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("providers", provider); err != nil {
		return nil, fmt.Errorf("building Eden AI form: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building Eden AI form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building Eden AI form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building Eden AI form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, edenAPIBase+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating Eden AI request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Eden AI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Eden AI returned HTTP %d", resp.StatusCode)
	}

	var out map[string]providerResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing Eden AI response: %w", err)
	}
	return out, nil
}

func (c *Client) providerText(out map[string]providerResult, provider, task string) (string, error) {
	res, ok := out[provider]
	if !ok || res.Status != "success" {
		return "", fmt.Errorf("Eden AI %s provider %s failed: %s", task, provider, res.Error.Message)
	}
	if res.Text == "" {
		return "", fmt.Errorf("Eden AI %s provider %s returned no text", task, provider)
	}
	return res.Text, nil
}
