// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage uploads built documents to Google Drive and returns a
// shareable link. Upload is best-effort: when it is not configured or
// fails, the document stays local and the bot says so.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/pdiddy/paperbot/internal/httputil"
	"github.com/pdiddy/paperbot/pkg/types"
)

// Drive API endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	driveUploadBase = "https://www.googleapis.com/upload/drive/v3/files"
	driveFilesBase  = "https://www.googleapis.com/drive/v3/files"
)

// Client uploads documents to a Drive folder.
type Client struct {
	http *http.Client
	cfg  types.StorageConfig
}

// NewClient builds a Drive client from config.
func NewClient(cfg types.StorageConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Configured reports whether cloud upload is enabled.
func (c *Client) Configured() bool { return c.cfg.AccessToken != "" }

// Upload sends the document to Drive, makes it link-shareable, and returns
// the view link. Returns "" without error when upload is not configured.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	if !c.Configured() {
		return "", nil
	}

	meta := map[string]any{"name": filename}
	if c.cfg.FolderID != "" {
		meta["parents"] = []string{c.cfg.FolderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encoding Drive metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("building Drive upload: %w", err)
	}
	metaPart.Write(metaJSON)

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "text/markdown")
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return "", fmt.Errorf("building Drive upload: %w", err)
	}
	if _, err := io.Copy(mediaPart, content); err != nil {
		return "", fmt.Errorf("building Drive upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building Drive upload: %w", err)
	}

	url := driveUploadBase + "?uploadType=multipart&fields=id,webViewLink"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("creating Drive request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("Drive upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("Drive upload returned HTTP %d", resp.StatusCode)
	}

	var created struct {
		ID          string `json:"id"`
		WebViewLink string `json:"webViewLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("parsing Drive response: %w", err)
	}

	// Share by link; a failure here still leaves a usable owner link.
	if err := c.shareByLink(ctx, created.ID); err != nil {
		return created.WebViewLink, nil
	}
	return created.WebViewLink, nil
}

// shareByLink grants anyone-with-the-link read access.
func (c *Client) shareByLink(ctx context.Context, fileID string) error {
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.AccessToken}
	body := map[string]string{"role": "reader", "type": "anyone"}
	return httputil.PostJSON(ctx, c.http, "Drive", driveFilesBase+"/"+fileID+"/permissions", headers, body, nil)
}
