// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zotero imports approved sources into a Zotero library so the
// user keeps a reference-manager copy of everything the draft cites.
package zotero

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paperbot/internal/httputil"
	"github.com/pdiddy/paperbot/pkg/types"
)

// zoteroAPIBase is the Zotero API root. Declared as a var so tests can
// substitute an httptest server.
var zoteroAPIBase = "https://api.zotero.org"

// Client talks to the Zotero API for one user library.
type Client struct {
	http *http.Client
	cfg  types.ZoteroConfig
}

// NewClient builds a Zotero client from config.
func NewClient(cfg types.ZoteroConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Configured reports whether citation import is enabled.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.UserID != ""
}

// ImportCitation creates a journal-article item for the source and returns
// its Zotero item key, or "" when import is disabled or the item was
// rejected. The caller treats "" as "no external key", not as a failure.
func (c *Client) ImportCitation(ctx context.Context, src types.SourceRecord) (string, error) {
	if !c.Configured() {
		return "", nil
	}

	item := map[string]any{
		"itemType": "journalArticle",
		"title":    src.Title,
		"DOI":      src.DOI,
		"url":      src.URL,
		"creators": creators(src.Authors),
	}
	if src.Year > 0 {
		item["date"] = fmt.Sprintf("%d", src.Year)
	}
	if src.Abstract != "" {
		item["abstractNote"] = src.Abstract
	}

	headers := map[string]string{
		"Zotero-API-Key":     c.cfg.APIKey,
		"Zotero-API-Version": "3",
	}

	url := fmt.Sprintf("%s/users/%s/items", zoteroAPIBase, c.cfg.UserID)

	var out importResponse
	if err := httputil.PostJSON(ctx, c.http, "Zotero", url, headers, []any{item}, &out); err != nil {
		return "", err
	}

	if created, ok := out.Successful["0"]; ok {
		return created.Key, nil
	}
	return "", nil
}

// creators converts full-name strings into Zotero creator objects,
// splitting on the last space: everything before is the first name, the
// last token is the last name.
func creators(authors []string) []map[string]string {
	out := make([]map[string]string, 0, len(authors))
	for _, name := range authors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c := map[string]string{"creatorType": "author"}
		if idx := strings.LastIndex(name, " "); idx >= 0 {
			c["firstName"] = name[:idx]
			c["lastName"] = name[idx+1:]
		} else {
			c["name"] = name
		}
		out = append(out, c)
	}
	return out
}

// Zotero API JSON structures.
type importResponse struct {
	Successful map[string]struct {
		Key string `json:"key"`
	} `json:"successful"`
	Failed map[string]struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"failed"`
}
