// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/paperbot/internal/httputil"
	"github.com/pdiddy/paperbot/pkg/types"
)

// crossrefAPIBase is the CrossRef works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// CrossRefBackend queries the CrossRef REST API.
type CrossRefBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *CrossRefBackend) Name() string { return "crossref" }

// Search queries CrossRef works and returns candidate sources.
func (b *CrossRefBackend) Search(ctx context.Context, keywords []string, cfg types.SearchConfig) ([]types.SourceRecord, error) {
	q := strings.Join(keywords, " ")
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("empty CrossRef query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{
		"query": {q},
		"rows":  {fmt.Sprintf("%d", maxResults)},
	}
	if cfg.MinYear > 0 {
		params.Set("filter", fmt.Sprintf("from-pub-date:%d-01-01", cfg.MinYear))
	}

	headers := map[string]string{"User-Agent": cfg.UserAgent}

	var cr crossrefResponse
	err := httputil.GetJSON(ctx, b.Client, "CrossRef", crossrefAPIBase+"?"+params.Encode(), headers, &cr)
	if err != nil {
		return nil, err
	}

	var results []types.SourceRecord
	for _, item := range cr.Message.Items {
		results = append(results, item.toRecord())
	}
	return results, nil
}

// ValidateDOI resolves a DOI against the CrossRef works endpoint. It
// returns the resolved record, or nil when the DOI is malformed or unknown.
func ValidateDOI(ctx context.Context, client *http.Client, doi string, cfg types.SearchConfig) (*types.SourceRecord, error) {
	doi = strings.TrimSpace(doi)
	if !doiPattern.MatchString(doi) {
		return nil, nil
	}

	headers := map[string]string{"User-Agent": cfg.UserAgent}

	var cr crossrefWorkResponse
	err := httputil.GetJSON(ctx, client, "CrossRef", crossrefAPIBase+"/"+url.PathEscape(doi), headers, &cr)
	if err != nil {
		// An unknown DOI is a 404, not an adapter failure.
		if strings.Contains(err.Error(), "HTTP 404") {
			return nil, nil
		}
		return nil, err
	}

	r := cr.Message.toRecord()
	return &r, nil
}

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message struct {
		Items []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefWorkResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI       string   `json:"DOI"`
	Title     []string `json:"title"`
	Abstract  string   `json:"abstract"`
	URL       string   `json:"URL"`
	Author    []crossrefAuthor `json:"author"`
	Published struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

func (w crossrefWork) toRecord() types.SourceRecord {
	r := types.SourceRecord{
		DOI:      w.DOI,
		Abstract: stripJATS(w.Abstract),
		URL:      w.URL,
		Backend:  "crossref",
	}
	if len(w.Title) > 0 {
		r.Title = w.Title[0]
	}
	for _, a := range w.Author {
		switch {
		case a.Given != "" || a.Family != "":
			r.Authors = append(r.Authors, strings.TrimSpace(a.Given+" "+a.Family))
		case a.Name != "":
			r.Authors = append(r.Authors, a.Name)
		}
	}
	if len(w.Published.DateParts) > 0 && len(w.Published.DateParts[0]) > 0 {
		r.Year = w.Published.DateParts[0][0]
	}
	return r
}

// jatsTagPattern matches the JATS XML tags CrossRef embeds in abstracts.
var jatsTagPattern = regexp.MustCompile(`</?jats:[^>]+>`)

func stripJATS(s string) string {
	return strings.TrimSpace(jatsTagPattern.ReplaceAllString(s, ""))
}
