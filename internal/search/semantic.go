// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paperbot/internal/httputil"
	"github.com/pdiddy/paperbot/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,url"

// SemanticScholarBackend queries the Semantic Scholar API.
type SemanticScholarBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API and returns candidate sources.
func (b *SemanticScholarBackend) Search(ctx context.Context, keywords []string, cfg types.SearchConfig) ([]types.SourceRecord, error) {
	q := strings.Join(keywords, " ")
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{
		"query":  {q},
		"limit":  {fmt.Sprintf("%d", maxResults)},
		"fields": {semanticFields},
	}
	if cfg.MinYear > 0 {
		params.Set("year", fmt.Sprintf("%d-", cfg.MinYear))
	}

	headers := map[string]string{"User-Agent": cfg.UserAgent}
	if b.APIKey != "" {
		headers["x-api-key"] = b.APIKey
	}

	var sr semanticResponse
	err := httputil.GetJSON(ctx, b.Client, "Semantic Scholar", semanticAPIBase+"?"+params.Encode(), headers, &sr)
	if err != nil {
		return nil, err
	}

	var results []types.SourceRecord
	for _, paper := range sr.Data {
		r := types.SourceRecord{
			Title:    paper.Title,
			Abstract: paper.Abstract,
			Year:     paper.Year,
			DOI:      paper.ExternalIDs.DOI,
			URL:      paper.URL,
			Backend:  "semantic_scholar",
		}
		for _, a := range paper.Authors {
			r.Authors = append(r.Authors, a.Name)
		}
		results = append(results, r)
	}
	return results, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Abstract    string              `json:"abstract"`
	Year        int                 `json:"year"`
	URL         string              `json:"url"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}
