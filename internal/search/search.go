// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic APIs and returns unified, deduplicated
// candidate sources for the approval step.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pdiddy/paperbot/pkg/types"
)

// Backend searches a single academic API. Each backend (Semantic Scholar,
// CrossRef) implements this interface per the Strategy pattern.
type Backend interface {
	Name() string
	Search(ctx context.Context, keywords []string, cfg types.SearchConfig) ([]types.SourceRecord, error)
}

// Output holds the results and dedup statistics.
type Output struct {
	Results       []types.SourceRecord
	DupsRemoved   int
	BackendErrors []string
}

// Search fans out the keywords to all backends concurrently, deduplicates
// and filters results, and returns the top N. Backend failures degrade to
// warnings as long as at least one backend answers; there is no implicit
// retry beyond the shared 429 backoff.
func Search(ctx context.Context, keywords []string, backends []Backend, cfg types.SearchConfig) (Output, error) {
	if len(keywords) == 0 {
		return Output{}, fmt.Errorf("no keywords: provide a research topic first")
	}
	if len(backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}

	type backendResult struct {
		results []types.SourceRecord
		err     error
		name    string
	}

	ch := make(chan backendResult, len(backends))
	var wg sync.WaitGroup

	for _, b := range backends {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, keywords, cfg)
			ch <- backendResult{results: results, err: err, name: b.Name()}
		}(b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	// Collect in a fixed backend order so dedup's keep-first rule is
	// deterministic across runs.
	byName := make(map[string][]types.SourceRecord)
	var backendErrors []string
	for br := range ch {
		if br.err != nil {
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", br.name, br.err))
			continue
		}
		byName[br.name] = br.results
	}

	var all []types.SourceRecord
	for _, b := range backends {
		all = append(all, byName[b.Name()]...)
	}

	if len(all) == 0 && len(backendErrors) == len(backends) {
		return Output{BackendErrors: backendErrors}, fmt.Errorf("all search backends failed: %s", strings.Join(backendErrors, "; "))
	}

	all = Filter(all, cfg.MinYear, cfg.RequireDOI)
	deduped, removed := Deduplicate(all)

	if cfg.MaxResults > 0 && len(deduped) > cfg.MaxResults {
		deduped = deduped[:cfg.MaxResults]
	}

	return Output{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// Deduplicate removes duplicate sources, keeping the first occurrence and
// preserving the original order. The dedup key is the DOI when present,
// otherwise the normalized title. Pure function; idempotent.
func Deduplicate(records []types.SourceRecord) ([]types.SourceRecord, int) {
	seen := make(map[string]bool)
	var deduped []types.SourceRecord
	removed := 0

	for _, r := range records {
		key := dedupKey(r)
		if key != "" && seen[key] {
			removed++
			continue
		}
		if key != "" {
			seen[key] = true
		}
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// dedupKey returns the deduplication key: DOI if present, else normalized title.
func dedupKey(r types.SourceRecord) string {
	if r.DOI != "" {
		return "doi:" + strings.ToLower(r.DOI)
	}
	if t := normalizeTitle(r.Title); t != "" {
		return "title:" + t
	}
	return ""
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Filter drops records older than minYear (when they carry a year) and,
// when requireDOI is set, records without a DOI. Order is preserved.
func Filter(records []types.SourceRecord, minYear int, requireDOI bool) []types.SourceRecord {
	var out []types.SourceRecord
	for _, r := range records {
		if requireDOI && r.DOI == "" {
			continue
		}
		if minYear > 0 && r.Year > 0 && r.Year < minYear {
			continue
		}
		out = append(out, r)
	}
	return out
}
