// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/paperbot/pkg/types"
)

func withGroqServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := groqAPIBase
	groqAPIBase = ts.URL
	t.Cleanup(func() { groqAPIBase = old })

	c := NewClient(types.LLMConfig{Model: "llama-3.3-70b-versatile", APIKey: "gsk_test"})
	c.http = ts.Client()
	return c
}

func TestComplete(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	c := withGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"a draft"}}]}`)
	})

	got, err := c.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "a draft" {
		t.Errorf("content = %q", got)
	}
	if gotAuth != "Bearer gsk_test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Content != "user prompt" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c := withGroqServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestDraftPromptListsSources(t *testing.T) {
	sources := []types.SourceRecord{
		{Title: "Paper One", Authors: []string{"Jane Doe"}, Year: 2022, DOI: "10.1/a"},
		{Title: "Paper Two", Year: 2023},
	}

	system, user, err := DraftPrompt("Climate change", sources, types.FormatAPA, 5, "")
	if err != nil {
		t.Fatalf("DraftPrompt: %v", err)
	}
	if !strings.Contains(system, "academic writing assistant") {
		t.Errorf("system = %q", system)
	}
	for _, want := range []string{
		"Topic: Climate change",
		"approximately 5 pages",
		"Citation style: APA",
		"[1] Paper One — Jane Doe (2022), doi:10.1/a",
		"[2] Paper Two (2023)",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q\n%s", want, user)
		}
	}
	if strings.Contains(user, "Additional instruction") {
		t.Error("note rendered when empty")
	}
}

func TestDraftPromptRetryNote(t *testing.T) {
	_, user, err := DraftPrompt("Topic", nil, types.FormatMLA, 3, "rewrite with more originality")
	if err != nil {
		t.Fatalf("DraftPrompt: %v", err)
	}
	if !strings.Contains(user, "Additional instruction: rewrite with more originality") {
		t.Errorf("note not rendered:\n%s", user)
	}
}

type fakeCompleter struct {
	out string
	err error
}

func (f fakeCompleter) Complete(context.Context, string, string) (string, error) {
	return f.out, f.err
}

func TestGenerateKeywords(t *testing.T) {
	t.Run("parses completion lines", func(t *testing.T) {
		c := fakeCompleter{out: "- climate adaptation\n2. crop yield\n\n\"food security\"\n"}
		got := GenerateKeywords(context.Background(), c, "Climate change impacts on agriculture", nil)
		want := []string{"climate adaptation", "crop yield", "food security"}
		if len(got) != len(want) {
			t.Fatalf("got %v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("falls back to naive derivation on error", func(t *testing.T) {
		c := fakeCompleter{err: fmt.Errorf("HTTP 500")}
		got := GenerateKeywords(context.Background(), c, "Climate change impacts on agriculture", nil)
		want := []string{"climate", "change", "agriculture"}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("falls back when completion is empty", func(t *testing.T) {
		c := fakeCompleter{out: "\n\n"}
		got := GenerateKeywords(context.Background(), c, "Transformers", nil)
		if len(got) != 1 || got[0] != "transformers" {
			t.Errorf("got %v", got)
		}
	})
}

func TestNaiveKeywordsDegenerateTopic(t *testing.T) {
	got := NaiveKeywords("of")
	if len(got) != 1 || got[0] != "of" {
		t.Errorf("got %v, want the trimmed topic itself", got)
	}
}
