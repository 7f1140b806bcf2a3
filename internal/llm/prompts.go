// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/paperbot/pkg/types"
)

const draftSystemPrompt = `You are an academic writing assistant. You produce well-structured paper drafts with inline citations referencing only the sources provided. Never invent sources.`

var promptFuncs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}

// draftPromptTmpl renders the draft-generation prompt: topic, length,
// citation style, and the numbered source list the draft must cite.
var draftPromptTmpl = template.Must(template.New("draft").Funcs(promptFuncs).Parse(`Write an academic paper draft on the following topic.

Topic: {{.Topic}}
Length: approximately {{.Pages}} pages
Citation style: {{.Format}}

Cite only these sources, using inline {{.Format}} citations:
{{range $i, $s := .Sources}}[{{inc $i}}] {{$s.Title}}{{if $s.Authors}} — {{join $s.Authors ", "}}{{end}}{{if $s.Year}} ({{$s.Year}}){{end}}{{if $s.DOI}}, doi:{{$s.DOI}}{{end}}
{{end}}
Structure the draft with an introduction, body sections with headings, and a conclusion. Every factual claim drawn from a source must carry an inline citation. Do not include a bibliography; it is appended separately.
{{if .Note}}
Additional instruction: {{.Note}}
{{end}}`))

// DraftPrompt renders the system and user prompts for draft generation.
// note annotates retries, e.g. an originality instruction after a failed
// plagiarism gate.
func DraftPrompt(topic string, sources []types.SourceRecord, format types.CitationFormat, pages int, note string) (system, user string, err error) {
	var buf bytes.Buffer
	err = draftPromptTmpl.Execute(&buf, struct {
		Topic   string
		Pages   int
		Format  types.CitationFormat
		Sources []types.SourceRecord
		Note    string
	}{topic, pages, format, sources, note})
	if err != nil {
		return "", "", fmt.Errorf("rendering draft prompt: %w", err)
	}
	return draftSystemPrompt, buf.String(), nil
}

const keywordsSystemPrompt = `You generate academic search keywords. Respond with 3 to 6 keywords, one per line, no numbering, no commentary.`

// KeywordsPrompt renders the prompt for deriving search keywords from a
// topic, optionally informed by the chat's prior topics.
func KeywordsPrompt(topic string, priorTopics []string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n", topic)
	if len(priorTopics) > 0 {
		fmt.Fprintf(&b, "Earlier topics from this user (for context): %s\n", strings.Join(priorTopics, "; "))
	}
	b.WriteString("Generate search keywords for academic paper databases.")
	return keywordsSystemPrompt, b.String()
}

const revisionSystemPrompt = `You are an academic editor. Given a draft and a revision request, produce the revised draft in full, preserving inline citations. Respond with the revised draft only.`

// RevisionPrompt renders the prompt for applying a user's revision request
// to the current draft.
func RevisionPrompt(draft, request string) (system, user string) {
	return revisionSystemPrompt, fmt.Sprintf("Revision request: %s\n\nCurrent draft:\n%s", request, draft)
}

// GenerateKeywords derives search keywords for a topic via the completer,
// failing soft to naive derivation from the topic string.
func GenerateKeywords(ctx context.Context, c Completer, topic string, priorTopics []string) []string {
	system, user := KeywordsPrompt(topic, priorTopics)
	raw, err := c.Complete(ctx, system, user)
	if err != nil {
		return NaiveKeywords(topic)
	}
	kws := ParseKeywords(raw)
	if len(kws) == 0 {
		return NaiveKeywords(topic)
	}
	return kws
}

// ParseKeywords splits a completion into keywords: one per line, with
// list markers and surrounding punctuation stripped.
func ParseKeywords(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		kw := strings.TrimSpace(line)
		kw = strings.TrimLeft(kw, "-*•0123456789. ")
		kw = strings.Trim(kw, `"'`)
		if kw != "" {
			out = append(out, kw)
		}
	}
	if len(out) > 6 {
		out = out[:6]
	}
	return out
}

// stopwords excluded from naive keyword derivation.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "for": true, "from": true,
	"in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "to": true, "with": true, "impact": true,
	"impacts": true, "effects": true, "about": true,
}

// NaiveKeywords derives keywords directly from the topic string: the
// significant words, lowercased.
func NaiveKeywords(topic string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) < 3 || stopwords[w] {
			continue
		}
		out = append(out, w)
		if len(out) == 6 {
			break
		}
	}
	if len(out) == 0 && strings.TrimSpace(topic) != "" {
		out = []string{strings.TrimSpace(topic)}
	}
	return out
}
