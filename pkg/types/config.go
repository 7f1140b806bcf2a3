// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperbot/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// TelegramConfig holds settings for the chat transport.
type TelegramConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Token is the Bot API token. Required; the process refuses to start
	// without it.
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`

	// AdminChatID is the operator notification channel. Zero disables
	// operator alerts.
	AdminChatID int64 `json:"admin_chat_id" yaml:"admin_chat_id" mapstructure:"admin_chat_id"`

	// PollTimeout is the long-poll wait passed to getUpdates (default 30s).
	PollTimeout time.Duration `json:"poll_timeout" yaml:"poll_timeout" mapstructure:"poll_timeout"`
}

// SearchConfig holds settings for the source search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of candidate sources to return (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableCrossRef controls whether the CrossRef backend is used.
	EnableCrossRef bool `json:"enable_crossref" yaml:"enable_crossref" mapstructure:"enable_crossref"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// MinYear drops results published before this year (default 2020).
	MinYear int `json:"min_year" yaml:"min_year" mapstructure:"min_year"`

	// RequireDOI drops results without a DOI (default true); the approval
	// and citation-import steps need one.
	RequireDOI bool `json:"require_doi" yaml:"require_doi" mapstructure:"require_doi"`
}

// LLMConfig holds settings for the Groq chat-completions adapter.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Model is the model identifier (e.g. "llama-3.3-70b-versatile").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the Groq API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens bounds the completion length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// DraftTimeout bounds a single draft-generation call; drafting may take
	// tens of seconds (default 120s). Timeout is treated as adapter failure.
	DraftTimeout time.Duration `json:"draft_timeout" yaml:"draft_timeout" mapstructure:"draft_timeout"`
}

// EdenConfig holds settings for the Eden AI adapters (OCR, transcription,
// plagiarism).
type EdenConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the Eden AI API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// OCRProvider is the primary OCR provider (default "google").
	OCRProvider string `json:"ocr_provider" yaml:"ocr_provider" mapstructure:"ocr_provider"`

	// OCRFallbackProvider is tried when the primary provider fails
	// (default "amazon").
	OCRFallbackProvider string `json:"ocr_fallback_provider" yaml:"ocr_fallback_provider" mapstructure:"ocr_fallback_provider"`

	// SpeechProvider is the transcription provider (default "openai").
	SpeechProvider string `json:"speech_provider" yaml:"speech_provider" mapstructure:"speech_provider"`

	// PlagiarismProvider is the plagiarism-detection provider (default "originalityai").
	PlagiarismProvider string `json:"plagiarism_provider" yaml:"plagiarism_provider" mapstructure:"plagiarism_provider"`
}

// ZoteroConfig holds settings for the citation import adapter.
type ZoteroConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the Zotero API key; empty disables citation import.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// UserID is the Zotero user library the citations are imported into.
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty" mapstructure:"user_id"`
}

// StorageConfig holds settings for the document upload adapter.
type StorageConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// AccessToken authorizes uploads; empty disables cloud upload and
	// documents stay local.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty" mapstructure:"access_token"`

	// FolderID is the Drive folder uploads land in.
	FolderID string `json:"folder_id,omitempty" yaml:"folder_id,omitempty" mapstructure:"folder_id"`
}

// HistoryConfig holds settings for the History Store.
type HistoryConfig struct {
	// DataDir is the directory holding the store database (default "data/").
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// MaxEntries caps how many history entries a single read returns (default 50).
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`
}

// BotConfig holds settings for the conversation controller.
type BotConfig struct {
	// PlagiarismThreshold is the quality gate: drafts scoring above it are
	// regenerated (default 0.10).
	PlagiarismThreshold float64 `json:"plagiarism_threshold" yaml:"plagiarism_threshold" mapstructure:"plagiarism_threshold"`

	// DraftMaxRetries caps plagiarism-triggered regenerations (default 2).
	// Exceeding the cap surfaces a manual-review outcome.
	DraftMaxRetries int `json:"draft_max_retries" yaml:"draft_max_retries" mapstructure:"draft_max_retries"`

	// SessionTTL is how long an idle session is kept before it ages out
	// (default 2h). Expiry is equivalent to /cancel.
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" mapstructure:"session_ttl"`

	// OutputDir is where built documents are written (default "output/documents").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// HealthAddr is the listen address for the health endpoint; empty
	// disables it (e.g. ":8080").
	HealthAddr string `json:"health_addr,omitempty" yaml:"health_addr,omitempty" mapstructure:"health_addr"`
}

// Config groups all stage configurations for the bot.
type Config struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram" mapstructure:"telegram"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Eden     EdenConfig     `json:"eden" yaml:"eden" mapstructure:"eden"`
	Zotero   ZoteroConfig   `json:"zotero" yaml:"zotero" mapstructure:"zotero"`
	Storage  StorageConfig  `json:"storage" yaml:"storage" mapstructure:"storage"`
	History  HistoryConfig  `json:"history" yaml:"history" mapstructure:"history"`
	Bot      BotConfig      `json:"bot" yaml:"bot" mapstructure:"bot"`
}
