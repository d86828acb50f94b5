// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "novelty-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// EncoderConfig holds settings for the embedding encoder.
type EncoderConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the embeddings service endpoint (default http://localhost:11434).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the primary embedding model (default "nomic-embed-text").
	Model string `json:"model" yaml:"model"`

	// FallbackModel is used when the primary model fails its load probe
	// (default "all-minilm").
	FallbackModel string `json:"fallback_model" yaml:"fallback_model"`
}

// RetrievalConfig holds settings for the publication retrieval stage.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxPages caps result pagination per query (default 5).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// RequestDelay is the mandatory pause between requests (default 2s).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`

	// DetailFetchTopN caps how many publications get a detail fetch (default 50).
	DetailFetchTopN int `json:"detail_fetch_top_n" yaml:"detail_fetch_top_n"`
}

// RankingConfig holds settings for the composite similarity ranker.
type RankingConfig struct {
	// TopK is the maximum number of ranked results (default 20).
	TopK int `json:"top_k" yaml:"top_k"`

	// Threshold is the composite-score inclusion floor (default 0.3).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// ConceptMatchThreshold binarizes concept similarities when computing
	// document frequency (default 0.5).
	ConceptMatchThreshold float64 `json:"concept_match_threshold" yaml:"concept_match_threshold"`

	// HarvestConceptWords also mines title/description words as concepts.
	// Off by default: harvested words are generic, match everything, and
	// drag composite scores down through low IDF weights.
	HarvestConceptWords bool `json:"harvest_concept_words" yaml:"harvest_concept_words"`
}

// ScoringConfig holds the overlap-rating thresholds.
type ScoringConfig struct {
	// HighThreshold is the similarity floor for a "high" rating (default 0.60).
	HighThreshold float64 `json:"high_threshold" yaml:"high_threshold"`

	// MediumThreshold is the similarity floor for a "medium" rating (default 0.45).
	MediumThreshold float64 `json:"medium_threshold" yaml:"medium_threshold"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// NarrativeConfig holds settings for the narrative analysis stage.
type NarrativeConfig struct {
	AIConfig `yaml:",inline"`

	// Disabled skips the narrative call entirely; the report then carries
	// only the deterministic metrics.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// StoreConfig holds settings for the run archive.
type StoreConfig struct {
	// DataDir is the directory holding the archive database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// AccessCode gates the API when non-empty; clients exchange it for a
	// hashed cookie via /api/auth. Empty disables the gate.
	AccessCode string `json:"access_code,omitempty" yaml:"access_code,omitempty"`
}

// ReportConfig holds settings for report output.
type ReportConfig struct {
	// OutputDir is where Markdown reports are written (default "reports").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Encoder   EncoderConfig   `json:"encoder" yaml:"encoder"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Ranking   RankingConfig   `json:"ranking" yaml:"ranking"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Narrative NarrativeConfig `json:"narrative" yaml:"narrative"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Report    ReportConfig    `json:"report" yaml:"report"`
}
