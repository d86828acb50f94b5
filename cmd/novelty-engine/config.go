package main

import (
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/pdiddy/novelty-engine/internal/encoder"
	"github.com/pdiddy/novelty-engine/internal/metrics"
	"github.com/pdiddy/novelty-engine/internal/narrative"
	"github.com/pdiddy/novelty-engine/internal/pipeline"
	"github.com/pdiddy/novelty-engine/internal/rank"
	"github.com/pdiddy/novelty-engine/internal/retrieval"
	"github.com/pdiddy/novelty-engine/internal/scoring"
	"github.com/pdiddy/novelty-engine/internal/secrets"
	"github.com/pdiddy/novelty-engine/internal/store"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

// engineConfig assembles the pipeline configuration from the config file,
// environment, and secrets. Zero values defer to per-package defaults.
func engineConfig() types.PipelineConfig {
	var cfg types.PipelineConfig

	cfg.Encoder.BaseURL = viper.GetString("encoder.base_url")
	cfg.Encoder.Model = viper.GetString("encoder.model")
	cfg.Encoder.FallbackModel = viper.GetString("encoder.fallback_model")
	cfg.Encoder.Timeout = viper.GetDuration("encoder.timeout")

	cfg.Retrieval.MaxPages = viper.GetInt("retrieval.max_pages")
	cfg.Retrieval.RequestDelay = viper.GetDuration("retrieval.request_delay")
	cfg.Retrieval.DetailFetchTopN = viper.GetInt("retrieval.detail_fetch_top_n")
	cfg.Retrieval.Timeout = viper.GetDuration("retrieval.timeout")
	cfg.Retrieval.UserAgent = viper.GetString("retrieval.user_agent")

	cfg.Ranking.TopK = viper.GetInt("ranking.top_k")
	cfg.Ranking.Threshold = viper.GetFloat64("ranking.threshold")
	cfg.Ranking.ConceptMatchThreshold = viper.GetFloat64("ranking.concept_match_threshold")
	cfg.Ranking.HarvestConceptWords = viper.GetBool("ranking.harvest_concept_words")

	cfg.Scoring.HighThreshold = viper.GetFloat64("scoring.high_threshold")
	cfg.Scoring.MediumThreshold = viper.GetFloat64("scoring.medium_threshold")

	cfg.Narrative.Model = viper.GetString("narrative.model")
	cfg.Narrative.MaxRetries = viper.GetInt("narrative.max_retries")
	cfg.Narrative.Disabled = viper.GetBool("narrative.disabled")
	cfg.Narrative.APIKey = secrets.Get(loadedSecrets, "anthropic-api-key")

	cfg.Store.DataDir = viper.GetString("store.data_dir")

	cfg.Server.Addr = viper.GetString("server.addr")
	cfg.Server.AccessCode = secrets.Get(loadedSecrets, "access-code")

	cfg.Report.OutputDir = viper.GetString("report.output_dir")

	return cfg
}

// newRunner assembles the assessment pipeline from cfg. The metrics and
// archive arguments may be nil; the caller owns closing the archive.
func newRunner(cfg types.PipelineConfig, mx *metrics.Metrics, archive *store.Store, progress io.Writer) (*pipeline.Runner, error) {
	enc := encoder.New(cfg.Encoder)
	enc.Metrics = mx

	src := retrieval.NewDimensions(cfg.Retrieval, progress)
	src.Metrics = mx

	var gen narrative.Generator
	if !cfg.Narrative.Disabled {
		if cfg.Narrative.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set: export it, add .secrets/anthropic-api-key, or pass --no-narrative")
		}
		gen = &narrative.ClaudeGenerator{APIKey: cfg.Narrative.APIKey, Model: cfg.Narrative.Model}
	}

	return pipeline.New(pipeline.Options{
		Source:   src,
		Ranker:   rank.New(enc, cfg.Ranking),
		Analyzer: narrative.New(gen, scoring.New(cfg.Scoring), cfg.Narrative),
		Archive:  archive,
		Metrics:  mx,
		Config:   cfg,
		Progress: progress,
	}), nil
}
