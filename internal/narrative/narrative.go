// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package narrative produces the analyst-facing layer of a run: it sends
// the proposal and ranked publications to a Generative AI model and folds
// the response into an AnalysisReport. The deterministic verdict,
// confidence, and overlap ratings are computed first and pinned in the
// prompt; the model narrates around them and is never allowed to change
// them.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pdiddy/novelty-engine/internal/scoring"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

// Generator abstracts the Generative AI API so tests can supply a mock.
// It returns the raw response text; parsing stays with the caller so a
// malformed response can be surfaced verbatim.
type Generator interface {
	Analyze(ctx context.Context, system, user string) (string, error)
}

// Analyzer runs the narrative stage.
type Analyzer struct {
	gen   Generator
	score *scoring.Engine
	cfg   types.NarrativeConfig
}

// New returns an Analyzer using gen for model calls and score for the
// deterministic metrics.
func New(gen Generator, score *scoring.Engine, cfg types.NarrativeConfig) *Analyzer {
	return &Analyzer{gen: gen, score: score, cfg: cfg}
}

// Analyze produces the full report for a ranked result set. A response
// that fails to parse degrades to a report carrying the deterministic
// metrics and the raw response text; only transport-level failures after
// retries are returned as errors.
func (a *Analyzer) Analyze(ctx context.Context, proposal types.Proposal, results []types.SimilarityResult, queries []string) (*types.AnalysisReport, error) {
	assessment := a.score.Assess(results, proposal.Branch)
	slog.Info("computed deterministic metrics",
		"verdict", assessment.Verdict, "confidence", assessment.Confidence)

	user, err := buildAnalysisPrompt(proposal, results, assessment.Ratings, assessment.Verdict, assessment.Confidence)
	if err != nil {
		return nil, err
	}

	maxRetries := a.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	raw, err := callWithRetry(ctx, a.gen, systemPrompt, user, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("narrative analysis: %w", err)
	}

	report := a.baseReport(proposal, results, queries, assessment)

	parsed, err := parseResponse(raw)
	if err != nil {
		slog.Warn("narrative response did not parse, keeping raw text", "error", err)
		report.ExecutiveSummary = fmt.Sprintf("LLM response could not be parsed. Raw response:\n\n%s", raw)
		return report, nil
	}

	idx := newResultIndex(results, assessment.Ratings)
	report.ExecutiveSummary = parsed.ExecutiveSummary
	report.Comparisons = enrichComparisons(parsed.Comparisons, idx)
	report.PointsOfDifferentiation = parsed.PointsOfDifferentiation
	report.Recommendations = parsed.Recommendations
	report.BranchRelevance = parsed.BranchRelevance
	return report, nil
}

// DeterministicReport builds a report from the computed metrics alone,
// for runs with the narrative stage disabled. Comparisons carry verified
// metadata but no narrative text.
func (a *Analyzer) DeterministicReport(proposal types.Proposal, results []types.SimilarityResult, queries []string) *types.AnalysisReport {
	assessment := a.score.Assess(results, proposal.Branch)

	report := a.baseReport(proposal, results, queries, assessment)
	report.ExecutiveSummary = fmt.Sprintf(
		"Narrative analysis was skipped. Deterministic assessment: %s with confidence %.2f across %d ranked publications.",
		assessment.Verdict, assessment.Confidence, len(results))

	for i, sr := range results {
		report.Comparisons = append(report.Comparisons, types.PublicationComparison{
			PublicationID: sr.Publication.ID,
			Title:         sr.Publication.Title,
			OverlapRating: assessment.Ratings[i],
			Score:         sr.Score,
			URL:           sr.Publication.URL,
			Year:          sr.Publication.Year,
			Branches:      sr.Publication.Branches,
		})
	}
	return report
}

func (a *Analyzer) baseReport(proposal types.Proposal, results []types.SimilarityResult, queries []string, assessment scoring.Assessment) *types.AnalysisReport {
	return &types.AnalysisReport{
		Proposal:          proposal,
		Verdict:           assessment.Verdict,
		Confidence:        assessment.Confidence,
		TotalResultsFound: len(results),
		ResultsAnalyzed:   len(results),
		SearchQueriesUsed: queries,
	}
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the generator with exponential backoff.
func callWithRetry(ctx context.Context, gen Generator, system, user string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := gen.Analyze(ctx, system, user)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
