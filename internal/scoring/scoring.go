// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring turns ranked similarity results into a reproducible
// verdict, confidence value, and per-publication overlap ratings. These
// replace narrative-generated metrics with rules-based computation: the
// narrative layer is told to reference them, never to override them.
package scoring

import (
	"math"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// Default rating thresholds, calibrated for embedding cosine similarity
// where the ranker's inclusion floor is already 0.30.
const (
	DefaultHighThreshold   = 0.60
	DefaultMediumThreshold = 0.45
)

// Engine applies the deterministic scoring rules.
type Engine struct {
	cfg types.ScoringConfig
}

// New returns an Engine. Zero thresholds fall back to the defaults.
func New(cfg types.ScoringConfig) *Engine {
	if cfg.HighThreshold == 0 {
		cfg.HighThreshold = DefaultHighThreshold
	}
	if cfg.MediumThreshold == 0 {
		cfg.MediumThreshold = DefaultMediumThreshold
	}
	return &Engine{cfg: cfg}
}

// Assessment bundles the scoring outputs for a result set.
type Assessment struct {
	Verdict    types.Verdict
	Confidence float64
	// Ratings is aligned with the input results.
	Ratings []types.OverlapRating
}

// Assess rates every result, derives the verdict against the proposal's
// branch, and computes the confidence.
func (e *Engine) Assess(results []types.SimilarityResult, branch types.Branch) Assessment {
	ratings := e.RateAll(results)
	verdict := e.Verdict(results, ratings, branch)
	return Assessment{
		Verdict:    verdict,
		Confidence: e.Confidence(results, ratings, verdict),
		Ratings:    ratings,
	}
}

// RateOverlap maps a similarity score to a categorical overlap rating:
// high at 0.60 and above, medium at 0.45, low below that.
func (e *Engine) RateOverlap(score float64) types.OverlapRating {
	switch {
	case score >= e.cfg.HighThreshold:
		return types.OverlapHigh
	case score >= e.cfg.MediumThreshold:
		return types.OverlapMedium
	default:
		return types.OverlapLow
	}
}

// RateAll rates each result, preserving order.
func (e *Engine) RateAll(results []types.SimilarityResult) []types.OverlapRating {
	ratings := make([]types.OverlapRating, len(results))
	for i, r := range results {
		ratings[i] = e.RateOverlap(r.Score)
	}
	return ratings
}

// Verdict derives the categorical verdict from the overlap distribution
// and branch matching. Rules, first match wins:
//
//  1. no results at all: UNIQUE
//  2. any high-overlap publication, any branch: AT_RISK
//  3. a medium-overlap publication shares the proposal's branch: NEEDS_REVIEW
//  4. medium overlaps exist but none share the branch: BRANCH_OPPORTUNITY
//  5. only low overlaps: UNIQUE
func (e *Engine) Verdict(results []types.SimilarityResult, ratings []types.OverlapRating, branch types.Branch) types.Verdict {
	if len(results) == 0 {
		return types.VerdictUnique
	}

	var anyHigh, anyMedium, mediumShares bool
	for i, rating := range ratings {
		switch rating {
		case types.OverlapHigh:
			anyHigh = true
		case types.OverlapMedium:
			anyMedium = true
			if results[i].Publication.HasBranch(branch) {
				mediumShares = true
			}
		}
	}

	switch {
	case anyHigh:
		return types.VerdictAtRisk
	case mediumShares:
		return types.VerdictNeedsReview
	case anyMedium:
		return types.VerdictBranchOpportunity
	default:
		return types.VerdictUnique
	}
}

/// Confidence computes a confidence value in [0.10, 0.99] for the verdict:
// a verdict-specific base plus a sample-size bonus, clamped and rounded
// to two decimals. With no results at all the confidence is a flat 0.90.
func (e *Engine) Confidence(results []types.SimilarityResult, ratings []types.OverlapRating, verdict types.Verdict) float64 {
	if len(results) == 0 {
		return 0.90
	}

	maxScore := results[0].Score
	for _, r := range results[1:] {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	var nHigh, nMedium int
	for _, rating := range ratings {
		switch rating {
		case types.OverlapHigh:
			nHigh++
		case types.OverlapMedium:
			nMedium++
		}
	}

	var base float64
	switch verdict {
	case types.VerdictUnique:
		// The further the best score sits below the medium threshold, the
		// stronger the uniqueness signal. Maps to roughly 0.60 to 0.95.
		gap := e.cfg.MediumThreshold - maxScore
		base = 0.60 + math.Min(gap/e.cfg.MediumThreshold, 1.0)*0.35

	case types.VerdictAtRisk:
		// One high overlap starts at 0.66, five or more cap the base at 0.90.
		base = 0.60 + math.Min(float64(nHigh)/5.0, 1.0)*0.30

	case types.VerdictBranchOpportunity:
		base = 0.65 + math.Min(float64(nHigh+nMedium)/8.0, 1.0)*0.20

	default: // NEEDS_REVIEW is inherently uncertain.
		base = 0.45 + math.Min(float64(nMedium)/6.0, 1.0)*0.15
	}

	// Sample-size bonus up to 0.05, capped at 15 results.
	confidence := base + math.Min(float64(len(results))/15.0, 1.0)*0.05

	confidence = math.Max(0.10, math.Min(0.99, confidence))
	return math.Round(confidence*100) / 100
}
