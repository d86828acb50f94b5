// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SimilarityResult pairs a Publication with its composite similarity score
// and the rank assigned after sorting. Created by the ranker; consumed by
// the scoring engine and the narrative enrichment join.
type SimilarityResult struct {
	// Publication is the ranked record.
	Publication Publication `json:"publication" yaml:"publication"`

	// Score is the composite similarity used for filtering and ranking.
	Score float64 `json:"score" yaml:"score"`

	// Rank is 1-based and dense, assigned in descending score order.
	Rank int `json:"rank" yaml:"rank"`
}

// OverlapRating buckets a similarity score into high, medium, or low.
// It is never stored independently: the rating is recomputed from the score
// and the configured thresholds whenever needed, so the same score always
// yields the same rating.
type OverlapRating string

const (
	OverlapHigh   OverlapRating = "high"
	OverlapMedium OverlapRating = "medium"
	OverlapLow    OverlapRating = "low"
)

// Verdict is the landscape-coverage conclusion, a pure function of the
// overlap ratings and branch matches across all results, never of narrative
// output.
type Verdict string

const (
	// VerdictUnique: open landscape, no substantially similar work found.
	VerdictUnique Verdict = "UNIQUE"

	// VerdictBranchOpportunity: similar work exists but none of it shares
	// the branch of interest.
	VerdictBranchOpportunity Verdict = "BRANCH_OPPORTUNITY"

	// VerdictAtRisk: the topic is already well covered.
	VerdictAtRisk Verdict = "AT_RISK"

	// VerdictNeedsReview: mixed coverage requiring human judgment.
	VerdictNeedsReview Verdict = "NEEDS_REVIEW"
)

// MapPoint is one 2D coordinate on the landscape visualization. The first
// point of a map is the proposal itself; the rest are publications.
type MapPoint struct {
	X float64 `json:"x" yaml:"x"`

	Y float64 `json:"y" yaml:"y"`

	// Type is "query" for the proposal point, "relevant" for publications
	// at or above the similarity threshold, and "background" otherwise.
	Type string `json:"type" yaml:"type"`

	// Label is the proposal marker or a truncated publication title.
	Label string `json:"label" yaml:"label"`

	// Similarity is the raw holistic similarity (1.0 for the proposal),
	// rounded to three decimals.
	Similarity float64 `json:"similarity" yaml:"similarity"`
}
