// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PublicationComparison is the narrative layer's output for one publication.
// The free-text fields come from the narrative generator; OverlapRating and
// Score are always pulled from the matched SimilarityResult, never from the
// generator's own assertions.
type PublicationComparison struct {
	PublicationID        string   `json:"publication_id" yaml:"publication_id"`
	Title                string   `json:"title" yaml:"title"`
	SimilarityAssessment string   `json:"similarity_assessment" yaml:"similarity_assessment"`
	KeyDifferences       []string `json:"key_differences,omitempty" yaml:"key_differences,omitempty"`
	KeyOverlaps          []string `json:"key_overlaps,omitempty" yaml:"key_overlaps,omitempty"`

	// OverlapRating is the authoritative rating recomputed from the
	// matched similarity score. Defaults to low on an enrichment miss.
	OverlapRating OverlapRating `json:"overlap_rating" yaml:"overlap_rating"`

	// Score is the authoritative composite similarity, 0 on a miss.
	Score float64 `json:"similarity_score" yaml:"similarity_score"`

	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Branches []Branch `json:"funding_branches,omitempty" yaml:"funding_branches,omitempty"`
}

// BranchRelevance is the narrative generator's assessment of whether the
// topic is inherently tied to the branch of interest or a cross-branch
// problem. Advisory only; it feeds no verdict rule.
type BranchRelevance struct {
	// Determination is "branch_specific" or "cross_branch".
	Determination string `json:"determination" yaml:"determination"`

	// Reasoning is a short explanation of the determination.
	Reasoning string `json:"reasoning" yaml:"reasoning"`
}

// AnalysisReport is the complete assessment for one proposal. Built once per
// pipeline run and immutable thereafter, except that TotalResultsFound is
// patched late with the pre-filter publication count.
type AnalysisReport struct {
	Proposal Proposal `json:"proposal" yaml:"proposal"`

	// Verdict and Confidence are deterministic: computed by the scoring
	// engine before any narrative call and never overwritten by one.
	Verdict    Verdict `json:"verdict" yaml:"verdict"`
	Confidence float64 `json:"confidence" yaml:"confidence"`

	ExecutiveSummary        string                  `json:"executive_summary" yaml:"executive_summary"`
	Comparisons             []PublicationComparison `json:"comparisons,omitempty" yaml:"comparisons,omitempty"`
	PointsOfDifferentiation []string                `json:"points_of_differentiation,omitempty" yaml:"points_of_differentiation,omitempty"`
	Recommendations         []string                `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	BranchRelevance         *BranchRelevance        `json:"branch_relevance,omitempty" yaml:"branch_relevance,omitempty"`

	// TotalResultsFound counts publications retrieved before similarity
	// filtering; ResultsAnalyzed counts those that survived it.
	TotalResultsFound int `json:"total_results_found" yaml:"total_results_found"`
	ResultsAnalyzed   int `json:"results_analyzed" yaml:"results_analyzed"`

	// SearchQueriesUsed lists the generated query texts in order.
	SearchQueriesUsed []string `json:"search_queries_used,omitempty" yaml:"search_queries_used,omitempty"`

	// LandscapeMap holds the 2D projection for visualization. Never on the
	// decision path; empty when the projection is degenerate.
	LandscapeMap []MapPoint `json:"landscape_map,omitempty" yaml:"landscape_map,omitempty"`
}
