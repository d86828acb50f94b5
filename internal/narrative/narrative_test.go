// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package narrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/novelty-engine/internal/scoring"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

// stubGenerator returns scripted responses and records the prompts it saw.
type stubGenerator struct {
	responses  []string
	errs       []error
	calls      int
	lastSystem string
	lastUser   string
}

func (s *stubGenerator) Analyze(_ context.Context, system, user string) (string, error) {
	i := s.calls
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return s.responses[len(s.responses)-1], nil
}

// rankedResults yields one high and one medium overlap. With a navy
// proposal the deterministic verdict is AT_RISK at confidence 0.67.
func rankedResults() []types.SimilarityResult {
	return []types.SimilarityResult{
		{
			Publication: types.Publication{
				ID:       "pub.1001",
				Title:    "Adaptive Sonar Arrays",
				Year:     2021,
				URL:      "https://app.dimensions.ai/details/publication/pub.1001",
				Branches: []types.Branch{types.BranchNavy},
			},
			Score: 0.72,
			Rank:  1,
		},
		{
			Publication: types.Publication{
				ID:    "pub.1002",
				Title: "Underwater Acoustic Mapping",
				Year:  2019,
			},
			Score: 0.48,
			Rank:  2,
		},
	}
}

func testProposal() types.Proposal {
	return types.Proposal{
		Title:       "Self-Calibrating Sonar Beamforming",
		Description: "Adaptive beamforming with onboard learning for littoral environments.",
		Keywords:    []string{"sonar", "beamforming"},
		Branch:      types.BranchNavy,
	}
}

const validResponse = `{
  "executive_summary": "Substantial overlap exists with prior Navy-funded sonar work.",
  "comparisons": [
    {
      "publication_id": "pub.1001",
      "title": "Adaptive Sonar Arrays",
      "similarity_assessment": "Both pursue adaptive beamforming for littoral environments.",
      "key_differences": ["The proposed work adds an onboard learning loop."],
      "key_overlaps": ["Shared array geometry and signal chain."]
    },
    {
      "publication_id": "1002",
      "title": "",
      "similarity_assessment": "Partial overlap in mapping methodology.",
      "key_differences": ["Different sensing modality."],
      "key_overlaps": ["Bathymetric survey goals."]
    }
  ],
  "points_of_differentiation": ["Onboard learning loop"],
  "recommendations": ["Cite pub.1001 and state the delta explicitly."],
  "branch_relevance": {
    "determination": "branch_specific",
    "reasoning": "All close matches trace to ONR funding."
  }
}`

func newTestAnalyzer(gen Generator) *Analyzer {
	return New(gen, scoring.New(types.ScoringConfig{}), types.NarrativeConfig{})
}

func TestAnalyzeEnrichesComparisons(t *testing.T) {
	gen := &stubGenerator{responses: []string{validResponse}}
	queries := []string{"title: sonar beamforming", "keywords: sonar beamforming"}

	report, err := newTestAnalyzer(gen).Analyze(context.Background(), testProposal(), rankedResults(), queries)
	require.NoError(t, err)

	assert.Equal(t, types.VerdictAtRisk, report.Verdict)
	assert.Equal(t, 0.67, report.Confidence)
	assert.Equal(t, 2, report.TotalResultsFound)
	assert.Equal(t, 2, report.ResultsAnalyzed)
	assert.Equal(t, queries, report.SearchQueriesUsed)
	assert.Equal(t, "Substantial overlap exists with prior Navy-funded sonar work.", report.ExecutiveSummary)
	assert.Equal(t, []string{"Onboard learning loop"}, report.PointsOfDifferentiation)

	require.NotNil(t, report.BranchRelevance)
	assert.Equal(t, "branch_specific", report.BranchRelevance.Determination)

	require.Len(t, report.Comparisons, 2)

	first := report.Comparisons[0]
	assert.Equal(t, 0.72, first.Score)
	assert.Equal(t, types.OverlapHigh, first.OverlapRating)
	assert.Equal(t, "https://app.dimensions.ai/details/publication/pub.1001", first.URL)
	assert.Equal(t, 2021, first.Year)
	assert.Equal(t, []types.Branch{types.BranchNavy}, first.Branches)

	// The second comparison used the bare identifier "1002" and no title.
	second := report.Comparisons[1]
	assert.Equal(t, 0.48, second.Score)
	assert.Equal(t, types.OverlapMedium, second.OverlapRating)
	assert.Equal(t, 2019, second.Year)
}

func TestAnalyzePinsMetricsInPrompt(t *testing.T) {
	gen := &stubGenerator{responses: []string{validResponse}}

	_, err := newTestAnalyzer(gen).Analyze(context.Background(), testProposal(), rankedResults(), nil)
	require.NoError(t, err)

	assert.Contains(t, gen.lastSystem, "BRANCH_OPPORTUNITY")
	assert.Contains(t, gen.lastUser, "### Publication 1 (Similarity: 0.720)")
	assert.Contains(t, gen.lastUser, "**Landscape Assessment:** AT_RISK")
	assert.Contains(t, gen.lastUser, "**Confidence:** 0.67")
	assert.Contains(t, gen.lastUser, "- pub.1001 (Adaptive Sonar Arrays): similarity=0.720 → relevance=high")
	assert.Contains(t, gen.lastUser, "- pub.1002 (Underwater Acoustic Mapping): similarity=0.480 → relevance=medium")
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	gen := &stubGenerator{responses: []string{"```json\n" + validResponse + "\n```"}}

	report, err := newTestAnalyzer(gen).Analyze(context.Background(), testProposal(), rankedResults(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Substantial overlap exists with prior Navy-funded sonar work.", report.ExecutiveSummary)
	assert.Len(t, report.Comparisons, 2)
}

func TestAnalyzeFallbackOnParseFailure(t *testing.T) {
	gen := &stubGenerator{responses: []string{"The landscape looks crowded."}}

	report, err := newTestAnalyzer(gen).Analyze(context.Background(), testProposal(), rankedResults(), []string{"q"})
	require.NoError(t, err)

	assert.Equal(t, "LLM response could not be parsed. Raw response:\n\nThe landscape looks crowded.", report.ExecutiveSummary)
	assert.Equal(t, types.VerdictAtRisk, report.Verdict)
	assert.Equal(t, 0.67, report.Confidence)
	assert.Equal(t, 2, report.TotalResultsFound)
	assert.Empty(t, report.Comparisons)
	assert.Nil(t, report.BranchRelevance)
}

func TestAnalyzeRetriesTransientErrors(t *testing.T) {
	oldBase := backoffBase
	backoffBase = time.Millisecond
	defer func() { backoffBase = oldBase }()

	gen := &stubGenerator{
		errs:      []error{errors.New("overloaded"), errors.New("overloaded"), nil},
		responses: []string{"", "", validResponse},
	}

	report, err := newTestAnalyzer(gen).Analyze(context.Background(), testProposal(), rankedResults(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
	assert.Len(t, report.Comparisons, 2)
}

func TestAnalyzeFailsAfterRetries(t *testing.T) {
	oldBase := backoffBase
	backoffBase = time.Millisecond
	defer func() { backoffBase = oldBase }()

	gen := &stubGenerator{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	analyzer := New(gen, scoring.New(types.ScoringConfig{}), types.NarrativeConfig{AIConfig: types.AIConfig{MaxRetries: 2}})

	_, err := analyzer.Analyze(context.Background(), testProposal(), rankedResults(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 3, gen.calls)
}

func TestCallWithRetryStopsOnContextCancel(t *testing.T) {
	oldBase := backoffBase
	backoffBase = time.Hour
	defer func() { backoffBase = oldBase }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &stubGenerator{errs: []error{errors.New("down")}}
	_, err := callWithRetry(ctx, gen, "sys", "user", 3)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls, "no further attempts once the context is done")
}

func TestFindStrategies(t *testing.T) {
	results := []types.SimilarityResult{
		{Publication: types.Publication{ID: "pub.123", Title: "Quantum Radar Cross Sections"}, Score: 0.6},
		{Publication: types.Publication{ID: "pub.456", Title: "Hypersonic Boundary Layers"}, Score: 0.5},
	}
	idx := newResultIndex(results, []types.OverlapRating{types.OverlapHigh, types.OverlapMedium})

	tests := []struct {
		name    string
		pubID   string
		title   string
		wantIdx int
		wantOK  bool
	}{
		{name: "exact identifier", pubID: "pub.123", wantIdx: 0, wantOK: true},
		{name: "bare numeric identifier", pubID: "123", wantIdx: 0, wantOK: true},
		{name: "whitespace padded identifier", pubID: "  pub.456 ", wantIdx: 1, wantOK: true},
		{name: "title only case insensitive", title: "hypersonic boundary layers", wantIdx: 1, wantOK: true},
		{name: "model title is a substring", pubID: "pub.999", title: "Quantum Radar", wantIdx: 0, wantOK: true},
		{name: "model title contains the real one", title: "On Hypersonic Boundary Layers in Reentry", wantIdx: 1, wantOK: true},
		{name: "total miss", pubID: "pub.999", title: "Unrelated Work", wantOK: false},
		{name: "empty reference", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, ok := idx.find(tt.pubID, tt.title)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantIdx, i)
			}
		})
	}
}

func TestEnrichMissingPublicationKeepsComparison(t *testing.T) {
	idx := newResultIndex(rankedResults(), []types.OverlapRating{types.OverlapHigh, types.OverlapMedium})

	out := enrichComparisons([]parsedComparison{{
		PublicationID:        "pub.9999",
		Title:                "Nonexistent Work",
		SimilarityAssessment: "Hallucinated reference.",
	}}, idx)

	require.Len(t, out, 1)
	assert.Equal(t, "pub.9999", out[0].PublicationID)
	assert.Equal(t, types.OverlapLow, out[0].OverlapRating)
	assert.Zero(t, out[0].Score)
	assert.Empty(t, out[0].URL)
}

func TestDeterministicReport(t *testing.T) {
	analyzer := newTestAnalyzer(nil)
	queries := []string{"title: sonar beamforming"}

	report := analyzer.DeterministicReport(testProposal(), rankedResults(), queries)

	assert.Equal(t, types.VerdictAtRisk, report.Verdict)
	assert.Equal(t, 0.67, report.Confidence)
	assert.Contains(t, report.ExecutiveSummary, "AT_RISK")
	assert.Equal(t, queries, report.SearchQueriesUsed)

	require.Len(t, report.Comparisons, 2)
	assert.Equal(t, types.OverlapHigh, report.Comparisons[0].OverlapRating)
	assert.Equal(t, 0.72, report.Comparisons[0].Score)
	assert.Equal(t, types.OverlapMedium, report.Comparisons[1].OverlapRating)
}

func TestParseResponseRejectsProse(t *testing.T) {
	_, err := parseResponse("not json at all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing analysis response")
}

func TestParseResponseExtractsWrappedJSON(t *testing.T) {
	wrapped := "Here is my assessment:\n\n" + validResponse + "\n\nLet me know if you need more detail."

	parsed, err := parseResponse(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "Substantial overlap exists with prior Navy-funded sonar work.", parsed.ExecutiveSummary)
	assert.Len(t, parsed.Comparisons, 2)
}

func TestBuildAnalysisPromptEmptyLandscape(t *testing.T) {
	proposal := types.Proposal{Title: "Anything", Description: "Short."}

	prompt, err := buildAnalysisPrompt(proposal, nil, nil, types.VerdictUnique, 0.5)
	require.NoError(t, err)

	assert.Contains(t, prompt, "No similar publications were found in the DTIC database.")
	assert.Contains(t, prompt, "**Keywords:** None provided")
	assert.Contains(t, prompt, "**Research Focus:** None provided")
	assert.NotContains(t, prompt, "Pre-Computed Metrics")
}

func TestFormatPublicationsFallbacks(t *testing.T) {
	results := []types.SimilarityResult{{
		Publication: types.Publication{ID: "pub.1", Title: "Bare Record"},
		Score:       0.41,
	}}

	text := formatPublications(results)

	assert.Contains(t, text, "- **Year:** Unknown")
	assert.Contains(t, text, "- **Authors:** Unknown")
	assert.Contains(t, text, "- **Journal:** Unknown")
	assert.Contains(t, text, "- **Funding Branches:** Unknown")
	assert.Contains(t, text, "- **Abstract:** No abstract available")
}
