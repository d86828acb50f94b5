// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// stubEncoder returns canned vectors so similarity math is hand-checkable.
type stubEncoder struct {
	queryVec    []float64
	conceptVecs [][]float64
	docVecs     [][]float64
	queryErr    error
	docErr      error
	calls       int
}

func (s *stubEncoder) EncodeQuery(context.Context, string) ([]float64, error) {
	s.calls++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.queryVec, nil
}

func (s *stubEncoder) EncodeQueries(context.Context, []string) ([][]float64, error) {
	s.calls++
	return s.conceptVecs, nil
}

func (s *stubEncoder) EncodeDocuments(_ context.Context, texts []string) ([][]float64, error) {
	s.calls++
	if s.docErr != nil {
		return nil, s.docErr
	}
	return s.docVecs[:len(texts)], nil
}

func pubs(n int) []types.Publication {
	out := make([]types.Publication, n)
	for i := range out {
		out[i] = types.Publication{
			ID:    fmt.Sprintf("pub.%d", i+1),
			Title: fmt.Sprintf("Publication %d", i+1),
		}
	}
	return out
}

func TestRankHolisticOnly(t *testing.T) {
	enc := &stubEncoder{
		queryVec: []float64{1, 0},
		docVecs: [][]float64{
			{1, 0},     // sim 1.0
			{0.6, 0.8}, // sim 0.6
			{0, 1},     // sim 0.0, below threshold
			{0.8, 0.6}, // sim 0.8
		},
	}
	r := New(enc, types.RankingConfig{})

	res, err := r.Rank(context.Background(), types.Proposal{Title: "swarms"}, pubs(4))
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.Equal(t, "pub.1", res.Results[0].Publication.ID)
	assert.Equal(t, "pub.4", res.Results[1].Publication.ID)
	assert.Equal(t, "pub.2", res.Results[2].Publication.ID)
	assert.Equal(t, []int{1, 2, 3}, []int{res.Results[0].Rank, res.Results[1].Rank, res.Results[2].Rank})
	assert.InDelta(t, 1.0, res.Results[0].Score, 1e-12)
	assert.InDelta(t, 0.8, res.Results[1].Score, 1e-12)
	assert.InDelta(t, 0.6, res.Results[2].Score, 1e-12)

	// Raw similarities stay aligned with the input order, unfiltered.
	require.Len(t, res.RawSimilarities, 4)
	assert.InDelta(t, 0.6, res.RawSimilarities[1], 1e-12)
	assert.InDelta(t, 0.0, res.RawSimilarities[2], 1e-12)
	assert.Len(t, res.Publications, 4)
	assert.Len(t, res.PubEmbeddings, 4)
}

func TestRankConceptCoverageRefinesOrder(t *testing.T) {
	// pub.1 is slightly ahead holistically but has no concept coverage;
	// pub.2 covers the keyword and overtakes it in the composite.
	enc := &stubEncoder{
		queryVec: []float64{1, 0, 0},
		docVecs: [][]float64{
			{0.62, 0, 0.784601},
			{0.60, 0.8, 0},
		},
		conceptVecs: [][]float64{{0, 1, 0}},
	}
	r := New(enc, types.RankingConfig{})

	proposal := types.Proposal{Title: "swarms", Keywords: []string{"swarm coordination"}}
	res, err := r.Rank(context.Background(), proposal, pubs(2))
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "pub.2", res.Results[0].Publication.ID)
	assert.Equal(t, "pub.1", res.Results[1].Publication.ID)

	// pub.2: 0.75*0.60 + 0.25*0.8 = 0.65 (df=1 of N=2 keeps idf scaling
	// out of a single-concept score).
	assert.InDelta(t, 0.65, res.Results[0].Score, 1e-9)
	// pub.1: 0.75*0.62 + 0.25*0 = 0.465.
	assert.InDelta(t, 0.465, res.Results[1].Score, 1e-9)

	// Raw similarities keep the holistic values for the landscape map.
	assert.InDelta(t, 0.62, res.RawSimilarities[0], 1e-9)
	assert.InDelta(t, 0.60, res.RawSimilarities[1], 1e-9)
}

func TestRankGenericConceptGetsLowIDFWeight(t *testing.T) {
	// Concept 1 is matched by all three publications (generic, idf 1).
	// Concept 2 is matched only by pub.3 (distinguishing, idf ln2+1).
	// The rare match must be worth far more than the generic one.
	enc := &stubEncoder{
		queryVec: []float64{1, 0, 0, 0},
		docVecs: [][]float64{
			{0, 0.8, 0, 0.6},
			{0, 0.8, 0, -0.6},
			{0, 0.6, 0.8, 0},
		},
		conceptVecs: [][]float64{
			{0, 1, 0, 0},
			{0, 0, 1, 0},
		},
	}
	r := New(enc, types.RankingConfig{Threshold: -2})

	proposal := types.Proposal{Title: "x", Keywords: []string{"alpha", "beta"}}
	res, err := r.Rank(context.Background(), proposal, pubs(3))
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	// df for concept 1 is 3 of 3 (0.8, 0.8, 0.6 all clear the 0.5 match
	// threshold), so idf1 = ln(4/4)+1 = 1. df for concept 2 is 1, so
	// idf2 = ln(4/2)+1. Holistic similarity is zero for every pub, so the
	// composite is 0.25 * conceptScore.
	idf2 := math.Log(2) + 1
	wantPub3 := 0.25 * ((0.6 + 0.8*idf2) / (1 + idf2))
	wantPub1 := 0.25 * (0.8 / (1 + idf2))

	assert.Equal(t, "pub.3", res.Results[0].Publication.ID)
	assert.InDelta(t, wantPub3, res.Results[0].Score, 1e-9)
	assert.InDelta(t, wantPub1, res.Results[1].Score, 1e-9)
	assert.Greater(t, res.Results[0].Score, 2*res.Results[1].Score,
		"rare concept match should outweigh generic one")
}

func TestRankEmptyPublications(t *testing.T) {
	enc := &stubEncoder{}
	r := New(enc, types.RankingConfig{})

	res, err := r.Rank(context.Background(), types.Proposal{Title: "anything"}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, enc.calls, "empty input must not touch the encoder")
}

func TestRankTopKTruncation(t *testing.T) {
	enc := &stubEncoder{
		queryVec: []float64{1, 0},
		docVecs: [][]float64{
			{1, 0}, {0.9, 0.435890}, {0.8, 0.6}, {0.7, 0.714143}, {0.6, 0.8},
		},
	}
	r := New(enc, types.RankingConfig{TopK: 2})

	res, err := r.Rank(context.Background(), types.Proposal{Title: "t"}, pubs(5))
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, 1, res.Results[0].Rank)
	assert.Equal(t, 2, res.Results[1].Rank)
	assert.Equal(t, "pub.1", res.Results[0].Publication.ID)
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	enc := &stubEncoder{
		queryVec: []float64{1, 0},
		docVecs: [][]float64{
			{0.8, 0.6},
			{0.8, -0.6}, // same similarity as pub.1
			{0.9, 0.435890},
		},
	}
	r := New(enc, types.RankingConfig{})

	res, err := r.Rank(context.Background(), types.Proposal{Title: "t"}, pubs(3))
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "pub.3", res.Results[0].Publication.ID)
	assert.Equal(t, "pub.1", res.Results[1].Publication.ID, "tie keeps input order")
	assert.Equal(t, "pub.2", res.Results[2].Publication.ID)
}

func TestRankWithoutConceptsPassesRawThrough(t *testing.T) {
	// No keywords: composite equals raw similarity, unclipped. A negative
	// similarity survives when the threshold allows it.
	enc := &stubEncoder{
		queryVec: []float64{1, 0},
		docVecs:  [][]float64{{-1, 0}},
	}
	r := New(enc, types.RankingConfig{Threshold: -2})

	res, err := r.Rank(context.Background(), types.Proposal{Title: "t"}, pubs(1))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.InDelta(t, -1.0, res.Results[0].Score, 1e-12)
}

func TestRankThresholdIsInclusive(t *testing.T) {
	enc := &stubEncoder{
		queryVec: []float64{1, 0},
		docVecs:  [][]float64{{0.3, 0.953939}},
	}
	r := New(enc, types.RankingConfig{})

	res, err := r.Rank(context.Background(), types.Proposal{Title: "t"}, pubs(1))
	require.NoError(t, err)
	require.Len(t, res.Results, 1, "score equal to the threshold passes")
}

func TestRankIdempotent(t *testing.T) {
	enc := &stubEncoder{
		queryVec: []float64{1, 0},
		docVecs:  [][]float64{{0.8, 0.6}, {0.9, 0.435890}, {0.7, 0.714143}},
	}
	r := New(enc, types.RankingConfig{})
	proposal := types.Proposal{Title: "repeatable"}

	first, err := r.Rank(context.Background(), proposal, pubs(3))
	require.NoError(t, err)
	second, err := r.Rank(context.Background(), proposal, pubs(3))
	require.NoError(t, err)
	assert.Equal(t, first.Results, second.Results)
}

func TestRankEncoderErrors(t *testing.T) {
	t.Run("proposal encode fails", func(t *testing.T) {
		enc := &stubEncoder{queryErr: errors.New("model gone")}
		r := New(enc, types.RankingConfig{})
		_, err := r.Rank(context.Background(), types.Proposal{Title: "t"}, pubs(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encoding proposal")
	})

	t.Run("document encode fails", func(t *testing.T) {
		enc := &stubEncoder{queryVec: []float64{1, 0}, docErr: errors.New("backend down")}
		r := New(enc, types.RankingConfig{})
		_, err := r.Rank(context.Background(), types.Proposal{Title: "t"}, pubs(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encoding publications")
	})
}
