// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores publications against a proposal and produces the
// ordered, thresholded candidate list the rest of the pipeline consumes.
//
// The composite score blends two signals: holistic cosine similarity
// between the proposal text and each publication, and an IDF-weighted
// concept-coverage score built from the proposal's keywords. Coverage
// refines the ranking; it cannot crush a strong holistic match.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/novelty-engine/internal/concepts"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

// Defaults applied when the corresponding RankingConfig field is zero.
const (
	DefaultTopK                  = 20
	DefaultThreshold             = 0.3
	DefaultConceptMatchThreshold = 0.5
)

// Weights for the composite score. Holistic similarity dominates so that
// keyword coverage refines rankings without letting one generic keyword
// match outrank a strongly relevant paper.
const (
	holisticWeight = 0.75
	conceptWeight  = 0.25
)

// Encoder is the embedding surface the ranker needs. All vectors must be
// unit length so dot products equal cosine similarities.
type Encoder interface {
	EncodeQuery(ctx context.Context, text string) ([]float64, error)
	EncodeQueries(ctx context.Context, texts []string) ([][]float64, error)
	EncodeDocuments(ctx context.Context, texts []string) ([][]float64, error)
}

// Result is the full ranking output. Results holds the filtered, sorted,
// ranked list; the remaining fields keep every publication's raw holistic
// similarity and embedding, aligned by index, for the landscape map.
type Result struct {
	Results           []types.SimilarityResult
	ProposalEmbedding []float64
	PubEmbeddings     [][]float64
	Publications      []types.Publication
	RawSimilarities   []float64
	Threshold         float64
}

// Ranker computes composite similarity rankings.
type Ranker struct {
	enc Encoder
	cfg types.RankingConfig
}

// New returns a Ranker using enc for embeddings.
func New(enc Encoder, cfg types.RankingConfig) *Ranker {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.ConceptMatchThreshold <= 0 {
		cfg.ConceptMatchThreshold = DefaultConceptMatchThreshold
	}
	return &Ranker{enc: enc, cfg: cfg}
}

// Rank scores publications against the proposal and returns the ranked
// list plus raw embeddings. Ranking the same inputs twice yields identical
// output: scoring is deterministic and the sort is stable, so ties keep
// their input order. An empty publication list returns an empty Result
// without touching the encoder.
func (r *Ranker) Rank(ctx context.Context, proposal types.Proposal, pubs []types.Publication) (*Result, error) {
	if len(pubs) == 0 {
		return &Result{Threshold: r.cfg.Threshold}, nil
	}

	propVec, err := r.enc.EncodeQuery(ctx, proposalText(proposal))
	if err != nil {
		return nil, fmt.Errorf("encoding proposal: %w", err)
	}

	texts := make([]string, len(pubs))
	for i, pub := range pubs {
		texts[i] = publicationText(pub)
	}
	pubVecs, err := r.enc.EncodeDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encoding publications: %w", err)
	}
	if len(pubVecs) != len(pubs) {
		return nil, fmt.Errorf("publication embedding count mismatch: %d for %d publications", len(pubVecs), len(pubs))
	}

	raw := make([]float64, len(pubs))
	for i, pv := range pubVecs {
		raw[i] = floats.Dot(pv, propVec)
	}

	conceptScores, err := r.conceptScores(ctx, proposal, pubVecs)
	if err != nil {
		return nil, err
	}

	// With concepts the composite is a weighted average of the clipped
	// signals. Without concepts the raw similarity passes through as-is.
	final := raw
	if conceptScores != nil {
		final = make([]float64, len(pubs))
		for i := range pubs {
			final[i] = holisticWeight*math.Max(raw[i], 0) + conceptWeight*math.Max(conceptScores[i], 0)
		}
	}

	var results []types.SimilarityResult
	for i, pub := range pubs {
		if final[i] >= r.cfg.Threshold {
			results = append(results, types.SimilarityResult{
				Publication: pub,
				Score:       final[i],
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > r.cfg.TopK {
		results = results[:r.cfg.TopK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	return &Result{
		Results:           results,
		ProposalEmbedding: propVec,
		PubEmbeddings:     pubVecs,
		Publications:      pubs,
		RawSimilarities:   raw,
		Threshold:         r.cfg.Threshold,
	}, nil
}

// conceptScores computes the IDF-weighted concept-coverage score for each
// publication, or nil when the proposal yields no concepts.
//
// Each concept is embedded separately and matched against every
// publication. A concept matched by many publications (high document
// frequency) is generic and earns a low IDF weight; one matched by few is
// distinguishing and earns a high weight.
func (r *Ranker) conceptScores(ctx context.Context, proposal types.Proposal, pubVecs [][]float64) ([]float64, error) {
	terms := concepts.Extract(proposal, r.cfg.HarvestConceptWords)
	if len(terms) == 0 {
		return nil, nil
	}

	conceptVecs, err := r.enc.EncodeQueries(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("encoding concepts: %w", err)
	}
	if len(conceptVecs) == 0 {
		return nil, nil
	}

	n := float64(len(pubVecs))
	sims := make([][]float64, len(pubVecs))
	df := make([]float64, len(conceptVecs))
	for i, pv := range pubVecs {
		sims[i] = make([]float64, len(conceptVecs))
		for j, cv := range conceptVecs {
			s := floats.Dot(pv, cv)
			sims[i][j] = s
			if s >= r.cfg.ConceptMatchThreshold {
				df[j]++
			}
		}
	}

	// Smooth IDF: ln((N+1)/(df+1)) + 1, never below 1.
	idf := make([]float64, len(df))
	var idfSum float64
	for j, d := range df {
		idf[j] = math.Log((n+1)/(d+1)) + 1
		idfSum += idf[j]
	}

	scores := make([]float64, len(pubVecs))
	for i := range sims {
		var weighted float64
		for j, s := range sims[i] {
			weighted += s * idf[j]
		}
		scores[i] = weighted / idfSum
	}
	return scores, nil
}

// proposalText flattens a proposal into the single string that gets
// embedded holistically.
func proposalText(p types.Proposal) string {
	parts := []string{p.Title}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if len(p.Keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(p.Keywords, ", "))
	}
	if p.Context != "" {
		parts = append(parts, p.Context)
	}
	return strings.Join(parts, " ")
}

// publicationText flattens a publication to its title plus best abstract.
func publicationText(pub types.Publication) string {
	if abstract := pub.BestAbstract(); abstract != "" {
		return pub.Title + " " + abstract
	}
	return pub.Title
}
