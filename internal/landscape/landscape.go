// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package landscape projects embedding vectors to 2D points for the
// research-landscape visualization. The projection is presentation only;
// nothing downstream decides anything based on it, so every degenerate
// input fails soft to an empty point list.
package landscape

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pdiddy/novelty-engine/internal/rank"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

const labelRuneLimit = 60

// Project returns a scatter layout: the proposal and every publication
// projected onto the top-2 principal directions of the mean-centered
// embedding set. The first point is always the proposal, typed "query"
// with similarity 1.0. Publication points carry the raw holistic
// similarity rounded to three decimals and are typed "relevant" when that
// similarity clears the ranking threshold, "background" otherwise.
func Project(res *rank.Result) []types.MapPoint {
	centered, ok := stackCentered(res)
	if !ok {
		return nil
	}

	projected, ok := principalProjection(centered, 2)
	if !ok {
		return nil
	}

	points := make([]types.MapPoint, 0, len(res.Publications)+1)
	points = append(points, types.MapPoint{
		X:          projected.At(0, 0),
		Y:          projected.At(0, 1),
		Type:       "query",
		Label:      "Your Topic",
		Similarity: 1.0,
	})

	for i, pub := range res.Publications {
		sim := rawSimilarity(res, i)
		points = append(points, types.MapPoint{
			X:          projected.At(i+1, 0),
			Y:          projected.At(i+1, 1),
			Type:       pointType(sim, res.Threshold),
			Label:      truncateLabel(pub.Title),
			Similarity: round3(sim),
		})
	}
	return points
}

// ProjectRadial returns a radial layout: the proposal sits at the origin
// and each publication is placed at distance 1 - rawSimilarity, with its
// angle taken from the publication's 1D projection onto the first
// principal direction so that semantically similar publications cluster
// in angle.
func ProjectRadial(res *rank.Result) []types.MapPoint {
	centered, ok := stackCentered(res)
	if !ok {
		return nil
	}

	projected, ok := principalProjection(centered, 1)
	if !ok {
		return nil
	}

	// Spread the publications' 1D coordinates over a half turn. A full
	// turn would wrap the two extremes onto the same angle.
	minT, maxT := math.Inf(1), math.Inf(-1)
	for i := range res.Publications {
		t := projected.At(i+1, 0)
		minT = math.Min(minT, t)
		maxT = math.Max(maxT, t)
	}
	span := maxT - minT

	points := make([]types.MapPoint, 0, len(res.Publications)+1)
	points = append(points, types.MapPoint{
		Type:       "query",
		Label:      "Your Topic",
		Similarity: 1.0,
	})

	for i, pub := range res.Publications {
		sim := rawSimilarity(res, i)
		dist := 1 - sim
		var angle float64
		if span > 0 {
			angle = math.Pi * (projected.At(i+1, 0) - minT) / span
		}
		points = append(points, types.MapPoint{
			X:          dist * math.Cos(angle),
			Y:          dist * math.Sin(angle),
			Type:       pointType(sim, res.Threshold),
			Label:      truncateLabel(pub.Title),
			Similarity: round3(sim),
		})
	}
	return points
}

// stackCentered stacks the proposal vector on top of the publication
// matrix and mean-centers the columns. Returns false for empty or ragged
// input.
func stackCentered(res *rank.Result) (*mat.Dense, bool) {
	if res == nil || len(res.ProposalEmbedding) == 0 || len(res.PubEmbeddings) == 0 {
		return nil, false
	}
	dim := len(res.ProposalEmbedding)
	for _, v := range res.PubEmbeddings {
		if len(v) != dim {
			return nil, false
		}
	}

	rows := len(res.PubEmbeddings) + 1
	m := mat.NewDense(rows, dim, nil)
	m.SetRow(0, res.ProposalEmbedding)
	for i, v := range res.PubEmbeddings {
		m.SetRow(i+1, v)
	}

	for j := 0; j < dim; j++ {
		var mean float64
		for i := 0; i < rows; i++ {
			mean += m.At(i, j)
		}
		mean /= float64(rows)
		for i := 0; i < rows; i++ {
			m.Set(i, j, m.At(i, j)-mean)
		}
	}
	return m, true
}

// principalProjection projects the centered matrix onto its top-k right
// singular vectors. Returns false when the factorization fails or yields
// fewer than k directions.
func principalProjection(centered *mat.Dense, k int) (*mat.Dense, bool) {
	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, false
	}

	var v mat.Dense
	svd.VTo(&v)
	vRows, vCols := v.Dims()
	if vCols < k {
		return nil, false
	}

	rows, _ := centered.Dims()
	projected := mat.NewDense(rows, k, nil)
	projected.Mul(centered, v.Slice(0, vRows, 0, k))
	return projected, true
}

func rawSimilarity(res *rank.Result, i int) float64 {
	if i < len(res.RawSimilarities) {
		return res.RawSimilarities[i]
	}
	return 0
}

func pointType(sim, threshold float64) string {
	if sim >= threshold {
		return "relevant"
	}
	return "background"
}

func truncateLabel(title string) string {
	runes := []rune(title)
	if len(runes) <= labelRuneLimit {
		return title
	}
	return string(runes[:labelRuneLimit])
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
