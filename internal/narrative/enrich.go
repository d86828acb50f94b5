// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package narrative

import (
	"log/slog"
	"strings"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// resultIndex reconciles publication references written by the model
// against the authoritative similarity results. Model output references
// publications by identifier and title, both possibly malformed.
type resultIndex struct {
	results []types.SimilarityResult
	ratings []types.OverlapRating
	byID    map[string]int
	byTitle map[string]int
}

func newResultIndex(results []types.SimilarityResult, ratings []types.OverlapRating) *resultIndex {
	idx := &resultIndex{
		results: results,
		ratings: ratings,
		byID:    make(map[string]int),
		byTitle: make(map[string]int),
	}
	for i, sr := range results {
		full := strings.TrimSpace(sr.Publication.ID)
		idx.byID[full] = i
		if bare := bareID(full); bare != "" {
			idx.byID[bare] = i
		}
		if t := normTitle(sr.Publication.Title); t != "" {
			idx.byTitle[t] = i
		}
	}
	return idx
}

func bareID(id string) string {
	return strings.TrimSpace(strings.ReplaceAll(id, "pub.", ""))
}

func normTitle(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// find locates the matching result. Strategies in order, first hit wins:
// exact identifier; identifier with the "pub." prefix stripped; with it
// added; case-insensitive title; bare-identifier scan; substring title
// scan in both directions.
func (x *resultIndex) find(pubID, title string) (int, bool) {
	pid := strings.TrimSpace(pubID)
	if i, ok := x.byID[pid]; ok {
		return i, true
	}

	bare := bareID(pid)
	if i, ok := x.byID[bare]; ok {
		return i, true
	}
	if i, ok := x.byID["pub."+bare]; ok {
		return i, true
	}

	if i, ok := x.byTitle[normTitle(title)]; ok {
		return i, true
	}

	if bare != "" {
		for i, sr := range x.results {
			if bareID(sr.Publication.ID) == bare {
				return i, true
			}
		}
	}

	if norm := normTitle(title); norm != "" {
		for i, sr := range x.results {
			srTitle := normTitle(sr.Publication.Title)
			if srTitle != "" && (strings.Contains(srTitle, norm) || strings.Contains(norm, srTitle)) {
				return i, true
			}
		}
	}

	return 0, false
}

// enrichComparisons attaches verified metadata to the model's comparisons.
// The overlap rating and similarity score always come from the matched
// result, never from the model's own assertion. A total miss still emits
// the comparison, with empty metadata and a "low" rating.
func enrichComparisons(parsed []parsedComparison, idx *resultIndex) []types.PublicationComparison {
	var out []types.PublicationComparison
	for _, pc := range parsed {
		comp := types.PublicationComparison{
			PublicationID:        pc.PublicationID,
			Title:                pc.Title,
			SimilarityAssessment: pc.SimilarityAssessment,
			KeyDifferences:       pc.KeyDifferences,
			KeyOverlaps:          pc.KeyOverlaps,
			OverlapRating:        types.OverlapLow,
		}

		if i, ok := idx.find(pc.PublicationID, pc.Title); ok {
			sr := idx.results[i]
			comp.Score = sr.Score
			comp.URL = sr.Publication.URL
			comp.Year = sr.Publication.Year
			comp.Branches = sr.Publication.Branches
			if i < len(idx.ratings) {
				comp.OverlapRating = idx.ratings[i]
			}
		} else {
			slog.Warn("narrative comparison matched no ranked publication",
				"publication_id", pc.PublicationID,
				"title", truncateTitle(pc.Title, 60))
		}

		out = append(out, comp)
	}
	return out
}
