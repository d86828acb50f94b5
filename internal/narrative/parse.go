// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package narrative

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// parsedAnalysis is the JSON object the generator is instructed to return.
type parsedAnalysis struct {
	ExecutiveSummary        string                 `json:"executive_summary"`
	Comparisons             []parsedComparison     `json:"comparisons"`
	PointsOfDifferentiation []string               `json:"points_of_differentiation"`
	Recommendations         []string               `json:"recommendations"`
	BranchRelevance         *types.BranchRelevance `json:"branch_relevance"`
}

// parsedComparison is one publication comparison as the model wrote it.
// Identifier and title may be malformed; enrichment reconciles them.
type parsedComparison struct {
	PublicationID        string   `json:"publication_id"`
	Title                string   `json:"title"`
	SimilarityAssessment string   `json:"similarity_assessment"`
	KeyDifferences       []string `json:"key_differences"`
	KeyOverlaps          []string `json:"key_overlaps"`
}

// parseResponse unmarshals the model output, tolerating markdown code
// fences and surrounding prose the prompt asked it not to emit.
func parseResponse(text string) (parsedAnalysis, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		var kept []string
		for _, line := range strings.Split(cleaned, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		cleaned = strings.Join(kept, "\n")
	}
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var parsed parsedAnalysis
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return parsedAnalysis{}, fmt.Errorf("parsing analysis response: %w", err)
	}
	return parsed, nil
}
