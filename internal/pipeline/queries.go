// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"strings"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

const (
	// excerptWords caps the topic_excerpt query length.
	excerptWords = 40

	// combinedKeywords caps how many keywords join the title in the
	// combined query.
	combinedKeywords = 5
)

// BuildQueries derives corpus search queries from a proposal. Up to four
// strategies apply, in order: the title verbatim, the joined keyword list,
// an opening excerpt of the description, and the title combined with the
// leading keywords. The title query is always present; the keyword queries
// need at least one keyword, and the excerpt needs a description longer
// than ten words.
func BuildQueries(proposal types.Proposal) []types.SearchQuery {
	queries := []types.SearchQuery{{Text: proposal.Title, Strategy: "title"}}

	if len(proposal.Keywords) > 0 {
		queries = append(queries, types.SearchQuery{
			Text:     strings.Join(proposal.Keywords, " "),
			Strategy: "keywords",
		})
	}

	if words := strings.Fields(proposal.Description); len(words) > 10 {
		if len(words) > excerptWords {
			words = words[:excerptWords]
		}
		queries = append(queries, types.SearchQuery{
			Text:     strings.Join(words, " "),
			Strategy: "topic_excerpt",
		})
	}

	if len(proposal.Keywords) > 0 {
		lead := proposal.Keywords
		if len(lead) > combinedKeywords {
			lead = lead[:combinedKeywords]
		}
		queries = append(queries, types.SearchQuery{
			Text:     proposal.Title + " " + strings.Join(lead, " "),
			Strategy: "combined",
		})
	}

	return queries
}
