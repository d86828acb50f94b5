// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package narrative

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// systemPrompt frames the analyst role and the four landscape categories.
// The categories must match the deterministic verdict values exactly.
const systemPrompt = `You are an expert research analyst specializing in defense research landscape assessment. Your task is to analyze the existing publication landscape in the Defense Technical Information Center (DTIC) database for a given research topic, identifying coverage patterns, gaps, and opportunities.

You must provide a structured assessment with one of four landscape categories:

- **UNIQUE**: Open landscape - no substantially similar work exists in the DTIC database. The topic area has wide opportunity for new research.
- **BRANCH_OPPORTUNITY**: Similar work exists in DTIC, but it was funded by other military branches - not by the branch of interest. There is an opportunity for the specified branch to invest in this area.
- **AT_RISK**: Well covered - the topic area is already well covered in DTIC, potentially including work funded by the branch of interest.
- **NEEDS_REVIEW**: Mixed coverage - the evidence is ambiguous. There are partial overlaps that require human expert judgment to fully assess the landscape.

Be thorough but fair. Consider that two papers can share a broad topic area while pursuing genuinely different research questions, methods, or applications. Focus on substantive relevance, not superficial keyword matches.`

// analysisPromptTmpl is the user prompt. The Pre-Computed Metrics section
// pins the deterministic verdict, confidence, and ratings so the model
// references them instead of inventing its own.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`## Research Topic Under Analysis

**Title:** {{.Title}}
**Topic Description:** {{.Description}}
**Keywords:** {{.Keywords}}
**Branch of Interest:** {{.Branch}}
**Research Focus:** {{.Context}}

---

## Existing DTIC Publications

{{.Publications}}
{{.MetricsSection}}---

## Instructions

Analyze the research topic against the publications above and provide your landscape assessment in the following JSON format. Do NOT wrap in markdown code fences.

Additionally, assess whether this research topic is inherently specific to the branch of interest's mission, platforms, or facilities (e.g., Navy shipyard maintenance is inherently Navy-specific), or whether it represents a universal defense problem applicable across branches (e.g., a novel ML architecture for predictive maintenance could serve any branch). Consider arguments for both sides before making your determination.

{
  "executive_summary": "2-3 paragraph summary of the research landscape and gap analysis",
  "comparisons": [
    {
      "publication_id": "pub id",
      "title": "pub title",
      "similarity_assessment": "1-2 sentence description of how this pub relates to the topic",
      "key_differences": ["difference 1", "difference 2"],
      "key_overlaps": ["overlap 1", "overlap 2"]
    }
  ],
  "points_of_differentiation": [
    "Identified gaps and opportunities in the existing landscape (list 3-5 points)"
  ],
  "recommendations": [
    "Actionable recommendations for pursuing research in this area (list 2-4 points)"
  ],
  "branch_relevance": {
    "determination": "branch_specific or cross_branch",
    "reasoning": "1-2 sentences explaining why this topic is or is not inherently tied to the branch of interest"
  }
}

Evaluate EVERY publication listed above. Be specific about relevance and gaps. Consider the branch of interest for branch opportunity determinations.`))

type promptData struct {
	Title          string
	Description    string
	Keywords       string
	Branch         string
	Context        string
	Publications   string
	MetricsSection string
}

// buildAnalysisPrompt renders the user prompt for one analysis call.
func buildAnalysisPrompt(proposal types.Proposal, results []types.SimilarityResult, ratings []types.OverlapRating, verdict types.Verdict, confidence float64) (string, error) {
	keywords := "None provided"
	if len(proposal.Keywords) > 0 {
		keywords = strings.Join(proposal.Keywords, ", ")
	}
	contextText := proposal.Context
	if contextText == "" {
		contextText = "None provided"
	}

	data := promptData{
		Title:          proposal.Title,
		Description:    proposal.Description,
		Keywords:       keywords,
		Branch:         string(proposal.Branch),
		Context:        contextText,
		Publications:   formatPublications(results),
		MetricsSection: metricsSection(results, ratings, verdict, confidence),
	}

	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering analysis prompt: %w", err)
	}
	return buf.String(), nil
}

// formatPublications renders the ranked publications as prompt text.
func formatPublications(results []types.SimilarityResult) string {
	if len(results) == 0 {
		return "No similar publications were found in the DTIC database."
	}

	var b strings.Builder
	for i, sr := range results {
		pub := sr.Publication

		authors := "Unknown"
		if len(pub.Authors) > 0 {
			authors = strings.Join(pub.Authors, ", ")
		}
		branches := "Unknown"
		if len(pub.Branches) > 0 {
			names := make([]string, len(pub.Branches))
			for j, br := range pub.Branches {
				names[j] = string(br)
			}
			branches = strings.Join(names, ", ")
		}
		year := "Unknown"
		if pub.Year > 0 {
			year = fmt.Sprintf("%d", pub.Year)
		}
		journal := pub.Journal
		if journal == "" {
			journal = "Unknown"
		}
		abstract := pub.BestAbstract()
		if abstract == "" {
			abstract = "No abstract available"
		}

		fmt.Fprintf(&b, "### Publication %d (Similarity: %.3f)\n", i+1, sr.Score)
		fmt.Fprintf(&b, "- **ID:** %s\n", pub.ID)
		fmt.Fprintf(&b, "- **Title:** %s\n", pub.Title)
		fmt.Fprintf(&b, "- **Year:** %s\n", year)
		fmt.Fprintf(&b, "- **Authors:** %s\n", authors)
		fmt.Fprintf(&b, "- **Journal:** %s\n", journal)
		fmt.Fprintf(&b, "- **Funding Branches:** %s\n", branches)
		fmt.Fprintf(&b, "- **Times Cited:** %d\n", pub.TimesCited)
		fmt.Fprintf(&b, "- **Abstract:** %s\n", abstract)
		if i < len(results)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// metricsSection renders the deterministic metrics block, or empty when
// there is nothing to pin.
func metricsSection(results []types.SimilarityResult, ratings []types.OverlapRating, verdict types.Verdict, confidence float64) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n---\n\n## Pre-Computed Metrics\n\n")
	b.WriteString("The following landscape assessment, confidence, and per-publication relevance ratings have been computed deterministically from the cosine similarity scores. Reference these in your narrative text — do NOT override them.\n\n")
	fmt.Fprintf(&b, "**Landscape Assessment:** %s\n", verdict)
	fmt.Fprintf(&b, "**Confidence:** %.2f\n\n", confidence)
	b.WriteString("**Per-Publication Relevance Ratings:**\n")
	for i, sr := range results {
		rating := types.OverlapLow
		if i < len(ratings) {
			rating = ratings[i]
		}
		fmt.Fprintf(&b, "- %s (%s): similarity=%.3f → relevance=%s\n",
			sr.Publication.ID, truncateTitle(sr.Publication.Title, 60), sr.Score, rating)
	}
	b.WriteString("\n")
	return b.String()
}

func truncateTitle(title string, limit int) string {
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit])
}
