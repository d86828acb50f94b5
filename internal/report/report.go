// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders assessment results as Markdown documents,
// CI step summaries, and console tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

var verdictBadges = map[types.Verdict]string{
	types.VerdictUnique:            "UNIQUE",
	types.VerdictBranchOpportunity: "BRANCH OPPORTUNITY",
	types.VerdictAtRisk:            "AT RISK",
	types.VerdictNeedsReview:       "NEEDS REVIEW",
}

var verdictDescriptions = map[types.Verdict]string{
	types.VerdictUnique:            "No substantially similar work was found in the DTIC database.",
	types.VerdictBranchOpportunity: "Similar work exists but was not funded by the branch of interest.",
	types.VerdictAtRisk:            "Very similar existing work was found. Novelty may be difficult to demonstrate.",
	types.VerdictNeedsReview:       "Partial overlaps found that require human expert judgment.",
}

// nowFunc is stubbed in tests for a stable generation timestamp.
var nowFunc = time.Now

func badge(v types.Verdict) string {
	if b, ok := verdictBadges[v]; ok {
		return b
	}
	return string(v)
}

// RenderMarkdown writes the full assessment as a Markdown document.
func RenderMarkdown(report *types.AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Landscape Assessment Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", nowFunc().UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "## Verdict: %s\n\n", badge(report.Verdict))
	fmt.Fprintf(&b, "**Confidence:** %.0f%%\n\n", report.Confidence*100)
	if desc, ok := verdictDescriptions[report.Verdict]; ok {
		fmt.Fprintf(&b, "> %s\n\n", desc)
	}
	b.WriteString("---\n\n")

	b.WriteString("## Proposal Summary\n\n")
	fmt.Fprintf(&b, "**Title:** %s\n\n", report.Proposal.Title)
	fmt.Fprintf(&b, "**Branch of Interest:** %s\n\n", report.Proposal.Branch)
	fmt.Fprintf(&b, "**Description:** %s\n\n", report.Proposal.Description)
	if len(report.Proposal.Keywords) > 0 {
		fmt.Fprintf(&b, "**Keywords:** %s\n\n", strings.Join(report.Proposal.Keywords, ", "))
	}
	b.WriteString("---\n\n")

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "%s\n\n", report.ExecutiveSummary)
	b.WriteString("---\n\n")

	b.WriteString("## Search Statistics\n\n")
	fmt.Fprintf(&b, "- **Queries Used:** %d\n", len(report.SearchQueriesUsed))
	fmt.Fprintf(&b, "- **Total Publications Found:** %d\n", report.TotalResultsFound)
	fmt.Fprintf(&b, "- **Publications Analyzed (Top Matches):** %d\n\n", report.ResultsAnalyzed)

	if len(report.SearchQueriesUsed) > 0 {
		b.WriteString("### Search Queries\n\n")
		for i, q := range report.SearchQueriesUsed {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
		b.WriteString("\n")
	}

	if len(report.Comparisons) > 0 {
		b.WriteString("---\n\n## Publication-by-Publication Comparison\n\n")
		for _, comp := range report.Comparisons {
			fmt.Fprintf(&b, "### %s\n\n", comp.Title)
			fmt.Fprintf(&b, "**ID:** %s | **Overlap:** %s\n\n", comp.PublicationID, ratingLabel(comp.OverlapRating))
			fmt.Fprintf(&b, "%s\n\n", comp.SimilarityAssessment)
			if len(comp.KeyOverlaps) > 0 {
				b.WriteString("**Key Overlaps:**\n")
				for _, overlap := range comp.KeyOverlaps {
					fmt.Fprintf(&b, "- %s\n", overlap)
				}
				b.WriteString("\n")
			}
			if len(comp.KeyDifferences) > 0 {
				b.WriteString("**Key Differences:**\n")
				for _, diff := range comp.KeyDifferences {
					fmt.Fprintf(&b, "- %s\n", diff)
				}
				b.WriteString("\n")
			}
		}
	}

	if report.BranchRelevance != nil {
		b.WriteString("---\n\n## Branch Relevance\n\n")
		fmt.Fprintf(&b, "**Determination:** %s\n\n", report.BranchRelevance.Determination)
		fmt.Fprintf(&b, "%s\n\n", report.BranchRelevance.Reasoning)
	}

	if len(report.PointsOfDifferentiation) > 0 {
		b.WriteString("---\n\n## Points of Differentiation\n\n")
		for _, point := range report.PointsOfDifferentiation {
			fmt.Fprintf(&b, "- %s\n", point)
		}
		b.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		b.WriteString("---\n\n## Recommendations\n\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("*This report was generated automatically. It is intended to assist with " +
		"research proposal preparation and should be reviewed by a subject matter " +
		"expert before submission.*\n")

	return b.String()
}

// RenderStepSummary writes the condensed form used for CI step summaries.
func RenderStepSummary(report *types.AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Research Landscape Assessment: %s\n\n", badge(report.Verdict))
	fmt.Fprintf(&b, "**Proposal:** %s\n\n", report.Proposal.Title)
	fmt.Fprintf(&b, "**Confidence:** %.0f%%\n\n", report.Confidence*100)
	fmt.Fprintf(&b, "**Publications Found:** %d | **Analyzed:** %d\n\n",
		report.TotalResultsFound, report.ResultsAnalyzed)

	b.WriteString("### Summary\n\n")
	fmt.Fprintf(&b, "%s\n\n", report.ExecutiveSummary)

	if len(report.Recommendations) > 0 {
		b.WriteString("### Key Recommendations\n\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	b.WriteString("*Full report available as workflow artifact.*\n")
	return b.String()
}

func ratingLabel(r types.OverlapRating) string {
	switch r {
	case types.OverlapLow:
		return "Low"
	case types.OverlapMedium:
		return "Medium"
	case types.OverlapHigh:
		return "HIGH"
	}
	return string(r)
}

// FormatTable writes ranked results as a human-readable table to w.
func FormatTable(results []types.SimilarityResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No publications found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-4s  %-6s  %s\n", "Rank", "Title", "Year", "Score", "Branches")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, sr := range results {
		title := sr.Publication.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		year := ""
		if sr.Publication.Year > 0 {
			year = fmt.Sprintf("%d", sr.Publication.Year)
		}
		branches := make([]string, len(sr.Publication.Branches))
		for i, br := range sr.Publication.Branches {
			branches[i] = string(br)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-4s  %-6.3f  %s\n",
			sr.Rank, title, year, sr.Score, strings.Join(branches, ","))
	}

	fmt.Fprintf(w, "\n%d publications\n", len(results))
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
