// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the end-to-end landscape assessment:
// query generation, corpus retrieval, similarity ranking, narrative
// analysis, and report output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/novelty-engine/internal/landscape"
	"github.com/pdiddy/novelty-engine/internal/metrics"
	"github.com/pdiddy/novelty-engine/internal/narrative"
	"github.com/pdiddy/novelty-engine/internal/rank"
	"github.com/pdiddy/novelty-engine/internal/report"
	"github.com/pdiddy/novelty-engine/internal/retrieval"
	"github.com/pdiddy/novelty-engine/internal/store"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

// DefaultOutputDir is where Markdown reports land when no directory is
// configured.
const DefaultOutputDir = "reports"

// openLandscapeSummary is the executive summary of a run that found no
// publications for any query.
const openLandscapeSummary = "No publications were found in the DTIC database " +
	"matching the search queries derived from this topic. This suggests an " +
	"open landscape with wide opportunity, or that the search terms need " +
	"refinement. Manual verification is recommended."

// openLandscapeConfidence is the flat confidence assigned to zero-result
// runs: an empty result set can mean an open field or merely weak queries.
const openLandscapeConfidence = 0.5

// maxTitleRunes caps the sanitized title in report filenames.
const maxTitleRunes = 80

// Options wires a Runner. Source, Ranker, and Analyzer are required;
// Archive, Metrics, and Progress are optional.
type Options struct {
	Source   retrieval.Source
	Ranker   *rank.Ranker
	Analyzer *narrative.Analyzer
	Archive  *store.Store
	Metrics  *metrics.Metrics
	Config   types.PipelineConfig
	Progress io.Writer
}

// Runner executes landscape assessment runs.
type Runner struct {
	source   retrieval.Source
	ranker   *rank.Ranker
	analyzer *narrative.Analyzer
	archive  *store.Store
	mx       *metrics.Metrics
	cfg      types.PipelineConfig
	w        io.Writer
}

// New returns a Runner assembled from opts.
func New(opts Options) *Runner {
	w := opts.Progress
	if w == nil {
		w = io.Discard
	}
	return &Runner{
		source:   opts.Source,
		ranker:   opts.Ranker,
		analyzer: opts.Analyzer,
		archive:  opts.Archive,
		mx:       opts.Metrics,
		cfg:      opts.Config,
		w:        w,
	}
}

// Output bundles everything a completed run produces.
type Output struct {
	Report      *types.AnalysisReport
	Markdown    string
	StepSummary string

	// Results is the ranked, thresholded publication list the report was
	// built from; empty on the open-landscape short circuit.
	Results []types.SimilarityResult

	// ReportPath is the saved Markdown file. RunID identifies the archived
	// run and is empty when archiving is off.
	ReportPath string
	RunID      string
}

// Run executes the full assessment for proposal. Retrieval failures inside
// a query are absorbed by the source; an empty corpus short-circuits to an
// open-landscape report without calling the encoder or the narrative
// generator.
func (r *Runner) Run(ctx context.Context, proposal types.Proposal) (*Output, error) {
	start := time.Now()
	fmt.Fprintf(r.w, "Starting landscape analysis for: %s\n", proposal.Title)

	queries := BuildQueries(proposal)
	queryTexts := make([]string, len(queries))
	for i, q := range queries {
		queryTexts[i] = q.Text
	}
	fmt.Fprintf(r.w, "Generated %d search queries\n", len(queries))

	publications, err := r.source.SearchAll(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("retrieving publications: %w", err)
	}

	if len(publications) == 0 {
		slog.Warn("no publications found for any search query")
		return r.finish(ctx, openLandscapeReport(proposal, queryTexts), nil, start)
	}

	publications, err = r.source.FetchDetails(ctx, publications)
	if err != nil {
		return nil, fmt.Errorf("fetching publication details: %w", err)
	}

	fmt.Fprintf(r.w, "Computing similarity rankings...\n")
	ranking, err := r.ranker.Rank(ctx, proposal, publications)
	if err != nil {
		return nil, fmt.Errorf("ranking publications: %w", err)
	}
	fmt.Fprintf(r.w, "%d of %d publications above similarity threshold\n",
		len(ranking.Results), len(publications))

	var rep *types.AnalysisReport
	if r.cfg.Narrative.Disabled {
		rep = r.analyzer.DeterministicReport(proposal, ranking.Results, queryTexts)
	} else {
		rep, err = r.analyzer.Analyze(ctx, proposal, ranking.Results, queryTexts)
		if err != nil {
			return nil, err
		}
	}

	// The analyzer only sees filtered results; restore the pre-filter count.
	rep.TotalResultsFound = len(publications)
	rep.LandscapeMap = landscape.Project(ranking)

	return r.finish(ctx, rep, ranking.Results, start)
}

// finish renders, saves, archives, and counts a completed report. Archive
// failures are logged rather than discarding a finished assessment.
func (r *Runner) finish(ctx context.Context, rep *types.AnalysisReport, results []types.SimilarityResult, start time.Time) (*Output, error) {
	out := &Output{
		Report:      rep,
		Markdown:    report.RenderMarkdown(rep),
		StepSummary: report.RenderStepSummary(rep),
		Results:     results,
	}

	path, err := saveReport(out.Markdown, rep.Proposal.Title, r.cfg.Report.OutputDir)
	if err != nil {
		return nil, err
	}
	out.ReportPath = path
	fmt.Fprintf(r.w, "Report saved to %s\n", path)

	runID, err := r.archive.SaveRun(ctx, rep, results)
	if err != nil {
		slog.Warn("archiving run failed", "error", err)
	}
	out.RunID = runID

	r.mx.RecordAssessment(string(rep.Verdict), time.Since(start))
	fmt.Fprintf(r.w, "Analysis complete. Verdict: %s (confidence: %.0f%%)\n",
		rep.Verdict, rep.Confidence*100)
	return out, nil
}

// openLandscapeReport is the short-circuit report for a run whose queries
// matched nothing in the corpus.
func openLandscapeReport(proposal types.Proposal, queryTexts []string) *types.AnalysisReport {
	return &types.AnalysisReport{
		Proposal:          proposal,
		Verdict:           types.VerdictUnique,
		Confidence:        openLandscapeConfidence,
		ExecutiveSummary:  openLandscapeSummary,
		SearchQueriesUsed: queryTexts,
	}
}

// saveReport writes markdown under dir using a filename derived from the
// proposal title.
func saveReport(markdown, title, dir string) (string, error) {
	if dir == "" {
		dir = DefaultOutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, "landscape_report_"+sanitizeTitle(title)+".md")
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// sanitizeTitle reduces a proposal title to a filesystem-safe slug. Only
// letters, digits, spaces, hyphens, and underscores survive; spaces become
// underscores and the result is capped at maxTitleRunes.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, c := range title {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == ' ' || c == '-' || c == '_' {
			b.WriteRune(c)
		}
	}
	safe := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if runes := []rune(safe); len(runes) > maxTitleRunes {
		safe = string(runes[:maxTitleRunes])
	}
	return safe
}
