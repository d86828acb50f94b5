// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/novelty-engine/internal/pipeline"
	"github.com/pdiddy/novelty-engine/internal/report"
	"github.com/pdiddy/novelty-engine/internal/store"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess a research topic's novelty against the DTIC corpus",
	Long: `Assess runs the full landscape analysis for a research topic: corpus
retrieval, embedding similarity ranking, deterministic verdict scoring, and
narrative report generation. The Markdown report lands in the output
directory, and the exit status is nonzero when the verdict is AT_RISK or
NEEDS_REVIEW so CI gates can react to it.

Describe the topic either with flags or with a YAML proposal file:

  novelty-engine assess --title "Adaptive Sonar Arrays" \
    --keywords "beamforming,towed array" --branch navy

  novelty-engine assess --proposal proposal.yaml --no-narrative`,
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().String("title", "", "research topic title")
	assessCmd.Flags().String("topic", "", "general description of the research area")
	assessCmd.Flags().String("keywords", "", "comma-separated keywords")
	assessCmd.Flags().String("branch", "navy", "branch of interest (navy, army, air_force, darpa, dod, marine_corps, space_force)")
	assessCmd.Flags().String("context", "", "additional research focus context for the narrative")
	assessCmd.Flags().String("proposal", "", "YAML proposal file, overrides the topic flags")
	assessCmd.Flags().String("output", "", "directory for the Markdown report (default reports)")
	assessCmd.Flags().String("summary-file", "", "append the step summary to this file (e.g. $GITHUB_STEP_SUMMARY)")
	assessCmd.Flags().Bool("json", false, "print the full report as JSON instead of the banner")
	assessCmd.Flags().Bool("no-narrative", false, "skip the narrative call and report deterministic findings only")
	assessCmd.Flags().Bool("no-store", false, "do not archive this run")

	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	proposal, err := proposalFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := engineConfig()
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.Report.OutputDir = out
	}
	if noNarrative, _ := cmd.Flags().GetBool("no-narrative"); noNarrative {
		cfg.Narrative.Disabled = true
	}

	var archive *store.Store
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		archive, err = store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	runner, err := newRunner(cfg, nil, archive, os.Stderr)
	if err != nil {
		return err
	}

	out, err := runner.Run(cmd.Context(), proposal)
	if err != nil {
		return err
	}

	if summaryFile, _ := cmd.Flags().GetString("summary-file"); summaryFile != "" {
		if err := appendSummary(summaryFile, out.StepSummary); err != nil {
			return err
		}
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		if err := report.FormatJSON(out.Report, os.Stdout); err != nil {
			return err
		}
	} else {
		printAssessment(out)
	}

	switch out.Report.Verdict {
	case types.VerdictAtRisk, types.VerdictNeedsReview:
		// The banner already explains the outcome; fail without repeating it.
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return fmt.Errorf("verdict %s", out.Report.Verdict)
	}
	return nil
}

func printAssessment(out *pipeline.Output) {
	if len(out.Results) > 0 {
		fmt.Println()
		report.FormatTable(out.Results, os.Stdout)
	}

	banner := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n", banner)
	fmt.Printf("LANDSCAPE ASSESSMENT: %s\n", out.Report.Verdict)
	fmt.Printf("CONFIDENCE: %.0f%%\n", out.Report.Confidence*100)
	fmt.Printf("%s\n", banner)
	fmt.Printf("\nFull report saved to: %s\n", out.ReportPath)
}

// proposalFromFlags builds the proposal from --proposal when given,
// otherwise from the individual topic flags.
func proposalFromFlags(cmd *cobra.Command) (types.Proposal, error) {
	if path, _ := cmd.Flags().GetString("proposal"); path != "" {
		return pipeline.LoadProposal(path)
	}

	title, _ := cmd.Flags().GetString("title")
	if strings.TrimSpace(title) == "" {
		return types.Proposal{}, fmt.Errorf("provide --title or --proposal file.yaml")
	}

	branchFlag, _ := cmd.Flags().GetString("branch")
	branch := types.Branch(branchFlag)
	if !validBranch(branch) {
		return types.Proposal{}, fmt.Errorf("unknown branch %q", branchFlag)
	}

	topic, _ := cmd.Flags().GetString("topic")
	keywords, _ := cmd.Flags().GetString("keywords")
	focus, _ := cmd.Flags().GetString("context")

	return types.Proposal{
		Title:       title,
		Description: topic,
		Keywords:    splitKeywords(keywords),
		Branch:      branch,
		Context:     focus,
	}, nil
}

func splitKeywords(s string) []string {
	var keywords []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

func validBranch(b types.Branch) bool {
	for _, known := range types.KnownBranches() {
		if b == known {
			return true
		}
	}
	return false
}

func appendSummary(path, summary string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening summary file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(summary); err != nil {
		return fmt.Errorf("writing summary file: %w", err)
	}
	return nil
}
