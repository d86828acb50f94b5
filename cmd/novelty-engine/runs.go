// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/novelty-engine/internal/report"
	"github.com/pdiddy/novelty-engine/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived assessment runs",
	Long: `Runs works with the local archive of past assessments. List recent
runs, show a run's full report, or full-text search the publications
captured across every run.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print an archived run's report as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsSearchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Full-text search publications across archived runs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRunsSearch,
}

func init() {
	runsCmd.PersistentFlags().String("data-dir", "", "archive directory (default data)")
	runsCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	runsListCmd.Flags().Int("limit", 0, "maximum runs to list (default 20)")
	runsSearchCmd.Flags().Int("limit", 0, "maximum matches to print (default 20)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsSearchCmd)
	rootCmd.AddCommand(runsCmd)
}

func openArchive(cmd *cobra.Command) (*store.Store, error) {
	cfg := engineConfig().Store
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	return store.NewStore(cfg)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	archive, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer archive.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := archive.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.FormatJSON(runs, os.Stdout)
	}
	formatRunList(runs)
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	archive, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer archive.Close()

	rep, err := archive.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.FormatJSON(rep, os.Stdout)
	}
	fmt.Print(report.RenderMarkdown(rep))
	return nil
}

func runRunsSearch(cmd *cobra.Command, args []string) error {
	archive, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer archive.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	hits, err := archive.SearchCorpus(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.FormatJSON(hits, os.Stdout)
	}
	formatCorpusHits(hits)
	return nil
}

func formatRunList(runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return
	}

	fmt.Printf("%-36s  %-16s  %-18s  %5s  %s\n", "ID", "Created", "Verdict", "Conf", "Title")
	fmt.Println(strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Printf("%-36s  %-16s  %-18s  %4.0f%%  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Verdict,
			r.Confidence*100, truncate(r.Title, 40))
	}
	fmt.Printf("\n%d runs\n", len(runs))
}

func formatCorpusHits(hits []store.CorpusHit) {
	if len(hits) == 0 {
		fmt.Println("No matches in the archive.")
		return
	}

	fmt.Printf("%-18s  %-50s  %-4s  %-6s  %s\n", "Publication", "Title", "Year", "Score", "Run")
	fmt.Println(strings.Repeat("-", 110))
	for _, h := range hits {
		fmt.Printf("%-18s  %-50s  %-4d  %.4f  %s\n",
			h.PubID, truncate(h.Title, 50), h.Year, h.Score, truncate(h.RunTitle, 24))
	}
	fmt.Printf("\n%d matches\n", len(hits))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
