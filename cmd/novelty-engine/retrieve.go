package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/novelty-engine/internal/pipeline"
	"github.com/pdiddy/novelty-engine/internal/report"
	"github.com/pdiddy/novelty-engine/internal/retrieval"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Search the corpus for a topic without running an assessment",
	Long: `Retrieve derives the search queries for a topic, pages through the
Dimensions corpus, and prints the deduplicated publications. Useful for
checking query quality before spending a full assessment run.`,
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().String("title", "", "research topic title")
	retrieveCmd.Flags().String("topic", "", "general description of the research area")
	retrieveCmd.Flags().String("keywords", "", "comma-separated keywords")
	retrieveCmd.Flags().String("branch", "navy", "branch of interest (navy, army, air_force, darpa, dod, marine_corps, space_force)")
	retrieveCmd.Flags().String("context", "", "additional research focus context")
	retrieveCmd.Flags().String("proposal", "", "YAML proposal file, overrides the topic flags")
	retrieveCmd.Flags().Int("max-pages", 0, "result pages to fetch per query (default 5)")
	retrieveCmd.Flags().Bool("json", false, "print publications as JSON")
	retrieveCmd.Flags().String("save", "", "also write the publications to this YAML file")

	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	proposal, err := proposalFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := engineConfig()
	if maxPages, _ := cmd.Flags().GetInt("max-pages"); maxPages > 0 {
		cfg.Retrieval.MaxPages = maxPages
	}

	queries := pipeline.BuildQueries(proposal)
	fmt.Fprintf(os.Stderr, "Generated %d search queries\n", len(queries))

	src := retrieval.NewDimensions(cfg.Retrieval, os.Stderr)
	pubs, err := src.SearchAll(cmd.Context(), queries)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := savePublications(path, pubs); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d publications to %s\n", len(pubs), path)
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.FormatJSON(pubs, os.Stdout)
	}

	if len(pubs) == 0 {
		fmt.Println("No publications found.")
		return nil
	}

	// FormatTable wants ranked results; rank by retrieval order here since
	// no similarity scores exist yet.
	results := make([]types.SimilarityResult, len(pubs))
	for i, pub := range pubs {
		results[i] = types.SimilarityResult{Publication: pub, Score: pub.SourceScore, Rank: i + 1}
	}
	report.FormatTable(results, os.Stdout)
	return nil
}

func savePublications(path string, pubs []types.Publication) error {
	data, err := yaml.Marshal(pubs)
	if err != nil {
		return fmt.Errorf("marshaling publications: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing publications file: %w", err)
	}
	return nil
}
