// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the novelty-engine CLI.
// Subcommands cover the full assessment pipeline (assess), raw corpus
// retrieval (retrieve), the run archive (runs), and the HTTP API (serve).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/novelty-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the novelty-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "novelty-engine",
	Short: "Research landscape assessment against the DTIC corpus",
	Long: `novelty-engine assesses how novel a research topic is relative to the
public DTIC corpus. It derives search queries from a proposal, retrieves
matching publications, ranks them by embedding similarity, scores the
overlap deterministically, and generates an analyst-ready landscape report.

Each stage is reachable through subcommands: assess runs the full pipeline,
retrieve previews the corpus queries, runs inspects the archive of past
assessments, and serve exposes everything over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./novelty-engine.yaml or ~/.config/novelty-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("novelty-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "novelty-engine"))
		}
	}

	viper.SetEnvPrefix("NOVELTY_ENGINE")
	viper.AutomaticEnv()

	viper.SetDefault("store.data_dir", "data")
	viper.SetDefault("server.addr", ":8080")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
