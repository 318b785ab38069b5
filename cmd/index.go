package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modscope/modscope/internal/config"
	"github.com/modscope/modscope/internal/wrapper"
)

func newIndexCmd() *cobra.Command {
	var (
		configPath string
		query      string
		channel    string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "index <package>",
		Short: "Index a Go package and optionally search it",
		Long: `Introspect a Go package from source, build its semantic index and print
the discovered components. With --query, run a semantic search against the
fresh index and print the hits instead.

Examples:
  modscope index ./internal/server
  modscope index encoding/json --query "stream decoder" --limit 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runIndex(cfg, args[0], query, channel, limit)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file (default: ./modscope.yaml)")
	cmd.Flags().StringVar(&query, "query", "", "Run a semantic search against the fresh index")
	cmd.Flags().StringVar(&channel, "channel", "", "Embedding channel to search: identity, inputs or relationships")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of search hits")

	return cmd
}

func runIndex(cfg *config.Config, pattern, query, channel string, limit int) error {
	ctx := context.Background()

	emb, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	index, closeIndex, err := buildIndex(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	defer closeIndex()

	w := wrapper.ForPackage(pattern, wrapper.Options{
		Embedder:      emb,
		Index:         index,
		SearchTimeout: cfg.Search.Timeout,
		Logger:        newLogger(false),
	})

	summary, err := w.Index(ctx)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", pattern, err)
	}

	if query == "" {
		fmt.Printf("Indexed %d components from %s into collection %s (%s)\n\n",
			summary.ComponentCount, pattern, summary.Collection, summary.Elapsed)
		out, _ := json.MarshalIndent(w.ListComponents(""), "", "  ")
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	}

	hits, err := w.Search(ctx, query, wrapper.SearchOptions{
		Channel: channel,
		Limit:   limit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out, _ := json.MarshalIndent(hits, "", "  ")
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
