package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mindmate/internal/embedding"
	"mindmate/internal/kb"
)

// kbCmd queries the knowledge base directly, without starting a chat
// session. Useful for checking what the retrieval stage would surface for a
// given message.
var kbCmd = &cobra.Command{
	Use:   "kb [query]",
	Short: "Query the therapeutic knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		engine, err := embedding.NewEngine(embedding.Config{
			Provider:       cfg.Embedding.Provider,
			OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
			OllamaModel:    cfg.Embedding.OllamaModel,
			GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
			GenAIModel:     cfg.Embedding.GenAIModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create embedding engine: %w", err)
		}

		index, err := kb.NewIndex(engine)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		defer index.Close()

		docs := kb.LoadDocuments(cfg.Knowledge.DataDir)
		if err := index.Build(cmd.Context(), docs); err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}

		snippets, err := index.Retrieve(cmd.Context(), query, cfg.Knowledge.TopK)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}

		fmt.Printf("Indexed %d snippets, showing top %d for %q:\n\n", index.Len(), len(snippets), query)
		for i, s := range snippets {
			fmt.Printf("%d. [%.3f] (%s)\n   %s\n\n", i+1, s.Similarity, s.Source, s.Text)
		}
		return nil
	},
}
