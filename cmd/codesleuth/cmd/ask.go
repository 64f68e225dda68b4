package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "ask <repo-name> <question>",
		Short: "Ask a question about an indexed repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoName, question := args[0], args[1]

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("connect to vector store: %w", err)
			}
			defer store.Close()

			embedder := buildEmbedder(cfg)
			engine := buildQueryEngine(cfg, store, embedder)

			result, err := engine.Ask(cmd.Context(), question, repoName, maxResults)
			if err != nil {
				return err
			}

			fmt.Println(result.Answer)
			for _, ref := range result.References {
				fmt.Printf("  %s (lines %d-%d) score=%.3f\n", ref.FilePath, ref.StartLine, ref.EndLine, ref.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxResults, "max-results", 5, "maximum number of context hits to retrieve")
	return cmd
}
