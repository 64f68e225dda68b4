package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/models"
	"github.com/FreddyJ01/CodeSleuth/internal/registry"
	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <repo-url> <repo-name>",
		Short: "Clone or update a repository and index it into the vector store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), args[0], args[1])
		},
	}
	return cmd
}

func runIndex(ctx context.Context, url, repoName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("connect to vector store: %w", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	embedder := buildEmbedder(cfg)
	idx := buildIndexer(cfg, store, embedder)
	reg := buildRegistry(idx, store)

	result := reg.Start(url, repoName)
	if result == registry.AlreadyRunning {
		return fmt.Errorf("repository %q is already indexing", repoName)
	}

	lastState := models.JobIndexing
	for {
		status, ok := reg.Status(repoName)
		if !ok {
			return fmt.Errorf("job for %q disappeared from the registry", repoName)
		}
		if status.State == models.JobIndexing {
			if status.Progress != nil {
				fmt.Printf("\rindexing %s: %d/%d files, %d chunks", repoName, status.Progress.ProcessedFiles, status.Progress.TotalFiles, status.Progress.TotalChunks)
			}
			time.Sleep(200 * time.Millisecond)
			continue
		}
		lastState = status.State
		fmt.Println()
		if status.Summary != nil {
			fmt.Printf("%s: %d files, %d chunks, %v\n", lastState, status.Summary.FilesProcessed, status.Summary.ChunksIndexed, status.Summary.Duration)
			for lang, count := range status.Summary.Languages {
				fmt.Printf("  %s: %d files\n", lang, count)
			}
			for _, e := range status.Summary.Errors {
				fmt.Printf("  error: %s\n", e)
			}
		}
		break
	}

	if lastState == models.JobFailed {
		return fmt.Errorf("indexing %q failed", repoName)
	}
	return nil
}
