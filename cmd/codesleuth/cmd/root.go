// Package cmd provides the codesleuth CLI commands.
package cmd

import (
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/chunker"
	"github.com/FreddyJ01/CodeSleuth/internal/config"
	"github.com/FreddyJ01/CodeSleuth/internal/embeddings"
	"github.com/FreddyJ01/CodeSleuth/internal/indexer"
	"github.com/FreddyJ01/CodeSleuth/internal/query"
	"github.com/FreddyJ01/CodeSleuth/internal/registry"
	"github.com/FreddyJ01/CodeSleuth/internal/repofetcher"
	"github.com/FreddyJ01/CodeSleuth/internal/textprep"
	"github.com/FreddyJ01/CodeSleuth/internal/vectorstore"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the codesleuth root command and its subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codesleuth",
		Short: "Index a code repository into a vector store and ask questions about it",
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newVectorStoreCmd())

	return cmd
}

// loadConfig loads and returns configuration, fatal on error by returning
// the error for cobra's own RunE handling.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// openStore dials the vector store bound to the codesleuth collection. It
// does not create the collection; callers that need it call Init.
func openStore(cfg *config.Config) (*vectorstore.Store, error) {
	store, err := vectorstore.New(vectorstore.Config{
		Host:       cfg.VectorBackendHost,
		Port:       cfg.VectorBackendPort,
		Collection: "codesleuth",
		Dim:        cfg.VectorDim,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  time.Duration(cfg.BaseDelayMS) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func buildEmbedder(cfg *config.Config) *embeddings.Client {
	return embeddings.New(embeddings.Config{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		Model:       cfg.EmbedModel,
		MaxRetries:  cfg.MaxRetries,
		BaseDelayMS: cfg.BaseDelayMS,
	})
}

func buildIndexer(cfg *config.Config, store *vectorstore.Store, embedder *embeddings.Client) *indexer.Indexer {
	fetcher := repofetcher.New(cfg.StoragePath)
	ck := chunker.New()
	prep := textprep.New(cfg.MaxTokens, cfg.CharsPerToken)
	return indexer.New(fetcher, ck, prep, embedder, store)
}

func buildRegistry(idx *indexer.Indexer, store *vectorstore.Store) *registry.Registry {
	return registry.New(idx, store)
}

func buildQueryEngine(cfg *config.Config, store *vectorstore.Store, embedder *embeddings.Client) *query.Engine {
	chat := query.NewHTTPChatClient(cfg.Endpoint, cfg.APIKey, cfg.ChatModel)
	return query.New(embedder, store, chat)
}
