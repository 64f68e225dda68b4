package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVectorStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vectorstore",
		Short: "Administrative operations against the vector store",
	}
	cmd.AddCommand(newVectorStoreListCmd())
	cmd.AddCommand(newVectorStoreDropCmd())
	return cmd
}

func newVectorStoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections in the vector store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.ListCollections(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newVectorStoreDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Delete the codesleuth collection entirely",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.DeleteCollection(cmd.Context())
		},
	}
}
