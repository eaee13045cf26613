package main

import (
	"github.com/spf13/cobra"

	nludb "github.com/nludb/nludb-go"
)

var (
	indexModel     string
	indexName      string
	indexID        string
	indexBlockType string
	indexReindex   bool

	searchK int
)

func init() {
	indexCmd.Flags().StringVar(&indexModel, "model", nludb.DefaultIndexModel, "embedding model")
	indexCmd.Flags().StringVar(&indexName, "name", "", "index name (default: <fileId>-<model>)")
	indexCmd.Flags().StringVar(&indexID, "index-id", "", "insert into an existing index")
	indexCmd.Flags().StringVar(&indexBlockType, "block-type", nludb.DefaultBlockType, "block type to embed")
	indexCmd.Flags().BoolVar(&indexReindex, "reindex", false, "rebuild the index after inserting")

	searchCmd.Flags().IntVarP(&searchK, "limit", "k", nludb.DefaultSearchK, "number of results")
}

var indexCmd = &cobra.Command{
	Use:   "index <fileId>",
	Short: "Embed the blocks of a file into an embedding index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := s.waitContext(cmd.Context())
		defer cancel()

		idx, err := s.client.Files().Index(ctx, args[0], nludb.IndexOptions{
			Model:     indexModel,
			IndexName: indexName,
			IndexID:   indexID,
			BlockType: indexBlockType,
			Reindex:   indexReindex,
		})
		if err != nil {
			return err
		}
		return s.out.result("index", idx.ID)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <indexId> <query>...",
	Short: "Search an embedding index",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		hits, err := s.client.Indexes().Get(args[0]).Search(cmd.Context(), joinArgs(args[1:]), searchK)
		if err != nil {
			return err
		}
		return s.out.hits(hits)
	},
}
