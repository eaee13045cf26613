package main

import (
	"github.com/spf13/cobra"

	"github.com/nludb/nludb-go/pkg/dquery"
)

var tokenizeFold bool

func init() {
	tokenizeCmd.Flags().BoolVar(&tokenizeFold, "fold", false, "print the folded query filter (as JSON) instead of tokens")
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <dquery>...",
	Short: "Tokenize a dquery expression locally",
	Long: `Splits a dquery expression into (command, modifier, content) tokens.
Arguments are joined with spaces, so quoting the whole expression is optional.`,
	Example: `  nludb tokenize 'paragraph @person:"Ada" #exact:"engine"'`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newPrinterFor(cmd)
		if err != nil {
			return err
		}
		query := joinArgs(args)
		if tokenizeFold {
			return out.encode(dquery.Parse(query))
		}
		return out.tokens(dquery.Tokenize(query))
	},
}
