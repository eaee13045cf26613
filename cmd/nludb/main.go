package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nludb/nludb-go/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "nludb",
	Short:         "Command-line client for the NLUDB API",
	Long:          `nludb uploads, converts, parses and queries documents stored in NLUDB`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(rawCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(versionCmd)

	// Global flags
	rootCmd.PersistentFlags().String("env", "", "config environment (default: $ENV or local)")
	rootCmd.PersistentFlags().String("config", "", "path to a config file (overrides --env)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("format", "pretty", "output format (pretty|json)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		rootCmd.PrintErrln("error:", err)
		stop()
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
