package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nludb/nludb-go/internal/version"
)

type versionPayload struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := newPrinterFor(cmd)
		if err != nil {
			return err
		}
		payload := versionPayload{
			Tool:    "nludb",
			Version: version.Version,
			Commit:  version.Commit,
			Date:    version.Date,
			Go:      runtime.Version(),
		}
		if out.json() {
			return out.encode(payload)
		}
		fmt.Fprintf(out.w, "nludb %s\n", out.command.Sprint(payload.Version))
		fmt.Fprintf(out.w, "commit: %s\nbuilt:  %s\ngo:     %s\n", payload.Commit, payload.Date, payload.Go)
		return nil
	},
}
