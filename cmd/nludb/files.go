package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	nludb "github.com/nludb/nludb-go"
	logpkg "github.com/nludb/nludb-go/internal/logger"
)

var (
	uploadCorpus      string
	uploadFileFormat  string
	uploadConvert     bool
	uploadConcurrency int

	scrapeName    string
	scrapeCorpus  string
	scrapeFormat  string
	scrapeConvert bool

	listCorpus string
)

func init() {
	uploadCmd.Flags().StringVar(&uploadCorpus, "corpus", "", "corpus id to upload into")
	uploadCmd.Flags().StringVar(&uploadFileFormat, "file-format", "", "file format hint (e.g. txt, md, pdf)")
	uploadCmd.Flags().BoolVar(&uploadConvert, "convert", false, "convert the file into blocks after upload")
	uploadCmd.Flags().IntVar(&uploadConcurrency, "concurrency", 4, "maximum uploads in flight")

	scrapeCmd.Flags().StringVar(&scrapeName, "name", "", "file name (default: the url)")
	scrapeCmd.Flags().StringVar(&scrapeCorpus, "corpus", "", "corpus id to import into")
	scrapeCmd.Flags().StringVar(&scrapeFormat, "file-format", "", "file format hint")
	scrapeCmd.Flags().BoolVar(&scrapeConvert, "convert", false, "convert the file into blocks after import")

	listCmd.Flags().StringVar(&listCorpus, "corpus", "", "only list files of this corpus")
}

var uploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload local files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		var opened []*os.File
		defer func() {
			for _, f := range opened {
				_ = f.Close()
			}
		}()

		reqs := make([]nludb.UploadRequest, 0, len(args))
		for _, path := range args {
			f, err := os.Open(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			opened = append(opened, f)
			reqs = append(reqs, nludb.UploadRequest{
				Name:     filepath.Base(path),
				Content:  f,
				Format:   uploadFileFormat,
				CorpusID: uploadCorpus,
				Convert:  uploadConvert,
			})
		}

		results := s.client.Files().UploadAll(cmd.Context(), reqs, uploadConcurrency)
		if err := s.out.uploads(results); err != nil {
			return err
		}
		logger := logpkg.FromContext(cmd.Context())
		var errs []error
		for _, r := range results {
			if r.Err != nil {
				logger.Warn("upload failed", zap.String("name", r.Name), zap.Error(r.Err))
				errs = append(errs, r.Err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d of %d uploads failed: %w", len(errs), len(results), errors.Join(errs...))
		}
		return nil
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Import a document from a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		f, err := s.client.Files().Scrape(cmd.Context(), args[0], nludb.ScrapeOptions{
			Name:     scrapeName,
			CorpusID: scrapeCorpus,
			Format:   scrapeFormat,
			Convert:  scrapeConvert,
		})
		if err != nil {
			return err
		}
		return s.out.files([]nludb.File{f})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		files, err := s.client.Files().List(cmd.Context(), listCorpus)
		if err != nil {
			return err
		}
		return s.out.files(files)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <fileId>",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		id, err := s.client.Files().Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return s.out.result("deleted", id)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <fileId>",
	Short: "Remove the blocks and spans of a file, keeping its raw content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		id, err := s.client.Files().Clear(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return s.out.result("cleared", id)
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw <fileId>",
	Short: "Write the raw uploaded bytes of a file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		data, err := s.client.Files().Raw(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <fileId> <dquery>...",
	Short: "Select blocks of a file with a dquery expression",
	Example: `  nludb query file-1 'sentence @person:"Ada"'
  nludb query file-1 paragraph '#exact:"analytical engine"'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		blocks, err := s.client.Files().DQuery(cmd.Context(), args[0], joinArgs(args[1:]))
		if err != nil {
			return err
		}
		return s.out.blocks(blocks)
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage file tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list <fileId>",
	Short: "List the tags of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		names, err := s.client.Files().ListTags(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return s.out.names(names)
	},
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <fileId> <tag>...",
	Short: "Attach tags to a file",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.client.Files().AddTags(cmd.Context(), args[0], args[1:]...); err != nil {
			return err
		}
		return s.out.names(args[1:])
	},
}

var tagsRemoveCmd = &cobra.Command{
	Use:   "remove <fileId> <tag>...",
	Short: "Detach tags from a file",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.client.Files().RemoveTags(cmd.Context(), args[0], args[1:]...); err != nil {
			return err
		}
		return s.out.names(args[1:])
	},
}

func init() {
	tagsCmd.AddCommand(tagsListCmd, tagsAddCmd, tagsRemoveCmd)
}
