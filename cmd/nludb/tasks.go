package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	nludb "github.com/nludb/nludb-go"
	logpkg "github.com/nludb/nludb-go/internal/logger"
)

var (
	convertModel string
	convertWait  bool

	parseModel string
	parseWait  bool

	tagModel string
	tagWait  bool
)

func init() {
	convertCmd.Flags().StringVar(&convertModel, "model", "", "conversion model (default: server default)")
	convertCmd.Flags().BoolVar(&convertWait, "wait", false, "wait for the task to finish")

	parseCmd.Flags().StringVar(&parseModel, "model", nludb.DefaultParseModel, "parsing model")
	parseCmd.Flags().BoolVar(&parseWait, "wait", false, "wait for the task and print the parsed blocks")

	tagCmd.Flags().StringVar(&tagModel, "model", "", "tagging model")
	tagCmd.Flags().BoolVar(&tagWait, "wait", false, "wait for the task and print the tagged blocks")
}

var convertCmd = &cobra.Command{
	Use:   "convert <fileId>",
	Short: "Convert an uploaded file into blocks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		task, err := s.client.Files().Convert(cmd.Context(), args[0], convertModel)
		if err != nil {
			return err
		}
		return finishTask(cmd, s, task, convertWait, func(nludb.ConvertResult) error {
			return s.out.result("converted", args[0])
		})
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <fileId>",
	Short: "Run the NLP parser over the blocks of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		task, err := s.client.Files().Parse(cmd.Context(), args[0], nludb.ParseOptions{Model: parseModel})
		if err != nil {
			return err
		}
		return finishTask(cmd, s, task, parseWait, func(r nludb.ParseResult) error {
			return s.out.blocks(r.Blocks)
		})
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <fileId>",
	Short: "Run a tagging model over the blocks of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		task, err := s.client.Files().Tag(cmd.Context(), args[0], tagModel)
		if err != nil {
			return err
		}
		return finishTask(cmd, s, task, tagWait, func(r nludb.TagResult) error {
			return s.out.blocks(r.Blocks)
		})
	},
}

// finishTask prints the task handle, or waits for it and renders the result.
func finishTask[T any](cmd *cobra.Command, s *session, task *nludb.Task[T], wait bool, render func(T) error) error {
	if !wait {
		return s.out.task(task.ID, task.State)
	}
	ctx, cancel := s.waitContext(cmd.Context())
	defer cancel()

	logger := logpkg.FromContext(ctx)
	logger.Debug("waiting for task",
		zap.String("task_id", task.ID),
		zap.Duration("timeout", s.cfg.WaitTimeout()),
	)
	res, err := task.Wait(ctx)
	if err != nil {
		logger.Warn("task did not succeed", zap.String("task_id", task.ID), zap.Error(err))
		return err
	}
	logger.Debug("task finished", zap.String("task_id", task.ID))
	return render(res)
}
