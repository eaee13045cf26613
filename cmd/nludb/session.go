package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	nludb "github.com/nludb/nludb-go"
	"github.com/nludb/nludb-go/internal/config"
	logpkg "github.com/nludb/nludb-go/internal/logger"
)

// session is the per-invocation state shared by commands talking to the API.
type session struct {
	cfg    config.Config
	env    string
	logger *zap.Logger
	client *nludb.Client
	out    *printer
}

// openSession loads config, builds the logger and connects the client.
// The caller must call close.
func openSession(cmd *cobra.Command) (*session, error) {
	out, err := newPrinterFor(cmd)
	if err != nil {
		return nil, err
	}

	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	opts := []nludb.Option{
		nludb.WithAPIKey(cfg.API.Key),
		nludb.WithTimeout(cfg.Timeout()),
		nludb.WithTaskPollInterval(cfg.PollInterval()),
		nludb.WithLogger(logger),
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, nludb.WithBaseURL(cfg.API.BaseURL))
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, nludb.WithUserAgent(cfg.API.UserAgent))
	}
	if cfg.Cache.Enabled {
		opts = append(opts, nludb.WithRedisQueryCache(cfg.Cache.Addrs, cfg.Cache.Password, cfg.CacheTTL()))
	}

	ctx := logpkg.ContextWithLogger(cmd.Context(), logger)
	cmd.SetContext(ctx)

	client, err := nludb.New(ctx, opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connect: %w", err)
	}
	logger.Debug("session opened",
		zap.String("env", env),
		zap.Bool("query_cache", cfg.Cache.Enabled),
	)

	return &session{cfg: cfg, env: env, logger: logger, client: client, out: out}, nil
}

func (s *session) close() {
	s.client.Close()
	_ = s.logger.Sync()
}

// waitContext bounds task waits by the configured timeout.
func (s *session) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.WaitTimeout())
}

func loadConfig(cmd *cobra.Command, env string) (config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(env)
}

// newPrinterFor validates --format and resolves --color for cmd's output.
func newPrinterFor(cmd *cobra.Command) (*printer, error) {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json":
		// supported
	default:
		return nil, fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	colorFlag, _ := cmd.Flags().GetString("color")
	w := cmd.OutOrStdout()
	var useColor bool
	switch colorFlag {
	case "on":
		useColor = true
	case "off":
		useColor = false
	case "auto":
		useColor = writerIsTerminal(w)
	default:
		return nil, fmt.Errorf("unsupported color mode %q (must be auto, on or off)", colorFlag)
	}
	return newPrinter(w, format, useColor), nil
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

// joinArgs rebuilds a dquery expression split by the shell.
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
