// Package cmd provides the ragmcp CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/chunk"
	"github.com/mr-nozko/rag-mcp/internal/config"
	"github.com/mr-nozko/rag-mcp/internal/embed"
	"github.com/mr-nozko/rag-mcp/internal/logging"
	"github.com/mr-nozko/rag-mcp/internal/pathsafe"
	"github.com/mr-nozko/rag-mcp/internal/rerr"
	"github.com/mr-nozko/rag-mcp/internal/search"
	"github.com/mr-nozko/rag-mcp/internal/store"
	"github.com/mr-nozko/rag-mcp/internal/writelock"
	"github.com/mr-nozko/rag-mcp/pkg/version"
)

var (
	debugMode  bool
	logCleanup func()
)

// UsageError marks a cobra command failure caused by bad arguments or flags,
// distinct from a runtime failure (§6's exit code contract).
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error to the process exit code §6 names: 0
// success, 2 usage error, 1 runtime failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// NewRootCmd builds the ragmcp command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ragmcp",
		Short:         "Local-first hybrid-search RAG server over a document corpus",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("ragmcp version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "log at debug level (log file: ~/.ragmcp/logs/server.log)")
	cmd.PersistentFlags().String("config", "", "path to a .ragmcp.toml config file (overrides RAGMCP_CONFIG)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := "info"
		if debugMode {
			level = "debug"
		}

		// serve runs the stdio transport, where stdout is reserved for
		// JSON-RPC framing and even stderr writes are avoided entirely
		// (§4.11's "never corrupt the protocol stream" rule).
		if cmd.Name() == "serve" {
			cleanup, err := logging.SetupMCPModeWithLevel(level)
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}
			logCleanup = cleanup
			return nil
		}

		cfg := logging.DefaultConfig()
		cfg.Level = level
		logger, cleanup, err := logging.Setup(cfg)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		slog.SetDefault(logger)
		logCleanup = cleanup
		return nil
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newServeHTTPCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newEmbedCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newLogsCmd())

	return cmd
}

// Execute runs the root command, printing a suitable message for usage
// errors versus runtime failures before returning the error to main.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if logCleanup != nil {
		logCleanup()
	}
	if err == nil {
		return nil
	}

	var ue *UsageError
	if errors.As(err, &ue) {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", ue.Err)
	} else {
		reportCLIError(root, err)
	}
	return err
}

// bootstrap holds every dependency a command needs, built once from the
// resolved Config and released via Close when the command returns.
type bootstrap struct {
	cfg      *config.Config
	root     string
	st       *store.Store
	embedder embed.Embedder
	paths    *pathsafe.Validator
	lock     *writelock.Lock
}

// loadConfig resolves the corpus root and merged Config, the common first
// step of every command (§10.2).
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("resolve working directory: %w", err)
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv("RAGMCP_CONFIG", path); err != nil {
			return nil, "", fmt.Errorf("set RAGMCP_CONFIG: %w", err)
		}
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

// openBootstrap opens the Store and constructs the embedder/path-validator
// shared across the write-path commands, acquiring the process-level write
// lock when acquireLock is set (§10.5).
func openBootstrap(ctx context.Context, cmd *cobra.Command, acquireLock bool) (*bootstrap, error) {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.RAGMCP.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}

	b := &bootstrap{cfg: cfg, root: filepath.Join(root, cfg.RAGMCP.RAGFolder)}

	if acquireLock {
		b.lock = writelock.New(filepath.Dir(dbPath))
		acquired, err := b.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire write lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("another ragmcp process already holds the write lock at %s", b.lock.Path())
		}
	}

	st, err := store.Open(ctx, dbPath, false)
	if err != nil {
		if b.lock != nil {
			_ = b.lock.Unlock()
		}
		return nil, err
	}
	b.st = st

	b.embedder = newEmbedder(cfg)
	b.paths = pathsafe.New(b.root, cfg.RAGMCP.AllowedExtensions)

	return b, nil
}

func (b *bootstrap) Close() {
	if b.embedder != nil {
		_ = b.embedder.Close()
	}
	if b.st != nil {
		_ = b.st.Close()
	}
	if b.lock != nil {
		_ = b.lock.Unlock()
	}
}

// providerBaseURLs maps a configured embedding provider name to its
// default API endpoint. The config schema (§6) has no explicit base_url
// key, so an unrecognized provider falls back to RAGMCP_EMBEDDINGS_BASE_URL.
var providerBaseURLs = map[string]string{
	"openai": "https://api.openai.com/v1/embeddings",
}

func newEmbedder(cfg *config.Config) embed.Embedder {
	baseURL := providerBaseURLs[cfg.Embeddings.Provider]
	if override := os.Getenv("RAGMCP_EMBEDDINGS_BASE_URL"); override != "" {
		baseURL = override
	}

	pc := embed.DefaultProviderConfig()
	pc.BaseURL = baseURL
	pc.Model = cfg.Embeddings.Model
	pc.APIKey = cfg.APIKey()
	pc.Dimensions = cfg.Embeddings.Dimensions
	pc.BatchSize = cfg.Embeddings.BatchSize

	return embed.NewHTTPEmbedder(pc)
}

func newSearchEngine(b *bootstrap) *search.Engine {
	scfg := search.DefaultConfig()
	scfg.Weights = search.Weights{BM25: b.cfg.Search.HybridBM25Weight, Vector: b.cfg.Search.HybridVectorWeight}
	if b.cfg.Search.DefaultK > 0 {
		scfg.DefaultLimit = b.cfg.Search.DefaultK
	}
	return search.NewEngine(b.st, b.embedder, scfg)
}

// chunkOptions translates the performance table's token budget into the
// Chunker's Options, per §10.2's [performance] table.
func chunkOptions(cfg *config.Config) chunk.Options {
	return chunk.Options{
		TargetTokens:  cfg.Performance.ChunkSizeTokens,
		OverlapTokens: cfg.Performance.ChunkOverlapTokens,
	}
}

func reportCLIError(cmd *cobra.Command, err error) {
	fmt.Fprint(cmd.ErrOrStderr(), rerr.FormatForCLI(err))
}
