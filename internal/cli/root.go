// Package cli implements the alphamind CLI commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/alphamind/internal/assistant"
	"github.com/rcliao/alphamind/internal/config"
	"github.com/rcliao/alphamind/internal/embedding"
	"github.com/rcliao/alphamind/internal/llm"
	"github.com/rcliao/alphamind/internal/loader"
	"github.com/rcliao/alphamind/internal/observability"
	"github.com/rcliao/alphamind/internal/prompt"
	"github.com/rcliao/alphamind/internal/store"
)

var (
	configPath string
	dataDir    string
	memoryFile string
	verbose    bool
	logFormat  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "alphamind",
	Short: "Retrieval-augmented college assistant",
	Long: "AlphaMind answers questions about a college from a folder of text documents " +
		"and a file of learned facts. Teach it with \"remember that ...\".",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $ALPHAMIND_CONFIG or ./alphamind.toml)")
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Corpus directory (overrides data_dir)")
	RootCmd.PersistentFlags().StringVarP(&memoryFile, "memory", "m", "", "Fact memory file (overrides memory_file)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// loadConfig reads the config and applies persistent flags, then installs
// the default logger. Logs go to stderr so stdout stays clean.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if memoryFile != "" {
		cfg.MemoryFile = memoryFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	observability.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if cfg.Path != "" {
		slog.Debug("config loaded", "path", cfg.Path)
	}
	return cfg
}

func openStore(ctx context.Context, cfg *config.Config) (*store.FactStore, error) {
	return store.Open(ctx, cfg.MemoryFile)
}

// app is a fully wired assistant plus the resources it owns.
type app struct {
	cfg       *config.Config
	facts     *store.FactStore
	embedder  embedding.Embedder
	assistant *assistant.Assistant
}

// openApp wires store, embedder, model and prompt from cfg and builds the
// corpus index.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	fs, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open fact store: %w", err)
	}

	emb, err := embedding.New(cfg.EmbeddingOptions())
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	pb, err := promptBuilder(cfg)
	if err != nil {
		fs.Close()
		closeEmbedder(emb)
		return nil, err
	}

	gen, err := llm.New(cfg.LLMOptions())
	if err != nil {
		fs.Close()
		closeEmbedder(emb)
		return nil, fmt.Errorf("model: %w", err)
	}

	a, err := assistant.New(ctx, assistant.Options{
		DataDir:   cfg.DataDir,
		Loader:    loaderOptions(cfg),
		TopK:      cfg.TopK,
		MaxTokens: cfg.LLM.MaxTokens,
		Prompt:    pb,
		Logger:    slog.Default(),
	}, fs, emb, gen)
	if err != nil {
		fs.Close()
		closeEmbedder(emb)
		return nil, err
	}
	return &app{cfg: cfg, facts: fs, embedder: emb, assistant: a}, nil
}

func loaderOptions(cfg *config.Config) loader.Options {
	opts := loader.DefaultOptions()
	if len(cfg.Extensions) > 0 {
		opts.Extensions = cfg.Extensions
	}
	opts.Chunk.MaxSize = cfg.MaxChunkSize
	return opts
}

func (a *app) Close() error {
	closeEmbedder(a.embedder)
	return a.facts.Close()
}

func closeEmbedder(e embedding.Embedder) {
	if c, ok := e.(io.Closer); ok {
		c.Close()
	}
}

func promptBuilder(cfg *config.Config) (*prompt.Builder, error) {
	if cfg.Prompt.Template != "" {
		return prompt.FromFile(cfg.Prompt.Template, cfg.Prompt.Institution, cfg.Prompt.Assistant)
	}
	return prompt.New("", cfg.Prompt.Institution, cfg.Prompt.Assistant)
}

func mustOpenApp(cmd *cobra.Command) *app {
	cfg := loadConfig()
	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		exitErr("start assistant", err)
	}
	return a
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
