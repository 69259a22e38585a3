// Package config loads alphamind settings from defaults, an optional TOML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rcliao/alphamind/internal/embedding"
	"github.com/rcliao/alphamind/internal/llm"
)

// EnvPrefix prefixes every alphamind environment variable.
const EnvPrefix = "ALPHAMIND_"

// DefaultFile is read from the working directory when present.
const DefaultFile = "alphamind.toml"

// Duration is a time.Duration that reads "30s"-style strings from TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds all settings.
type Config struct {
	DataDir      string   `toml:"data_dir"`
	MemoryFile   string   `toml:"memory_file"`
	ChatDir      string   `toml:"chat_dir"`
	Extensions   []string `toml:"extensions"`
	MaxChunkSize int      `toml:"max_chunk_size"`
	HistoryDepth int      `toml:"history_depth"`
	TopK         int      `toml:"top_k"`
	Watch        bool     `toml:"watch"`

	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Prompt    PromptConfig    `toml:"prompt"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`

	// Path is the file the config was read from, empty when none.
	Path string `toml:"-"`
}

// LLMConfig selects the language-model backend.
type LLMConfig struct {
	Backend   string   `toml:"backend"`
	Command   []string `toml:"command"`
	Model     string   `toml:"model"`
	URL       string   `toml:"url"`
	APIKey    string   `toml:"api_key"`
	MaxTokens int      `toml:"max_tokens"`
	Timeout   Duration `toml:"timeout"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider      string `toml:"provider"`
	Model         string `toml:"model"`
	URL           string `toml:"url"`
	APIKey        string `toml:"api_key"`
	Dims          int    `toml:"dims"`
	ModelPath     string `toml:"model_path"`
	TokenizerPath string `toml:"tokenizer_path"`
	LibraryPath   string `toml:"library_path"`
	CacheSize     int64  `toml:"cache_size"`
}

// PromptConfig customises the prompt.
type PromptConfig struct {
	Template    string `toml:"template"`
	Institution string `toml:"institution"`
	Assistant   string `toml:"assistant"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr       string   `toml:"addr"`
	RateLimit  float64  `toml:"rate_limit"`
	Burst      int      `toml:"burst"`
	SessionTTL Duration `toml:"session_ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:      "college_data",
		MemoryFile:   "memory.txt",
		ChatDir:      "chats",
		Extensions:   []string{".txt"},
		HistoryDepth: 1,
		TopK:         3,
		LLM: LLMConfig{
			Backend:   llm.BackendCommand,
			Command:   append([]string(nil), llm.DefaultCommand...),
			MaxTokens: 200,
			Timeout:   Duration{30 * time.Second},
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			CacheSize: 1024,
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:5000",
			RateLimit:  5,
			Burst:      10,
			SessionTTL: Duration{30 * time.Minute},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, then the TOML file, then the
// environment. path may be empty, in which case $ALPHAMIND_CONFIG and then
// ./alphamind.toml are tried; a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
			path, explicit = p, true
		} else {
			path = DefaultFile
		}
	}

	switch err := cfg.readFile(path); {
	case err == nil:
		cfg.Path = path
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = stringOr(EnvPrefix+"DATA_DIR", c.DataDir)
	c.MemoryFile = stringOr(EnvPrefix+"MEMORY_FILE", c.MemoryFile)
	c.ChatDir = stringOr(EnvPrefix+"CHAT_DIR", c.ChatDir)
	c.HistoryDepth = intOr(EnvPrefix+"HISTORY_DEPTH", c.HistoryDepth)
	c.TopK = intOr(EnvPrefix+"TOP_K", c.TopK)
	c.MaxChunkSize = intOr(EnvPrefix+"MAX_CHUNK_SIZE", c.MaxChunkSize)
	c.Watch = boolOr(EnvPrefix+"WATCH", c.Watch)
	if v := os.Getenv(EnvPrefix + "EXTENSIONS"); v != "" {
		c.Extensions = splitList(v)
	}

	c.LLM.Backend = stringOr(EnvPrefix+"LLM_BACKEND", c.LLM.Backend)
	c.LLM.Model = stringOr(EnvPrefix+"LLM_MODEL", c.LLM.Model)
	c.LLM.MaxTokens = intOr(EnvPrefix+"MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Timeout.Duration = durationOr(EnvPrefix+"GENERATION_TIMEOUT", c.LLM.Timeout.Duration)
	if v := os.Getenv(EnvPrefix + "LLM_COMMAND"); v != "" {
		c.LLM.Command = strings.Fields(v)
	}
	c.LLM.URL = stringOr(EnvPrefix+"LLM_URL", c.LLM.URL)
	if c.LLM.URL == "" && c.LLM.Backend == llm.BackendOllama {
		c.LLM.URL = os.Getenv("OLLAMA_HOST")
	}
	if c.LLM.APIKey == "" && c.LLM.Backend == llm.BackendAnthropic {
		c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	c.Embedding.Provider = stringOr(EnvPrefix+"EMBED_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = stringOr(EnvPrefix+"EMBED_MODEL", c.Embedding.Model)
	c.Embedding.URL = stringOr(EnvPrefix+"EMBED_URL", c.Embedding.URL)
	c.Embedding.ModelPath = stringOr(EnvPrefix+"EMBED_MODEL_PATH", c.Embedding.ModelPath)
	c.Embedding.TokenizerPath = stringOr(EnvPrefix+"EMBED_TOKENIZER_PATH", c.Embedding.TokenizerPath)
	c.Embedding.LibraryPath = stringOr("ONNXRUNTIME_LIB", c.Embedding.LibraryPath)
	if c.Embedding.URL == "" && c.Embedding.Provider == "ollama" {
		c.Embedding.URL = os.Getenv("OLLAMA_HOST")
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	c.Prompt.Template = stringOr(EnvPrefix+"PROMPT_TEMPLATE", c.Prompt.Template)
	c.Prompt.Institution = stringOr(EnvPrefix+"INSTITUTION", c.Prompt.Institution)

	c.Server.Addr = stringOr(EnvPrefix+"ADDR", c.Server.Addr)

	c.Log.Level = stringOr(EnvPrefix+"LOG_LEVEL", c.Log.Level)
	c.Log.Format = stringOr(EnvPrefix+"LOG_FORMAT", c.Log.Format)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings the assistant cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HistoryDepth <= 0 {
		errs = append(errs, fmt.Errorf("history_depth must be positive, got %d", c.HistoryDepth))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.MaxChunkSize < 0 {
		errs = append(errs, fmt.Errorf("max_chunk_size must not be negative, got %d", c.MaxChunkSize))
	}
	switch c.LLM.Backend {
	case llm.BackendCommand, llm.BackendOllama, llm.BackendAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown llm.backend %q", c.LLM.Backend))
	}
	if c.LLM.Backend == llm.BackendCommand && len(c.LLM.Command) == 0 {
		errs = append(errs, errors.New("llm.command must not be empty for the command backend"))
	}
	if c.MemoryFile == "" {
		errs = append(errs, errors.New("memory_file must be set"))
	}
	return errors.Join(errs...)
}

// LLMOptions converts the LLM section for llm.New.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Backend: c.LLM.Backend,
		Command: c.LLM.Command,
		Model:   c.LLM.Model,
		URL:     c.LLM.URL,
		APIKey:  c.LLM.APIKey,
		Timeout: c.LLM.Timeout.Duration,
	}
}

// EmbeddingOptions converts the embedding section for embedding.New.
func (c *Config) EmbeddingOptions() embedding.Options {
	e := c.Embedding
	return embedding.Options{
		Provider:      e.Provider,
		Model:         e.Model,
		URL:           e.URL,
		APIKey:        e.APIKey,
		Dims:          e.Dims,
		ModelPath:     e.ModelPath,
		TokenizerPath: e.TokenizerPath,
		LibraryPath:   e.LibraryPath,
		CacheSize:     e.CacheSize,
	}
}
