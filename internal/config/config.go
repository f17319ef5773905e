package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Values are read from the
// environment (optionally seeded from a .env file in the working directory);
// every field has a sensible default except the OpenAI API key.
type Config struct {
	Server  ServerConfig
	OpenAI  OpenAIConfig
	Chat    ChatConfig
	Storage StorageConfig
}

type ServerConfig struct {
	Port     int    `env:"DOCCHAT_PORT" env-default:"4600"`
	APIToken string `env:"DOCCHAT_API_TOKEN"`
}

type OpenAIConfig struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	BaseURL    string `env:"OPENAI_BASE_URL"`
	ChatModel  string `env:"DOCCHAT_CHAT_MODEL" env-default:"gpt-4o-mini"`
	EmbedModel string `env:"DOCCHAT_EMBED_MODEL" env-default:"text-embedding-ada-002"`
}

// ChatConfig carries the per-session defaults. Sessions start with these
// values and may override them at runtime through the settings endpoint.
type ChatConfig struct {
	Temperature   float32 `env:"DOCCHAT_TEMPERATURE" env-default:"0.7"`
	MaxTokens     int     `env:"DOCCHAT_MAX_TOKENS" env-default:"1000"`
	ChunkSize     int     `env:"DOCCHAT_CHUNK_SIZE" env-default:"1000"`
	ChunkOverlap  int     `env:"DOCCHAT_CHUNK_OVERLAP" env-default:"200"`
	TopK          int     `env:"DOCCHAT_TOP_K" env-default:"4"`
	HistoryBudget int     `env:"DOCCHAT_HISTORY_BUDGET" env-default:"3500"`
}

type StorageConfig struct {
	DataDir   string `env:"DOCCHAT_DATA_DIR"`
	RedisAddr string `env:"DOCCHAT_REDIS_ADDR"`
}

// Load reads configuration from a .env file (if present) and the process
// environment. The OpenAI API key is required; everything else has defaults.
func Load() (Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaultDataDir()
	}

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenAI API key. " +
			"Set the OPENAI_API_KEY environment variable or add it to a .env file")
	}

	return cfg, nil
}

// defaultDataDir resolves to $XDG_DATA_HOME/docchat, falling back to
// ~/.local/share/docchat.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "docchat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "docchat-data"
	}
	return filepath.Join(home, ".local", "share", "docchat")
}
