package config

import (
	"testing"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %q, want gpt-4o-mini", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.EmbedModel != "text-embedding-ada-002" {
		t.Errorf("EmbedModel = %q, want text-embedding-ada-002", cfg.OpenAI.EmbedModel)
	}
	if cfg.Chat.Temperature != 0.7 {
		t.Errorf("Temperature = %f, want 0.7", cfg.Chat.Temperature)
	}
	if cfg.Chat.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want 1000", cfg.Chat.MaxTokens)
	}
	if cfg.Chat.ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want 1000", cfg.Chat.ChunkSize)
	}
	if cfg.Chat.ChunkOverlap != 200 {
		t.Errorf("ChunkOverlap = %d, want 200", cfg.Chat.ChunkOverlap)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("DataDir should have a default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DOCCHAT_PORT", "9100")
	t.Setenv("DOCCHAT_CHAT_MODEL", "gpt-4o")
	t.Setenv("DOCCHAT_CHUNK_SIZE", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %q, want gpt-4o", cfg.OpenAI.ChatModel)
	}
	if cfg.Chat.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.Chat.ChunkSize)
	}
}
