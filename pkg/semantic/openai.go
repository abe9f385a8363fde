package semantic

import (
	"os"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	apiKeyEnv         = "COMMITGATE_SEMANTIC_KEY"
	fallbackAPIKeyEnv = "OPENAI_API_KEY"
)

// NewClientFromEnv builds the chat client for any OpenAI-compatible
// endpoint. Returns nil when no API key is configured; the analyzer then
// reports ErrUnavailable instead of crashing the gate.
func NewClientFromEnv(baseURL string) ChatCompleter {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		apiKey = os.Getenv(fallbackAPIKeyEnv)
	}

	if apiKey == "" {
		log.Debug().Str("env", apiKeyEnv).Msg("No semantic API key set, stage runs degraded")
		return nil
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return openai.NewClientWithConfig(config)
}
