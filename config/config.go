// Package config holds user settings and environment-derived secrets.
// Settings live in a JSON file under the platform config directory and
// survive restarts; API keys and tokens come from the environment,
// optionally via a .env file.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env carries secrets and overrides read from the environment. None are
// required; providers that lack their key fail at construction time
// with a clear message instead.
type Env struct {
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	GroqAPIKey      string `envconfig:"GROQ_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// RelayURL overrides the hosted backend endpoint, for staging.
	RelayURL string `envconfig:"CHOTTO_RELAY_URL"`

	LogLevel string `envconfig:"CHOTTO_LOG_LEVEL" default:"info"`
	LogPath  string `envconfig:"CHOTTO_LOG_PATH"`
}

// LoadEnv reads a .env file if present, then the process environment.
func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &env, nil
}
