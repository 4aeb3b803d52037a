// Package config loads voxrelay configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for the relay.
type Config struct {
	// Network
	Addr      string `envconfig:"ADDR" default:":8080"`
	StaticDir string `envconfig:"STATIC_DIR" default:"./web"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Transcription and translation engine (Groq, OpenAI-compatible)
	GroqAPIKey         string `envconfig:"GROQ_API_KEY"`
	GroqBaseURL        string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GroqSTTModel       string `envconfig:"GROQ_STT_MODEL" default:"whisper-large-v3"`
	GroqTranslateModel string `envconfig:"GROQ_TRANSLATE_MODEL" default:"llama-3.3-70b-versatile"`

	// Synthesis and voice-cloning engine (Cartesia)
	CartesiaAPIKey  string `envconfig:"CARTESIA_API_KEY"`
	CartesiaBaseURL string `envconfig:"CARTESIA_BASE_URL" default:"https://api.cartesia.ai"`

	// Voice used when a participant never cloned one.
	DefaultVoiceID string `envconfig:"DEFAULT_VOICE_ID" default:"a0e99841-438c-4a64-b679-ae501e7d6091"`

	// Per-stage deadline for calls to the external engines.
	StageTimeout time.Duration `envconfig:"STAGE_TIMEOUT" default:"30s"`
}

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	if cfg.CartesiaAPIKey == "" {
		return nil, fmt.Errorf("CARTESIA_API_KEY is required")
	}

	return &cfg, nil
}
