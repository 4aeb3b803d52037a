package stage

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voxrelay/voxrelay/internal/httpc"
)

// Config holds engine adapter configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Engine credentials
	APIKey  string
	BaseURL string

	// Model override; adapters fall back to their engine default.
	Model string

	// DefaultVoice used for synthesis when no voice id is supplied.
	DefaultVoice string

	// Per-call deadline for the external engine.
	Timeout time.Duration

	// HTTPClient used for engine calls; injectable for tests.
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring engine adapters.
type Option func(*Config)

// WithAPIKey sets the engine API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default engine base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel overrides the engine's default model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithDefaultVoice overrides the shared default synthesis voice.
func WithDefaultVoice(voiceID string) Option {
	return func(c *Config) {
		c.DefaultVoice = voiceID
	}
}

// WithTimeout sets the per-call deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHTTPClient sets the HTTP client used for engine calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger for the adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultVoice: DefaultVoiceID,
		Timeout:      30 * time.Second,
		HTTPClient:   httpc.Client,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
