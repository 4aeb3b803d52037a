package stage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL     = "https://api.groq.com/openai/v1"
	transcribeModel = "whisper-large-v3"
	translateModel  = "llama-3.3-70b-versatile"
)

// newGroqClient builds an OpenAI-compatible client pointed at Groq.
func newGroqClient(cfg *Config) *openai.Client {
	cc := openai.DefaultConfig(cfg.APIKey)
	cc.BaseURL = groqBaseURL
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		cc.HTTPClient = cfg.HTTPClient
	}
	return openai.NewClientWithConfig(cc)
}

// upstreamReason extracts the engine-reported message from an error chain.
func upstreamReason(err error, fallback string) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// GroqTranscriber implements Transcriber using Groq's Whisper endpoint.
type GroqTranscriber struct {
	client *openai.Client
	config *Config
	model  string
	logger *slog.Logger
}

// NewGroqTranscriber creates a Whisper transcription adapter.
func NewGroqTranscriber(opts ...Option) (*GroqTranscriber, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = transcribeModel
	}

	return &GroqTranscriber{
		client: newGroqClient(cfg),
		config: cfg,
		model:  model,
		logger: cfg.Logger.With("component", "stage.transcribe"),
	}, nil
}

// Transcribe recognizes speech in audio. A silent recording yields an empty
// string; only malformed audio, unsupported languages, and upstream errors
// fail the stage.
func (g *GroqTranscriber) Transcribe(ctx context.Context, audio []byte, sourceLang string) (string, error) {
	if len(audio) == 0 {
		return "", failed(StageTranscribe, "no audio payload", ErrEmptyAudio)
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	req := openai.AudioRequest{
		Model:    g.model,
		FilePath: "utterance.webm", // filename hint for the multipart upload
		Reader:   bytes.NewReader(audio),
	}
	if !isUnset(sourceLang) {
		req.Language = sourceLang
	}

	start := time.Now()
	resp, err := g.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", failed(StageTranscribe, upstreamReason(err, "transcription request failed"), err)
	}

	text := strings.TrimSpace(resp.Text)
	g.logger.Debug("transcribed utterance",
		"bytes", len(audio),
		"chars", len(text),
		"language", sourceLang,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// GroqTranslator implements Translator using a Groq chat completion.
type GroqTranslator struct {
	client *openai.Client
	config *Config
	model  string
	logger *slog.Logger
}

// NewGroqTranslator creates a text translation adapter.
func NewGroqTranslator(opts ...Option) (*GroqTranslator, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = translateModel
	}

	return &GroqTranslator{
		client: newGroqClient(cfg),
		config: cfg,
		model:  model,
		logger: cfg.Logger.With("component", "stage.translate"),
	}, nil
}

// Translate renders text in targetLang. An unset target skips the engine
// call entirely and returns the input unchanged.
func (g *GroqTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if isUnset(targetLang) {
		return text, nil
	}
	if text == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You are a translation engine. Translate the user's message into the language with ISO 639-1 code %q. Reply with the translation only.",
					targetLang,
				),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", failed(StageTranslate, upstreamReason(err, "translation request failed"), err)
	}
	if len(resp.Choices) == 0 {
		return "", failed(StageTranslate, "engine returned no completion", nil)
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	g.logger.Debug("translated utterance",
		"target", targetLang,
		"chars_in", len(text),
		"chars_out", len(translated),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return translated, nil
}
