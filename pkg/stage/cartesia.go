package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2024-06-10"
	engineCartesia  = "cartesia"

	// DefaultVoiceID is the shared builtin voice used when a participant
	// never cloned one.
	DefaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"

	// Acoustic models; selection branches on the utterance language.
	ModelSonicEnglish      = "sonic-english"
	ModelSonicMultilingual = "sonic-multilingual"

	// OutputSampleRate of the raw float32 samples returned by Synthesize.
	OutputSampleRate = 44100
)

// Cartesia implements Synthesizer and VoiceCloner against the Cartesia API.
type Cartesia struct {
	config  *Config
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewCartesia creates a synthesis and voice-cloning adapter.
func NewCartesia(opts ...Option) (*Cartesia, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cartesiaBaseURL
	}

	return &Cartesia{
		config:  cfg,
		client:  cfg.HTTPClient,
		baseURL: baseURL,
		logger:  cfg.Logger.With("component", "stage.cartesia"),
	}, nil
}

// AcousticModel returns the synthesis model for a language: the generic
// English model for the English family, the multilingual model otherwise.
func AcousticModel(language string) string {
	if isUnset(language) || language == "en" || strings.HasPrefix(language, "en-") {
		return ModelSonicEnglish
	}
	return ModelSonicMultilingual
}

// Synthesize renders text as raw pcm_f32le samples at OutputSampleRate.
func (c *Cartesia) Synthesize(ctx context.Context, text, voiceID, language string) ([]byte, error) {
	if text == "" {
		return nil, failed(StageSynthesize, "nothing to speak", ErrEmptyText)
	}
	if voiceID == "" {
		voiceID = c.config.DefaultVoice
	}

	model := AcousticModel(language)
	payload := map[string]any{
		"transcript": text,
		"model_id":   model,
		"voice": map[string]string{
			"mode": "id",
			"id":   voiceID,
		},
		"output_format": map[string]any{
			"container":   "raw",
			"encoding":    "pcm_f32le",
			"sample_rate": OutputSampleRate,
		},
	}
	if model == ModelSonicMultilingual {
		payload["language"] = language
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, failed(StageSynthesize, "encode request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, failed(StageSynthesize, "create request", err)
	}
	c.setHeaders(req, "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failed(StageSynthesize, "synthesis request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failed(StageSynthesize, c.readError(resp), nil)
	}

	samples, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failed(StageSynthesize, "read response", err)
	}

	c.logger.Debug("synthesized utterance",
		"chars", len(text),
		"bytes", len(samples),
		"model", model,
		"voice", voiceID,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return samples, nil
}

// CloneVoice extracts an embedding from sample, then registers a named voice
// from it. No voice is registered when the extraction fails.
func (c *Cartesia) CloneVoice(ctx context.Context, sample []byte) (string, error) {
	if len(sample) == 0 {
		return "", failed(StageClone, "no voice sample", ErrEmptyAudio)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	embedding, err := c.extractEmbedding(ctx, sample)
	if err != nil {
		return "", err
	}
	return c.registerVoice(ctx, embedding)
}

// extractEmbedding uploads the clip and returns the raw embedding payload.
func (c *Cartesia) extractEmbedding(ctx context.Context, sample []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("clip", "voice_sample.wav")
	if err != nil {
		return nil, failed(StageClone, "build upload", err)
	}
	if _, err := fw.Write(sample); err != nil {
		return nil, failed(StageClone, "build upload", err)
	}
	if err := mw.Close(); err != nil {
		return nil, failed(StageClone, "build upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voices/clone/clip", &buf)
	if err != nil {
		return nil, failed(StageClone, "create request", err)
	}
	c.setHeaders(req, mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failed(StageClone, "clone request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failed(StageClone, c.readError(resp), nil)
	}

	var cloned struct {
		Embedding json.RawMessage `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cloned); err != nil {
		return nil, failed(StageClone, "decode clone response", err)
	}
	if len(cloned.Embedding) == 0 {
		return nil, failed(StageClone, "engine returned no embedding", nil)
	}
	return cloned.Embedding, nil
}

// registerVoice creates a named voice from an embedding and returns its id.
func (c *Cartesia) registerVoice(ctx context.Context, embedding json.RawMessage) (string, error) {
	body, err := json.Marshal(map[string]any{
		"name":        fmt.Sprintf("Cloned Voice %d", time.Now().UnixMilli()),
		"description": "A voice cloned from an audio sample.",
		"embedding":   embedding,
	})
	if err != nil {
		return "", failed(StageClone, "encode voice", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voices", bytes.NewReader(body))
	if err != nil {
		return "", failed(StageClone, "create request", err)
	}
	c.setHeaders(req, "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", failed(StageClone, "voice registration failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", failed(StageClone, c.readError(resp), nil)
	}

	var voice struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&voice); err != nil {
		return "", failed(StageClone, "decode voice response", err)
	}
	if voice.ID == "" {
		return "", failed(StageClone, "engine returned no voice id", nil)
	}

	c.logger.Info("voice cloned", "voice", voice.ID)
	return voice.ID, nil
}

// setHeaders sets the Cartesia auth and version headers.
func (c *Cartesia) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("X-API-Key", c.config.APIKey)
	req.Header.Set("Content-Type", contentType)
}

// readError captures the upstream-reported failure reason.
func (c *Cartesia) readError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Error != "" {
			return fmt.Sprintf("%s [%d]: %s", engineCartesia, resp.StatusCode, errResp.Error)
		}
		if errResp.Message != "" {
			return fmt.Sprintf("%s [%d]: %s", engineCartesia, resp.StatusCode, errResp.Message)
		}
	}
	return fmt.Sprintf("%s [%d]: %s", engineCartesia, resp.StatusCode, strings.TrimSpace(string(body)))
}
