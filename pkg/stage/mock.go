package stage

import (
	"context"
	"sync"
)

// Mock implements all four engine interfaces for testing.
// Each method can be customized via its function field.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns "hello".
	TranscribeFunc func(ctx context.Context, audio []byte, sourceLang string) (string, error)

	// TranslateFunc is called when Translate is invoked.
	// If nil, returns the input unchanged.
	TranslateFunc func(ctx context.Context, text, targetLang string) (string, error)

	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a small fixed sample buffer.
	SynthesizeFunc func(ctx context.Context, text, voiceID, language string) ([]byte, error)

	// CloneVoiceFunc is called when CloneVoice is invoked.
	// If nil, returns "mock-voice".
	CloneVoiceFunc func(ctx context.Context, sample []byte) (string, error)

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method   string
	Text     string
	Language string
	VoiceID  string
}

// NewMock creates a mock with pass-through defaults.
func NewMock() *Mock {
	return &Mock{}
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, audio []byte, sourceLang string) (string, error) {
	m.record(MockCall{Method: "Transcribe", Language: sourceLang})
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, sourceLang)
	}
	return "hello", nil
}

// Translate calls TranslateFunc and records the call.
func (m *Mock) Translate(ctx context.Context, text, targetLang string) (string, error) {
	m.record(MockCall{Method: "Translate", Text: text, Language: targetLang})
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, targetLang)
	}
	return text, nil
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, text, voiceID, language string) ([]byte, error) {
	m.record(MockCall{Method: "Synthesize", Text: text, Language: language, VoiceID: voiceID})
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, voiceID, language)
	}
	return []byte{0, 0, 0, 0}, nil
}

// CloneVoice calls CloneVoiceFunc and records the call.
func (m *Mock) CloneVoice(ctx context.Context, sample []byte) (string, error) {
	m.record(MockCall{Method: "CloneVoice"})
	if m.CloneVoiceFunc != nil {
		return m.CloneVoiceFunc(ctx, sample)
	}
	return "mock-voice", nil
}

// record adds a call to the tracking list.
func (m *Mock) record(call MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements all engine interfaces at compile time.
var (
	_ Transcriber = (*Mock)(nil)
	_ Translator  = (*Mock)(nil)
	_ Synthesizer = (*Mock)(nil)
	_ VoiceCloner = (*Mock)(nil)
)
