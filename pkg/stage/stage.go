// Package stage provides the adapters around the external speech engines:
// transcription, translation, synthesis, and voice cloning. Each adapter
// exposes a single context-bound operation with its own deadline and
// normalizes upstream failures into *stage.Error. Adapters make exactly one
// attempt per call; retry policy belongs to callers.
//
// All implementations satisfy the per-concern interfaces below, enabling
// seamless engine switching without changing caller code.
package stage

import "context"

// Transcriber converts recorded audio into text.
// A silent recording yields an empty string, not an error.
type Transcriber interface {
	// Transcribe recognizes speech in audio, declared to be in sourceLang
	// (ISO 639-1 code, empty or "unset" for autodetect).
	Transcribe(ctx context.Context, audio []byte, sourceLang string) (string, error)
}

// Translator converts text into a target language.
type Translator interface {
	// Translate returns text rendered in targetLang. An unset target language
	// skips the engine call and returns the input unchanged.
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Synthesizer renders text as speech in a given voice.
type Synthesizer interface {
	// Synthesize returns raw little-endian float32 PCM samples at
	// OutputSampleRate. The acoustic model is selected from language;
	// an empty voiceID falls back to the shared default voice.
	Synthesize(ctx context.Context, text, voiceID, language string) ([]byte, error)
}

// VoiceCloner produces a reusable voice identity from a voice sample.
type VoiceCloner interface {
	// CloneVoice extracts an embedding from sample and registers a named
	// voice from it. The two upstream calls are sequential and atomic: no
	// voice is registered if the embedding extraction fails.
	CloneVoice(ctx context.Context, sample []byte) (string, error)
}

// isUnset reports whether a language declaration carries no information.
func isUnset(lang string) bool {
	return lang == "" || lang == "unset"
}
