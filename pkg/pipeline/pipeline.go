// Package pipeline drives one utterance through the three-stage
// transcribe/translate/synthesize pipeline and fans the synthesized audio out
// to the other participant. Stages run strictly sequentially; a failure at
// any stage aborts the rest of that utterance's pipeline and nothing else.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"

	"github.com/voxrelay/voxrelay/internal/metrics"
	"github.com/voxrelay/voxrelay/pkg/audio"
	"github.com/voxrelay/voxrelay/pkg/relay"
	"github.com/voxrelay/voxrelay/pkg/stage"
)

// State is the per-utterance pipeline state. The machine is linear:
// Received -> Transcribing -> Translating -> Synthesizing -> Delivered,
// with Failed reachable from any non-terminal state.
type State string

const (
	StateReceived     State = "received"
	StateTranscribing State = "transcribing"
	StateTranslating  State = "translating"
	StateSynthesizing State = "synthesizing"
	StateDelivered    State = "delivered"
	StateFailed       State = "failed"
)

// Utterance is one discrete recorded submission. It is created at ingress and
// consumed entirely within one Process call.
type Utterance struct {
	// ID is unique per submission and used only for log correlation.
	ID string

	// SenderID is the submitting participant's connection-scoped id.
	// May be empty when the submitter never opened a channel connection.
	SenderID string

	// Audio is the recorded utterance as uploaded.
	Audio []byte

	// SenderLanguage and ReceiverLanguage are the submitter's declarations.
	// The delivery target's registered language still wins for translation.
	SenderLanguage   string
	ReceiverLanguage string

	// VoiceID is the declared synthesis voice. Empty falls back to the
	// sender's registered voice, then to the shared default.
	VoiceID string
}

// Result accumulates per-stage output. On failure it carries whatever stages
// completed, so the submitter's own UI can still show the transcript.
type Result struct {
	Transcription string
	Translation   string
	Audio         []byte // WAV, present only on full success
	State         State
	Delivered     int
}

// Broadcaster is the fan-out side of the relay channel.
type Broadcaster interface {
	SendAudioFrom(senderID string, wav []byte) int
	BroadcastControl(senderID string, c relay.Control) int
}

// Orchestrator wires the three stage adapters to the registry and channel.
// It holds no per-utterance state; concurrent Process calls are independent.
type Orchestrator struct {
	transcriber stage.Transcriber
	translator  stage.Translator
	synthesizer stage.Synthesizer
	registry    *relay.Registry
	broadcaster Broadcaster
	logger      *slog.Logger
}

// New creates an orchestrator.
func New(
	transcriber stage.Transcriber,
	translator stage.Translator,
	synthesizer stage.Synthesizer,
	registry *relay.Registry,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		transcriber: transcriber,
		translator:  translator,
		synthesizer: synthesizer,
		registry:    registry,
		broadcaster: broadcaster,
		logger:      logger.With("component", "pipeline"),
	}
}

// Process runs utt through the pipeline. The returned Result is never nil:
// on error it carries the partial output of the stages that completed.
// On success the synthesized WAV has already been fanned out to every other
// connected participant.
func (o *Orchestrator) Process(ctx context.Context, utt Utterance) (*Result, error) {
	res := &Result{State: StateReceived}
	logger := o.logger.With("utterance", utt.ID, "sender", utt.SenderID)

	// Transcribing
	res.State = StateTranscribing
	text, err := timed(stage.StageTranscribe, func() (string, error) {
		return o.transcriber.Transcribe(ctx, utt.Audio, utt.SenderLanguage)
	})
	if err != nil {
		return o.fail(res, logger, err)
	}
	if text == "" {
		return o.fail(res, logger, &stage.Error{Stage: stage.StageTranscribe, Reason: "empty transcript"})
	}
	res.Transcription = text

	// Translating
	res.State = StateTranslating
	target := o.targetLanguage(utt)
	switch {
	case target == "":
		// No target declared anywhere: deliver untranslated.
		res.Translation = text
	case detectedLanguage(text) == target:
		// Already in the target language; skip the engine round-trip.
		logger.Debug("transcript already in target language", "language", target)
		res.Translation = text
	default:
		translated, err := timed(stage.StageTranslate, func() (string, error) {
			return o.translator.Translate(ctx, text, target)
		})
		if err != nil {
			return o.fail(res, logger, err)
		}
		res.Translation = translated
	}

	// Synthesizing
	res.State = StateSynthesizing
	voice := o.voiceFor(utt)
	lang := target
	if lang == "" {
		lang = utt.SenderLanguage
	}
	samples, err := timed(stage.StageSynthesize, func() ([]byte, error) {
		return o.synthesizer.Synthesize(ctx, res.Translation, voice, lang)
	})
	if err != nil {
		return o.fail(res, logger, err)
	}
	res.Audio = audio.EncodeFloat32LE(samples, stage.OutputSampleRate)

	// Delivered. A zero count means the peer disconnected mid-pipeline;
	// that is not a pipeline failure.
	res.Delivered = o.broadcaster.SendAudioFrom(utt.SenderID, res.Audio)
	o.broadcaster.BroadcastControl(utt.SenderID, relay.Control{
		Type: relay.ControlTranscription,
		Text: res.Translation,
	})
	res.State = StateDelivered

	metrics.UtterancesTotal.WithLabelValues("delivered").Inc()
	logger.Info("utterance delivered",
		"target", target,
		"voice", voice,
		"recipients", res.Delivered,
		"wav_bytes", len(res.Audio),
	)
	return res, nil
}

// fail finalizes res for a stage failure.
func (o *Orchestrator) fail(res *Result, logger *slog.Logger, err error) (*Result, error) {
	res.State = StateFailed
	if s, ok := stage.StageOf(err); ok {
		metrics.StageFailuresTotal.WithLabelValues(string(s)).Inc()
	}
	metrics.UtterancesTotal.WithLabelValues("failed").Inc()
	logger.Warn("utterance pipeline failed", "error", err)
	return res, err
}

// timed runs one stage call and records its duration.
func timed[T any](s stage.Stage, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	metrics.StageDuration.WithLabelValues(string(s)).Observe(time.Since(start).Seconds())
	return out, err
}

// targetLanguage resolves the translation target: the other connected
// participant's declared language wins over the submitter's declaration,
// which in turn wins over not translating at all. Translation direction is
// always sender to receiver.
func (o *Orchestrator) targetLanguage(utt Utterance) string {
	var peerLang string
	o.registry.ForEachOther(utt.SenderID, func(p relay.Participant) {
		if peerLang == "" && p.Language != relay.LanguageUnset && p.Language != "" {
			peerLang = p.Language
		}
	})
	if peerLang != "" {
		return peerLang
	}
	if utt.ReceiverLanguage == relay.LanguageUnset {
		return ""
	}
	return utt.ReceiverLanguage
}

// voiceFor resolves the synthesis voice: the declared voice id, then the
// sender's registered voice. Empty means the synthesizer's configured
// default voice applies.
func (o *Orchestrator) voiceFor(utt Utterance) string {
	if utt.VoiceID != "" {
		return utt.VoiceID
	}
	if p, ok := o.registry.Get(utt.SenderID); ok && p.VoiceID != "" {
		return p.VoiceID
	}
	return ""
}

// detectedLanguage returns the ISO 639-1 code of text when detection is
// reliable, "" otherwise.
func detectedLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
