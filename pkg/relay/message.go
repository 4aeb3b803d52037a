// Package relay provides the realtime channel between the two participants:
// a thread-safe WebSocket broadcast hub using the idiomatic Go channel-based
// fan-out pattern, plus the participant registry it fans out over.
package relay

import (
	"encoding/json"
	"errors"
)

// ControlType discriminates structured text frames on the channel.
type ControlType string

const (
	// ControlLanguage announces a participant's selected language.
	ControlLanguage ControlType = "language"
	// ControlVoiceID announces a participant's cloned-voice identity.
	ControlVoiceID ControlType = "voiceId"
	// ControlTranscription carries translated text alongside synthesized audio.
	ControlTranscription ControlType = "transcription"
	// ControlWelcome is sent by the server on join and carries the assigned
	// participant id. Clients echo it back as the participantId form field
	// when submitting utterances.
	ControlWelcome ControlType = "welcome"
)

// Control is the tagged control message exchanged as JSON text frames.
type Control struct {
	Type          ControlType `json:"type"`
	Language      string      `json:"language,omitempty"`
	VoiceID       string      `json:"voiceId,omitempty"`
	Text          string      `json:"text,omitempty"`
	ParticipantID string      `json:"participantId,omitempty"`
}

// ErrMalformedControl is returned for text frames that cannot be parsed as a
// tagged control message. Such frames are treated as legacy opaque payloads
// and discarded at the channel boundary, never propagated.
var ErrMalformedControl = errors.New("relay: malformed control message")

// DecodeControl parses an inbound text frame into a Control.
// Frames that are not JSON, or that carry an unknown type tag, return
// ErrMalformedControl.
func DecodeControl(data []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return Control{}, ErrMalformedControl
	}
	switch c.Type {
	case ControlLanguage, ControlVoiceID, ControlTranscription:
		return c, nil
	}
	return Control{}, ErrMalformedControl
}

// Message is an outbound frame queued to a participant's connection.
type Message struct {
	Binary bool
	Data   []byte
}

// ControlMessage encodes a Control as a text frame.
func ControlMessage(c Control) (Message, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}

// AudioMessage wraps WAV bytes as a binary frame.
func AudioMessage(data []byte) Message {
	return Message{Binary: true, Data: data}
}
