package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxrelay/voxrelay/internal/log"
	"github.com/voxrelay/voxrelay/pkg/audio"
	"github.com/voxrelay/voxrelay/pkg/pipeline"
	"github.com/voxrelay/voxrelay/pkg/relay"
	"github.com/voxrelay/voxrelay/pkg/stage"
)

func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.App().Listener(ln)
	t.Cleanup(func() { s.App().Shutdown() })
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readControl(t *testing.T, ws *websocket.Conn) relay.Control {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind, "expected a control frame, got %q", data)
	var c relay.Control
	require.NoError(t, json.Unmarshal(data, &c))
	return c
}

func readBinary(t *testing.T, ws *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, kind, "expected an audio frame, got %q", data)
	return data
}

func postMultipart(t *testing.T, url, fileField string, file []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fileField, "upload.webm")
	require.NoError(t, err)
	_, err = part.Write(file)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	resp, err := http.Post(url, w.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

// TestSessionEndToEnd drives a full two-participant session over a real
// listener: connect, announce languages, submit an utterance, and verify the
// synthesized audio reaches only the peer.
func TestSessionEndToEnd(t *testing.T) {
	samples := []byte{9, 8, 7, 6}
	m := stage.NewMock()
	m.TranscribeFunc = func(ctx context.Context, audioBytes []byte, lang string) (string, error) {
		return "hola", nil
	}
	m.TranslateFunc = func(ctx context.Context, text, target string) (string, error) {
		// Runs on the server goroutine, so no fatal assertions here.
		assert.Equal(t, "en", target)
		return "hello", nil
	}
	m.SynthesizeFunc = func(ctx context.Context, text, voiceID, lang string) ([]byte, error) {
		return samples, nil
	}

	hub := relay.NewHub(relay.NewRegistry(), log.L())
	orch := pipeline.New(m, m, m, hub.Registry(), hub, log.L())
	s := NewServer(Options{Addr: ":0"}, hub, orch, m, log.L())
	addr := startServer(t, s)

	// Both participants connect; the first frame is the welcome carrying the
	// connection-scoped id the submitter echoes at ingress.
	wsA := dial(t, addr)
	welcomeA := readControl(t, wsA)
	require.Equal(t, relay.ControlWelcome, welcomeA.Type)
	require.NotEmpty(t, welcomeA.ParticipantID)

	wsB := dial(t, addr)
	welcomeB := readControl(t, wsB)
	require.Equal(t, relay.ControlWelcome, welcomeB.Type)

	// Language announcements relay to the peer, never back to the sender.
	require.NoError(t, wsA.WriteJSON(relay.Control{Type: relay.ControlLanguage, Language: "es"}))
	langAtB := readControl(t, wsB)
	assert.Equal(t, relay.ControlLanguage, langAtB.Type)
	assert.Equal(t, "es", langAtB.Language)

	require.NoError(t, wsB.WriteJSON(relay.Control{Type: relay.ControlLanguage, Language: "en"}))
	langAtA := readControl(t, wsA)
	assert.Equal(t, "en", langAtA.Language)

	// A submits an utterance over the ingress route.
	resp := postMultipart(t, "http://"+addr+"/transcribe_by_language", "audio", []byte("fake-webm"), map[string]string{
		"participantId":    welcomeA.ParticipantID,
		"senderLanguage":   "es",
		"receiverLanguage": "en",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "hola", body["transcription"])
	assert.Equal(t, "hello", body["translation"])

	// B receives exactly one binary frame with the WAV-framed samples, then
	// the transcription control.
	frame := readBinary(t, wsB)
	assert.Equal(t, audio.EncodeFloat32LE(samples, stage.OutputSampleRate), frame)

	text := readControl(t, wsB)
	assert.Equal(t, relay.ControlTranscription, text.Type)
	assert.Equal(t, "hello", text.Text)

	// The sender must not hear their own utterance back.
	require.NoError(t, wsA.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	if _, _, err := wsA.ReadMessage(); err == nil {
		t.Fatal("sender received its own broadcast")
	}
}

// TestMalformedControlIsSwallowed verifies a garbage text frame neither
// crashes the connection nor reaches the peer.
func TestMalformedControlIsSwallowed(t *testing.T) {
	hub := relay.NewHub(relay.NewRegistry(), log.L())
	s := NewServer(Options{Addr: ":0"}, hub, &fakeRunner{}, stage.NewMock(), log.L())
	addr := startServer(t, s)

	wsA := dial(t, addr)
	readControl(t, wsA) // welcome
	wsB := dial(t, addr)
	readControl(t, wsB) // welcome

	require.NoError(t, wsA.WriteMessage(websocket.TextMessage, []byte("not json at all")))

	// The connection keeps working: a valid announcement still relays.
	require.NoError(t, wsA.WriteJSON(relay.Control{Type: relay.ControlLanguage, Language: "fr"}))
	c := readControl(t, wsB)
	assert.Equal(t, "fr", c.Language)
}
