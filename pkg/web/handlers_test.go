package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxrelay/voxrelay/internal/log"
	"github.com/voxrelay/voxrelay/pkg/pipeline"
	"github.com/voxrelay/voxrelay/pkg/relay"
	"github.com/voxrelay/voxrelay/pkg/stage"
)

type fakeRunner struct {
	got pipeline.Utterance
	res *pipeline.Result
	err error
}

func (f *fakeRunner) Process(ctx context.Context, utt pipeline.Utterance) (*pipeline.Result, error) {
	f.got = utt
	return f.res, f.err
}

func newTestServer(t *testing.T, runner PipelineRunner, cloner stage.VoiceCloner) *Server {
	t.Helper()
	hub := relay.NewHub(relay.NewRegistry(), log.L())
	return NewServer(Options{Addr: ":0"}, hub, runner, cloner, log.L())
}

// multipartRequest builds a multipart POST with one file part and extra fields.
func multipartRequest(t *testing.T, url, fileField string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "upload.webm")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandleUtterance(t *testing.T) {
	runner := &fakeRunner{res: &pipeline.Result{
		Transcription: "hola",
		Translation:   "hello",
		State:         pipeline.StateDelivered,
	}}
	s := newTestServer(t, runner, stage.NewMock())

	req := multipartRequest(t, "/transcribe_by_language", "audio", []byte("fake-webm"), map[string]string{
		"participantId":    "p-1",
		"senderLanguage":   "es",
		"receiverLanguage": "en",
		"voiceId":          "v-1",
	})
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "hola", body["transcription"])
	assert.Equal(t, "hello", body["translation"])

	assert.NotEmpty(t, runner.got.ID)
	assert.Equal(t, "p-1", runner.got.SenderID)
	assert.Equal(t, []byte("fake-webm"), runner.got.Audio)
	assert.Equal(t, "es", runner.got.SenderLanguage)
	assert.Equal(t, "en", runner.got.ReceiverLanguage)
	assert.Equal(t, "v-1", runner.got.VoiceID)
}

func TestHandleUtteranceMissingAudio(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(t, runner, stage.NewMock())

	req := multipartRequest(t, "/transcribe_by_language", "", nil, map[string]string{"senderLanguage": "es"})
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "missing audio file", body["error"])
	assert.NotEmpty(t, body["details"])
	assert.Empty(t, runner.got.ID, "pipeline must not run without audio")
}

func TestHandleUtterancePipelineFailure(t *testing.T) {
	runner := &fakeRunner{
		res: &pipeline.Result{Transcription: "hola", Translation: "hello", State: pipeline.StateFailed},
		err: &stage.Error{Stage: stage.StageSynthesize, Reason: "voice not found"},
	}
	s := newTestServer(t, runner, stage.NewMock())

	req := multipartRequest(t, "/transcribe_by_language", "audio", []byte("x"), nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "synthesis failed", body["error"])
	assert.Contains(t, body["details"], "voice not found")
	assert.Equal(t, "hola", body["transcription"], "partial output must reach the submitter")
	assert.Equal(t, "hello", body["translation"])
}

func TestHandleCloneVoice(t *testing.T) {
	cloner := stage.NewMock()
	cloner.CloneVoiceFunc = func(ctx context.Context, sample []byte) (string, error) {
		assert.Equal(t, []byte("sample-bytes"), sample)
		return "voice-new", nil
	}
	s := newTestServer(t, &fakeRunner{}, cloner)

	// The submitter registers a connection first so the cloned voice can be
	// attached to it.
	pid, ch := s.hub.Join()
	t.Cleanup(func() { s.hub.Leave(pid) })
	go func() {
		for range ch {
		}
	}()

	req := multipartRequest(t, "/clone-voice", "voiceSample", []byte("sample-bytes"), map[string]string{
		"participantId": pid,
	})
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "voice-new", body["voiceId"])

	p, ok := s.hub.Registry().Get(pid)
	require.True(t, ok)
	assert.Equal(t, "voice-new", p.VoiceID, "cloned voice must be registered for the submitter")
}

func TestHandleCloneVoiceMissingSample(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, stage.NewMock())

	req := multipartRequest(t, "/clone-voice", "", nil, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "missing voiceSample file", body["error"])
}

func TestHandleCloneVoiceUpstreamFailure(t *testing.T) {
	cloner := stage.NewMock()
	cloner.CloneVoiceFunc = func(ctx context.Context, sample []byte) (string, error) {
		return "", &stage.Error{Stage: stage.StageClone, Reason: "clip too short"}
	}
	s := newTestServer(t, &fakeRunner{}, cloner)

	req := multipartRequest(t, "/clone-voice", "voiceSample", []byte("x"), nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "voice clone failed", body["error"])
	assert.Contains(t, body["details"], "clip too short")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, stage.NewMock())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, "ok", body["status"])
}
