package web

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/voxrelay/voxrelay/internal/metrics"
	"github.com/voxrelay/voxrelay/pkg/pipeline"
	"github.com/voxrelay/voxrelay/pkg/stage"
)

// handleUtterance accepts one discrete utterance and runs it through the
// pipeline synchronously. Partial stage output is included in the error
// response so the submitter's own UI can still show their transcript.
func (s *Server) handleUtterance(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "missing audio file",
			"details": err.Error(),
		})
	}
	data, err := readUpload(fh)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "unreadable audio file",
			"details": err.Error(),
		})
	}

	utt := pipeline.Utterance{
		ID:               uuid.NewString(),
		SenderID:         c.FormValue("participantId"),
		Audio:            data,
		SenderLanguage:   c.FormValue("senderLanguage"),
		ReceiverLanguage: c.FormValue("receiverLanguage"),
		VoiceID:          c.FormValue("voiceId"),
	}

	res, err := s.runner.Process(c.UserContext(), utt)
	if err != nil {
		body := fiber.Map{
			"error":   failureLabel(err),
			"details": err.Error(),
		}
		if res != nil {
			if res.Transcription != "" {
				body["transcription"] = res.Transcription
			}
			if res.Translation != "" {
				body["translation"] = res.Translation
			}
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}

	return c.JSON(fiber.Map{
		"transcription": res.Transcription,
		"translation":   res.Translation,
	})
}

// handleCloneVoice clones a voice from an uploaded sample. When the submitter
// identifies themselves the new voice is registered for their connection so
// later utterances pick it up without a channel round-trip.
func (s *Server) handleCloneVoice(c *fiber.Ctx) error {
	fh, err := c.FormFile("voiceSample")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "missing voiceSample file",
			"details": err.Error(),
		})
	}
	sample, err := readUpload(fh)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "unreadable voiceSample file",
			"details": err.Error(),
		})
	}

	voiceID, err := s.cloner.CloneVoice(c.UserContext(), sample)
	if err != nil {
		metrics.VoiceClonesTotal.WithLabelValues("failed").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "voice clone failed",
			"details": err.Error(),
		})
	}
	metrics.VoiceClonesTotal.WithLabelValues("cloned").Inc()

	if pid := c.FormValue("participantId"); pid != "" {
		s.hub.SetVoice(pid, voiceID)
	}

	return c.JSON(fiber.Map{"voiceId": voiceID})
}

// failureLabel maps a pipeline error to the stable error field of the
// response body.
func failureLabel(err error) string {
	st, ok := stage.StageOf(err)
	if !ok {
		return "pipeline failed"
	}
	switch st {
	case stage.StageTranscribe:
		return "transcription failed"
	case stage.StageTranslate:
		return "translation failed"
	case stage.StageSynthesize:
		return "synthesis failed"
	case stage.StageClone:
		return "voice clone failed"
	default:
		return "pipeline failed"
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
