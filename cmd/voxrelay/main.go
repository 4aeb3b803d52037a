// voxrelay: two-party realtime voice translation relay.
// Participants connect over a websocket channel, announce a language and an
// optional cloned voice, and submit recorded utterances over HTTP; each
// utterance is transcribed, translated into the peer's language, re-voiced,
// and pushed to the peer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxrelay/voxrelay/internal/config"
	"github.com/voxrelay/voxrelay/internal/log"
	"github.com/voxrelay/voxrelay/pkg/pipeline"
	"github.com/voxrelay/voxrelay/pkg/relay"
	"github.com/voxrelay/voxrelay/pkg/stage"
	"github.com/voxrelay/voxrelay/pkg/web"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()
	logger.Info("starting voxrelay", "version", version, "addr", cfg.Addr)

	transcriber, err := stage.NewGroqTranscriber(
		stage.WithAPIKey(cfg.GroqAPIKey),
		stage.WithBaseURL(cfg.GroqBaseURL),
		stage.WithModel(cfg.GroqSTTModel),
		stage.WithTimeout(cfg.StageTimeout),
		stage.WithLogger(logger),
	)
	if err != nil {
		logger.Error("transcription adapter", "error", err)
		os.Exit(1)
	}

	translator, err := stage.NewGroqTranslator(
		stage.WithAPIKey(cfg.GroqAPIKey),
		stage.WithBaseURL(cfg.GroqBaseURL),
		stage.WithModel(cfg.GroqTranslateModel),
		stage.WithTimeout(cfg.StageTimeout),
		stage.WithLogger(logger),
	)
	if err != nil {
		logger.Error("translation adapter", "error", err)
		os.Exit(1)
	}

	cartesia, err := stage.NewCartesia(
		stage.WithAPIKey(cfg.CartesiaAPIKey),
		stage.WithBaseURL(cfg.CartesiaBaseURL),
		stage.WithDefaultVoice(cfg.DefaultVoiceID),
		stage.WithTimeout(cfg.StageTimeout),
		stage.WithLogger(logger),
	)
	if err != nil {
		logger.Error("synthesis adapter", "error", err)
		os.Exit(1)
	}

	hub := relay.NewHub(relay.NewRegistry(), logger)
	orch := pipeline.New(transcriber, translator, cartesia, hub.Registry(), hub, logger)
	srv := web.NewServer(web.Options{
		Addr:      cfg.Addr,
		StaticDir: cfg.StaticDir,
		Version:   version,
	}, hub, orch, cartesia, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("goodbye")
}
