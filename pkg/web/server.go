// Package web is the external-facing surface: the websocket channel endpoint,
// the utterance and voice-clone ingress routes, and static asset serving.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxrelay/voxrelay/pkg/pipeline"
	"github.com/voxrelay/voxrelay/pkg/relay"
	"github.com/voxrelay/voxrelay/pkg/stage"
)

// PipelineRunner is what the ingress handlers need from the orchestrator.
type PipelineRunner interface {
	Process(ctx context.Context, utt pipeline.Utterance) (*pipeline.Result, error)
}

// Server hosts the HTTP and websocket surface.
type Server struct {
	app    *fiber.App
	hub    *relay.Hub
	runner PipelineRunner
	cloner stage.VoiceCloner
	logger *slog.Logger
	addr   string
}

// Options configures the server.
type Options struct {
	Addr      string
	StaticDir string
	Version   string
}

// NewServer wires the routes. The hub carries the participant registry;
// runner and cloner are the pipeline entry points.
func NewServer(opts Options, hub *relay.Hub, runner PipelineRunner, cloner stage.VoiceCloner, logger *slog.Logger) *Server {
	s := &Server{
		hub:    hub,
		runner: runner,
		cloner: cloner,
		logger: logger.With("component", "web"),
		addr:   opts.Addr,
	}

	app := fiber.New(fiber.Config{
		AppName:               "voxrelay",
		DisableStartupMessage: true,
		BodyLimit:             32 << 20, // recorded utterances and voice samples
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"version":      opts.Version,
			"participants": hub.Registry().Count(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/transcribe_by_language", s.handleUtterance)
	app.Post("/clone-voice", s.handleCloneVoice)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.handleWS))

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app for in-process request testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving on the configured address.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithContext stops the server, abandoning in-flight requests when
// ctx expires.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleWS serves one participant's channel connection until it closes.
func (s *Server) handleWS(conn *websocket.Conn) {
	relay.NewClient(s.hub, conn, s.logger).Serve()
}
