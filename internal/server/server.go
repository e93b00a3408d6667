package server

import (
	"log"
	"time"

	"agentic-rag-be/internal/bootstrap"
	"agentic-rag-be/internal/config"
	"agentic-rag-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// untraced paths are polled by infrastructure and would drown real traces.
var untraced = []string{"/health", "/metrics"}

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:     "agentic-rag",
		BodyLimit:   1 * 1024 * 1024, // 1MB
		ReadTimeout: 30 * time.Second,
		// a chat turn can run the whole tool loop
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CorsAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(ctx *fiber.Ctx) bool {
		for _, p := range untraced {
			if ctx.Path() == p {
				return true
			}
		}
		return false
	})))

	app.Use(serverutils.ErrorHandlerMiddleware())
	app.Use(serverutils.ClientIdentityMiddleware)
	app.Use(serverutils.RequestLogger(container.Logger, untraced...))

	container.SystemController.RegisterRoutes(app)
	container.ChatController.RegisterRoutes(app)
	container.MemoryController.RegisterRoutes(app)
	container.SearchController.RegisterRoutes(app)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}
