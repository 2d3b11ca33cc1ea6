package server

import (
	"askyourdocs-client/internal/config"
	"askyourdocs-client/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Server is a document-QA backend stub. It serves the REST surface and the
// query websocket with canned answers so the chat client can run without the
// real retrieval pipeline.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	log    logger.ILogger
	docs   *documentRegistry
	script *answerScript
}

func New(cfg *config.Config, log logger.ILogger) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB
	})

	corsConfig := cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}
	// fiber refuses credentials together with a wildcard origin.
	if corsConfig.AllowOrigins == "*" {
		corsConfig.AllowCredentials = false
	}
	app.Use(cors.New(corsConfig))

	// Static
	app.Static("/uploads", cfg.App.UploadsDir)

	s := &Server{
		app:    app,
		cfg:    cfg,
		log:    log,
		docs:   newDocumentRegistry(),
		script: newAnswerScript(),
	}
	s.registerRoutes()
	return s
}

// App exposes the fiber instance for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.log.Info("Server", "Stub backend listening", map[string]interface{}{
		"port": s.cfg.App.Port,
	})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api", s.authMiddleware)

	api.Post("/ingest", s.handleIngest)
	api.Post("/ingest_feedback", s.handleIngestFeedback)
	api.Get("/get_documents", s.handleGetDocuments)
	api.Get("/get_documents_by_id", s.handleGetDocumentsById)
	api.Delete("/delete_document", s.handleDeleteDocument)

	s.app.Get("/ws/query", s.handleQuery)
}
