package server

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var validate = validator.New()

type feedbackRecord struct {
	FeedbackType string `json:"feedbackType" validate:"required,oneof=positive negative"`
	FeedbackText string `json:"feedbackText"`
	FeedbackTo   string `json:"feedbackTo" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
}

type documentResponse struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// authMiddleware requires a token in the Authorization header. The chat
// client sends the raw token; a Bearer prefix is also accepted. The stub
// trusts any well-formed token and only pulls the subject claim out for
// attribution.
func (s *Server) authMiddleware(ctx *fiber.Ctx) error {
	token := strings.TrimPrefix(ctx.Get("Authorization"), "Bearer ")
	if token == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if sub, _ := claims["sub"].(string); sub != "" {
		ctx.Locals("user_id", sub)
	}
	return ctx.Next()
}

func (s *Server) handleIngest(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file field"})
	}

	name := filepath.Base(file.Filename)
	if err := ctx.SaveFile(file, filepath.Join(s.cfg.App.UploadsDir, name)); err != nil {
		s.log.Error("Server", "Upload save failed", map[string]interface{}{"error": err.Error()})
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not store upload"})
	}

	doc := s.docs.Add(name)
	s.log.Info("Server", "Document ingested", map[string]interface{}{
		"id":   doc.Id,
		"name": doc.Name,
	})
	return ctx.JSON(fiber.Map{"data": []string{doc.Id}})
}

func (s *Server) handleIngestFeedback(ctx *fiber.Ctx) error {
	var record feedbackRecord
	if err := ctx.BodyParser(&record); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed feedback payload"})
	}
	if err := validate.Struct(record); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.log.Info("Server", "Feedback ingested", map[string]interface{}{
		"type":  record.FeedbackType,
		"email": record.Email,
	})
	return ctx.JSON(fiber.Map{"data": "feedback ingested"})
}

func (s *Server) handleGetDocuments(ctx *fiber.Ctx) error {
	docs := s.docs.List()
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentResponse{Id: doc.Id, Name: doc.Name, Source: "uploads/" + doc.Name})
	}
	return ctx.JSON(fiber.Map{"data": out})
}

func (s *Server) handleGetDocumentsById(ctx *fiber.Ctx) error {
	id := ctx.Query("id")
	if id == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing id"})
	}

	out := make([]documentResponse, 0, 1)
	if doc, ok := s.docs.Get(id); ok {
		out = append(out, documentResponse{Id: doc.Id, Name: doc.Name, Source: "uploads/" + doc.Name})
	}
	return ctx.JSON(fiber.Map{"data": out})
}

func (s *Server) handleDeleteDocument(ctx *fiber.Ctx) error {
	id := ctx.Query("id")
	if !s.docs.Delete(id) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "document not found"})
	}
	return ctx.JSON(fiber.Map{"data": "deleted"})
}
