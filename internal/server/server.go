package server

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"support-agent/internal/agent"
	"support-agent/internal/config"
	"support-agent/internal/knowledge"
	"support-agent/internal/tickets"
)

// apologyReply is what the shell shows when the model or transport fails;
// those failures are logged, never surfaced raw to the customer.
const apologyReply = "I apologize, but I encountered an error. Let me escalate this to Tier-2 support."

// Dependencies carries everything the web shell needs to serve sessions.
type Dependencies struct {
	Config         *config.Config
	Model          agent.ContentGenerator
	Base           knowledge.Retriever
	SessionFactory knowledge.SessionFactory
	TicketLog      *tickets.Log
}

type Server struct {
	app      *fiber.App
	deps     Dependencies
	sessions *sessionManager
}

func New(deps Dependencies) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(fiberlogger.New())

	s := &Server{
		app:      app,
		deps:     deps,
		sessions: newSessionManager(deps, agent.NewPromptBuilder(nil)),
	}

	api := app.Group("/api")
	api.Post("/chat", s.handleChat)
	api.Post("/upload", s.handleUpload)
	api.Get("/history/:id", s.handleHistory)

	return s
}

func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("Starting web chat")
	return s.app.Listen(addr)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message must not be empty")
	}

	session := s.sessions.getOrCreate(req.SessionID)
	reply, err := session.Chat(c.Context(), req.Message)
	if err != nil {
		log.Error().Err(err).Str("session", session.ID).Msg("Model call failed")
		return c.JSON(chatResponse{SessionID: session.ID, Reply: apologyReply})
	}

	return c.JSON(chatResponse{SessionID: session.ID, Reply: reply})
}

type uploadResponse struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
	Chunks    int    `json:"chunks"`
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file")
	}

	session := s.sessions.getOrCreate(c.FormValue("session_id"))

	tmpPath := filepath.Join(os.TempDir(), session.ID+"-"+filepath.Base(file.Filename))
	if err := c.SaveFile(file, tmpPath); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not store upload")
	}
	defer os.Remove(tmpPath)

	chunks, err := session.Ingest(c.Context(), tmpPath, file.Filename, &s.deps.Config.RAG)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	log.Info().Str("session", session.ID).Str("source", file.Filename).Int("chunks", chunks).Msg("Document ingested")
	return c.JSON(uploadResponse{SessionID: session.ID, Source: file.Filename, Chunks: chunks})
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	session, ok := s.sessions.get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	var turns []historyTurn
	for _, msg := range session.Snapshot() {
		if msg.Role != llms.ChatMessageTypeHuman && msg.Role != llms.ChatMessageTypeAI {
			continue
		}
		text := textOf(msg)
		if text == "" {
			continue
		}
		turns = append(turns, historyTurn{Role: string(msg.Role), Content: text})
	}
	return c.JSON(turns)
}

func textOf(msg llms.MessageContent) string {
	var out string
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
