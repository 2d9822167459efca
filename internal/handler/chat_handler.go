package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/ahmednasr/sprint-ai/internal/service"
)

// ChatHandler wires HTTP → ChatService.
type ChatHandler struct {
	svc service.ChatService
}

// NewChatHandler returns a struct pointer so you can call Register on it.
func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Register mounts the /chat endpoints on the supplied router group.
func (h *ChatHandler) Register(r fiber.Router) {
	r.Post("/chat/get-data/:projectId", h.ingest)
	r.Post("/chat", h.chat)
}

// ingest handles POST /chat/get-data/:projectId
func (h *ChatHandler) ingest(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("projectId")
	if err != nil || projectID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "projectId must be a positive integer")
	}

	res, err := h.svc.Ingest(c.UserContext(), callerOf(c), uint(projectID))
	if err != nil {
		return statusFor("ingest", err)
	}
	return c.JSON(res)
}

// chat handles POST /chat  { "projectId": 1, "question": "..." } and replies
// with the model's plain text.
func (h *ChatHandler) chat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.ProjectID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "projectId is required")
	}
	if req.Question == "" {
		return fiber.NewError(fiber.StatusBadRequest, "question is required")
	}

	answer, err := h.svc.Query(c.UserContext(), callerOf(c), req.ProjectID, req.Question)
	if err != nil {
		return statusFor("chat", err)
	}
	return c.SendString(answer.Answer)
}
