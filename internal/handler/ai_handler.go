package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/sprint-ai/internal/models"
	"github.com/ahmednasr/sprint-ai/internal/service"
)

// AIHandler wires HTTP → AIService.
type AIHandler struct {
	svc service.AIService
}

// NewAIHandler creates an AIHandler instance.
func NewAIHandler(svc service.AIService) *AIHandler {
	return &AIHandler{svc: svc}
}

// Register mounts the /ai endpoints on the given router group.
func (h *AIHandler) Register(r fiber.Router) {
	ai := r.Group("/ai")
	ai.Post("/suggest-sprint", h.suggestSprint)
	ai.Post("/scope-creep", h.scopeCreep)
	ai.Post("/risk-heatmap", h.riskHeatmap)
	ai.Post("/retrospective", h.retrospective)
}

func (h *AIHandler) suggestSprint(c *fiber.Ctx) error {
	var req models.SuggestSprintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.ProjectID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "projectId is required")
	}

	res, err := h.svc.SuggestSprint(c.UserContext(), callerOf(c), req)
	if err != nil {
		return statusFor("suggest-sprint", err)
	}
	return c.JSON(res)
}

func (h *AIHandler) scopeCreep(c *fiber.Ctx) error {
	req, err := sprintRequest(c)
	if err != nil {
		return err
	}
	res, err := h.svc.DetectScopeCreep(c.UserContext(), callerOf(c), req)
	if err != nil {
		return statusFor("scope-creep", err)
	}
	return c.JSON(res)
}

func (h *AIHandler) riskHeatmap(c *fiber.Ctx) error {
	req, err := sprintRequest(c)
	if err != nil {
		return err
	}
	res, err := h.svc.GenerateRiskHeatmap(c.UserContext(), callerOf(c), req)
	if err != nil {
		return statusFor("risk-heatmap", err)
	}
	return c.JSON(res)
}

func (h *AIHandler) retrospective(c *fiber.Ctx) error {
	req, err := sprintRequest(c)
	if err != nil {
		return err
	}
	res, err := h.svc.GenerateRetrospective(c.UserContext(), callerOf(c), req)
	if err != nil {
		return statusFor("retrospective", err)
	}
	if res == nil {
		res = []models.RetrospectiveEntry{}
	}
	return c.JSON(res)
}

// sprintRequest parses and checks a {projectId, sprintId} body.
func sprintRequest(c *fiber.Ctx) (models.SprintRequest, error) {
	var req models.SprintRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.ProjectID == 0 || req.SprintID == 0 {
		return req, fiber.NewError(fiber.StatusBadRequest, "projectId and sprintId are required")
	}
	return req, nil
}
