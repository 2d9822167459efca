package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/sprint-ai/internal/models"
)

// TaskCounter aggregates task counts for a project.
type TaskCounter interface {
	TaskCounts(ctx context.Context, projectID uint, now time.Time) (models.TaskCounts, error)
}

// ProjectHandler serves read-only project statistics.
type ProjectHandler struct {
	counts TaskCounter
	now    func() time.Time
}

func NewProjectHandler(counts TaskCounter) *ProjectHandler {
	return &ProjectHandler{counts: counts, now: time.Now}
}

func (h *ProjectHandler) Register(r fiber.Router) {
	r.Get("/projects/:projectId/task-counts", h.taskCounts)
}

// taskCounts handles GET /projects/:projectId/task-counts
func (h *ProjectHandler) taskCounts(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("projectId")
	if err != nil || projectID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "projectId must be a positive integer")
	}

	counts, err := h.counts.TaskCounts(c.UserContext(), uint(projectID), h.now().UTC())
	if err != nil {
		return statusFor("task-counts", err)
	}
	return c.JSON(counts)
}
