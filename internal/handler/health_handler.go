package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/ahmednasr/sprint-ai/internal/database"
)

type HealthHandler struct {
	sqlDB   *gorm.DB
	mongoDB *mongo.Client
}

// NewHealthHandler accepts nil for a store that is not configured.
func NewHealthHandler(sqlDB *gorm.DB, mongoDB *mongo.Client) *HealthHandler {
	return &HealthHandler{
		sqlDB:   sqlDB,
		mongoDB: mongoDB,
	}
}

func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	dbs := fiber.Map{
		"sqlite": h.checkSQLite(ctx),
		"mongo":  h.checkMongo(ctx),
	}
	status := "ok"
	for _, v := range dbs {
		if v == "error" {
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"status": status,
		"dbs":    dbs,
	})
}

func (h *HealthHandler) checkSQLite(ctx context.Context) string {
	if h.sqlDB == nil {
		return "not_configured"
	}
	if err := database.PingSQLite(ctx, h.sqlDB); err != nil {
		return "error"
	}
	return "connected"
}

func (h *HealthHandler) checkMongo(ctx context.Context) string {
	if h.mongoDB == nil {
		return "not_configured"
	}
	if err := h.mongoDB.Ping(ctx, nil); err != nil {
		return "error"
	}
	return "connected"
}
