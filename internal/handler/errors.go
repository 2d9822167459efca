package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/sprint-ai/internal/models"
)

// statusFor maps a service error to an HTTP error with a fixed message.
// Provider details stay in the server log.
func statusFor(op string, err error) *fiber.Error {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		// Validation messages are ours, not a provider's.
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "project or sprint not found")
	case errors.Is(err, models.ErrEmbeddingUnavailable):
		log.Printf("[HTTP] %s: %v", op, err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "embedding service unavailable")
	case errors.Is(err, models.ErrResponseParse):
		log.Printf("[HTTP] %s: %v", op, err)
		return fiber.NewError(fiber.StatusBadGateway, "could not parse model response")
	default:
		log.Printf("[HTTP] %s: %v", op, err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}

// callerOf reads the explicit caller identity from the request.
func callerOf(c *fiber.Ctx) models.Caller {
	return models.Caller{Email: c.Get(HeaderUserEmail)}
}

// HeaderUserEmail carries the caller identity set by the upstream gateway.
const HeaderUserEmail = "X-User-Email"
