// Package middleware holds the fiber middleware shared by every route.
package middleware

import (
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// accessFormat puts the request id next to the usual status/latency columns.
const accessFormat = "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n"

// Logging returns the access-log chain: request id, panic recovery, then the
// access logger itself. Mount it with app.Use(middleware.Logging()...).
func Logging() []interface{} {
	return []interface{}{
		requestid.New(),
		recover.New(recover.Config{EnableStackTrace: true}),
		logger.New(logger.Config{
			Format:     accessFormat,
			TimeFormat: "2006-01-02 15:04:05",
			TimeZone:   "UTC",
		}),
	}
}
