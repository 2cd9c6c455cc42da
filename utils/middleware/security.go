package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/learnora/academy-api/utils/response"
)

// SecurityConfig holds security middleware configuration
type SecurityConfig struct {
	AllowedOrigins    string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// SetupSecurity applies request ID, logging, panic recovery, secure headers,
// CORS and per-IP rate limiting to the app
func SetupSecurity(app *fiber.App, config SecurityConfig) {
	app.Use(requestid.New())

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "no-referrer",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if config.RateLimitRequests > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        config.RateLimitRequests,
			Expiration: config.RateLimitWindow,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return response.TooManyRequests(c, "Too many requests. Please try again later.")
			},
		}))
	}
}
