package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/database"
	"gorm.io/gorm"
)

// HandleCheckHealth reports API and database health
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	dbStatus := "ok"
	switch conn := store.GetDB().(type) {
	case *gorm.DB:
		sqlDB, err := conn.DB()
		if err != nil || sqlDB.PingContext(c.Context()) != nil {
			dbStatus = "unreachable"
		}
	case *sql.DB:
		if err := conn.PingContext(c.Context()); err != nil {
			dbStatus = "unreachable"
		}
	}

	status := fiber.StatusOK
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":   "ok",
		"database": dbStatus,
	})
}
