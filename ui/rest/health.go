package rest

import (
	"context"
	"time"

	"github.com/AzielCF/az-inbox/infrastructure/valkey"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Health struct {
	DB     *gorm.DB
	Valkey *valkey.Client
}

// InitRestHealth mounts GET /health. vk may be nil.
func InitRestHealth(app fiber.Router, db *gorm.DB, vk *valkey.Client) Health {
	handler := Health{DB: db, Valkey: vk}
	app.Get("/health", handler.GetStatus)
	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	res := fiber.Map{"status": "ok", "database": "ok"}
	healthy := true

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		res["database"] = err.Error()
		healthy = false
	}

	if h.Valkey != nil {
		res["valkey"] = "ok"
		if err := h.Valkey.Ping(ctx); err != nil {
			res["valkey"] = err.Error()
			healthy = false
		}
	}

	if !healthy {
		res["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(res)
	}
	return c.JSON(res)
}
