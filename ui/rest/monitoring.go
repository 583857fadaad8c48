package rest

import (
	"github.com/AzielCF/az-inbox/pkg/monitor"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/AzielCF/az-inbox/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Monitoring struct{}

// InitRestMonitoring exposes this process's live pipeline counters.
func InitRestMonitoring(app fiber.Router) Monitoring {
	rest := Monitoring{}
	app.Get("/monitoring/stats", middleware.RequireAdmin(), rest.Stats)
	return rest
}

func (m *Monitoring) Stats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pipeline stats retrieved",
		Results: monitor.GetStats(),
	})
}
