package rest

import (
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/AzielCF/az-inbox/ui/rest/middleware"
	webhookApp "github.com/AzielCF/az-inbox/webhook/application"
	"github.com/gofiber/fiber/v2"
)

type Webhook struct {
	Service *webhookApp.Service
}

// InitRestWebhook registers the gateway callback. The gateway does not carry
// agent tokens; the payload's instance id decides the tenant.
func InitRestWebhook(app fiber.Router, service *webhookApp.Service) Webhook {
	rest := Webhook{Service: service}

	app.Post("/webhooks/whatsapp", rest.Receive)
	app.Get("/webhooks/whatsapp", rest.Verify)

	return rest
}

func InitRestWebhookLogs(app fiber.Router, service *webhookApp.Service) Webhook {
	rest := Webhook{Service: service}
	app.Get("/webhooks/logs", middleware.RequireAdmin(), rest.Logs)
	return rest
}

func (w *Webhook) Receive(c *fiber.Ctx) error {
	// fasthttp reuses the body buffer once the handler returns.
	raw := append([]byte(nil), c.Body()...)

	res, err := w.Service.Ingest(c.UserContext(), raw)
	if err != nil {
		status := fiber.StatusInternalServerError
		if generic, ok := pkgError.As(err); ok {
			status = generic.StatusCode()
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	body := fiber.Map{"success": true, "outcome": res.Outcome}
	if res.JobID != "" {
		body["job_id"] = res.JobID
	}
	return c.JSON(body)
}

func (w *Webhook) Verify(c *fiber.Ctx) error {
	if !w.Service.Verify(c.Query("secret")) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (w *Webhook) Logs(c *fiber.Ctx) error {
	logs, err := w.Service.RecentLogs(c.UserContext(), queryInt(c, "limit", 100))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Webhook log retrieved",
		Results: logs,
	})
}
