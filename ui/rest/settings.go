package rest

import (
	settingsApp "github.com/AzielCF/az-inbox/core/settings/application"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/AzielCF/az-inbox/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Settings struct {
	Service *settingsApp.SettingsService
}

func InitRestSettings(app fiber.Router, service *settingsApp.SettingsService) Settings {
	rest := Settings{Service: service}

	group := app.Group("/settings")
	group.Get("/", rest.Get)
	group.Put("/", middleware.RequireAdmin(), rest.Update)
	group.Delete("/inbox-priority", middleware.RequireAdmin(), rest.ResetInboxPriority)

	return rest
}

func (s *Settings) Get(c *fiber.Ctx) error {
	ds, err := s.Service.GetDynamicSettings(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings retrieved",
		Results: ds,
	})
}

func (s *Settings) Update(c *fiber.Ctx) error {
	var request settingsRequest
	parseBody(c, &request)

	if request.InboxDefaultPriority != nil {
		utils.PanicIfNeeded(s.Service.SetInboxDefaultPriority(c.UserContext(), *request.InboxDefaultPriority))
	}
	return s.Get(c)
}

func (s *Settings) ResetInboxPriority(c *fiber.Ctx) error {
	utils.PanicIfNeeded(s.Service.ResetInboxDefaultPriority(c.UserContext()))
	return s.Get(c)
}
