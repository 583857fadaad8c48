package rest

import (
	autoreplyApp "github.com/AzielCF/az-inbox/autoreply/application"
	"github.com/AzielCF/az-inbox/autoreply/domain"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AutoReply struct {
	Service *autoreplyApp.Service
}

func InitRestAutoReply(app fiber.Router, service *autoreplyApp.Service) AutoReply {
	rest := AutoReply{Service: service}

	group := app.Group("/autoreply/rules")
	group.Post("/", rest.Create)
	group.Get("/", rest.List)
	group.Put("/:id/active", rest.SetActive)

	return rest
}

func (h *AutoReply) Create(c *fiber.Ctx) error {
	var request domain.CreateRuleRequest
	parseBody(c, &request)

	rule, err := h.Service.CreateRule(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Rule created",
		Results: rule,
	})
}

func (h *AutoReply) List(c *fiber.Ctx) error {
	rules, err := h.Service.ListRules(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rules retrieved",
		Results: rules,
	})
}

func (h *AutoReply) SetActive(c *fiber.Ctx) error {
	var request setActiveRequest
	parseBody(c, &request)

	utils.PanicIfNeeded(h.Service.SetActive(c.UserContext(), c.Params("id"), request.Active))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rule updated",
	})
}
