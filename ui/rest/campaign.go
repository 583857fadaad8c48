package rest

import (
	campaignsApp "github.com/AzielCF/az-inbox/campaigns/application"
	"github.com/AzielCF/az-inbox/campaigns/domain"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Campaign struct {
	Service *campaignsApp.Service
}

func InitRestCampaign(app fiber.Router, service *campaignsApp.Service) Campaign {
	rest := Campaign{Service: service}

	group := app.Group("/campaigns")
	group.Post("/", rest.Create)
	group.Get("/", rest.List)
	group.Get("/:id", rest.Get)
	group.Post("/:id/launch", rest.Launch)

	return rest
}

func (controller *Campaign) Create(c *fiber.Ctx) error {
	var request domain.CreateRequest
	parseBody(c, &request)

	campaign, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Campaign created",
		Results: campaign,
	})
}

func (controller *Campaign) List(c *fiber.Ctx) error {
	campaigns, err := controller.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaigns retrieved",
		Results: campaigns,
	})
}

func (controller *Campaign) Get(c *fiber.Ctx) error {
	campaign, err := controller.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign retrieved",
		Results: campaign,
	})
}

// Launch resolves the audience and queues the fan-out; sending happens in
// the queue, not in this request.
func (controller *Campaign) Launch(c *fiber.Ctx) error {
	campaign, err := controller.Service.Launch(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusAccepted).JSON(utils.ResponseData{
		Status:  202,
		Code:    "SUCCESS",
		Message: "Campaign launched",
		Results: campaign,
	})
}
