package rest

import (
	instancesApp "github.com/AzielCF/az-inbox/instances/application"
	"github.com/AzielCF/az-inbox/instances/domain"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Instance struct {
	Service *instancesApp.Service
}

func InitRestInstance(app fiber.Router, service *instancesApp.Service) Instance {
	rest := Instance{Service: service}

	group := app.Group("/instances")
	group.Post("/", rest.Register)
	group.Get("/", rest.List)
	group.Get("/:id/status", rest.Status)
	group.Get("/:id/qr", rest.QRCode)
	group.Post("/:id/logout", rest.Logout)
	group.Post("/:id/restart", rest.Restart)

	return rest
}

func (h *Instance) Register(c *fiber.Ctx) error {
	var request domain.RegisterRequest
	parseBody(c, &request)

	inst, err := h.Service.Register(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Instance registered",
		Results: inst,
	})
}

func (h *Instance) List(c *fiber.Ctx) error {
	instances, err := h.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instances retrieved",
		Results: instances,
	})
}

func (h *Instance) Status(c *fiber.Ctx) error {
	status, err := h.Service.Status(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance status retrieved",
		Results: status,
	})
}

func (h *Instance) QRCode(c *fiber.Ctx) error {
	qr, err := h.Service.QRCode(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "QR code retrieved",
		Results: fiber.Map{"qr_code": qr},
	})
}

func (h *Instance) Logout(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.Service.Logout(c.UserContext(), c.Params("id")))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance logged out",
	})
}

func (h *Instance) Restart(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.Service.Restart(c.UserContext(), c.Params("id")))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance restarting",
	})
}
