package rest

import (
	conversationsApp "github.com/AzielCF/az-inbox/conversations/application"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Inbox struct {
	Service *conversationsApp.Service
}

func InitRestInbox(app fiber.Router, service *conversationsApp.Service) Inbox {
	rest := Inbox{Service: service}

	group := app.Group("/inbox")
	group.Get("/", rest.List)
	group.Post("/:id/assign", rest.Assign)
	group.Post("/:id/ignore", rest.Ignore)

	return rest
}

func (handler *Inbox) List(c *fiber.Ctx) error {
	items, err := handler.Service.GetInboxItems(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Inbox retrieved",
		Results: items,
	})
}

// Assign claims the item for the caller and opens their conversation.
func (handler *Inbox) Assign(c *fiber.Ctx) error {
	conv, err := handler.Service.AssignInboxItem(c.UserContext(), c.Params("id"), currentUser(c))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Inbox item assigned",
		Results: conv,
	})
}

func (handler *Inbox) Ignore(c *fiber.Ctx) error {
	utils.PanicIfNeeded(handler.Service.IgnoreInboxItem(c.UserContext(), c.Params("id")))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Inbox item ignored",
	})
}
