package rest

import (
	contactsApp "github.com/AzielCF/az-inbox/contacts/application"
	"github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Contact struct {
	Service *contactsApp.Service
}

func InitRestContact(app fiber.Router, service *contactsApp.Service) Contact {
	rest := Contact{Service: service}

	app.Post("/contacts", rest.Create)
	app.Get("/contacts", rest.List)
	app.Get("/contacts/:id", rest.Get)

	app.Post("/contact-lists", rest.CreateList)
	app.Post("/contact-lists/:id/members", rest.AddMembers)
	app.Get("/contact-lists/:id/members", rest.Members)

	return rest
}

func (h *Contact) Create(c *fiber.Ctx) error {
	var request domain.CreateContactRequest
	parseBody(c, &request)

	contact, err := h.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Contact created",
		Results: contact,
	})
}

func (h *Contact) List(c *fiber.Ctx) error {
	contacts, err := h.Service.List(c.UserContext(), domain.ListFilter{
		Search: c.Query("search"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	})
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Contacts retrieved",
		Results: contacts,
	})
}

func (h *Contact) Get(c *fiber.Ctx) error {
	contact, err := h.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Contact retrieved",
		Results: contact,
	})
}

func (h *Contact) CreateList(c *fiber.Ctx) error {
	var request domain.CreateListRequest
	parseBody(c, &request)

	list, err := h.Service.CreateList(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Contact list created",
		Results: list,
	})
}

func (h *Contact) AddMembers(c *fiber.Ctx) error {
	var request domain.AddMembersRequest
	parseBody(c, &request)

	added, err := h.Service.AddMembers(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Members added",
		Results: fiber.Map{"added": added},
	})
}

func (h *Contact) Members(c *fiber.Ctx) error {
	members, err := h.Service.ListMembers(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Members retrieved",
		Results: members,
	})
}
