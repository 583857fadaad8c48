package rest

import (
	conversationsApp "github.com/AzielCF/az-inbox/conversations/application"
	"github.com/AzielCF/az-inbox/conversations/domain"
	"github.com/AzielCF/az-inbox/core/tenant"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/gofiber/fiber/v2"
)

type Conversation struct {
	Service *conversationsApp.Service
}

func InitRestConversation(app fiber.Router, service *conversationsApp.Service) Conversation {
	rest := Conversation{Service: service}

	group := app.Group("/conversations")
	group.Get("/", rest.ListMine)
	group.Post("/", rest.Create)
	group.Get("/:id", rest.Get)
	group.Post("/:id/transfer", rest.Transfer)
	group.Get("/:id/transfers", rest.Transfers)
	group.Get("/:id/participants", rest.Participants)
	group.Post("/:id/participants", rest.AddParticipant)
	group.Delete("/:id/participants/:userId", rest.RemoveParticipant)
	group.Post("/:id/archive", rest.Archive)

	return rest
}

// ListMine returns the conversations the caller takes part in. Admins may
// look at another agent with ?user_id=.
func (handler *Conversation) ListMine(c *fiber.Ctx) error {
	userID := currentUser(c)
	if other := c.Query("user_id"); other != "" && other != userID {
		if !tenant.IsAdmin(c.UserContext()) {
			panic(pkgError.ForbiddenError("only administrators can list another user's conversations"))
		}
		userID = other
	}

	conversations, err := handler.Service.GetUserConversations(c.UserContext(), userID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversations retrieved",
		Results: conversations,
	})
}

func (handler *Conversation) Create(c *fiber.Ctx) error {
	var request domain.CreateRequest
	parseBody(c, &request)
	if request.OwnerID == "" {
		request.OwnerID = currentUser(c)
	}
	utils.PanicIfNeeded(validations.ValidateCreateConversation(c.UserContext(), request))

	conv, err := handler.Service.CreateConversation(c.UserContext(), request.ContactID, request.OwnerID, request.Notes)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Conversation created",
		Results: conv,
	})
}

func (handler *Conversation) Get(c *fiber.Ctx) error {
	conv, err := handler.Service.GetConversation(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation retrieved",
		Results: conv,
	})
}

func (handler *Conversation) Transfer(c *fiber.Ctx) error {
	var request domain.TransferRequest
	parseBody(c, &request)
	// Agents hand over their own conversations; only admins may move one on
	// behalf of its owner.
	if caller := currentUser(c); request.FromUserID == "" {
		request.FromUserID = caller
	} else if request.FromUserID != caller && !tenant.IsAdmin(c.UserContext()) {
		panic(pkgError.ForbiddenError("only administrators can transfer on behalf of another user"))
	}
	utils.PanicIfNeeded(validations.ValidateTransfer(c.UserContext(), request))

	transfer, err := handler.Service.TransferConversation(c.UserContext(), c.Params("id"), request.FromUserID, request.ToUserID, request.Reason)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation transferred",
		Results: transfer,
	})
}

func (handler *Conversation) Transfers(c *fiber.Ctx) error {
	transfers, err := handler.Service.ListTransfers(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Transfers retrieved",
		Results: transfers,
	})
}

func (handler *Conversation) Participants(c *fiber.Ctx) error {
	participants, err := handler.Service.ListParticipants(c.UserContext(), c.Params("id"), c.QueryBool("include_inactive"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Participants retrieved",
		Results: participants,
	})
}

func (handler *Conversation) AddParticipant(c *fiber.Ctx) error {
	var request domain.AddParticipantRequest
	parseBody(c, &request)
	if request.Type == "" {
		request.Type = domain.ParticipantMember
	}
	utils.PanicIfNeeded(validations.ValidateAddParticipant(c.UserContext(), request))

	participant, err := handler.Service.AddParticipant(c.UserContext(), c.Params("id"), request.UserID, request.Type, currentUser(c))
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Participant added",
		Results: participant,
	})
}

func (handler *Conversation) RemoveParticipant(c *fiber.Ctx) error {
	err := handler.Service.RemoveParticipant(c.UserContext(), c.Params("id"), c.Params("userId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Participant removed",
	})
}

func (handler *Conversation) Archive(c *fiber.Ctx) error {
	conv, err := handler.Service.ArchiveConversation(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation archived",
		Results: conv,
	})
}
