package rest

import (
	"github.com/AzielCF/az-inbox/core/tenant"
	messagesApp "github.com/AzielCF/az-inbox/messages/application"
	"github.com/AzielCF/az-inbox/messages/domain"
	"github.com/AzielCF/az-inbox/pkg/utils"
	queueApp "github.com/AzielCF/az-inbox/queue/application"
	queueDomain "github.com/AzielCF/az-inbox/queue/domain"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/gofiber/fiber/v2"
)

type Message struct {
	Service *messagesApp.Sender
	Queue   *queueApp.Queue
}

func InitRestMessage(app fiber.Router, service *messagesApp.Sender, queue *queueApp.Queue) Message {
	rest := Message{Service: service, Queue: queue}

	app.Post("/messages/send", rest.Send)
	return rest
}

// Send delivers a message now, retrying transient gateway failures. With
// ?async=true it is queued as a send_message job instead.
func (controller *Message) Send(c *fiber.Ctx) error {
	var request domain.SendRequest
	parseBody(c, &request)
	request.CampaignID = ""

	if c.QueryBool("async") {
		utils.PanicIfNeeded(validations.ValidateSendMessage(c.UserContext(), request))
		tenantID, err := tenant.MustFromContext(c.UserContext())
		utils.PanicIfNeeded(err)

		job, err := controller.Queue.AddJob(c.UserContext(), queueDomain.JobSendMessage, domain.SendJob{
			TenantID: tenantID,
			Request:  request,
		})
		utils.PanicIfNeeded(err)

		return c.Status(fiber.StatusAccepted).JSON(utils.ResponseData{
			Status:  202,
			Code:    "QUEUED",
			Message: "Message queued",
			Results: job,
		})
	}

	msg, err := controller.Service.SendNow(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Message sent",
		Results: msg,
	})
}
