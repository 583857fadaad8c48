package rest

import (
	"github.com/AzielCF/az-inbox/pkg/utils"
	queueApp "github.com/AzielCF/az-inbox/queue/application"
	"github.com/AzielCF/az-inbox/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Queue struct {
	Service *queueApp.Queue
}

// InitRestQueueTrigger exposes the batch trigger for an external scheduler.
// It is guarded by the shared trigger secret, not by agent tokens.
func InitRestQueueTrigger(app fiber.Router, service *queueApp.Queue, secret string) Queue {
	rest := Queue{Service: service}
	app.Post("/queue/process", middleware.QueueSecret(secret), rest.Process)
	return rest
}

func InitRestQueue(app fiber.Router, service *queueApp.Queue) Queue {
	rest := Queue{Service: service}

	group := app.Group("/queue", middleware.RequireAdmin())
	group.Get("/stats", rest.Stats)
	group.Get("/jobs/:id", rest.Job)

	return rest
}

func (q *Queue) Process(c *fiber.Ctx) error {
	res, err := q.Service.ProcessQueue(c.UserContext())
	if err != nil {
		logrus.WithError(err).Error("[QUEUE] Triggered batch failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  res,
	})
}

func (q *Queue) Stats(c *fiber.Ctx) error {
	stats, err := q.Service.Stats(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Queue stats retrieved",
		Results: stats,
	})
}

func (q *Queue) Job(c *fiber.Ctx) error {
	job, err := q.Service.GetJob(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Job retrieved",
		Results: job,
	})
}
