package rest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AzielCF/az-inbox/core/app"
	"github.com/AzielCF/az-inbox/infrastructure/valkey"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/AzielCF/az-inbox/ui/rest/middleware"
	"github.com/AzielCF/az-inbox/ui/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// NewServer builds the HTTP surface: webhook and queue trigger at the root,
// the JWT-protected agent API under /api.
func NewServer(c *app.Container) *fiber.App {
	cfg := c.Config

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		Network:                 "tcp",
		AppName:                 "Az-Inbox",
		DisableStartupMessage:   true,
		ServerHeader:            "Hidden",
		ErrorHandler:            errorHandler,
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedFor
	}

	server := fiber.New(fiberConfig)

	server.Use(requestid.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.App.CorsAllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	server.Use(middleware.Recovery())
	server.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	limiterCfg := limiter.Config{
		Max:        cfg.RateLimit.Max,
		Expiration: cfg.RateLimit.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}
	if limiterCfg.Max <= 0 {
		limiterCfg.Max = 1000
	}
	if limiterCfg.Expiration <= 0 {
		limiterCfg.Expiration = time.Minute
	}
	// In-memory counters are per process; share them through Valkey when
	// more than one node serves traffic.
	if c.Valkey != nil {
		limiterCfg.Storage = valkey.NewStorage(c.Valkey, "limiter")
	}
	server.Use(limiter.New(limiterCfg))

	if cfg.App.Debug {
		server.Use(logger.New())
	}

	root := server.Group(cfg.App.BasePath)
	InitRestHealth(root, c.DB, c.Valkey)
	InitRestWebhook(root, c.Webhooks)
	InitRestQueueTrigger(root, c.Queue, cfg.Queue.TriggerSecret)

	api := root.Group("/api", middleware.JWTAuth([]byte(cfg.App.JWTSecret)))
	InitRestConversation(api, c.Conversations)
	InitRestInbox(api, c.Conversations)
	InitRestMessage(api, c.Sender, c.Queue)
	InitRestCampaign(api, c.Campaigns)
	InitRestInstance(api, c.Instances)
	InitRestAutoReply(api, c.AutoReply)
	InitRestContact(api, c.Contacts)
	InitRestQueue(api, c.Queue)
	InitRestSettings(api, c.Settings)
	InitRestWebhookLogs(api, c.Webhooks)
	InitRestMonitoring(api)
	websocket.RegisterRoutes(api, c.Hub, middleware.LocalTenantID)

	return server
}

// errorHandler renders errors returned (rather than panicked) by handlers
// with the same envelope as the Recovery middleware.
func errorHandler(c *fiber.Ctx, err error) error {
	res := utils.ResponseData{
		Status:  fiber.StatusInternalServerError,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		res.Status = fe.Code
		res.Code = strings.ToUpper(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
		res.Message = fe.Message
	} else if generic, ok := pkgError.As(err); ok {
		res.Status = generic.StatusCode()
		res.Code = generic.ErrCode()
		res.Message = generic.Error()
	}
	return c.Status(res.Status).JSON(res)
}
