package app

import (
	"context"
	"fmt"

	autoreplyApp "github.com/AzielCF/az-inbox/autoreply/application"
	autoreplyRepo "github.com/AzielCF/az-inbox/autoreply/repository"
	campaignsApp "github.com/AzielCF/az-inbox/campaigns/application"
	campaignsRepo "github.com/AzielCF/az-inbox/campaigns/repository"
	contactsApp "github.com/AzielCF/az-inbox/contacts/application"
	contactsRepo "github.com/AzielCF/az-inbox/contacts/repository"
	conversationsApp "github.com/AzielCF/az-inbox/conversations/application"
	conversationsRepo "github.com/AzielCF/az-inbox/conversations/repository"
	"github.com/AzielCF/az-inbox/core/config"
	"github.com/AzielCF/az-inbox/core/database"
	settingsApp "github.com/AzielCF/az-inbox/core/settings/application"
	settingsInfra "github.com/AzielCF/az-inbox/core/settings/infrastructure"
	"github.com/AzielCF/az-inbox/infrastructure/valkey"
	instancesApp "github.com/AzielCF/az-inbox/instances/application"
	instancesRepo "github.com/AzielCF/az-inbox/instances/repository"
	messagesApp "github.com/AzielCF/az-inbox/messages/application"
	messagesRepo "github.com/AzielCF/az-inbox/messages/repository"
	"github.com/AzielCF/az-inbox/pkg/retry"
	queueApp "github.com/AzielCF/az-inbox/queue/application"
	queueDomain "github.com/AzielCF/az-inbox/queue/domain"
	queueRepo "github.com/AzielCF/az-inbox/queue/repository"
	"github.com/AzielCF/az-inbox/ui/websocket"
	webhookApp "github.com/AzielCF/az-inbox/webhook/application"
	webhookRepo "github.com/AzielCF/az-inbox/webhook/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type schema interface {
	InitSchema(ctx context.Context) error
}

// Container owns every service of one process. Commands build it once and
// hand the pieces they need to the transport layer.
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Valkey *valkey.Client

	Settings      *settingsApp.SettingsService
	Instances     *instancesApp.Service
	Contacts      *contactsApp.Service
	Conversations *conversationsApp.Service
	Sender        *messagesApp.Sender
	AutoReply     *autoreplyApp.Service
	Campaigns     *campaignsApp.Service
	Queue         *queueApp.Queue
	Webhooks      *webhookApp.Service
	Hub           *websocket.Hub

	schemas []schema
}

type Option func(*options)

type options struct {
	gateways instancesApp.GatewayFactory
}

// WithGatewayFactory replaces the HTTP gateway clients, mostly for tests.
func WithGatewayFactory(f instancesApp.GatewayFactory) Option {
	return func(o *options) { o.gateways = f }
}

// New wires the services on top of db. vk may be nil, in which case the
// queue runs without a cross-node lock and the hub stays local.
func New(cfg *config.Config, db *gorm.DB, vk *valkey.Client, opts ...Option) *Container {
	o := options{gateways: instancesApp.HTTPGatewayFactory(cfg.Gateway.Timeout)}
	for _, opt := range opts {
		opt(&o)
	}

	acc := database.NewAccessor(db)

	settingsRepo := settingsInfra.NewTenantSettingsGormRepository(acc)
	instanceRepo := instancesRepo.NewInstanceGormRepository(acc)
	contactRepo := contactsRepo.NewContactGormRepository(acc)
	listRepo := contactsRepo.NewListGormRepository(acc)
	conversationRepo := conversationsRepo.NewConversationGormRepository(acc)
	messageRepo := messagesRepo.NewMessageGormRepository(acc)
	ruleRepo := autoreplyRepo.NewRuleGormRepository(acc)
	campaignRepo := campaignsRepo.NewCampaignGormRepository(acc)
	jobRepo := queueRepo.NewJobGormRepository(acc)
	logRepo := webhookRepo.NewLogGormRepository(acc)

	c := &Container{
		Config: cfg,
		DB:     db,
		Valkey: vk,
		schemas: []schema{
			settingsRepo, instanceRepo, contactRepo, listRepo, conversationRepo,
			messageRepo, ruleRepo, campaignRepo, jobRepo, logRepo,
		},
	}

	c.Hub = websocket.NewHub()
	var queueOpts []queueApp.Option
	if vk != nil {
		c.Hub.WithValkey(vk, uuid.NewString())
		queueOpts = append(queueOpts, queueApp.WithLocker(queueApp.NewValkeyLocker(vk, cfg.Queue.LockTTL)))
	}

	qcfg := queueApp.DefaultConfig()
	qcfg.BatchSize = cfg.Queue.BatchSize
	qcfg.DefaultMaxAttempts = cfg.Queue.DefaultMaxAttempts
	if cfg.Queue.BackoffBase > 0 {
		qcfg.Backoff.InitialInterval = cfg.Queue.BackoffBase
	}
	if cfg.Queue.BackoffMax > 0 {
		qcfg.Backoff.MaxInterval = cfg.Queue.BackoffMax
	}
	if cfg.Queue.StaleAfter > 0 {
		qcfg.StaleAfter = cfg.Queue.StaleAfter
	}
	qcfg.Heartbeat = cfg.Queue.Heartbeat
	c.Queue = queueApp.New(jobRepo, qcfg, queueOpts...)

	policy := retry.DefaultPolicy()
	if cfg.Gateway.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.Gateway.RetryAttempts
	}

	c.Settings = settingsApp.NewSettingsService(settingsRepo, cfg.Inbox.DefaultPriority)
	c.Instances = instancesApp.NewService(instanceRepo, o.gateways)
	c.Contacts = contactsApp.NewService(contactRepo, listRepo)
	c.Conversations = conversationsApp.NewService(acc, conversationRepo, c.Contacts)
	c.Sender = messagesApp.NewSender(messageRepo, c.Contacts, c.Instances, c.Conversations, policy)
	c.AutoReply = autoreplyApp.NewService(ruleRepo, c.Sender)
	c.Campaigns = campaignsApp.NewService(acc, campaignRepo, c.Contacts, c.Sender, c.Queue, c.Hub, campaignsApp.Config{
		SendDelay:           cfg.Campaign.SendDelay,
		ErrorRatioThreshold: cfg.Campaign.ErrorRatioThreshold,
	})

	processor := webhookApp.NewProcessor(acc, c.Instances, c.Contacts, messageRepo, c.Sender, c.AutoReply, c.Conversations, c.Campaigns, c.Settings)
	c.Webhooks = webhookApp.NewService(processor, logRepo, c.Queue, webhookApp.Config{
		VerifySecret: cfg.Webhook.VerifySecret,
		Async:        cfg.Webhook.Async,
	})

	c.Queue.Register(queueDomain.JobSendMessage, c.Sender.HandleSendJob)
	c.Queue.Register(queueDomain.JobSendCampaign, c.Campaigns.HandleSendCampaign)
	c.Queue.Register(queueDomain.JobProcessWebhook, c.Webhooks.HandleProcessWebhook)

	return c
}

// Migrate creates or updates every table the services use.
func (c *Container) Migrate(ctx context.Context) error {
	for _, s := range c.schemas {
		if err := s.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", s, err)
		}
	}
	logrus.Infof("[DATABASE] Schema ready (%d repositories)", len(c.schemas))
	return nil
}

// Close releases external connections.
func (c *Container) Close() {
	if c.Valkey != nil {
		c.Valkey.Close()
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
