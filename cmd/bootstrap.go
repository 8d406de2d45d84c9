package cmd

import (
	"context"
	"fmt"

	coreconfig "github.com/AzielCF/az-crm/core/config"
	coreDB "github.com/AzielCF/az-crm/core/database"
	customerApp "github.com/AzielCF/az-crm/customers/application"
	customerRepo "github.com/AzielCF/az-crm/customers/repository"
	followupApp "github.com/AzielCF/az-crm/followup/application"
	followupDomain "github.com/AzielCF/az-crm/followup/domain"
	followupRepo "github.com/AzielCF/az-crm/followup/repository"
	"github.com/AzielCF/az-crm/infrastructure/rabbitmq"
	"github.com/AzielCF/az-crm/infrastructure/valkey"
	"github.com/AzielCF/az-crm/messaging"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	"github.com/AzielCF/az-crm/messaging/email"
	"github.com/AzielCF/az-crm/messaging/whatsapp"
	"github.com/AzielCF/az-crm/pkg/timeutils"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// container agrupa las dependencias construidas al arrancar
type container struct {
	cfg       *coreconfig.Config
	db        *gorm.DB
	valkey    *valkey.Client
	tickLock  *valkey.Lock
	outcomes  *rabbitmq.Publisher
	mailer    *email.Channel
	gateway   *messaging.Gateway
	scheduler *followupApp.Scheduler
	customers *customerApp.CustomerService
	poller    *followupApp.Poller
}

type schemaOwner interface {
	InitSchema(ctx context.Context) error
}

// openDatabase connects and migrates every table owned by the CRM.
func openDatabase(ctx context.Context, cfg *coreconfig.Config) (*gorm.DB, error) {
	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrateSchema(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func migrateSchema(ctx context.Context, db *gorm.DB) error {
	owners := []schemaOwner{
		customerRepo.NewCustomerGormRepository(db),
		followupRepo.NewTaskGormRepository(db),
		followupRepo.NewEventGormRepository(db),
	}
	for _, o := range owners {
		if err := o.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func buildContainer(ctx context.Context) (*container, error) {
	cfg := coreconfig.Global
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := &container{cfg: cfg, db: db}

	// Valkey es opcional: sin él se asume un único proceso
	if cfg.Database.ValkeyEnabled {
		client, err := valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		c.valkey = client
		c.tickLock = valkey.NewLock(client, utils.GetInstanceID(cfg.App.InstanceID))
		logrus.Infof("[BOOT] Valkey tick lock enabled at %s", cfg.Database.ValkeyAddress)
	}

	directory := messagingDomain.NewAssigneeDirectory(cfg.FollowUp.NotifyEmails, cfg.WhatsApp.Senders, cfg.FollowUp.NotifyDefaultEmail)

	var channels []messagingDomain.Channel
	if cfg.Mailer.Enabled {
		c.mailer = email.NewChannel(email.Config{
			Host:     cfg.Mailer.Host,
			Port:     cfg.Mailer.Port,
			Secure:   cfg.Mailer.Secure,
			User:     cfg.Mailer.User,
			Password: cfg.Mailer.Password,
			From:     cfg.Mailer.From,
		})
		channels = append(channels, c.mailer)
	}
	if cfg.WhatsApp.Enabled {
		var notifier messagingDomain.Channel
		if c.mailer != nil {
			notifier = c.mailer
		}
		channels = append(channels, whatsapp.NewChannel(whatsapp.Config{
			BaseURL:          cfg.WhatsApp.BaseURL,
			APIKey:           cfg.WhatsApp.APIKey,
			AuthScheme:       cfg.WhatsApp.AuthScheme,
			DefaultSender:    cfg.WhatsApp.DefaultSender,
			TemplateLanguage: cfg.WhatsApp.TemplateLanguage,
		}, directory, notifier))
	}
	gateway, err := messaging.NewGateway(channels...)
	if err != nil {
		return nil, err
	}
	c.gateway = gateway

	options := followupDomain.DeliveryOptionsFor(
		cfg.WhatsApp.Enabled,
		cfg.FollowUp.EmailDeliveryEnabled && cfg.Mailer.Enabled,
	)
	rules, err := followupDomain.NewRuleTable(followupDomain.DefaultRules(options)...)
	if err != nil {
		return nil, err
	}

	templates, err := followupApp.NewTemplateCatalog(cfg.WhatsApp.Templates, cfg.WhatsApp.TemplateLanguage)
	if err != nil {
		return nil, err
	}

	schedCfg := followupApp.SchedulerConfig{
		AutomationEnabled: cfg.FollowUp.AutomationEnabled,
		DispatchTimeout:   cfg.FollowUp.DispatchTimeout,
		Location:          timeutils.LoadLocation(cfg.FollowUp.Timezone),
	}
	if cfg.Broker.Enabled {
		publisher, err := rabbitmq.NewPublisher(rabbitmq.Config{
			URL:      cfg.Broker.URL,
			Exchange: cfg.Broker.Exchange,
			AppID:    utils.GetInstanceID(cfg.App.InstanceID),
		})
		if err != nil {
			return nil, err
		}
		c.outcomes = publisher
		schedCfg.Outcomes = publisher
	}

	customers := customerRepo.NewCustomerGormRepository(db)
	c.scheduler = followupApp.NewScheduler(
		followupRepo.NewTaskGormRepository(db),
		followupRepo.NewEventGormRepository(db),
		customers,
		gateway,
		rules,
		followupApp.NewContactResolver(followupApp.PhoneNormalizer{
			CountryCode:  cfg.FollowUp.PhoneCountryCode,
			MobilePrefix: cfg.FollowUp.PhoneMobilePrefix,
		}),
		templates,
		directory,
		schedCfg,
	)
	c.customers = customerApp.NewCustomerService(customers, c.scheduler)

	var locker followupApp.TickLocker
	if c.tickLock != nil {
		locker = c.tickLock
	}
	c.poller = followupApp.NewPoller(c.scheduler, cfg.FollowUp.TickInterval, locker)

	logrus.WithFields(logrus.Fields{
		"channels":   gateway.Kinds(),
		"automation": cfg.FollowUp.AutomationEnabled,
		"rules":      rules.Len(),
	}).Info("[BOOT] Follow-up subsystem ready")
	if !cfg.FollowUp.AutomationEnabled {
		logrus.Info("[BOOT] Automation disabled: follow-ups will be handed to assignees")
	}
	return c, nil
}

// Close libera las conexiones abiertas
func (c *container) Close() {
	if c.outcomes != nil {
		c.outcomes.Close()
	}
	if c.valkey != nil {
		c.valkey.Close()
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	logrus.Info("[APP] Application stopped cleanly.")
}
