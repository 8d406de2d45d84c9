package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	customerRest "github.com/AzielCF/az-crm/customers/adapter/rest"
	followupApp "github.com/AzielCF/az-crm/followup/application"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	"github.com/AzielCF/az-crm/ui/rest"
	"github.com/AzielCF/az-crm/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the CRM API and run the follow-up poller",
	Run:   restServer,
}

func init() {
	restCmd.Flags().Bool("no-poller", false, "serve the API only; another process runs the follow-up worker")
	rootCmd.AddCommand(restCmd)
}

func restServer(cmd *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildContainer(ctx)
	if err != nil {
		logrus.Fatalf("[BOOT] %v", err)
	}
	defer c.Close()
	cfg := c.cfg

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		Network:                 "tcp",
		AppName:                 "Az-CRM",
		ServerHeader:            "Hidden",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.App.CorsAllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New(helmet.Config{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	if len(cfg.App.BasicAuth) == 0 {
		logrus.Fatalln("APP_BASIC_AUTH is required. Please set APP_BASIC_AUTH=<user>:<secret>[,<user2>:<secret2>] and restart.")
	}
	account := make(map[string]string)
	for _, basicAuth := range cfg.App.BasicAuth {
		user, secret, ok := strings.Cut(basicAuth, ":")
		if !ok || user == "" {
			logrus.Fatalln("Basic auth is not valid, please use the following format <user>:<secret>")
		}
		account[user] = secret
	}

	apiGroup := app.Group(cfg.App.BasePath + "/api")
	apiGroup.Use(basicauth.New(basicauth.Config{
		Users: account,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	}))

	customerRest.NewCustomerHandler(c.customers, c.scheduler).RegisterRoutes(apiGroup)
	rest.InitRestFollowUp(apiGroup, c.scheduler, healthProbes(c))

	var pollerDone <-chan struct{}
	if noPoller, _ := cmd.Flags().GetBool("no-poller"); !noPoller {
		pollerDone = c.poller.Start(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Errorf("[REST] Failed to start: %v", err)
	}
	cancel()
	if pollerDone != nil {
		<-pollerDone
	}
}

// healthProbes exposes what is configured to /api/follow-up/health.
func healthProbes(c *container) rest.HealthProbes {
	probes := rest.HealthProbes{
		Channels: func() []messagingDomain.ChannelKind { return c.gateway.Kinds() },
	}
	if c.mailer != nil {
		probes.SMTP = c.mailer.Verify
	}
	if c.tickLock != nil {
		probes.TickLock = func(ctx context.Context) (string, error) {
			return c.tickLock.Holder(ctx, followupApp.TickLockKey)
		}
	}
	return probes
}
