package cmd

import (
	"os"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-crm/core/config"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-crm",
	Short: "CRM follow-up scheduler and delivery service",
	Long: `Schedules customer follow-ups when their sales status changes and delivers
them over WhatsApp API or email, or hands them to the assignee for manual handling.`,
	SilenceUsage: true,
}

func init() {
	// .env primero para que viper vea las variables
	utils.LoadEnvironment(".")

	time.Local = time.UTC
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()
	cobra.OnInitialize(initApp)
}

func initFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	flags.BoolP("debug", "d", false, "display debug logs with --debug <true/false> | example: --debug=true")
	flags.StringSliceP("basic-auth", "b", nil, "basic auth credential | -b=yourUsername:yourPassword")
	flags.Bool("automation", false, "send due follow-ups automatically --automation <true/false> | example: --automation=true")
	flags.Duration("tick-interval", 0, "how often due follow-ups are processed | example: --tick-interval=30s")
	flags.String("db-driver", "", `database driver --db-driver <sqlite|postgres>`)

	_ = viper.BindPFlag("app_port", flags.Lookup("port"))
	_ = viper.BindPFlag("app_debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("app_basic_auth", flags.Lookup("basic-auth"))
	_ = viper.BindPFlag("followup_automation_enabled", flags.Lookup("automation"))
	_ = viper.BindPFlag("followup_tick_interval", flags.Lookup("tick-interval"))
	_ = viper.BindPFlag("db_driver", flags.Lookup("db-driver"))
}

// initApp loads the configuration and applies the command line overrides.
func initApp() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("port") {
		cfg.App.Port = viper.GetString("app_port")
	}
	if flags.Changed("debug") {
		cfg.App.Debug = viper.GetBool("app_debug")
	}
	if flags.Changed("basic-auth") {
		cfg.App.BasicAuth = viper.GetStringSlice("app_basic_auth")
	}
	if flags.Changed("automation") {
		cfg.FollowUp.AutomationEnabled = viper.GetBool("followup_automation_enabled")
	}
	if flags.Changed("tick-interval") {
		cfg.FollowUp.TickInterval = viper.GetDuration("followup_tick_interval")
	}
	if flags.Changed("db-driver") {
		cfg.Database.Driver = strings.ToLower(viper.GetString("db_driver"))
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("[CONFIG] invalid configuration: %v", err)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.WithField("settings", coreconfig.GetAllSettings()).Debug("[CONFIG] Loaded")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
