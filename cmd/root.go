package cmd

import (
	"context"
	"time"

	"github.com/AzielCF/az-inbox/core/app"
	"github.com/AzielCF/az-inbox/core/config"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/reporting"
	"github.com/AzielCF/az-inbox/infrastructure/valkey"
	"github.com/AzielCF/az-inbox/pkg/crypto"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg       *config.Config
	container *app.Container
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-inbox",
	Short: "Multi-tenant WhatsApp inbox, campaigns and job queue",
	Long: `az-inbox receives WhatsApp gateway webhooks, routes conversations to agents,
fans campaigns out through a persisted job queue and exposes the agent API over http.`,
}

func init() {
	// A missing .env is fine; the environment may already carry everything.
	_ = godotenv.Load()

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig)
}

func initFlags() {
	rootCmd.PersistentFlags().StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "hide or displaying log with --debug <true/false> | example: --debug=true")
	rootCmd.PersistentFlags().String("base-path", "", `base path for subpath deployment --base-path <string> | example: --base-path="/inbox"`)
	rootCmd.PersistentFlags().String("db-driver", "", `database driver --db-driver <sqlite|postgres>`)
	rootCmd.PersistentFlags().String("db-name", "", `sqlite file or postgres database name --db-name <string> | example: --db-name="storages/inbox.db"`)

	_ = viper.BindPFlag("app_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("app_base_path", rootCmd.PersistentFlags().Lookup("base-path"))
	_ = viper.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("db_name", rootCmd.PersistentFlags().Lookup("db-name"))
}

// initEnvConfig loads configuration from the environment, then lets explicit
// flags win.
func initEnvConfig() {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	if viper.IsSet("app_port") {
		cfg.App.Port = viper.GetString("app_port")
	}
	if viper.IsSet("app_debug") && viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if viper.IsSet("app_base_path") {
		cfg.App.BasePath = viper.GetString("app_base_path")
	}
	if viper.IsSet("db_driver") {
		cfg.Database.Driver = viper.GetString("db_driver")
	}
	if viper.IsSet("db_name") {
		cfg.Database.Name = viper.GetString("db_name")
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.Debugf("[CONFIG] %v", config.GetAllSettings())

	crypto.SetEncryptionKey(cfg.App.EncryptionKey)

	if err := reporting.Init(cfg.Sentry, cfg.App.Version); err != nil {
		logrus.Warnf("[SENTRY] Disabled: %v", err)
	}
}

// initApp opens the database and Valkey and wires every service. Commands
// that need storage call it from their Run.
func initApp(ctx context.Context) {
	db, err := database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	var vk *valkey.Client
	if cfg.Valkey.Enabled {
		vk, err = valkey.NewClient(cfg.Valkey)
		if err != nil {
			logrus.Fatalf("failed to connect to valkey: %v", err)
		}
		logrus.Infof("[VALKEY] Connected to %s", cfg.Valkey.Address)
	}

	container = app.New(cfg, db, vk)
	if err := container.Migrate(ctx); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}
}

// StopApp releases everything initApp opened.
func StopApp() {
	if container != nil {
		container.Close()
	}
	reporting.Flush(2 * time.Second)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalln(err)
	}
}
