// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperbot/internal/bot"
	"github.com/pdiddy/paperbot/internal/history"
	"github.com/pdiddy/paperbot/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram bot",
	Long: `Run starts the long-polling Telegram bot and, when configured, the
health endpoint. The bot token is required; it comes from the config file,
the PAPERBOT_TELEGRAM_TOKEN environment variable, or
.secrets/telegram-bot-token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("no Telegram bot token configured: set telegram.token, PAPERBOT_TELEGRAM_TOKEN, or .secrets/telegram-bot-token")
		}

		log, err := buildLogger()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		defer log.Sync()

		store, err := history.NewStore(cfg.History)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b := bot.New(cfg, log, store)
		go b.ServeHealth(ctx)

		if err := b.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("health-addr", "", "health endpoint listen address (e.g. :8080)")
	viper.BindPFlag("bot.health_addr", runCmd.Flags().Lookup("health-addr"))

	rootCmd.AddCommand(runCmd)
}

func buildLogger() (*zap.Logger, error) {
	if viper.GetBool("debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig assembles the full configuration: viper (file and
// environment) first, then secrets fill any keys still unset, then
// defaults for everything optional.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.Telegram.Token = secretDefault("telegram-bot-token", cfg.Telegram.Token)
	cfg.LLM.APIKey = secretDefault("groq-api-key", cfg.LLM.APIKey)
	cfg.Search.SemanticScholarAPIKey = secretDefault("semantic-scholar-api-key", cfg.Search.SemanticScholarAPIKey)
	cfg.Eden.APIKey = secretDefault("edenai-api-key", cfg.Eden.APIKey)
	cfg.Zotero.APIKey = secretDefault("zotero-api-key", cfg.Zotero.APIKey)
	cfg.Storage.AccessToken = secretDefault("drive-access-token", cfg.Storage.AccessToken)

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *types.Config) {
	if cfg.Telegram.PollTimeout <= 0 {
		cfg.Telegram.PollTimeout = 30 * time.Second
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = 5
	}
	if cfg.Search.MinYear == 0 {
		cfg.Search.MinYear = 2020
	}
	if !viper.IsSet("search.enable_semantic_scholar") {
		cfg.Search.EnableSemanticScholar = true
	}
	if !viper.IsSet("search.enable_crossref") {
		cfg.Search.EnableCrossRef = true
	}
	if !viper.IsSet("search.require_doi") {
		cfg.Search.RequireDOI = true
	}
	if cfg.Bot.PlagiarismThreshold <= 0 {
		cfg.Bot.PlagiarismThreshold = 0.10
	}
	if cfg.Bot.DraftMaxRetries <= 0 {
		cfg.Bot.DraftMaxRetries = 2
	}
	if cfg.Bot.SessionTTL <= 0 {
		cfg.Bot.SessionTTL = 2 * time.Hour
	}
	if cfg.Bot.OutputDir == "" {
		cfg.Bot.OutputDir = "output/documents"
	}
	if cfg.History.DataDir == "" {
		cfg.History.DataDir = "data"
	}
}
