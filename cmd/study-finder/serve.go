package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/study-finder/internal/api"
	"github.com/kitbuilder587/study-finder/internal/api/handlers"
	"github.com/kitbuilder587/study-finder/internal/cache/memory"
	"github.com/kitbuilder587/study-finder/internal/config"
	"github.com/kitbuilder587/study-finder/internal/metrics"
	"github.com/kitbuilder587/study-finder/internal/ratelimit"
	"github.com/kitbuilder587/study-finder/internal/service"
	"github.com/kitbuilder587/study-finder/internal/task"
	"github.com/kitbuilder587/study-finder/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the Telegram bot when a token is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err := config.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, e.g. :8080")
	serveCmd.Flags().Duration("search-timeout", 0, "deadline for the whole search including retries")
	serveCmd.Flags().Int("workers", 0, "number of searches allowed to run at once")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("search.timeout", serveCmd.Flags().Lookup("search-timeout"))
	_ = viper.BindPFlag("search.workers", serveCmd.Flags().Lookup("workers"))

	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting study-finder",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("provider", cfg.Search.Provider),
		zap.Strings("domains", cfg.Search.DirectoryDomains),
		zap.Duration("search_timeout", cfg.Search.Timeout),
	)

	m := metrics.New()
	searchCache := memory.NewWithContext(ctx, 5*time.Minute)

	recommender := service.NewRecommendService(service.RecommendServiceDeps{
		Search:  newSearchClient(cfg, logger.Named("search")),
		Runner:  task.NewRunner(cfg.Search.Workers, cfg.Search.Timeout),
		Cache:   searchCache,
		Logger:  logger.Named("recommend"),
		Metrics: m,
		Config: service.RecommendConfig{
			Provider:         cfg.Search.Provider,
			DirectoryDomains: cfg.Search.DirectoryDomains,
			MaxResults:       cfg.Search.MaxResults,
			Region:           cfg.Search.Region,
			CacheTTL:         cfg.Cache.TTL,
			RetryAttempts:    cfg.Search.RetryAttempts,
			RetryBaseDelay:   cfg.Search.RetryBaseDelay,
		},
	})

	limiter := ratelimit.NewWithContext(ctx, ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	})
	recommendHandler := handlers.NewRecommendHandler(recommender, limiter, m, logger.Named("http"))

	app := api.SetupRouter(recommendHandler, m, logger.Named("http"), api.RouterConfig{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := app.Listen(cfg.Server.Addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if cfg.TelegramEnabled() {
		bot, err := telegram.New(gctx, telegram.BotConfig{
			Token:             cfg.Telegram.Token,
			Debug:             cfg.Telegram.Debug,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		}, recommender, logger.Named("telegram"), m)
		if err != nil {
			logger.Error("telegram bot disabled", zap.Error(err))
		} else {
			g.Go(func() error {
				return bot.Run(gctx)
			})
		}
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stopped with error", zap.Error(err))
		return err
	}

	logger.Info("study-finder stopped")
	return nil
}
