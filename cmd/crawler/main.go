package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/user/galnet-crawler/internal/config"
	"github.com/user/galnet-crawler/internal/crawler"
	"github.com/user/galnet-crawler/internal/monitoring"
	"github.com/user/galnet-crawler/internal/storage"
	"github.com/user/galnet-crawler/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "galnet-crawler",
		Short:         "Incrementally extract GalNet news articles to JSON records",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          run,
	}
	cmd.Flags().Bool("sequential", false, "crawl pages one at a time instead of all at once")
	_ = viper.BindPFlag("SEQUENTIAL", cmd.Flags().Lookup("sequential"))
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, cleanup, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer cleanup()

	matchers, err := crawler.NewMatchers(crawler.DefaultSelectors())
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)
	if cfg.MetricsAddr != "" {
		opsServer := monitoring.NewServer(cfg.MetricsAddr, registry)
		go func() {
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("ops server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = opsServer.Shutdown(shutdownCtx)
		}()
		log.Info("ops server listening", zap.String("addr", cfg.MetricsAddr))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := newPageLog(ctx, cfg)
	if err != nil {
		return err
	}

	runner, err := crawler.NewRunner(
		cfg.SiteURL,
		cfg.Sequential,
		crawler.NewHTTPFetcher(time.Duration(cfg.FetchTimeout)*time.Second, cfg.UserAgent),
		matchers,
		storage.NewRecordStore(cfg.RecordsDir()),
		state,
		metrics,
		log,
	)
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		log.Error("run aborted", zap.Error(err))
		return err
	}
	log.Info("extraction complete",
		zap.Int("pages_downloaded", summary.DownloadedTotal),
		zap.Int("pages_failed", summary.FailedTotal),
	)
	return nil
}

func newPageLog(ctx context.Context, cfg *config.Config) (storage.PageLog, error) {
	switch cfg.StateBackend {
	case config.StateBackendFile:
		return storage.NewFileLog(cfg.ExtractDir), nil
	case config.StateBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return storage.NewRedisLog(client), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
