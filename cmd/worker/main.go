// Command worker consumes feedback events from Redpanda and folds them into
// the shared re-ranking weights.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	ai "github.com/fairyhunter13/mentor-match/internal/adapter/ai"
	"github.com/fairyhunter13/mentor-match/internal/adapter/ai/openai"
	"github.com/fairyhunter13/mentor-match/internal/adapter/ai/stub"
	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/mentor-match/internal/adapter/repo/postgres"
	wredis "github.com/fairyhunter13/mentor-match/internal/adapter/weights/redis"
	"github.com/fairyhunter13/mentor-match/internal/config"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/usecase"
)

const consumerGroup = "mentor-match-weight-adjusters"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg, "worker")
	slog.SetDefault(logger)

	// The worker exposes its own /metrics endpoint so adjustment and consumer
	// metrics are scrapeable separately from the API server.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker reads profiles to classify feedback; it shares the server's
	// database and needs it configured.
	if cfg.DBURL == "" {
		slog.Error("DB_URL required for the worker")
		os.Exit(1)
	}
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	mentors := postgres.NewMentorRepo(pool)
	mentees := postgres.NewMenteeRepo(pool)

	var embedder domain.Embedder
	if cfg.UseOpenAI() {
		embedder = ai.NewEmbedCache(openai.New(cfg), cfg.EmbedCacheSize)
	} else {
		slog.Warn("OPENAI_API_KEY empty, using stub embedder")
		embedder = stub.New()
	}

	wstore := wredis.New(cfg.RedisAddr)
	defer func() { _ = wstore.Close() }()

	adjuster := usecase.NewWeightAdjuster(mentors, mentees, embedder, wstore, cfg.WeightsAdjustBatchSize)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, consumerGroup)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = consumer.Close() }()

	go func() {
		if err := consumer.Run(ctx, func(ctx context.Context, evt domain.FeedbackEvent) error {
			err := adjuster.Ingest(ctx, evt)
			// Bad or orphaned events will never succeed; commit past them.
			if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound) {
				slog.Warn("skipping unprocessable feedback event",
					slog.String("feedback_id", evt.FeedbackID),
					slog.Any("error", err))
				return nil
			}
			return err
		}); err != nil {
			slog.Error("consumer error", slog.Any("error", err))
		}
	}()

	// Adjustment cycles run on a fixed interval, never on the serving path.
	go func() {
		t := time.NewTicker(cfg.WeightsAdjustInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := adjuster.Flush(ctx); err != nil {
					slog.Error("weight adjustment cycle failed", slog.Any("error", err))
				}
			}
		}
	}()

	slog.Info("worker started, waiting for shutdown signal")
	<-ctx.Done()

	// Drain whatever is pending before exiting.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := adjuster.Flush(flushCtx); err != nil {
		slog.Error("final flush failed", slog.Any("error", err))
	}
	slog.Info("worker stopped")
}
