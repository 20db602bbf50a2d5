// Command server starts the mentor-match HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ai "github.com/fairyhunter13/mentor-match/internal/adapter/ai"
	"github.com/fairyhunter13/mentor-match/internal/adapter/ai/openai"
	"github.com/fairyhunter13/mentor-match/internal/adapter/ai/stub"
	httpserver "github.com/fairyhunter13/mentor-match/internal/adapter/httpserver"
	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/adapter/queue/redpanda"
	repomem "github.com/fairyhunter13/mentor-match/internal/adapter/repo/memory"
	"github.com/fairyhunter13/mentor-match/internal/adapter/repo/postgres"
	vectormem "github.com/fairyhunter13/mentor-match/internal/adapter/vector/memory"
	qdrantcli "github.com/fairyhunter13/mentor-match/internal/adapter/vector/qdrant"
	wredis "github.com/fairyhunter13/mentor-match/internal/adapter/weights/redis"
	"github.com/fairyhunter13/mentor-match/internal/app"
	"github.com/fairyhunter13/mentor-match/internal/config"
	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/matching"
	"github.com/fairyhunter13/mentor-match/internal/usecase"
)

// openAIDim is the dimensionality of text-embedding-3-small vectors.
const openAIDim = 1536

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg, "server")
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence: Postgres when configured, in-memory store for local dev.
	var (
		mentors  domain.MentorRepository
		mentees  domain.MenteeRepository
		requests domain.RequestRepository
		feedback domain.FeedbackRepository
		dbPinger app.Pinger
	)
	if cfg.DBURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			slog.Error("db connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		mentors = postgres.NewMentorRepo(pool)
		mentees = postgres.NewMenteeRepo(pool)
		requests = postgres.NewRequestRepo(pool)
		feedback = postgres.NewFeedbackRepo(pool)
		dbPinger = pool
	} else {
		slog.Warn("DB_URL empty, using in-memory store")
		store := repomem.NewStore()
		mentors = store.Mentors()
		mentees = store.Mentees()
		requests = store.Requests()
		feedback = store.Feedback()
	}

	// Embedding provider: OpenAI behind a cache, or the deterministic stub.
	var embedder domain.Embedder
	dim := stub.Dim
	if cfg.UseOpenAI() {
		embedder = ai.NewEmbedCache(openai.New(cfg), cfg.EmbedCacheSize)
		dim = openAIDim
	} else {
		slog.Warn("OPENAI_API_KEY empty, using stub embedder")
		embedder = stub.New()
	}

	// Vector index: Qdrant when configured, copy-on-write memory index otherwise.
	var index domain.VectorIndex
	if cfg.UseQdrant() {
		qidx := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)
		if err := qidx.EnsureCollection(ctx, dim); err != nil {
			slog.Error("qdrant bootstrap failed", slog.Any("error", err))
			os.Exit(1)
		}
		index = qidx
	} else {
		index = vectormem.New()
	}

	// Shared re-ranking weights: Redis-backed store, hot-swapped into a holder
	// the matcher reads lock-free.
	wstore := wredis.New(cfg.RedisAddr)
	defer func() { _ = wstore.Close() }()
	holder := matching.NewWeightHolder(domain.DefaultWeights())
	if w, err := wstore.Load(ctx); err != nil {
		slog.Warn("weights load failed, serving defaults", slog.Any("error", err))
	} else {
		holder.Store(w)
	}
	go refreshWeights(ctx, wstore, holder, cfg.WeightsRefreshInterval)

	// Feedback queue (Redpanda producer). Optional: without it, feedback is
	// still stored and only weight adjustment is delayed.
	var queue domain.FeedbackQueue
	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed, feedback events disabled", slog.Any("error", err))
	} else {
		queue = producer
		defer func() { _ = producer.Close() }()
	}

	// Usecases
	profiles := usecase.NewProfileService(mentors, mentees, embedder, index)
	matcher := usecase.NewMatchService(mentees, mentors, embedder, index, holder, cfg.MatchPoolMultiplier)
	mentorships := usecase.NewMentorshipService(requests, mentors, mentees, cfg.MenteeMaxActiveMentors)
	feedbackSvc := usecase.NewFeedbackService(feedback, requests, queue, cfg.FeedbackRequireAccepted)

	// Optional mentor seeding for fresh environments.
	if path := os.Getenv("SEED_MENTORS_FILE"); path != "" {
		if n, err := seedMentorsFromYAML(ctx, profiles, path); err != nil {
			slog.Error("mentor seeding failed", slog.String("path", path), slog.Any("error", err))
		} else {
			slog.Info("mentors seeded", slog.String("path", path), slog.Int("count", n))
		}
	}

	// The index is rebuilt at startup so retrieval survives restarts.
	if n, err := profiles.RebuildIndex(ctx); err != nil {
		slog.Error("index rebuild failed", slog.Int("indexed", n), slog.Any("error", err))
	}

	dbCheck, redisCheck, indexCheck := app.BuildReadinessChecks(dbPinger, wstore, index)
	if dbPinger == nil {
		dbCheck = nil
	}

	// The probe result is cached by the embed cache, so readiness polling does
	// not hammer the provider. The stub needs no check.
	var embedderCheck func(context.Context) error
	if cfg.UseOpenAI() {
		embedderCheck = func(ctx context.Context) error {
			_, err := embedder.Embed(ctx, []string{"readiness probe"})
			return err
		}
	}

	srv := httpserver.NewServer(cfg, profiles, matcher, mentorships, feedbackSvc, dbCheck, redisCheck, indexCheck, embedderCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// refreshWeights polls the shared store so adjustments made by the worker
// reach the serving path without a restart.
func refreshWeights(ctx context.Context, store domain.WeightsStore, holder *matching.WeightHolder, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w, err := store.Load(ctx)
			if err != nil {
				slog.Warn("weights refresh failed", slog.Any("error", err))
				continue
			}
			holder.Store(w)
		}
	}
}
