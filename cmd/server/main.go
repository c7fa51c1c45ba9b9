package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/database"
	"github.com/stemsi/examroom/internal/handler"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/repository"
	"github.com/stemsi/examroom/internal/router"
	"github.com/stemsi/examroom/internal/service"
	"github.com/stemsi/examroom/internal/validator"
	"github.com/stemsi/examroom/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Examroom")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	preferenceRepo := repository.NewPreferenceRepository(rdb)
	queueRepo := repository.NewQueueRepository(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	// Attempts run until the process stops; cancelling attemptCtx abandons them.
	attemptCtx, attemptCancel := context.WithCancel(context.Background())
	defer attemptCancel()

	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, cfg.BcryptCost)
	assessmentService := service.NewAssessmentService(assessmentRepo, questionRepo, rdb, log)
	attemptService := service.NewAttemptService(attemptCtx, assessmentRepo, assessmentService, studentRepo, queueRepo, cfg.Exam, log)
	dashboardService := service.NewDashboardService(assessmentRepo, time.Now)
	profileService := service.NewProfileService(studentRepo, assessmentRepo)
	preferenceService := service.NewPreferenceService(preferenceRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, studentService, preferenceService, log),
		Attempt:    handler.NewAttemptHandler(attemptService, assessmentService, log),
		WS:         handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Profile:    handler.NewProfileHandler(profileService),
		Preference: handler.NewPreferenceHandler(preferenceService),
		System:     handler.NewSystemHandler(database.NewChecker(pool, rdb), rdb, attemptService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	completionWorker := worker.NewCompletionWorker(pool, rdb, assessmentRepo, log)

	for _, start := range []func(context.Context){answerWorker.Start, completionWorker.Start} {
		workers.Add(1)
		go func(start func(context.Context)) {
			defer workers.Done()
			start(workerCtx)
		}(start)
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every assessment paper into Redis BEFORE accepting traffic.
	if err := assessmentService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Abandon running attempts. Their answers are already queued.
	log.Info().Int("attempts", attemptService.Active()).Msg("Abandoning running attempts")
	attemptCancel()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
