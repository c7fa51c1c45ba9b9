package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/database"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/response"
	"github.com/stemsi/examroom/internal/service"
)

// SystemHandler reports process health and runtime status.
type SystemHandler struct {
	checker        *database.Checker
	rdb            *redis.Client
	attemptService *service.AttemptService
	startTime      time.Time
	log            zerolog.Logger
}

func NewSystemHandler(checker *database.Checker, rdb *redis.Client, attemptService *service.AttemptService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		checker:        checker,
		rdb:            rdb,
		attemptService: attemptService,
		startTime:      time.Now(),
		log:            logger.Component(log, "system_handler"),
	}
}

// Health godoc
// GET /health
// Reports dependency status; 503 when any dependency is down.
func (h *SystemHandler) Health(c *gin.Context) {
	deps, err := h.checker.Check(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Health check failed")
		response.FailWithData(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, gin.H{"dependencies": deps})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "dependencies": deps})
}

type systemStatus struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`

	ActiveAttempts   int   `json:"active_attempts"`
	QueueAnswers     int64 `json:"queue_answers"`
	QueueCompletions int64 `json:"queue_completions"`
}

// Status godoc
// GET /api/v1/system/status
// Returns runtime figures, live attempt count, and persistence queue depth.
func (h *SystemHandler) Status(c *gin.Context) {
	m := systemStatus{
		Timestamp:      time.Now().Unix(),
		Uptime:         formatDuration(time.Since(h.startTime)),
		Goroutines:     runtime.NumGoroutine(),
		GoVersion:      runtime.Version(),
		ActiveAttempts: h.attemptService.Active(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.HeapAlloc = ms.HeapAlloc
	m.NumGC = ms.NumGC

	// ── Worker Queues (pipelined LLEN) ──
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	completionsCmd := pipe.LLen(ctx, config.WorkerKey.PersistCompletionsQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		m.QueueAnswers, _ = answersCmd.Result()
		m.QueueCompletions, _ = completionsCmd.Result()
	} else {
		h.log.Warn().Err(err).Msg("Queue depth unavailable")
	}

	response.Success(c, http.StatusOK, m)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
