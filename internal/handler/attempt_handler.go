package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/middleware"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/response"
	"github.com/stemsi/examroom/internal/service"
	"github.com/stemsi/examroom/internal/validator"
)

const intentTimeout = 5 * time.Second

// AttemptHandler handles the exam-taking endpoints.
type AttemptHandler struct {
	attemptService    *service.AttemptService
	assessmentService *service.AssessmentService
	log               zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, assessmentService *service.AssessmentService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService:    attemptService,
		assessmentService: assessmentService,
		log:               logger.Component(log, "attempt_handler"),
	}
}

// GetRules godoc
// GET /api/v1/student/assessments/:id/rules
// Returns the assessment and the rules accepted by accept_rules.
func (h *AttemptHandler) GetRules(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	briefing, err := h.assessmentService.GetBriefing(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, claims.UserID, id)
		return
	}

	response.Success(c, http.StatusOK, briefing)
}

// StartAttempt godoc
// POST /api/v1/student/assessments/:id/attempt
// Starts the student's attempt after the rules are accepted (idempotent).
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	info, err := h.attemptService.Start(c.Request.Context(), claims.UserID, id, req.AcceptRules)
	if err != nil {
		h.fail(c, err, claims.UserID, id)
		return
	}

	response.Success(c, http.StatusOK, info)
}

// GetPaper godoc
// GET /api/v1/student/assessments/:id/paper
// Returns the question paper. Only available while the student has an attempt.
func (h *AttemptHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	if _, err := h.attemptService.Snapshot(c.Request.Context(), claims.UserID, id); err != nil {
		h.fail(c, err, claims.UserID, id)
		return
	}

	paper, err := h.assessmentService.GetPaper(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, claims.UserID, id)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// GetAttempt godoc
// GET /api/v1/student/assessments/:id/attempt
// Returns the current attempt snapshot.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	info, err := h.attemptService.Snapshot(c.Request.Context(), claims.UserID, id)
	if err != nil {
		h.fail(c, err, claims.UserID, id)
		return
	}

	response.Success(c, http.StatusOK, info)
}

// PostIntent godoc
// POST /api/v1/student/assessments/:id/attempt/intents
// Applies one intent. Rejected intents still return the snapshot.
func (h *AttemptHandler) PostIntent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	var req model.IntentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), intentTimeout)
	defer cancel()

	snap, err := h.attemptService.Dispatch(ctx, claims.UserID, id, req.Intent())
	if err != nil {
		status, code := attemptErrorCode(err)
		if !carriesSnapshot(err, status) {
			h.fail(c, err, claims.UserID, id)
			return
		}
		response.FailWithData(c, status, code, gin.H{"snapshot": snap})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

func (h *AttemptHandler) fail(c *gin.Context, err error, studentID int, assessmentID int64) {
	status, code := attemptErrorCode(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).
			Int("student_id", studentID).
			Int64("assessment_id", assessmentID).
			Msg("Attempt request failed")
	}
	response.Fail(c, status, code)
}

// carriesSnapshot reports whether a Dispatch error came with a usable snapshot.
func carriesSnapshot(err error, status int) bool {
	if status >= http.StatusInternalServerError {
		return false
	}
	return !errors.Is(err, service.ErrAttemptNotFound) && !errors.Is(err, context.DeadlineExceeded)
}
