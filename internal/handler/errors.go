package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/examroom/internal/exam"
	"github.com/stemsi/examroom/internal/response"
	"github.com/stemsi/examroom/internal/service"
)

// attemptErrorCode maps service and attempt errors to an HTTP status and code.
func attemptErrorCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrRulesNotAccepted):
		return http.StatusBadRequest, response.ErrRulesNotAccepted
	case errors.Is(err, service.ErrAssessmentNotFound):
		return http.StatusNotFound, response.ErrAssessmentNotFound
	case errors.Is(err, service.ErrAssessmentNotLive):
		return http.StatusConflict, response.ErrAssessmentNotLive
	case errors.Is(err, service.ErrAssessmentCompleted):
		return http.StatusConflict, response.ErrAssessmentCompleted
	case errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrAttemptNotFound
	case errors.Is(err, service.ErrStudentNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, exam.ErrTerminal):
		return http.StatusConflict, response.ErrAttemptSubmitted
	case errors.Is(err, exam.ErrClosed):
		return http.StatusGone, response.ErrAttemptClosed
	case errors.Is(err, exam.ErrQuestionIndex):
		return http.StatusBadRequest, response.ErrInvalidQuestion
	case errors.Is(err, exam.ErrOptionIndex):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, exam.ErrInvalidTransition):
		return http.StatusConflict, response.ErrInvalidTransition
	case errors.Is(err, exam.ErrIdentityMismatch):
		return http.StatusUnprocessableEntity, response.ErrIdentityMismatch
	case errors.Is(err, exam.ErrUnknownIntent):
		return http.StatusBadRequest, response.ErrUnknownIntent
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// parseAssessmentID reads the :id path parameter.
func parseAssessmentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
