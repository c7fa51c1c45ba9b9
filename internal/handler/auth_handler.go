package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/middleware"
	"github.com/stemsi/examroom/internal/model"
	"github.com/stemsi/examroom/internal/response"
	"github.com/stemsi/examroom/internal/service"
	"github.com/stemsi/examroom/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService       *service.AuthService
	studentService    *service.StudentService
	preferenceService *service.PreferenceService
	log               zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	studentService *service.StudentService,
	preferenceService *service.PreferenceService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:       authService,
		studentService:    studentService,
		preferenceService: preferenceService,
		log:               logger.Component(log, "auth_handler"),
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Validates roll number + password, rejects if another session is active, returns JWT
// together with the saved preferences.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.GetByRollNumber(c.Request.Context(), req.RollNumber)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(student.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateStudentToken(c.Request.Context(), student.ID, student.RollNumber)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		h.log.Error().Err(err).Int("student_id", student.ID).Msg("Issue token failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	prefs, err := h.preferenceService.Get(c.Request.Context(), student.ID)
	if err != nil {
		// Defaults are still usable; the client can retry GET /preferences.
		h.log.Warn().Err(err).Int("student_id", student.ID).Msg("Load preferences failed")
	}

	h.log.Info().Int("student_id", student.ID).Msg("Student logged in")

	response.Success(c, http.StatusOK, model.StudentLoginResponse{
		Token:       token,
		Student:     student.Info(),
		Preferences: prefs,
	})
}

// StudentLogout godoc
// POST /api/v1/auth/student/logout
// Ends the single-device session of the authenticated student.
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetStudentProfile godoc
// GET /api/v1/auth/student/me
// Returns the currently authenticated student.
func (h *AuthHandler) GetStudentProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student.Info()})
}
