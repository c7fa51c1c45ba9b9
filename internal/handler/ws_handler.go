package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/logger"
	"github.com/stemsi/examroom/internal/middleware"
	"github.com/stemsi/examroom/internal/response"
	"github.com/stemsi/examroom/internal/service"
	ws "github.com/stemsi/examroom/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt over WebSocket.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            logger.Component(log, "ws_handler"),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteTyped(w.conn, v)
}

// AttemptStream godoc
// WS /ws/v1/student/assessments/:id/stream
// Pushes timer and completion events and accepts intents as actions.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := parseAssessmentID(c)
	if !ok {
		return
	}

	studentID := claims.UserID

	// Reject before upgrading so the client gets a plain HTTP error.
	info, err := h.attemptService.Snapshot(c.Request.Context(), studentID, id)
	if err != nil {
		status, code := attemptErrorCode(err)
		response.Fail(c, status, code)
		return
	}

	sub, err := h.attemptService.Subscribe(studentID, id)
	if err != nil {
		status, code := attemptErrorCode(err)
		response.Fail(c, status, code)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Int64("assessment_id", id).
		Logger()

	wsLog.Info().Msg("Student connected")

	out := &wsConn{conn: conn}
	if err := out.write(ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: info.Snapshot}); err != nil {
		return
	}

	go h.forward(out, sub, wsLog)

	for {
		var msg ws.ActionRequest
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if msg.Action == ws.ActionPing {
			_ = out.write(ws.PongResponse{Event: ws.EventPong})
			continue
		}

		if err := h.handleAction(c.Request.Context(), out, studentID, id, &msg); err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			return
		}
	}
}

// handleAction dispatches one intent and replies with the resulting snapshot.
func (h *WSHandler) handleAction(ctx context.Context, out *wsConn, studentID int, assessmentID int64, msg *ws.ActionRequest) error {
	ctx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()

	snap, err := h.attemptService.Dispatch(ctx, studentID, assessmentID, msg.Intent())
	if err != nil {
		status, code := attemptErrorCode(err)
		resp := ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: err.Error()}
		if carriesSnapshot(err, status) {
			resp.Snapshot = &snap
		}
		return out.write(resp)
	}
	return out.write(ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: snap})
}

// forward relays attempt events until the subscription closes.
func (h *WSHandler) forward(out *wsConn, sub *service.Subscription, log zerolog.Logger) {
	for ev := range sub.Events {
		payload, ok := ws.FromAttemptEvent(ev)
		if !ok {
			continue
		}
		if err := out.write(payload); err != nil {
			log.Debug().Err(err).Str("event", string(ev.Type)).Msg("Event dropped")
			return
		}
	}
}
