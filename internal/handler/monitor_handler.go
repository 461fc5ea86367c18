package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	ws "github.com/stemsi/exam-portal/internal/websocket"
)

const snapshotTimeout = 5 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
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

// AttemptWatcher is implemented by service.AttemptEvents.
type AttemptWatcher interface {
	Watch(ctx context.Context, examID uuid.UUID) (<-chan model.AttemptEvent, func(), error)
}

// MonitorHandler streams attempt activity of one exam to staff.
type MonitorHandler struct {
	exams    ExamManager
	events   AttemptWatcher
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(exams ExamManager, events AttemptWatcher, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		exams:    exams,
		events:   events,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// MonitorExam godoc
// WS /ws/v1/admin/exams/:exam_id/monitor
// Sends a snapshot of the exam's attempts, then every start and submit as it happens.
func (h *MonitorHandler) MonitorExam(c *gin.Context) {
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	// Fail with a normal HTTP error before upgrading.
	exam, err := h.exams.GetByID(c.Request.Context(), examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, stop, err := h.events.Watch(ctx, examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	defer stop()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("exam_id", examID.String()).Logger()
	wsLog.Info().Msg("Monitor attached")
	defer wsLog.Info().Msg("Monitor detached")

	if err := h.sendSnapshot(ctx, conn, exam); err != nil {
		wsLog.Debug().Err(err).Msg("Initial snapshot failed")
		return
	}

	// The read pump only detects closes and forwards actions; all writes
	// happen on this goroutine.
	actions := make(chan ws.Action, 4)
	go func() {
		defer cancel()
		ws.KeepAlive(conn)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			select {
			case actions <- req.Action:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	for {
		var werr error
		select {
		case <-ctx.Done():
			return

		case ev, open := <-events:
			if !open {
				return
			}
			werr = ws.WriteTyped(conn, ws.AttemptResponse{Event: ws.EventAttempt, Attempt: ev})

		case action := <-actions:
			switch action {
			case ws.ActionPing:
				werr = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionRefresh:
				werr = h.sendSnapshot(ctx, conn, exam)
			default:
				werr = ws.WriteError(conn, "unknown action")
			}

		case <-ping.C:
			werr = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		}

		if werr != nil {
			wsLog.Debug().Err(werr).Msg("Write failed")
			return
		}
	}
}

func (h *MonitorHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn, exam *model.Exam) error {
	fetchCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	attempts, err := h.exams.ListAttempts(fetchCtx, exam.ID, false)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to load monitor snapshot")
		return ws.WriteError(conn, "failed to load attempts")
	}
	return ws.WriteTyped(conn, ws.NewSnapshot(exam, attempts))
}
