package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
	ws "github.com/krshsl/praxis/coach/websocket"
)

// EventStreamHandler records transcript and metric events arriving over a
// websocket. Every accepted message recomputes the session metrics, and the
// updated session is broadcast to every connection on the same interview.
type EventStreamHandler struct {
	store      repository.Store
	sessions   *SessionService
	interviews *InterviewService
	hub        *ws.Hub
	upgrader   websocket.Upgrader
}

func NewEventStreamHandler(store repository.Store, sessions *SessionService, interviews *InterviewService, hub *ws.Hub, allowedOrigins string) *EventStreamHandler {
	return &EventStreamHandler{
		store:      store,
		sessions:   sessions,
		interviews: interviews,
		hub:        hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, allowedOrigins)
			},
		},
	}
}

func (h *EventStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)
	interviewID := r.URL.Query().Get("interview_id")
	if interviewID == "" {
		writeError(w, r, fmt.Errorf("%w: interview_id is required", ErrInvalidInput))
		return
	}
	if _, err := ownedInterview(ctx, h.store, callerID, interviewID); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", callerID, "interview_id", interviewID)

	client := h.hub.RegisterClient(conn, callerID, interviewID)
	client.MessageHandler = func(c *ws.Client, frame ws.Frame) {
		h.HandleFrame(ctx, c, frame)
	}

	go client.WritePump()
	client.ReadPump()
}

// HandleFrame applies one inbound frame. Failures are reported to the sending
// connection only.
func (h *EventStreamHandler) HandleFrame(ctx context.Context, c *ws.Client, frame ws.Frame) {
	var err error
	switch frame.Type {
	case "message":
		err = h.handleMessage(ctx, c, frame)
	case "metrics":
		err = h.handleMetrics(ctx, c, frame)
	case "end":
		err = h.handleEnd(ctx, c, frame)
	default:
		err = fmt.Errorf("%w: unknown frame type %q", ErrInvalidInput, frame.Type)
	}

	if err != nil {
		sendError(c, frame.Type, err)
	}
}

func sendError(c *ws.Client, frameType string, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Frame failed", "type", frameType, "interview_id", c.InterviewID, "error", err)
		msg = "internal server error"
	}
	c.SendEvent(ws.Event{Type: "error", Error: msg, Code: code})
}

func (h *EventStreamHandler) handleMessage(ctx context.Context, c *ws.Client, frame ws.Frame) error {
	var msg models.Message
	if err := decodeFrame(frame.Message, &msg); err != nil {
		return err
	}

	session, err := h.sessions.RecordUtterance(ctx, c.UserID, c.InterviewID, msg)
	if err != nil {
		return err
	}
	h.hub.Broadcast(c.InterviewID, ws.Event{Type: "session", Session: session})
	return nil
}

func (h *EventStreamHandler) handleMetrics(ctx context.Context, c *ws.Client, frame ws.Frame) error {
	var patch models.MetricsPatch
	if err := decodeFrame(frame.Metrics, &patch); err != nil {
		return err
	}

	session, err := h.sessions.UpdateMetrics(ctx, c.UserID, c.InterviewID, patch)
	if err != nil {
		return err
	}
	h.hub.Broadcast(c.InterviewID, ws.Event{Type: "session", Session: session})
	return nil
}

// handleEnd ends the session. An already ended session counts as ended. The
// report is generated off the read goroutine, since analysis and enrichment
// timeouts together can outlast the pong deadline.
func (h *EventStreamHandler) handleEnd(ctx context.Context, c *ws.Client, frame ws.Frame) error {
	var final *models.MetricsPatch
	if len(frame.FinalMetrics) > 0 && string(frame.FinalMetrics) != "null" {
		final = &models.MetricsPatch{}
		if err := decodeFrame(frame.FinalMetrics, final); err != nil {
			return err
		}
	}

	session, err := h.sessions.End(ctx, c.UserID, c.InterviewID, final)
	if errors.Is(err, ErrNoActiveSession) {
		session, err = h.sessions.Get(ctx, c.UserID, c.InterviewID)
	}
	if err != nil {
		return err
	}

	if frame.GenerateReport {
		go h.finish(context.WithoutCancel(ctx), c)
		return nil
	}
	h.hub.Broadcast(c.InterviewID, ws.Event{Type: "session", Session: session})
	return nil
}

// finish generates the report for an ended session and broadcasts it.
func (h *EventStreamHandler) finish(ctx context.Context, c *ws.Client) {
	report, err := h.interviews.Finish(ctx, c.UserID, c.InterviewID, nil)
	if err != nil {
		sendError(c, "end", err)
		return
	}
	h.hub.Broadcast(c.InterviewID, ws.Event{Type: "report", Report: report})
}

func decodeFrame(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: frame payload is missing", ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: invalid frame payload", ErrInvalidInput)
	}
	return nil
}
