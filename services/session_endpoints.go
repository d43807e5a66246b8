package services

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/coach/models"
)

type SessionEndpoints struct {
	sessions *SessionService
}

func NewSessionEndpoints(sessions *SessionService) *SessionEndpoints {
	return &SessionEndpoints{sessions: sessions}
}

type StartSessionRequest struct {
	MediaURL string `json:"media_url,omitempty"`
}

type StartSessionResponse struct {
	Session *models.InterviewSession `json:"session"`
	Reused  bool                     `json:"reused"`
	Message string                   `json:"message"`
}

type EndSessionRequest struct {
	FinalMetrics *models.MetricsPatch `json:"final_metrics,omitempty"`
}

type SessionResponse struct {
	Session *models.InterviewSession `json:"session"`
}

func (e *SessionEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interviews/{id}/session", func(r chi.Router) {
		r.Get("/", e.GetSessionHandler)
		r.Post("/start", e.StartSessionHandler)
		r.Post("/messages", e.AppendMessageHandler)
		r.Post("/metrics", e.UpdateMetricsHandler)
		r.Post("/end", e.EndSessionHandler)
	})
}

func (e *SessionEndpoints) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	interviewID := chi.URLParam(r, "id")
	session, reused, err := e.sessions.Start(r.Context(), CallerID(r.Context()), interviewID, StartOptions{MediaURL: req.MediaURL})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, message := http.StatusCreated, "Session started"
	if reused {
		status, message = http.StatusOK, "Active session reused"
	}
	slog.Info("Session started", "session_id", session.ID, "interview_id", interviewID, "reused", reused)
	writeJSON(w, status, StartSessionResponse{Session: session, Reused: reused, Message: message})
}

// AppendMessageHandler stores one transcript message. With ?aggregate=true the
// session metrics are recomputed from the transcript in the same write.
func (e *SessionEndpoints) AppendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var msg models.Message
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	record := e.sessions.AppendMessage
	if r.URL.Query().Get("aggregate") == "true" {
		record = e.sessions.RecordUtterance
	}

	session, err := record(ctx, CallerID(ctx), chi.URLParam(r, "id"), msg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: session})
}

func (e *SessionEndpoints) UpdateMetricsHandler(w http.ResponseWriter, r *http.Request) {
	var patch models.MetricsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := e.sessions.UpdateMetrics(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: session})
}

func (e *SessionEndpoints) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := e.sessions.End(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"), req.FinalMetrics)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: session})
}

func (e *SessionEndpoints) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, err := e.sessions.Get(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: session})
}
