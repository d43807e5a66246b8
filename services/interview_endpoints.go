package services

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/coach/repository"
)

// InterviewEndpoints serves personas, interviews and the finish flow.
type InterviewEndpoints struct {
	store      repository.Store
	interviews *InterviewService
}

func NewInterviewEndpoints(store repository.Store, interviews *InterviewService) *InterviewEndpoints {
	return &InterviewEndpoints{store: store, interviews: interviews}
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Get("/personas", e.ListPersonasHandler)
	// Flat routes so the session subrouter can mount under /interviews/{id}.
	r.Post("/interviews", e.ScheduleHandler)
	r.Get("/interviews", e.ListHandler)
	r.Get("/interviews/{id}", e.GetHandler)
	r.Post("/interviews/{id}/finish", e.FinishHandler)
}

func (e *InterviewEndpoints) ListPersonasHandler(w http.ResponseWriter, r *http.Request) {
	personas, err := e.store.ListPersonas(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"personas": personas, "count": len(personas)})
}

func (e *InterviewEndpoints) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	interview, err := e.interviews.Schedule(r.Context(), CallerID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"interview": interview, "message": "Interview scheduled"})
}

func (e *InterviewEndpoints) ListHandler(w http.ResponseWriter, r *http.Request) {
	interviews, err := e.interviews.List(r.Context(), CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": interviews, "count": len(interviews)})
}

func (e *InterviewEndpoints) GetHandler(w http.ResponseWriter, r *http.Request) {
	interview, err := e.interviews.Get(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interview": interview})
}

func (e *InterviewEndpoints) FinishHandler(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := e.interviews.Finish(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"), req.FinalMetrics)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}
