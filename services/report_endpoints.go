package services

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/coach/models"
)

type ReportEndpoints struct {
	reports *ReportService
}

func NewReportEndpoints(reports *ReportService) *ReportEndpoints {
	return &ReportEndpoints{reports: reports}
}

type GenerateReportRequest struct {
	InterviewID string `json:"interviewId"`
	SessionID   string `json:"sessionId"`
}

type ReportResponse struct {
	Report  *models.Report `json:"report"`
	Message string         `json:"message,omitempty"`
}

type GetReportsResponse struct {
	Reports []models.Report `json:"reports"`
	Count   int             `json:"count"`
}

func (e *ReportEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Post("/", e.GenerateReportHandler)
		r.Get("/", e.GetReportsHandler)
		r.Get("/{id}", e.GetReportHandler)
	})
}

func (e *ReportEndpoints) GenerateReportHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	report, existing, err := e.reports.Generate(r.Context(), CallerID(r.Context()), req.InterviewID, req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if existing {
		writeJSON(w, http.StatusOK, ReportResponse{Report: report, Message: "Report already exists"})
		return
	}
	writeJSON(w, http.StatusCreated, ReportResponse{Report: report, Message: "Report generated successfully"})
}

// GetReportsHandler looks a report up by interviewId or reportId, and lists the
// caller's reports when neither is given.
func (e *ReportEndpoints) GetReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	interviewID := r.URL.Query().Get("interviewId")
	reportID := r.URL.Query().Get("reportId")

	if interviewID == "" && reportID == "" {
		reports, err := e.reports.List(ctx, CallerID(ctx))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, GetReportsResponse{Reports: reports, Count: len(reports)})
		return
	}

	report, err := e.reports.Get(ctx, CallerID(ctx), interviewID, reportID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{Report: report})
}

func (e *ReportEndpoints) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := e.reports.Get(r.Context(), CallerID(r.Context()), "", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{Report: report})
}
