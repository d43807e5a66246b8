package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/krshsl/praxis/coach/analysis"
	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
)

// InterviewService schedules interviews and drives the finish flow.
type InterviewService struct {
	store      repository.Store
	roles      *analysis.RoleSummarizer
	candidates *analysis.CandidateSummarizer
	sessions   *SessionService
	reports    *ReportService
}

func NewInterviewService(store repository.Store, roles *analysis.RoleSummarizer, candidates *analysis.CandidateSummarizer, sessions *SessionService, reports *ReportService) *InterviewService {
	return &InterviewService{
		store:      store,
		roles:      roles,
		candidates: candidates,
		sessions:   sessions,
		reports:    reports,
	}
}

type ScheduleRequest struct {
	JobTitle         string `json:"job_title"`
	JobDescription   string `json:"job_description"`
	CandidateSummary string `json:"candidate_summary"`
	RoleSummary      string `json:"role_summary"`
	PersonaID        string `json:"persona_id"`
	// ResumeText is summarized into CandidateSummary when that is empty.
	ResumeText string `json:"resume_text"`
}

// Schedule creates an interview in the scheduled state. A missing role
// summary is generated from the job description and a missing candidate
// summary from the résumé text.
func (s *InterviewService) Schedule(ctx context.Context, callerID string, req ScheduleRequest) (*models.Interview, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	req.JobTitle = strings.TrimSpace(req.JobTitle)
	if req.JobTitle == "" {
		return nil, fmt.Errorf("%w: job title is required", ErrInvalidInput)
	}

	if req.PersonaID != "" {
		persona, err := s.store.GetPersona(ctx, req.PersonaID)
		if err != nil {
			return nil, fmt.Errorf("failed to get persona: %w", err)
		}
		if persona == nil || !persona.IsActive {
			return nil, fmt.Errorf("%w: unknown persona %s", ErrInvalidInput, req.PersonaID)
		}
	}

	roleSummary := strings.TrimSpace(req.RoleSummary)
	if roleSummary == "" && s.roles != nil {
		roleSummary = s.roles.Summarize(ctx, req.JobTitle, req.JobDescription)
	}
	candidateSummary := strings.TrimSpace(req.CandidateSummary)
	if candidateSummary == "" && s.candidates != nil {
		candidateSummary = s.candidates.Summarize(ctx, req.JobTitle, req.ResumeText)
	}

	interview := &models.Interview{
		UserID:           callerID,
		PersonaID:        req.PersonaID,
		JobTitle:         req.JobTitle,
		JobDescription:   strings.TrimSpace(req.JobDescription),
		CandidateSummary: candidateSummary,
		RoleSummary:      roleSummary,
		Status:           models.InterviewScheduled,
	}
	if err := s.store.CreateInterview(ctx, interview); err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}

	slog.Info("Interview scheduled", "interview_id", interview.ID, "user_id", callerID, "job_title", interview.JobTitle)
	return interview, nil
}

func (s *InterviewService) Get(ctx context.Context, callerID, interviewID string) (*models.Interview, error) {
	return ownedInterview(ctx, s.store, callerID, interviewID)
}

func (s *InterviewService) List(ctx context.Context, callerID string) ([]models.Interview, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	interviews, err := s.store.ListInterviews(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	return interviews, nil
}

// Finish ends the interview, treating an already ended session as done, and
// generates the report for its latest session.
func (s *InterviewService) Finish(ctx context.Context, callerID, interviewID string, final *models.MetricsPatch) (*models.Report, error) {
	if _, err := s.sessions.End(ctx, callerID, interviewID, final); err != nil {
		if !errors.Is(err, ErrNoActiveSession) {
			return nil, err
		}
		slog.Info("Session already ended, continuing to report", "interview_id", interviewID)
	}

	session, err := s.sessions.Get(ctx, callerID, interviewID)
	if err != nil {
		return nil, err
	}

	report, _, err := s.reports.Generate(ctx, callerID, interviewID, session.ID)
	return report, err
}
