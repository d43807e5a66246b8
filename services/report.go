package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/krshsl/praxis/coach/analysis"
	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
	"github.com/krshsl/praxis/coach/telemetry"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Report mapping defaults for fields the conversation analysis leaves empty.
const defaultBodyLanguageScore = 75

var (
	defaultBodyLanguageObservations    = []string{"Professional demeanor maintained"}
	defaultBodyLanguageRecommendations = []string{"Continue professional presentation", "Focus on confident body language"}
	defaultQuestionSuggestions         = []string{"Practice more", "Improve structure"}
	defaultAreasForImprovement         = []string{"Continue developing skills", "Practice interview techniques"}
)

// ReportService assembles the final report of an interview. It is idempotent
// per interview: an existing report is returned unchanged and no analysis
// runs a second time.
type ReportService struct {
	store             repository.Store
	questions         *analysis.QuestionAnalyzer
	conversation      *analysis.ConversationAnalyzer
	enrichment        analysis.EnrichmentSource
	enrichmentTimeout time.Duration
	maxQuestions      int
	metrics           *telemetry.Manager
	now               func() time.Time
}

// ReportOptions tunes enrichment and the per-question fan-out.
type ReportOptions struct {
	// Enrichment is optional; without it every report uses synthetic enrichment.
	Enrichment        analysis.EnrichmentSource
	EnrichmentTimeout time.Duration
	MaxQuestions      int
}

// NewReportService caps MaxQuestions at MaxAnalyzedQuestions.
func NewReportService(store repository.Store, questions *analysis.QuestionAnalyzer, conversation *analysis.ConversationAnalyzer, opts ReportOptions, metrics *telemetry.Manager) *ReportService {
	maxQuestions := opts.MaxQuestions
	if maxQuestions <= 0 || maxQuestions > MaxAnalyzedQuestions {
		maxQuestions = MaxAnalyzedQuestions
	}
	return &ReportService{
		store:             store,
		questions:         questions,
		conversation:      conversation,
		enrichment:        opts.Enrichment,
		enrichmentTimeout: opts.EnrichmentTimeout,
		maxQuestions:      maxQuestions,
		metrics:           metrics,
		now:               time.Now,
	}
}

// Generate returns the report for interviewID, building it from sessionID when
// none exists yet. existing reports whether a stored report was returned.
func (s *ReportService) Generate(ctx context.Context, callerID, interviewID, sessionID string) (report *models.Report, existing bool, err error) {
	if callerID == "" {
		return nil, false, ErrUnauthenticated
	}
	if strings.TrimSpace(interviewID) == "" || strings.TrimSpace(sessionID) == "" {
		return nil, false, fmt.Errorf("%w: interview id and session id are required", ErrInvalidInput)
	}

	interview, session, err := s.load(ctx, interviewID, sessionID)
	if err != nil {
		return nil, false, err
	}
	if interview.UserID != callerID || session.UserID != callerID {
		return nil, false, fmt.Errorf("%w: interview %s", ErrUnauthorized, interviewID)
	}
	if session.InterviewID != interviewID {
		return nil, false, fmt.Errorf("%w: session %s does not belong to interview %s", ErrInvalidInput, sessionID, interviewID)
	}

	found, err := s.store.FindReportByInterview(ctx, interviewID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing report: %w", err)
	}
	if found != nil {
		s.metrics.RecordReportReused()
		slog.Info("Report already exists", "interview_id", interviewID, "report_id", found.ID)
		return found, true, nil
	}

	// A client that goes away must not abandon a half-finished report.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	enrichment := s.enrich(ctx, session)
	conv, feedback := s.analyze(ctx, interview, session, enrichment)

	report = assembleReport(interview, session, conv, feedback, s.mentorName(ctx, interview.PersonaID), s.now())
	if err := s.store.CreateReport(ctx, report); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent generation
			winner, findErr := s.store.FindReportByInterview(ctx, interviewID)
			if findErr == nil && winner != nil {
				s.metrics.RecordReportReused()
				return winner, true, nil
			}
		}
		s.metrics.RecordReportFailure()
		return nil, false, fmt.Errorf("failed to save report: %w", err)
	}

	s.link(ctx, report)
	s.metrics.RecordReportGenerated(time.Since(start))
	slog.Info("Report generated",
		"interview_id", interviewID,
		"session_id", sessionID,
		"report_id", report.ID,
		"overall_score", report.OverallScore,
		"conversation_fallback", conv.Fallback,
		"questions", len(feedback))
	return report, false, nil
}

// Get returns a report by id, or by interview when reportID is empty.
func (s *ReportService) Get(ctx context.Context, callerID, interviewID, reportID string) (*models.Report, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	var (
		report *models.Report
		err    error
	)
	switch {
	case reportID != "":
		report, err = s.store.GetReport(ctx, reportID)
	case interviewID != "":
		report, err = s.store.FindReportByInterview(ctx, interviewID)
	default:
		return nil, fmt.Errorf("%w: interview id or report id is required", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: report", ErrNotFound)
	}
	if report.UserID != callerID {
		return nil, fmt.Errorf("%w: report %s", ErrUnauthorized, report.ID)
	}
	return report, nil
}

// List returns the caller's reports, newest first.
func (s *ReportService) List(ctx context.Context, callerID string) ([]models.Report, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	reports, err := s.store.ListReports(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// load fetches the interview and session concurrently.
func (s *ReportService) load(ctx context.Context, interviewID, sessionID string) (*models.Interview, *models.InterviewSession, error) {
	var (
		interview *models.Interview
		session   *models.InterviewSession
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if interview, err = s.store.GetInterview(gctx, interviewID); err != nil {
			return fmt.Errorf("failed to get interview: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if session, err = s.store.GetSession(gctx, sessionID); err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if interview == nil {
		return nil, nil, fmt.Errorf("%w: interview %s", ErrNotFound, interviewID)
	}
	if session == nil {
		return nil, nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return interview, session, nil
}

// enrich asks the enrichment service about the session recording. Anything
// short of a usable answer yields synthetic enrichment.
func (s *ReportService) enrich(ctx context.Context, session *models.InterviewSession) analysis.Enrichment {
	metrics := session.Metrics.Data()
	if s.enrichment == nil || session.MediaURL == "" {
		return analysis.SyntheticEnrichment(metrics)
	}

	start := time.Now()
	if s.enrichmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.enrichmentTimeout)
		defer cancel()
	}
	e, err := s.enrichment.Analyze(ctx, session.MediaURL)
	if err != nil || e == nil {
		if err != nil {
			slog.Warn("Enrichment failed, using synthetic enrichment", "session_id", session.ID, "error", err)
		}
		s.metrics.RecordAnalysis(telemetry.KindEnrichment, true, time.Since(start))
		return analysis.SyntheticEnrichment(metrics)
	}
	s.metrics.RecordAnalysis(telemetry.KindEnrichment, false, time.Since(start))
	return *e
}

// analyze runs the conversation analysis and one question analysis per
// leading interviewer message concurrently. Feedback keeps question order.
func (s *ReportService) analyze(ctx context.Context, interview *models.Interview, session *models.InterviewSession, enrichment analysis.Enrichment) (analysis.ConversationAnalysis, []models.QuestionFeedback) {
	messages := []models.Message(session.Messages)
	metrics := session.Metrics.Data()
	pairs := questionPairs(messages, s.maxQuestions)

	var conv analysis.ConversationAnalysis
	results := make([]analysis.QuestionAnalysis, len(pairs))

	var g errgroup.Group
	g.SetLimit(1 + len(pairs))
	g.Go(func() error {
		conv = s.conversation.Analyze(ctx, analysis.ConversationInput{
			Messages:         messages,
			Metrics:          metrics,
			JobTitle:         interview.JobTitle,
			CandidateSummary: interview.CandidateSummary,
			RoleSummary:      interview.RoleSummary,
			Enrichment:       enrichment,
		})
		return nil
	})
	for i, p := range pairs {
		g.Go(func() error {
			results[i] = s.questions.Analyze(ctx, analysis.QuestionInput{
				Question:         p.question,
				Response:         p.response,
				JobTitle:         interview.JobTitle,
				CandidateSummary: interview.CandidateSummary,
			})
			return nil
		})
	}
	// analyzers absorb their own failures
	_ = g.Wait()

	feedback := make([]models.QuestionFeedback, len(pairs))
	for i, p := range pairs {
		r := results[i]
		feedback[i] = models.QuestionFeedback{
			QuestionID:   p.id,
			Question:     p.question,
			UserResponse: p.response,
			Feedback:     r.DetailedFeedback,
			Score:        r.OverallScore,
			Suggestions:  orDefault(r.ImprovementStrategy.Immediate, defaultQuestionSuggestions),
		}
	}
	return conv, feedback
}

// link points the interview and session at the report. The report is already
// durable, so failures are logged and counted rather than returned.
func (s *ReportService) link(ctx context.Context, report *models.Report) {
	var g errgroup.Group
	g.Go(func() error {
		if err := s.store.AttachReport(ctx, report.InterviewID, report.ID); err != nil {
			return fmt.Errorf("failed to attach report to interview: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.store.MarkSessionReported(ctx, report.SessionID); err != nil {
			return fmt.Errorf("failed to mark session reported: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordLinkFailure()
		slog.Error("Report saved but links were not updated",
			"report_id", report.ID,
			"interview_id", report.InterviewID,
			"session_id", report.SessionID,
			"error", err)
	}
}

func (s *ReportService) mentorName(ctx context.Context, personaID string) string {
	if personaID == "" {
		return models.DefaultMentorName
	}
	persona, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		slog.Warn("Failed to resolve persona", "persona_id", personaID, "error", err)
		return models.DefaultMentorName
	}
	if persona == nil {
		return models.DefaultMentorName
	}
	return persona.Name
}

type questionPair struct {
	id       string
	question string
	response string
}

// questionPairs pairs each of the first limit interviewer messages with the
// first user message after it.
func questionPairs(messages []models.Message, limit int) []questionPair {
	var pairs []questionPair
	for i, msg := range messages {
		if len(pairs) == limit {
			break
		}
		if msg.Sender != models.SenderInterviewer {
			continue
		}
		response := analysis.NoResponseRecorded
		for _, next := range messages[i+1:] {
			if next.Sender == models.SenderUser {
				response = next.Text
				break
			}
		}
		pairs = append(pairs, questionPair{
			id:       fmt.Sprintf("q%d", len(pairs)+1),
			question: msg.Text,
			response: response,
		})
	}
	return pairs
}

// assembleReport maps both analyses onto the stored report layout.
func assembleReport(interview *models.Interview, session *models.InterviewSession, c analysis.ConversationAnalysis, feedback []models.QuestionFeedback, mentorName string, now time.Time) *models.Report {
	p := c.Performance
	f := c.Feedback

	bodyLanguageScore := p.Adaptability.Score
	if bodyLanguageScore == 0 {
		bodyLanguageScore = defaultBodyLanguageScore
	}

	performance := models.PerformanceAnalysis{
		Communication: models.SkillAssessment{
			Score:        p.CommunicationSkills.Score,
			Strengths:    orEmpty(p.CommunicationSkills.Strengths),
			Improvements: orEmpty(p.CommunicationSkills.Improvements),
			Feedback:     p.CommunicationSkills.Feedback,
		},
		TechnicalKnowledge: models.SkillAssessment{
			Score:        p.TechnicalKnowledge.Score,
			Strengths:    orEmpty(p.TechnicalKnowledge.Strengths),
			Improvements: orEmpty(p.TechnicalKnowledge.Improvements),
			Feedback:     p.TechnicalKnowledge.Feedback,
		},
		ProblemSolving: models.SkillAssessment{
			Score:        p.ProblemSolving.Score,
			Strengths:    orEmpty(p.ProblemSolving.Strengths),
			Improvements: orEmpty(p.ProblemSolving.Improvements),
			Feedback:     p.ProblemSolving.Feedback,
		},
		Confidence: models.ConfidenceAssessment{
			Score:           p.Confidence.Score,
			Analysis:        p.Confidence.Analysis,
			Recommendations: orEmpty(p.Confidence.Recommendations),
		},
		BodyLanguage: models.BodyLanguageAssessment{
			Score:           bodyLanguageScore,
			Observations:    orDefault(p.Adaptability.Evidence, defaultBodyLanguageObservations),
			Recommendations: append([]string(nil), defaultBodyLanguageRecommendations...),
		},
	}

	detailed := models.DetailedFeedback{
		OverallScore:        f.OverallScore,
		Summary:             f.Summary,
		KeyStrengths:        orEmpty(f.KeyStrengths),
		AreasForImprovement: orDefault(f.CriticalConcerns, defaultAreasForImprovement),
		SpecificFeedback:    feedback,
		BehavioralInsights: models.BehavioralInsights{
			PauseAnalysis:          f.BehavioralInsights.CognitiveProcessing,
			SpeechPaceAnalysis:     f.BehavioralInsights.CommunicationStyle,
			ConfidenceAnalysis:     f.BehavioralInsights.StressResponse,
			EmotionalStateAnalysis: f.BehavioralInsights.DecisionMaking,
		},
		Recommendations: models.Recommendations{
			Immediate: orEmpty(f.Recommendations.Immediate),
			ShortTerm: orEmpty(f.Recommendations.ShortTerm),
			LongTerm:  orEmpty(f.Recommendations.LongTerm),
		},
	}
	if detailed.SpecificFeedback == nil {
		detailed.SpecificFeedback = []models.QuestionFeedback{}
	}

	return &models.Report{
		InterviewID:          interview.ID,
		SessionID:            session.ID,
		UserID:               interview.UserID,
		JobTitle:             interview.JobTitle,
		MentorName:           mentorName,
		OverallScore:         f.OverallScore,
		HiringRecommendation: f.HiringRecommendation,
		PerformanceAnalysis:  datatypes.NewJSONType(performance),
		DetailedFeedback:     datatypes.NewJSONType(detailed),
		InterviewDuration:    session.Metrics.Data().TotalDuration,
		ReportVersion:        models.ReportVersion,
		GeneratedAt:          now,
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return append([]string(nil), fallback...)
	}
	return values
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
