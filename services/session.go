package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
	"github.com/krshsl/praxis/coach/speech"
	"github.com/krshsl/praxis/coach/telemetry"
	"gorm.io/datatypes"
)

// SessionService is the session state machine. Every operation acts on the
// single active session of an interview owned by the caller.
type SessionService struct {
	store      repository.Store
	aggregator *speech.Aggregator
	policy     string
	metrics    *telemetry.Manager
	now        func() time.Time
}

func NewSessionService(store repository.Store, aggregator *speech.Aggregator, policy string, metrics *telemetry.Manager) *SessionService {
	if aggregator == nil {
		aggregator = speech.NewAggregator(nil)
	}
	if policy != StartPolicyReuse {
		policy = StartPolicyReject
	}
	return &SessionService{
		store:      store,
		aggregator: aggregator,
		policy:     policy,
		metrics:    metrics,
		now:        time.Now,
	}
}

// StartOptions carries optional data recorded on a new session.
type StartOptions struct {
	MediaURL string `json:"media_url,omitempty"`
}

// Start opens a session. When one is already active the configured policy
// decides: reject fails with ErrSessionConflict, reuse returns the active
// session and reports reused.
func (s *SessionService) Start(ctx context.Context, callerID, interviewID string, opts StartOptions) (session *models.InterviewSession, reused bool, err error) {
	interview, err := ownedInterview(ctx, s.store, callerID, interviewID)
	if err != nil {
		return nil, false, err
	}
	if interview.Status == models.InterviewCompleted {
		return nil, false, fmt.Errorf("%w: interview %s is already completed", ErrInvalidInput, interviewID)
	}

	active, err := s.store.FindActiveSession(ctx, interviewID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up active session: %w", err)
	}
	if active != nil {
		if s.policy == StartPolicyReuse && active.UserID == callerID {
			slog.Info("Reusing active session", "interview_id", interviewID, "session_id", active.ID)
			return active, true, nil
		}
		return nil, false, fmt.Errorf("%w: interview %s has session %s", ErrSessionConflict, interviewID, active.ID)
	}

	now := s.now()
	session = &models.InterviewSession{
		InterviewID:    interviewID,
		UserID:         callerID,
		Status:         models.SessionActive,
		Messages:       datatypes.JSONSlice[models.Message]{},
		Metrics:        datatypes.NewJSONType(models.Metrics{}),
		MediaURL:       strings.TrimSpace(opts.MediaURL),
		StartedAt:      now,
		LastActivityAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.store.MarkInterviewStarted(ctx, interviewID, session.ID, now); err != nil {
		return nil, false, fmt.Errorf("failed to mark interview started: %w", err)
	}

	s.metrics.RecordSessionTransition(models.SessionActive)
	slog.Info("Interview session started", "interview_id", interviewID, "session_id", session.ID, "user_id", callerID)
	return session, false, nil
}

// AppendMessage records one utterance in arrival order. Metrics are left as
// they are.
func (s *SessionService) AppendMessage(ctx context.Context, callerID, interviewID string, msg models.Message) (*models.InterviewSession, error) {
	if err := s.prepareMessage(&msg); err != nil {
		return nil, err
	}
	return s.mutateActive(ctx, callerID, interviewID, func(session *models.InterviewSession, _ time.Time) {
		session.Messages = append(session.Messages, msg)
	})
}

// RecordUtterance appends msg and recomputes the session metrics from the
// whole transcript in the same write.
func (s *SessionService) RecordUtterance(ctx context.Context, callerID, interviewID string, msg models.Message) (*models.InterviewSession, error) {
	if err := s.prepareMessage(&msg); err != nil {
		return nil, err
	}
	return s.mutateActive(ctx, callerID, interviewID, func(session *models.InterviewSession, now time.Time) {
		session.Messages = append(session.Messages, msg)
		derived := s.aggregator.Aggregate(session.Messages, elapsedMs(session.StartedAt, now))
		session.Metrics = datatypes.NewJSONType(session.Metrics.Data().Merge(derived.Patch()))
	})
}

// UpdateMetrics merges patch into the stored metrics: named fields overwrite,
// omitted fields are kept.
func (s *SessionService) UpdateMetrics(ctx context.Context, callerID, interviewID string, patch models.MetricsPatch) (*models.InterviewSession, error) {
	return s.mutateActive(ctx, callerID, interviewID, func(session *models.InterviewSession, _ time.Time) {
		session.Metrics = datatypes.NewJSONType(session.Metrics.Data().Merge(patch))
	})
}

// End completes the active session and its interview. final, when given, is
// merged like UpdateMetrics. Without it, metrics that were never reported are
// derived from the transcript, and a missing total duration is taken from the
// wall clock. A second End fails with ErrNoActiveSession.
func (s *SessionService) End(ctx context.Context, callerID, interviewID string, final *models.MetricsPatch) (*models.InterviewSession, error) {
	var endedAt time.Time
	session, err := s.mutateActive(ctx, callerID, interviewID, func(session *models.InterviewSession, now time.Time) {
		endedAt = now
		session.Status = models.SessionCompleted
		session.EndedAt = &now
		session.Metrics = datatypes.NewJSONType(s.finalMetrics(session, final, now))
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkInterviewCompleted(ctx, interviewID, endedAt); err != nil {
		return nil, fmt.Errorf("failed to mark interview completed: %w", err)
	}

	s.metrics.RecordSessionTransition(models.SessionCompleted)
	slog.Info("Interview session ended", "interview_id", interviewID, "session_id", session.ID, "messages", len(session.Messages))
	return session, nil
}

// Get returns the most recent session of the interview.
func (s *SessionService) Get(ctx context.Context, callerID, interviewID string) (*models.InterviewSession, error) {
	if _, err := ownedInterview(ctx, s.store, callerID, interviewID); err != nil {
		return nil, err
	}
	session, err := s.store.FindLatestSession(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: interview %s has no session", ErrNotFound, interviewID)
	}
	return session, nil
}

func (s *SessionService) finalMetrics(session *models.InterviewSession, final *models.MetricsPatch, now time.Time) models.Metrics {
	current := session.Metrics.Data()
	if final != nil && !final.IsEmpty() {
		return current.Merge(*final)
	}
	if current == (models.Metrics{}) {
		return s.aggregator.Aggregate(session.Messages, elapsedMs(session.StartedAt, now))
	}
	if current.TotalDuration == 0 {
		current.TotalDuration = elapsedMs(session.StartedAt, now)
	}
	return current
}

func (s *SessionService) prepareMessage(msg *models.Message) error {
	if msg.Sender != models.SenderUser && msg.Sender != models.SenderInterviewer {
		return fmt.Errorf("%w: sender must be %q or %q", ErrInvalidInput, models.SenderUser, models.SenderInterviewer)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	return nil
}

// mutateActive applies fn to the caller's active session and writes it back
// only if the stored row is still active.
func (s *SessionService) mutateActive(ctx context.Context, callerID, interviewID string, fn func(*models.InterviewSession, time.Time)) (*models.InterviewSession, error) {
	if _, err := ownedInterview(ctx, s.store, callerID, interviewID); err != nil {
		return nil, err
	}
	session, err := s.store.FindActiveSession(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: interview %s", ErrNoActiveSession, interviewID)
	}
	if session.UserID != callerID {
		return nil, fmt.Errorf("%w: session %s", ErrUnauthorized, session.ID)
	}

	now := s.now()
	fn(session, now)
	session.LastActivityAt = now

	saved, err := s.store.SaveActiveSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if !saved {
		return nil, fmt.Errorf("%w: session %s ended concurrently", ErrNoActiveSession, session.ID)
	}
	return session, nil
}

// ownedInterview loads an interview and checks that callerID owns it.
func ownedInterview(ctx context.Context, store repository.Store, callerID, interviewID string) (*models.Interview, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(interviewID) == "" {
		return nil, fmt.Errorf("%w: interview id is required", ErrInvalidInput)
	}
	interview, err := store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	if interview == nil {
		return nil, fmt.Errorf("%w: interview %s", ErrNotFound, interviewID)
	}
	if interview.UserID != callerID {
		return nil, fmt.Errorf("%w: interview %s", ErrUnauthorized, interviewID)
	}
	return interview, nil
}

func elapsedMs(from, to time.Time) float64 {
	if from.IsZero() || to.Before(from) {
		return 0
	}
	return float64(to.Sub(from).Milliseconds())
}
