package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krshsl/praxis/coach/models"
	"gorm.io/gorm"
)

// Session documents. The transcript and metrics travel with the row, so every
// write replaces the document as a whole.

func (r *GORMRepository) CreateSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create interview session", "error", err, "interview_id", session.InterviewID)
		return fmt.Errorf("failed to create interview session: %w", err)
	}
	slog.Info("Interview session created", "session_id", session.ID, "interview_id", session.InterviewID, "user_id", session.UserID)
	return nil
}

func (r *GORMRepository) GetSession(ctx context.Context, id string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview session", "error", err, "session_id", id)
		return nil, fmt.Errorf("failed to get interview session: %w", err)
	}
	return &session, nil
}

func (r *GORMRepository) FindActiveSession(ctx context.Context, interviewID string) (*models.InterviewSession, error) {
	return r.findSession(ctx, r.db.WithContext(ctx).
		Where("interview_id = ? AND status = ?", interviewID, models.SessionActive).
		Order("started_at DESC"), interviewID)
}

func (r *GORMRepository) FindLatestSession(ctx context.Context, interviewID string) (*models.InterviewSession, error) {
	return r.findSession(ctx, r.db.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("started_at DESC"), interviewID)
}

func (r *GORMRepository) findSession(_ context.Context, query *gorm.DB, interviewID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	if err := query.First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to find interview session", "error", err, "interview_id", interviewID)
		return nil, fmt.Errorf("failed to find interview session: %w", err)
	}
	return &session, nil
}

func (r *GORMRepository) SaveActiveSession(ctx context.Context, session *models.InterviewSession) (bool, error) {
	session.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(session).
		Where("status = ?", models.SessionActive).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(session)
	if res.Error != nil {
		slog.Error("Failed to save interview session", "error", res.Error, "session_id", session.ID)
		return false, fmt.Errorf("failed to save interview session: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GORMRepository) MarkSessionReported(ctx context.Context, sessionID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ?", sessionID).
		Update("report_generated", true)
	if res.Error != nil {
		slog.Error("Failed to mark session reported", "error", res.Error, "session_id", sessionID)
		return fmt.Errorf("failed to mark session reported: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *GORMRepository) ListIdleSessions(ctx context.Context, idleBefore time.Time) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_activity_at < ?", models.SessionActive, idleBefore).
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to list idle sessions", "error", err)
		return nil, fmt.Errorf("failed to list idle sessions: %w", err)
	}
	return sessions, nil
}

func (r *GORMRepository) AbandonSession(ctx context.Context, sessionID string, idleBefore, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ? AND status = ? AND last_activity_at < ?", sessionID, models.SessionActive, idleBefore).
		Updates(map[string]any{
			"status":   models.SessionAbandoned,
			"ended_at": at,
		})
	if res.Error != nil {
		slog.Error("Failed to abandon session", "error", res.Error, "session_id", sessionID)
		return false, fmt.Errorf("failed to abandon session: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		slog.Info("Session abandoned", "session_id", sessionID)
	}
	return res.RowsAffected > 0, nil
}
