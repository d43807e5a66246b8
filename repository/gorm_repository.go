package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/krshsl/praxis/coach/models"
	"gorm.io/gorm"
)

// GORMRepository implements Store on a relational database. Session and
// report documents live in JSON columns.
type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

var _ Store = (*GORMRepository)(nil)

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Persona{},
		&models.Interview{},
		&models.InterviewSession{},
		&models.Report{},
	)
}

func (r *GORMRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// isUniqueViolation recognises duplicate-key errors whether or not the
// dialector translated them.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Persona operations
func (r *GORMRepository) CreatePersona(ctx context.Context, persona *models.Persona) error {
	if err := r.db.WithContext(ctx).Create(persona).Error; err != nil {
		slog.Error("Failed to create persona", "error", err)
		return err
	}
	slog.Info("Persona created", "persona_id", persona.ID, "name", persona.Name)
	return nil
}

func (r *GORMRepository) GetPersona(ctx context.Context, id string) (*models.Persona, error) {
	var persona models.Persona
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&persona).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get persona", "error", err, "persona_id", id)
		return nil, err
	}
	return &persona, nil
}

func (r *GORMRepository) GetPersonaByName(ctx context.Context, name string) (*models.Persona, error) {
	var persona models.Persona
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&persona).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get persona by name", "error", err, "name", name)
		return nil, err
	}
	return &persona, nil
}

func (r *GORMRepository) ListPersonas(ctx context.Context) ([]models.Persona, error) {
	var personas []models.Persona
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&personas).Error; err != nil {
		slog.Error("Failed to list personas", "error", err)
		return nil, err
	}
	return personas, nil
}

// Interview operations
func (r *GORMRepository) CreateInterview(ctx context.Context, interview *models.Interview) error {
	if err := r.db.WithContext(ctx).Create(interview).Error; err != nil {
		slog.Error("Failed to create interview", "error", err, "user_id", interview.UserID)
		return err
	}
	slog.Info("Interview created", "interview_id", interview.ID, "user_id", interview.UserID)
	return nil
}

func (r *GORMRepository) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	var interview models.Interview
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview", "error", err, "interview_id", id)
		return nil, err
	}
	return &interview, nil
}

func (r *GORMRepository) ListInterviews(ctx context.Context, userID string) ([]models.Interview, error) {
	var interviews []models.Interview
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&interviews).Error
	if err != nil {
		slog.Error("Failed to list interviews", "error", err, "user_id", userID)
		return nil, err
	}
	return interviews, nil
}

func (r *GORMRepository) updateInterview(ctx context.Context, interviewID string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Interview{}).Where("id = ?", interviewID).Updates(fields)
	if res.Error != nil {
		slog.Error("Failed to update interview", "error", res.Error, "interview_id", interviewID)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("interview %s: %w", interviewID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *GORMRepository) MarkInterviewStarted(ctx context.Context, interviewID, sessionID string, at time.Time) error {
	return r.updateInterview(ctx, interviewID, map[string]any{
		"status":     models.InterviewInProgress,
		"session_id": sessionID,
		"started_at": at,
	})
}

func (r *GORMRepository) MarkInterviewCompleted(ctx context.Context, interviewID string, at time.Time) error {
	return r.updateInterview(ctx, interviewID, map[string]any{
		"status":   models.InterviewCompleted,
		"ended_at": at,
	})
}

func (r *GORMRepository) AttachReport(ctx context.Context, interviewID, reportID string) error {
	if err := r.updateInterview(ctx, interviewID, map[string]any{
		"report_id":        reportID,
		"report_generated": true,
	}); err != nil {
		return err
	}
	slog.Info("Report attached to interview", "interview_id", interviewID, "report_id", reportID)
	return nil
}

// Report operations
func (r *GORMRepository) CreateReport(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Error("Failed to create report", "error", err, "interview_id", report.InterviewID)
		return err
	}
	slog.Info("Report created", "report_id", report.ID, "interview_id", report.InterviewID, "score", report.OverallScore)
	return nil
}

func (r *GORMRepository) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get report", "error", err, "report_id", id)
		return nil, err
	}
	return &report, nil
}

func (r *GORMRepository) FindReportByInterview(ctx context.Context, interviewID string) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Where("interview_id = ?", interviewID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get report by interview", "error", err, "interview_id", interviewID)
		return nil, err
	}
	return &report, nil
}

func (r *GORMRepository) ListReports(ctx context.Context, userID string) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		Find(&reports).Error
	if err != nil {
		slog.Error("Failed to list reports", "error", err, "user_id", userID)
		return nil, err
	}
	return reports, nil
}
