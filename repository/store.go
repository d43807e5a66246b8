package repository

import (
	"context"
	"errors"
	"time"

	"github.com/krshsl/praxis/coach/models"
)

// ErrDuplicate is returned by CreateReport when the interview already has a report.
var ErrDuplicate = errors.New("duplicate record")

// Store is the document store behind the interview core. Getters return
// (nil, nil) when the record does not exist. No method spans more than one
// entity; multi-record updates are issued by callers as separate writes.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	CreatePersona(ctx context.Context, persona *models.Persona) error
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
	GetPersonaByName(ctx context.Context, name string) (*models.Persona, error)
	ListPersonas(ctx context.Context) ([]models.Persona, error)

	CreateInterview(ctx context.Context, interview *models.Interview) error
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	ListInterviews(ctx context.Context, userID string) ([]models.Interview, error)
	MarkInterviewStarted(ctx context.Context, interviewID, sessionID string, at time.Time) error
	MarkInterviewCompleted(ctx context.Context, interviewID string, at time.Time) error
	AttachReport(ctx context.Context, interviewID, reportID string) error

	CreateSession(ctx context.Context, session *models.InterviewSession) error
	GetSession(ctx context.Context, id string) (*models.InterviewSession, error)
	FindActiveSession(ctx context.Context, interviewID string) (*models.InterviewSession, error)
	FindLatestSession(ctx context.Context, interviewID string) (*models.InterviewSession, error)
	// SaveActiveSession writes the whole session document if the stored row is
	// still active. It reports false when the session is no longer active.
	SaveActiveSession(ctx context.Context, session *models.InterviewSession) (bool, error)
	MarkSessionReported(ctx context.Context, sessionID string) error
	ListIdleSessions(ctx context.Context, idleBefore time.Time) ([]models.InterviewSession, error)
	// AbandonSession moves an active session idle since before idleBefore to
	// abandoned. It reports false when the session was touched or ended meanwhile.
	AbandonSession(ctx context.Context, sessionID string, idleBefore, at time.Time) (bool, error)

	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	FindReportByInterview(ctx context.Context, interviewID string) (*models.Report, error)
	ListReports(ctx context.Context, userID string) ([]models.Report, error)
}
