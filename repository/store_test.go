package repository

import (
	"context"
	"testing"
	"time"

	"github.com/krshsl/praxis/coach/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteRepository(t *testing.T) *GORMRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteRepository(t),
	}
}

func seedInterview(t *testing.T, ctx context.Context, s Store) (*models.User, *models.Interview) {
	t.Helper()
	user := &models.User{Email: "candidate@example.com", Password: "hash"}
	require.NoError(t, s.CreateUser(ctx, user))
	interview := &models.Interview{UserID: user.ID, JobTitle: "Backend Engineer", Status: models.InterviewScheduled}
	require.NoError(t, s.CreateInterview(ctx, interview))
	return user, interview
}

func TestStoreUsers(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user := &models.User{Email: "a@example.com", Password: "hash"}
			require.NoError(t, s.CreateUser(ctx, user))
			assert.NotEmpty(t, user.ID)

			got, err := s.GetUserByEmail(ctx, "a@example.com")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "hash", got.Password)

			missing, err := s.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
			require.NoError(t, err)
			assert.Nil(t, missing)

			err = s.CreateUser(ctx, &models.User{Email: "a@example.com"})
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestStoreInterviewLifecycle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user, interview := seedInterview(t, ctx, s)
			at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

			require.NoError(t, s.MarkInterviewStarted(ctx, interview.ID, "11111111-1111-1111-1111-111111111111", at))
			got, err := s.GetInterview(ctx, interview.ID)
			require.NoError(t, err)
			assert.Equal(t, models.InterviewInProgress, got.Status)
			require.NotNil(t, got.SessionID)
			assert.Equal(t, "11111111-1111-1111-1111-111111111111", *got.SessionID)

			require.NoError(t, s.MarkInterviewCompleted(ctx, interview.ID, at.Add(time.Hour)))
			require.NoError(t, s.AttachReport(ctx, interview.ID, "22222222-2222-2222-2222-222222222222"))
			got, err = s.GetInterview(ctx, interview.ID)
			require.NoError(t, err)
			assert.Equal(t, models.InterviewCompleted, got.Status)
			assert.True(t, got.ReportGenerated)
			require.NotNil(t, got.ReportID)

			list, err := s.ListInterviews(ctx, user.ID)
			require.NoError(t, err)
			assert.Len(t, list, 1)

			err = s.MarkInterviewCompleted(ctx, "33333333-3333-3333-3333-333333333333", at)
			assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		})
	}
}

func TestStoreSaveActiveSession(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user, interview := seedInterview(t, ctx, s)
			now := time.Now().UTC()
			session := &models.InterviewSession{
				InterviewID:    interview.ID,
				UserID:         user.ID,
				Status:         models.SessionActive,
				StartedAt:      now,
				LastActivityAt: now,
			}
			require.NoError(t, s.CreateSession(ctx, session))

			session.Messages = append(session.Messages, models.Message{ID: "m1", Sender: models.SenderUser, Text: "hello"})
			session.Metrics = datatypes.NewJSONType(models.Metrics{FillerWordsCount: 2})
			ok, err := s.SaveActiveSession(ctx, session)
			require.NoError(t, err)
			assert.True(t, ok)

			active, err := s.FindActiveSession(ctx, interview.ID)
			require.NoError(t, err)
			require.NotNil(t, active)
			require.Len(t, active.Messages, 1)
			assert.Equal(t, "hello", active.Messages[0].Text)
			assert.Equal(t, 2, active.Metrics.Data().FillerWordsCount)

			session.Status = models.SessionCompleted
			ok, err = s.SaveActiveSession(ctx, session)
			require.NoError(t, err)
			assert.True(t, ok)

			// ended sessions are never written again
			session.Status = models.SessionActive
			session.Messages = append(session.Messages, models.Message{ID: "m2", Sender: models.SenderUser, Text: "late"})
			ok, err = s.SaveActiveSession(ctx, session)
			require.NoError(t, err)
			assert.False(t, ok)

			latest, err := s.FindLatestSession(ctx, interview.ID)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, models.SessionCompleted, latest.Status)
			assert.Len(t, latest.Messages, 1)

			active, err = s.FindActiveSession(ctx, interview.ID)
			require.NoError(t, err)
			assert.Nil(t, active)
		})
	}
}

func TestStoreReportUniquePerInterview(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user, interview := seedInterview(t, ctx, s)
			report := &models.Report{
				InterviewID:   interview.ID,
				SessionID:     "44444444-4444-4444-4444-444444444444",
				UserID:        user.ID,
				JobTitle:      interview.JobTitle,
				MentorName:    models.DefaultMentorName,
				OverallScore:  58,
				ReportVersion: models.ReportVersion,
				GeneratedAt:   time.Now().UTC(),
			}
			require.NoError(t, s.CreateReport(ctx, report))

			dup := *report
			dup.ID = ""
			assert.ErrorIs(t, s.CreateReport(ctx, &dup), ErrDuplicate)

			got, err := s.FindReportByInterview(ctx, interview.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, report.ID, got.ID)
			assert.Equal(t, 58, got.OverallScore)

			list, err := s.ListReports(ctx, user.ID)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestMemoryStoreAbandonIdle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	user, interview := seedInterview(t, ctx, s)
	old := time.Now().UTC().Add(-time.Hour)
	session := &models.InterviewSession{
		InterviewID:    interview.ID,
		UserID:         user.ID,
		StartedAt:      old,
		LastActivityAt: old,
	}
	require.NoError(t, s.CreateSession(ctx, session))

	cutoff := time.Now().UTC().Add(-30 * time.Minute)
	idle, err := s.ListIdleSessions(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, idle, 1)

	ok, err := s.AbandonSession(ctx, session.ID, cutoff, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AbandonSession(ctx, session.ID, cutoff, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAbandoned, got.Status)
	assert.NotNil(t, got.EndedAt)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	session := &models.InterviewSession{InterviewID: "i1", UserID: "u1", StartedAt: time.Now()}
	require.NoError(t, s.CreateSession(ctx, session))

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	got.Messages = append(got.Messages, models.Message{Text: "not saved"})

	again, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Messages)
}
