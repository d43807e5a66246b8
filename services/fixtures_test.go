package services

import (
	"context"
	"testing"

	"github.com/krshsl/praxis/coach/analysis"
	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func seedUser(t *testing.T, store repository.Store, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "hash", Role: "user"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func seedInterview(t *testing.T, store repository.Store, userID string) *models.Interview {
	t.Helper()
	interview := &models.Interview{
		UserID:           userID,
		JobTitle:         "Backend Engineer",
		JobDescription:   "Build and operate Go services.",
		CandidateSummary: "Five years of backend experience.",
		Status:           models.InterviewScheduled,
	}
	require.NoError(t, store.CreateInterview(context.Background(), interview))
	return interview
}

func newSessionService(store repository.Store, policy string) *SessionService {
	return NewSessionService(store, nil, policy, nil)
}

// failingGenerator makes every analyzer fall back.
var failingGenerator = analysis.GeneratorFunc(func(context.Context, string, float64) (string, error) {
	return "", context.DeadlineExceeded
})

func newReportService(store repository.Store, gen analysis.Generator, opts ReportOptions) *ReportService {
	return NewReportService(store,
		analysis.NewQuestionAnalyzer(gen),
		analysis.NewConversationAnalyzer(gen),
		opts, nil)
}

func interviewerMsg(text string) models.Message {
	return models.Message{Sender: models.SenderInterviewer, Text: text}
}

func candidateMsg(text string) models.Message {
	return models.Message{Sender: models.SenderUser, Text: text}
}
