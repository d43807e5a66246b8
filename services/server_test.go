package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krshsl/praxis/coach/analysis"
	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
	ws "github.com/krshsl/praxis/coach/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

type testServer struct {
	*httptest.Server
	store *repository.MemoryStore
	hub   *ws.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, failingGenerator)
}

// newTestServerWith wires gen into the report analyzers.
func newTestServerWith(t *testing.T, gen analysis.Generator) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, NewDatabaseSeeder(store).SeedDatabase(context.Background()))

	cfg := validConfig()
	cfg.Metrics.Enabled = false
	cfg.WebSocket.AllowedOrigins = testOrigin

	sessions := newSessionService(store, StartPolicyReject)
	reports := newReportService(store, gen, ReportOptions{})
	interviews := NewInterviewService(store, analysis.NewRoleSummarizer(failingGenerator), analysis.NewCandidateSummarizer(failingGenerator), sessions, reports)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := NewServer(cfg, Dependencies{
		Store:      store,
		Auth:       NewAuthService(store, testSecret),
		Sessions:   sessions,
		Reports:    reports,
		Interviews: interviews,
		Hub:        hub,
	})
	ts := httptest.NewServer(srv.SetupRoutes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return &testServer{Server: ts, store: store, hub: hub}
}

// call sends a JSON request and decodes the JSON response into out when out
// is not nil. It returns the status code.
func (ts *testServer) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "decoding %s %s", method, path)
	}
	return resp.StatusCode
}

func (ts *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	var out struct {
		AccessToken string `json:"access_token"`
	}
	status := ts.call(t, http.MethodPost, "/api/v1/auth/signup", "",
		SignupRequest{Email: email, Password: "correct-horse"}, &out)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func (ts *testServer) schedule(t *testing.T, token string) *models.Interview {
	t.Helper()
	var out struct {
		Interview *models.Interview `json:"interview"`
	}
	status := ts.call(t, http.MethodPost, "/api/v1/interviews", token, ScheduleRequest{
		JobTitle:       "Backend Engineer",
		JobDescription: "Own the payments API.",
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, out.Interview)
	return out.Interview
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var out map[string]string
	assert.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/health", "", nil, &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "up", out["database"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	var out errorResponse
	assert.Equal(t, http.StatusUnauthorized, ts.call(t, http.MethodGet, "/api/v1/interviews", "", nil, &out))
	assert.Equal(t, "unauthenticated", out.Code)
	assert.Equal(t, http.StatusUnauthorized, ts.call(t, http.MethodGet, "/api/v1/reports", "bogus", nil, nil))
}

func TestInterviewFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "candidate@example.com")

	var personas struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/v1/personas", token, nil, &personas))
	assert.Equal(t, len(DefaultPersonas), personas.Count)

	interview := ts.schedule(t, token)
	assert.Equal(t, models.InterviewScheduled, interview.Status)
	assert.Equal(t, "Own the payments API.", interview.RoleSummary)
	base := "/api/v1/interviews/" + interview.ID

	var started StartSessionResponse
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, base+"/session/start", token, nil, &started))
	require.NotNil(t, started.Session)
	assert.False(t, started.Reused)

	var conflict errorResponse
	assert.Equal(t, http.StatusConflict, ts.call(t, http.MethodPost, base+"/session/start", token, nil, &conflict))
	assert.Equal(t, "session_conflict", conflict.Code)

	for _, msg := range []models.Message{
		interviewerMsg("Tell me about a system you scaled?"),
		candidateMsg("Um, we sharded the ledger by merchant."),
	} {
		require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, base+"/session/messages?aggregate=true", token, msg, nil))
	}

	var updated SessionResponse
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, base+"/session/metrics", token,
		map[string]any{"confidence_score": 0.8}, &updated))
	assert.Len(t, updated.Session.Messages, 2)
	assert.InDelta(t, 0.8, updated.Session.Metrics.Data().ConfidenceScore, 1e-9)

	var ended SessionResponse
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, base+"/session/end", token, nil, &ended))
	assert.Equal(t, models.SessionCompleted, ended.Session.Status)

	var afterEnd errorResponse
	assert.Equal(t, http.StatusNotFound, ts.call(t, http.MethodPost, base+"/session/messages", token,
		candidateMsg("one more thing"), &afterEnd))
	assert.Equal(t, "no_active_session", afterEnd.Code)

	req := GenerateReportRequest{InterviewID: interview.ID, SessionID: ended.Session.ID}
	var generated ReportResponse
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/v1/reports", token, req, &generated))
	require.NotNil(t, generated.Report)
	assert.Equal(t, interview.ID, generated.Report.InterviewID)

	var again ReportResponse
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, "/api/v1/reports", token, req, &again))
	assert.Equal(t, generated.Report.ID, again.Report.ID)
	assert.Equal(t, "Report already exists", again.Message)

	var byInterview ReportResponse
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/v1/reports?interviewId="+interview.ID, token, nil, &byInterview))
	assert.Equal(t, generated.Report.ID, byInterview.Report.ID)

	var list GetReportsResponse
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/v1/reports", token, nil, &list))
	assert.Equal(t, 1, list.Count)

	var got struct {
		Interview *models.Interview `json:"interview"`
	}
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, base, token, nil, &got))
	assert.Equal(t, models.InterviewCompleted, got.Interview.Status)
	assert.True(t, got.Interview.ReportGenerated)
}

func TestInterviewsAreScopedToOwner(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signup(t, "owner@example.com")
	other := ts.signup(t, "other@example.com")
	interview := ts.schedule(t, owner)

	var out errorResponse
	assert.Equal(t, http.StatusForbidden, ts.call(t, http.MethodGet, "/api/v1/interviews/"+interview.ID, other, nil, &out))
	assert.Equal(t, "unauthorized", out.Code)
	assert.Equal(t, http.StatusForbidden, ts.call(t, http.MethodPost, "/api/v1/interviews/"+interview.ID+"/session/start", other, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.call(t, http.MethodGet, "/api/v1/interviews/missing", owner, nil, nil))
}

func TestFinishGeneratesReport(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "finish@example.com")
	interview := ts.schedule(t, token)
	base := "/api/v1/interviews/" + interview.ID

	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, base+"/session/start", token, nil, nil))
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, base+"/session/messages", token,
		interviewerMsg("Why this team?"), nil))

	var out struct {
		Report *models.Report `json:"report"`
	}
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, base+"/finish", token,
		EndSessionRequest{FinalMetrics: &models.MetricsPatch{TotalDuration: ptr(90000.0)}}, &out))
	require.NotNil(t, out.Report)
	assert.InDelta(t, 90000, out.Report.InterviewDuration, 1e-9)

	// finishing twice returns the same report
	var again struct {
		Report *models.Report `json:"report"`
	}
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, base+"/finish", token, nil, &again))
	assert.Equal(t, out.Report.ID, again.Report.ID)
}

func dialEvents(t *testing.T, ts *testServer, token, interviewID, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?interview_id=" + interviewID
	header := http.Header{}
	header.Set("Origin", origin)
	header.Set("Authorization", "Bearer "+token)
	return websocket.DefaultDialer.Dial(url, header)
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev map[string]json.RawMessage
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func eventType(ev map[string]json.RawMessage) string {
	var s string
	_ = json.Unmarshal(ev["type"], &s)
	return s
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "stream@example.com")
	interview := ts.schedule(t, token)
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/v1/interviews/"+interview.ID+"/session/start", token, nil, nil))

	conn, _, err := dialEvents(t, ts, token, interview.ID, testOrigin)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "message",
		"message": map[string]any{"sender": "user", "text": "um I think so"},
	}))
	ev := readEvent(t, conn)
	require.Equal(t, "session", eventType(ev))
	var session models.InterviewSession
	require.NoError(t, json.Unmarshal(ev["session"], &session))
	assert.Len(t, session.Messages, 1)
	assert.Equal(t, 1, session.Metrics.Data().FillerWordsCount)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "shout"}))
	ev = readEvent(t, conn)
	require.Equal(t, "error", eventType(ev))
	assert.JSONEq(t, `"invalid_input"`, string(ev["code"]))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev = readEvent(t, conn)
	assert.Equal(t, "error", eventType(ev))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "end", "generate_report": true}))
	ev = readEvent(t, conn)
	require.Equal(t, "report", eventType(ev))
	var report models.Report
	require.NoError(t, json.Unmarshal(ev["report"], &report))
	assert.Equal(t, interview.ID, report.InterviewID)
}

func TestEventStreamKeepsReadingWhileReportGenerates(t *testing.T) {
	release := make(chan struct{})
	gen := analysis.GeneratorFunc(func(ctx context.Context, _ string, _ float64) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "", context.DeadlineExceeded
	})
	ts := newTestServerWith(t, gen)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	token := ts.signup(t, "slow@example.com")
	interview := ts.schedule(t, token)
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/v1/interviews/"+interview.ID+"/session/start", token, nil, nil))

	conn, _, err := dialEvents(t, ts, token, interview.ID, testOrigin)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "end", "generate_report": true}))

	// the session is already ended, so a late metrics frame is rejected
	// while the report is still pending
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "metrics", "metrics": map[string]any{"total_pauses": 1}}))
	ev := readEvent(t, conn)
	require.Equal(t, "error", eventType(ev))
	assert.JSONEq(t, `"no_active_session"`, string(ev["code"]))

	close(release)
	ev = readEvent(t, conn)
	require.Equal(t, "report", eventType(ev))
	var report models.Report
	require.NoError(t, json.Unmarshal(ev["report"], &report))
	assert.Equal(t, interview.ID, report.InterviewID)
}

func TestEventStreamRejects(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "reject@example.com")
	interview := ts.schedule(t, token)
	other := ts.signup(t, "intruder@example.com")

	tests := []struct {
		name        string
		token       string
		interviewID string
		origin      string
		wantStatus  int
	}{
		{name: "foreign origin", token: token, interviewID: interview.ID, origin: "http://evil.example", wantStatus: http.StatusForbidden},
		{name: "not the owner", token: other, interviewID: interview.ID, origin: testOrigin, wantStatus: http.StatusForbidden},
		{name: "missing interview", token: token, interviewID: "", origin: testOrigin, wantStatus: http.StatusBadRequest},
		{name: "no token", token: "", interviewID: interview.ID, origin: testOrigin, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialEvents(t, ts, tt.token, tt.interviewID, tt.origin)
			if conn != nil {
				conn.Close()
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
