package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/krshsl/praxis/coach/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MemoryStore is a process-local Store used for DATABASE_DRIVER=memory and
// tests. Records are copied on the way in and out so callers never share
// state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	personas   map[string]models.Persona
	interviews map[string]models.Interview
	sessions   map[string]models.InterviewSession
	reports    map[string]models.Report
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]models.User),
		personas:   make(map[string]models.Persona),
		interviews: make(map[string]models.Interview),
		sessions:   make(map[string]models.InterviewSession),
		reports:    make(map[string]models.Report),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) stamp(created, updated *time.Time) {
	now := m.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, gorm.ErrRecordNotFound)
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInterview(i models.Interview) models.Interview {
	i.SessionID = copyString(i.SessionID)
	i.ReportID = copyString(i.ReportID)
	i.StartedAt = copyTime(i.StartedAt)
	i.EndedAt = copyTime(i.EndedAt)
	return i
}

func cloneSession(s models.InterviewSession) models.InterviewSession {
	s.Messages = append(datatypes.JSONSlice[models.Message](nil), s.Messages...)
	s.EndedAt = copyTime(s.EndedAt)
	return s
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	_ = user.BeforeCreate(nil)
	m.stamp(&user.CreatedAt, &user.UpdatedAt)
	u := *user
	u.Interviews = nil
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStore) CreatePersona(_ context.Context, persona *models.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = persona.BeforeCreate(nil)
	m.stamp(&persona.CreatedAt, &persona.UpdatedAt)
	m.personas[persona.ID] = *persona
	return nil
}

func (m *MemoryStore) GetPersona(_ context.Context, id string) (*models.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.personas[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) GetPersonaByName(_ context.Context, name string) (*models.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.personas {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListPersonas(context.Context) ([]models.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Persona, 0, len(m.personas))
	for _, p := range m.personas {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) CreateInterview(_ context.Context, interview *models.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = interview.BeforeCreate(nil)
	if interview.Status == "" {
		interview.Status = models.InterviewScheduled
	}
	m.stamp(&interview.CreatedAt, &interview.UpdatedAt)
	m.interviews[interview.ID] = cloneInterview(*interview)
	return nil
}

func (m *MemoryStore) GetInterview(_ context.Context, id string) (*models.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.interviews[id]
	if !ok {
		return nil, nil
	}
	i = cloneInterview(i)
	return &i, nil
}

func (m *MemoryStore) ListInterviews(_ context.Context, userID string) ([]models.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Interview
	for _, i := range m.interviews {
		if i.UserID == userID {
			out = append(out, cloneInterview(i))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) updateInterview(id string, fn func(*models.Interview)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.interviews[id]
	if !ok {
		return notFound("interview", id)
	}
	fn(&i)
	i.UpdatedAt = m.now()
	m.interviews[id] = i
	return nil
}

func (m *MemoryStore) MarkInterviewStarted(_ context.Context, interviewID, sessionID string, at time.Time) error {
	return m.updateInterview(interviewID, func(i *models.Interview) {
		i.Status = models.InterviewInProgress
		i.SessionID = &sessionID
		i.StartedAt = &at
	})
}

func (m *MemoryStore) MarkInterviewCompleted(_ context.Context, interviewID string, at time.Time) error {
	return m.updateInterview(interviewID, func(i *models.Interview) {
		i.Status = models.InterviewCompleted
		i.EndedAt = &at
	})
}

func (m *MemoryStore) AttachReport(_ context.Context, interviewID, reportID string) error {
	return m.updateInterview(interviewID, func(i *models.Interview) {
		i.ReportID = &reportID
		i.ReportGenerated = true
	})
}

func (m *MemoryStore) CreateSession(_ context.Context, session *models.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = session.BeforeCreate(nil)
	if session.Status == "" {
		session.Status = models.SessionActive
	}
	m.stamp(&session.CreatedAt, &session.UpdatedAt)
	m.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.InterviewSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	s = cloneSession(s)
	return &s, nil
}

func (m *MemoryStore) latest(interviewID string, match func(models.InterviewSession) bool) *models.InterviewSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.InterviewSession
	for _, s := range m.sessions {
		if s.InterviewID != interviewID || !match(s) {
			continue
		}
		if found == nil || s.StartedAt.After(found.StartedAt) {
			c := cloneSession(s)
			found = &c
		}
	}
	return found
}

func (m *MemoryStore) FindActiveSession(_ context.Context, interviewID string) (*models.InterviewSession, error) {
	return m.latest(interviewID, func(s models.InterviewSession) bool { return s.IsActive() }), nil
}

func (m *MemoryStore) FindLatestSession(_ context.Context, interviewID string) (*models.InterviewSession, error) {
	return m.latest(interviewID, func(models.InterviewSession) bool { return true }), nil
}

func (m *MemoryStore) SaveActiveSession(_ context.Context, session *models.InterviewSession) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[session.ID]
	if !ok || !stored.IsActive() {
		return false, nil
	}
	session.CreatedAt = stored.CreatedAt
	session.UpdatedAt = m.now()
	m.sessions[session.ID] = cloneSession(*session)
	return true, nil
}

func (m *MemoryStore) MarkSessionReported(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return notFound("session", sessionID)
	}
	s.ReportGenerated = true
	s.UpdatedAt = m.now()
	m.sessions[sessionID] = s
	return nil
}

func (m *MemoryStore) ListIdleSessions(_ context.Context, idleBefore time.Time) ([]models.InterviewSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.InterviewSession
	for _, s := range m.sessions {
		if s.IsActive() && s.LastActivityAt.Before(idleBefore) {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (m *MemoryStore) AbandonSession(_ context.Context, sessionID string, idleBefore, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || !s.IsActive() || !s.LastActivityAt.Before(idleBefore) {
		return false, nil
	}
	s.Status = models.SessionAbandoned
	s.EndedAt = &at
	s.UpdatedAt = m.now()
	m.sessions[sessionID] = s
	return true, nil
}

func (m *MemoryStore) CreateReport(_ context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.InterviewID == report.InterviewID {
			return ErrDuplicate
		}
	}
	_ = report.BeforeCreate(nil)
	m.stamp(&report.CreatedAt, &report.UpdatedAt)
	m.reports[report.ID] = *report
	return nil
}

func (m *MemoryStore) GetReport(_ context.Context, id string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) FindReportByInterview(_ context.Context, interviewID string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reports {
		if r.InterviewID == interviewID {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListReports(_ context.Context, userID string) ([]models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Report
	for _, r := range m.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}
