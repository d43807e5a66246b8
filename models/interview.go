package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Interview lifecycle.
const (
	InterviewScheduled  = "scheduled"
	InterviewInProgress = "in-progress"
	InterviewCompleted  = "completed"
)

// Session lifecycle.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// Message senders.
const (
	SenderUser        = "user"
	SenderInterviewer = "interviewer"
)

// Interview is a scheduled engagement. The session and report references are
// weak: nothing cascades from them.
type Interview struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"type:uuid;not null;index" json:"user_id"`
	PersonaID        string         `gorm:"size:36;index" json:"persona_id,omitempty"`
	JobTitle         string         `gorm:"not null" json:"job_title"`
	JobDescription   string         `gorm:"type:text" json:"job_description"`
	CandidateSummary string         `gorm:"type:text" json:"candidate_summary"`
	RoleSummary      string         `gorm:"type:text" json:"role_summary"`
	Status           string         `gorm:"not null;default:'scheduled';check:status IN ('scheduled', 'in-progress', 'completed')" json:"status"`
	SessionID        *string        `gorm:"type:uuid" json:"session_id,omitempty"`
	ReportID         *string        `gorm:"type:uuid" json:"report_id,omitempty"`
	ReportGenerated  bool           `gorm:"default:false" json:"report_generated"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	EndedAt          *time.Time     `json:"ended_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (i *Interview) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// InterviewSession is one conversational run of an interview. Messages and
// Metrics are owned by value and stored as JSON documents on the row.
type InterviewSession struct {
	ID              string                       `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID     string                       `gorm:"type:uuid;not null;index" json:"interview_id"`
	UserID          string                       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status          string                       `gorm:"not null;default:'active';index;check:status IN ('active', 'completed', 'abandoned')" json:"status"`
	Messages        datatypes.JSONSlice[Message] `json:"messages"`
	Metrics         datatypes.JSONType[Metrics]  `json:"metrics"`
	MediaURL        string                       `gorm:"size:1000" json:"media_url,omitempty"`
	StartedAt       time.Time                    `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time                   `json:"ended_at,omitempty"`
	LastActivityAt  time.Time                    `gorm:"index" json:"last_activity_at"`
	ReportGenerated bool                         `gorm:"default:false" json:"report_generated"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
	DeletedAt       gorm.DeletedAt               `gorm:"index" json:"-"`
}

func (s *InterviewSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsActive reports whether the session still accepts events.
func (s *InterviewSession) IsActive() bool {
	return s.Status == SessionActive
}

// Message is one utterance. Insertion order is significant: a question is
// answered by the first user message that follows it.
type Message struct {
	ID                string    `json:"id"`
	Sender            string    `json:"sender"`
	Text              string    `json:"text"`
	Timestamp         time.Time `json:"timestamp"`
	Duration          *float64  `json:"duration,omitempty"`     // speech duration, ms
	PauseBefore       *float64  `json:"pause_before,omitempty"` // ms
	Confidence        *float64  `json:"confidence,omitempty"`   // recognition confidence, 0-1
	Emotion           string    `json:"emotion,omitempty"`
	Volume            *float64  `json:"volume,omitempty"`
	InterruptionCount int       `json:"interruption_count,omitempty"`
}

// DurationMs returns the speech duration or zero when it was not measured.
func (m Message) DurationMs() float64 {
	if m.Duration == nil || *m.Duration < 0 {
		return 0
	}
	return *m.Duration
}
