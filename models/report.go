package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportVersion tags the report layout produced by the assembler.
const ReportVersion = "2.0"

// Report is the scored outcome of an interview. It is written once and never
// mutated; the interview and session point back to it.
type Report struct {
	ID                   string                                  `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID          string                                  `gorm:"type:uuid;not null;uniqueIndex" json:"interview_id"`
	SessionID            string                                  `gorm:"type:uuid;not null;index" json:"session_id"`
	UserID               string                                  `gorm:"type:uuid;not null;index" json:"user_id"`
	JobTitle             string                                  `gorm:"not null" json:"job_title"`
	MentorName           string                                  `gorm:"not null" json:"mentor_name"`
	OverallScore         int                                     `json:"overall_score"`
	HiringRecommendation string                                  `json:"hiring_recommendation"`
	PerformanceAnalysis  datatypes.JSONType[PerformanceAnalysis] `json:"performance_analysis"`
	DetailedFeedback     datatypes.JSONType[DetailedFeedback]    `json:"detailed_feedback"`
	InterviewDuration    float64                                 `json:"interview_duration"` // ms
	ReportVersion        string                                  `gorm:"size:10" json:"report_version"`
	GeneratedAt          time.Time                               `json:"generated_at"`
	CreatedAt            time.Time                               `json:"created_at"`
	UpdatedAt            time.Time                               `json:"updated_at"`
	DeletedAt            gorm.DeletedAt                          `gorm:"index" json:"-"`
}

func (Report) TableName() string {
	return "interview_reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// SkillAssessment scores one performance dimension.
type SkillAssessment struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Feedback     string   `json:"feedback"`
}

type ConfidenceAssessment struct {
	Score           int      `json:"score"`
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
}

type BodyLanguageAssessment struct {
	Score           int      `json:"score"`
	Observations    []string `json:"observations"`
	Recommendations []string `json:"recommendations"`
}

type PerformanceAnalysis struct {
	Communication      SkillAssessment        `json:"communication"`
	TechnicalKnowledge SkillAssessment        `json:"technical_knowledge"`
	ProblemSolving     SkillAssessment        `json:"problem_solving"`
	Confidence         ConfidenceAssessment   `json:"confidence"`
	BodyLanguage       BodyLanguageAssessment `json:"body_language"`
}

// QuestionFeedback is the per-question entry of a report.
type QuestionFeedback struct {
	QuestionID   string   `json:"question_id"`
	Question     string   `json:"question"`
	UserResponse string   `json:"user_response"`
	Feedback     string   `json:"feedback"`
	Score        int      `json:"score"`
	Suggestions  []string `json:"suggestions"`
}

type BehavioralInsights struct {
	PauseAnalysis          string `json:"pause_analysis"`
	SpeechPaceAnalysis     string `json:"speech_pace_analysis"`
	ConfidenceAnalysis     string `json:"confidence_analysis"`
	EmotionalStateAnalysis string `json:"emotional_state_analysis"`
}

// Recommendations spans three horizons.
type Recommendations struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

type DetailedFeedback struct {
	OverallScore        int                `json:"overall_score"`
	Summary             string             `json:"summary"`
	KeyStrengths        []string           `json:"key_strengths"`
	AreasForImprovement []string           `json:"areas_for_improvement"`
	SpecificFeedback    []QuestionFeedback `json:"specific_feedback"`
	BehavioralInsights  BehavioralInsights `json:"behavioral_insights"`
	Recommendations     Recommendations    `json:"recommendations"`
}
