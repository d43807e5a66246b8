package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultMentorName is used on reports when the interview has no resolvable persona.
const DefaultMentorName = "AI Interviewer"

// Persona is an interviewer character assigned to an interview.
type Persona struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Personality string         `gorm:"type:text;not null" json:"personality"`
	Industry    string         `gorm:"size:100" json:"industry,omitempty"`
	Level       string         `gorm:"size:50" json:"level,omitempty"` // junior, mid, senior, executive
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Persona) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
