package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
	"golang.org/x/crypto/bcrypt"
)

const demoUserEmail = "demo@example.com"

// DefaultPersonas are the interviewers available out of the box.
var DefaultPersonas = []models.Persona{
	{
		Name:        "Sarah Chen",
		Description: "Experienced technical recruiter specializing in software engineering roles",
		Personality: "Professional, encouraging, and detail-oriented. Asks thoughtful technical questions and provides constructive feedback.",
		Industry:    "Technology",
		Level:       "senior",
		IsActive:    true,
	},
	{
		Name:        "Marcus Johnson",
		Description: "Senior product manager with expertise in product strategy and team leadership",
		Personality: "Strategic thinker who focuses on product vision, user experience, and cross-functional collaboration.",
		Industry:    "Product Management",
		Level:       "senior",
		IsActive:    true,
	},
	{
		Name:        "Dr. Emily Rodriguez",
		Description: "Lead data scientist with expertise in machine learning and statistical analysis",
		Personality: "Analytical and methodical, focuses on problem-solving approach and technical depth.",
		Industry:    "Data Science",
		Level:       "senior",
		IsActive:    true,
	},
	{
		Name:        "Lisa Wang",
		Description: "Senior backend engineer specializing in distributed systems and cloud architecture",
		Personality: "Systematic and performance-oriented, focuses on scalability, security, and system design principles.",
		Industry:    "Backend Development",
		Level:       "senior",
		IsActive:    true,
	},
	{
		Name:        "David Kim",
		Description: "Engineering director who runs leadership and behavioral interviews",
		Personality: "Direct and demanding. Presses for ownership, measurable impact, and how the candidate handles conflict.",
		Industry:    "General",
		Level:       "executive",
		IsActive:    true,
	},
}

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	store repository.Store
}

func NewDatabaseSeeder(store repository.Store) *DatabaseSeeder {
	return &DatabaseSeeder{store: store}
}

// SeedDatabase seeds personas and a demo user. It is idempotent: records are
// matched by persona name and user email.
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	for _, persona := range DefaultPersonas {
		if err := s.seedPersona(ctx, persona); err != nil {
			return err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.seedUser(ctx, models.User{
		Email:    demoUserEmail,
		Password: string(hashedPassword),
		FullName: "Demo User",
		Role:     "user",
	}); err != nil {
		return err
	}

	slog.Info("Database seeding completed successfully", "personas", len(DefaultPersonas))
	return nil
}

func (s *DatabaseSeeder) seedUser(ctx context.Context, user models.User) error {
	existingUser, err := s.store.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", user.Email, err)
	}
	if existingUser != nil {
		slog.Debug("User already exists, skipping", "email", user.Email)
		return nil
	}

	if err := s.store.CreateUser(ctx, &user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	slog.Info("Created user", "email", user.Email)
	return nil
}

func (s *DatabaseSeeder) seedPersona(ctx context.Context, persona models.Persona) error {
	existing, err := s.store.GetPersonaByName(ctx, persona.Name)
	if err != nil {
		return fmt.Errorf("error checking persona %s: %w", persona.Name, err)
	}
	if existing != nil {
		slog.Debug("Persona already exists, skipping", "name", persona.Name)
		return nil
	}

	if err := s.store.CreatePersona(ctx, &persona); err != nil {
		return fmt.Errorf("failed to create persona %s: %w", persona.Name, err)
	}
	slog.Info("Created persona", "name", persona.Name, "id", persona.ID)
	return nil
}
