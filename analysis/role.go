package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultRoleTemperature is the sampling temperature for role summaries.
const DefaultRoleTemperature = 0.3

// roleSummaryFallbackLen bounds the description excerpt used when no summary
// can be generated.
const roleSummaryFallbackLen = 400

// RoleSummarizer condenses a job posting into the short role summary the
// conversation prompt quotes.
type RoleSummarizer struct {
	gen Generator
	settings
}

func NewRoleSummarizer(gen Generator, opts ...Option) *RoleSummarizer {
	return &RoleSummarizer{gen: gen, settings: newSettings(DefaultRoleTemperature, opts)}
}

// Summarize never fails. Without a usable response it returns the leading
// part of the description.
func (r *RoleSummarizer) Summarize(ctx context.Context, jobTitle, jobDescription string) string {
	o, err := r.generate(ctx, r.gen, RolePrompt(jobTitle, jobDescription))
	if err == nil {
		if summary, ok := o.str("summary"); ok {
			return strings.TrimSpace(summary)
		}
		err = fmt.Errorf("%w: response has no summary", ErrAnalysisFailure)
	}
	slog.Warn("Role summary fell back to description excerpt", "error", err, "job_title", jobTitle)
	return truncateRunes(strings.TrimSpace(jobDescription), roleSummaryFallbackLen)
}

// RolePrompt asks for a two to three sentence summary of the role.
func RolePrompt(jobTitle, jobDescription string) string {
	if strings.TrimSpace(jobDescription) == "" {
		return fmt.Sprintf(`Provide a brief summary (2-3 sentences) of typical requirements and responsibilities for a %s position.

Respond with JSON only: {"summary": "..."}`, jobTitle)
	}
	return fmt.Sprintf(`Analyze this job posting and provide a concise summary (2-3 sentences) highlighting the key requirements, responsibilities, and what the ideal candidate should have.

Job Title: %s
Job Description: %s

Respond with JSON only: {"summary": "..."}`, jobTitle, jobDescription)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
