package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultCandidateTemperature is the sampling temperature for candidate
// summaries.
const DefaultCandidateTemperature = 0.3

const (
	// resumeInputLen caps how much résumé text is quoted into the prompt.
	resumeInputLen = 8000
	// candidateSummaryFallbackLen bounds the résumé excerpt used when no
	// summary can be generated.
	candidateSummaryFallbackLen = 400
)

// CandidateSummarizer condenses résumé text into the candidate summary the
// interviewer persona is briefed with.
type CandidateSummarizer struct {
	gen Generator
	settings
}

func NewCandidateSummarizer(gen Generator, opts ...Option) *CandidateSummarizer {
	return &CandidateSummarizer{gen: gen, settings: newSettings(DefaultCandidateTemperature, opts)}
}

// Summarize never fails. Blank résumé text yields an empty summary; without a
// usable response it returns the leading part of the résumé.
func (c *CandidateSummarizer) Summarize(ctx context.Context, jobTitle, resumeText string) string {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return ""
	}
	o, err := c.generate(ctx, c.gen, CandidatePrompt(jobTitle, truncateRunes(resumeText, resumeInputLen)))
	if err == nil {
		if summary, ok := o.str("summary"); ok {
			return strings.TrimSpace(summary)
		}
		err = fmt.Errorf("%w: response has no summary", ErrAnalysisFailure)
	}
	slog.Warn("Candidate summary fell back to resume excerpt", "error", err, "job_title", jobTitle)
	return truncateRunes(strings.Join(strings.Fields(resumeText), " "), candidateSummaryFallbackLen)
}

// CandidatePrompt asks for a two to three sentence summary of the candidate's
// skills and experience.
func CandidatePrompt(jobTitle, resumeText string) string {
	return fmt.Sprintf(`Summarize this candidate's resume in 2-3 sentences, focusing on the skills and experience most relevant to a %s position.

Resume:
%s

Respond with JSON only: {"summary": "..."}`, jobTitle, resumeText)
}
