package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/krshsl/praxis/coach/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	kind     string
	fallback bool
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *fakeRecorder) RecordAnalysis(kind string, fallback bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorded{kind, fallback})
}

func reply(text string) Generator {
	return GeneratorFunc(func(context.Context, string, float64) (string, error) {
		return text, nil
	})
}

func failing(err error) Generator {
	return GeneratorFunc(func(context.Context, string, float64) (string, error) {
		return "", err
	})
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", "Here you go:\n{\"a\":1}\nThanks", `{"a":1}`},
		{"whitespace", "  \n{\"a\":1}  ", `{"a":1}`},
		{"trailing prose", "{\"a\":1}\nHope this helps!", `{"a":1}`},
		{"fenced with trailing prose", "```json\n{\"a\":{\"b\":2}}\n```\nLet me know.", `{"a":{"b":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestParseObjectRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not json", "[1,2]", "null", "```json\n```"} {
		_, err := parseObject(in)
		assert.ErrorIs(t, err, ErrAnalysisFailure, "input %q", in)
	}
}

func TestQuestionAnalyzerSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	a := NewQuestionAnalyzer(reply("```json\n"+`{
		"overallScore": 72.4,
		"dimensionScores": {"contentQuality": 80, "strategicThinking": 150},
		"keyStrengths": ["Quantified the latency win"],
		"redFlags": [],
		"improvementStrategy": {"practice": ["Mock system design"]}
	}`+"\n```"), WithRecorder(rec))

	got := a.Analyze(context.Background(), QuestionInput{Question: "Tell me about a project", Response: "I cut p99 by 40%", JobTitle: "SRE"})

	assert.False(t, got.Fallback)
	assert.Equal(t, 72, got.OverallScore)
	assert.Equal(t, 80, got.DimensionScores.ContentQuality)
	assert.Equal(t, 60, got.DimensionScores.CommunicationEffectiveness, "missing dimension keeps default")
	assert.Equal(t, 100, got.DimensionScores.StrategicThinking, "out of range score is clamped")
	assert.Equal(t, 65, got.DimensionScores.CulturalFit)
	assert.Equal(t, []string{"Quantified the latency win"}, got.KeyStrengths)
	assert.Equal(t, QuestionDefaults().CriticalGaps, got.CriticalGaps)
	assert.Empty(t, got.RedFlags)
	assert.Equal(t, []string{"Mock system design"}, got.ImprovementStrategy.Practice)
	assert.Equal(t, QuestionDefaults().ImprovementStrategy.Immediate, got.ImprovementStrategy.Immediate)
	assert.Equal(t, QuestionDefaults().DetailedFeedback, got.DetailedFeedback)
	assert.Equal(t, []recorded{{"question", false}}, rec.calls)
}

func TestQuestionAnalyzerFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{"generator error", failing(errors.New("rate limited"))},
		{"non json", reply("I think the answer was fine.")},
		{"malformed json", reply(`{"overallScore": 70,`)},
		{"no generator", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			got := NewQuestionAnalyzer(tt.gen, WithRecorder(rec)).Analyze(context.Background(), QuestionInput{Question: "Why us?"})
			assert.True(t, got.Fallback)
			assert.Equal(t, 45, got.OverallScore)
			assert.Equal(t, DimensionScores{40, 50, 35, 55}, got.DimensionScores)
			assert.Equal(t, []string{"Generic responses without specific examples"}, got.RedFlags)
			assert.Equal(t, []recorded{{"question", true}}, rec.calls)
		})
	}
}

func TestQuestionAnalyzerTimeout(t *testing.T) {
	slow := GeneratorFunc(func(ctx context.Context, _ string, _ float64) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	start := time.Now()
	got := NewQuestionAnalyzer(slow, WithTimeout(20*time.Millisecond)).Analyze(context.Background(), QuestionInput{})
	assert.True(t, got.Fallback)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQuestionAnalyzerAcceptsProseAroundObject(t *testing.T) {
	for _, text := range []string{
		"{\"overallScore\": 88}\nHope this helps!",
		"Sure: {\"overallScore\": 88} thanks",
	} {
		got := NewQuestionAnalyzer(reply(text)).Analyze(context.Background(), QuestionInput{Question: "Why us?"})
		assert.False(t, got.Fallback, "reply %q", text)
		assert.Equal(t, 88, got.OverallScore, "reply %q", text)
	}
}

func TestQuestionAnalyzerUsesSentinelForMissingResponse(t *testing.T) {
	var prompt string
	var temperature float64
	gen := GeneratorFunc(func(_ context.Context, p string, temp float64) (string, error) {
		prompt, temperature = p, temp
		return `{"overallScore": 50}`, nil
	})
	NewQuestionAnalyzer(gen).Analyze(context.Background(), QuestionInput{Question: "Walk me through a failure", JobTitle: "PM"})
	assert.Contains(t, prompt, `Candidate Response: "No response recorded"`)
	assert.Contains(t, prompt, "Walk me through a failure")
	assert.InDelta(t, DefaultQuestionTemperature, temperature, 1e-9)
}

func scenarioMetrics() models.Metrics {
	return models.Metrics{
		FillerWordsCount:    2,
		AverageResponseTime: 1800,
		ConfidenceScore:     0.82,
		WordsPerMinute:      135,
		TotalPauses:         3,
		AveragePauseLength:  1800,
		LongestPause:        2600,
	}
}

func TestFallbackScenarioLowFillerFastResponse(t *testing.T) {
	m := scenarioMetrics()
	got := FallbackConversation(m, "Backend Engineer")

	// (0.82*60 + 65 + 60) / 3 = 58.07
	assert.Equal(t, 58, FallbackScore(m))
	assert.Equal(t, 58, got.Feedback.OverallScore)
	assert.Equal(t, 58, got.Performance.TechnicalKnowledge.Score)
	assert.Equal(t, 55, got.Performance.CommunicationSkills.Score)
	assert.Equal(t, 55, got.Performance.ProblemSolving.Score)
	assert.Equal(t, CommunicationSubScores{Clarity: 40, Structure: 45, Engagement: 55, Professionalism: 50}, got.Performance.CommunicationSkills.SubScores)
	assert.Equal(t, 49, got.Performance.EmotionalIntelligence.Score)
	assert.Equal(t, 45, got.Performance.EmotionalIntelligence.SelfAwareness)
	assert.Equal(t, 82, got.Performance.Confidence.Score)
	assert.Equal(t, 45, got.Performance.Adaptability.Score)
	assert.Equal(t, "No Hire - Major improvement required before hiring consideration", got.Feedback.HiringRecommendation)
	assert.Empty(t, got.Feedback.CriticalConcerns)
	assert.NotNil(t, got.Feedback.CriticalConcerns)
	assert.Contains(t, got.Performance.CommunicationSkills.Feedback, "Speaking pace of 135 WPM is adequate but needs more confidence.")
	assert.Contains(t, got.Feedback.Summary, "for the Backend Engineer role")
	assert.True(t, got.Fallback)
}

func TestFallbackConcernsAndBranches(t *testing.T) {
	m := models.Metrics{FillerWordsCount: 9, AverageResponseTime: 9000, ConfidenceScore: 0.4}
	got := FallbackConversation(m, "Analyst")

	// (24 + 35 + 40) / 3 = 33
	assert.Equal(t, 33, got.Feedback.OverallScore)
	assert.Equal(t, 35, got.Performance.CommunicationSkills.Score)
	assert.Equal(t, 40, got.Performance.ProblemSolving.Score)
	assert.Len(t, got.Feedback.CriticalConcerns, 3)
	assert.Equal(t, "No Hire - Not suitable for role at current skill level", got.Feedback.HiringRecommendation)
	assert.Contains(t, got.Performance.CommunicationSkills.Feedback, "Needs significant improvement in delivery and presence.")
	assert.Equal(t, "Communication pace appears measured and professional", got.Feedback.BehavioralInsights.CommunicationStyle)
	assert.Equal(t, "Developing", got.Feedback.CompetencyGaps[0].CurrentLevel)
}

func TestHiringLabel(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{81, "Strong Hire - Candidate shows potential but needs significant development"},
		{80, "Hire - Candidate shows potential but needs significant development"},
		{71, "Hire - Candidate shows potential but needs significant development"},
		{70, "Maybe - Major improvement required before hiring consideration"},
		{61, "Maybe - Major improvement required before hiring consideration"},
		{60, "No Hire - Major improvement required before hiring consideration"},
		{50, "No Hire - Not suitable for role at current skill level"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HiringLabel(tt.score), "score %d", tt.score)
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	m := scenarioMetrics()
	assert.Equal(t, FallbackConversation(m, "SRE"), FallbackConversation(m, "SRE"))
}

func TestConversationAnalyzerMergesOverFallback(t *testing.T) {
	rec := &fakeRecorder{}
	gen := reply(`{
		"performanceAnalysis": {
			"communicationSkills": {"score": 71, "subScores": {"clarity": 77}},
			"adaptability": {"score": 62, "evidence": ["Pivoted when the scope changed"]}
		},
		"detailedFeedback": {
			"overallScore": 66,
			"hiringRecommendation": "Maybe - solid fundamentals",
			"criticalConcerns": [],
			"competencyGaps": [{"competency": "System design", "currentLevel": "Intermediate"}, {"currentLevel": "orphan"}],
			"behavioralInsights": {"stressResponse": "Calm under follow-ups"}
		}
	}`)
	in := ConversationInput{Metrics: scenarioMetrics(), JobTitle: "SRE", Enrichment: SyntheticEnrichment(scenarioMetrics())}
	got := NewConversationAnalyzer(gen, WithRecorder(rec)).Analyze(context.Background(), in)
	fallback := FallbackConversation(in.Metrics, in.JobTitle)

	assert.False(t, got.Fallback)
	assert.Equal(t, 71, got.Performance.CommunicationSkills.Score)
	assert.Equal(t, 77, got.Performance.CommunicationSkills.SubScores.Clarity)
	assert.Equal(t, fallback.Performance.CommunicationSkills.SubScores.Structure, got.Performance.CommunicationSkills.SubScores.Structure)
	assert.Equal(t, 62, got.Performance.Adaptability.Score)
	assert.Equal(t, []string{"Pivoted when the scope changed"}, got.Performance.Adaptability.Evidence)
	assert.Equal(t, fallback.Performance.ProblemSolving, got.Performance.ProblemSolving)
	assert.Equal(t, 66, got.Feedback.OverallScore)
	assert.Equal(t, "Maybe - solid fundamentals", got.Feedback.HiringRecommendation)
	assert.Equal(t, []CompetencyGap{{Competency: "System design", CurrentLevel: "Intermediate"}}, got.Feedback.CompetencyGaps)
	assert.Equal(t, "Calm under follow-ups", got.Feedback.BehavioralInsights.StressResponse)
	assert.Equal(t, fallback.Feedback.BehavioralInsights.DecisionMaking, got.Feedback.BehavioralInsights.DecisionMaking)
	assert.Equal(t, fallback.Feedback.Recommendations, got.Feedback.Recommendations)
	assert.Equal(t, []recorded{{"conversation", false}}, rec.calls)
}

func TestConversationAnalyzerFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
	}{
		{"generator error", failing(errors.New("boom"))},
		{"unrelated object", reply(`{"answer": "great candidate"}`)},
		{"truncated", reply(`{"performanceAnalysis": {`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ConversationInput{Metrics: scenarioMetrics(), JobTitle: "SRE"}
			got := NewConversationAnalyzer(tt.gen).Analyze(context.Background(), in)
			assert.True(t, got.Fallback)
			assert.Equal(t, FallbackConversation(in.Metrics, in.JobTitle), got)
		})
	}
}

func TestSyntheticEnrichment(t *testing.T) {
	high := SyntheticEnrichment(models.Metrics{ConfidenceScore: 0.9, FillerWordsCount: 1, AverageResponseTime: 1500})
	assert.True(t, high.Synthetic)
	assert.Equal(t, "confidence", high.DominantEmotions[1].Emotion)
	assert.Equal(t, []string{"confident", "articulate", "quick-thinking"}, high.Traits)
	assert.Equal(t, ValenceArousal{Valence: 0.6, Arousal: 0.5}, high.ValenceArousal)
	assert.Equal(t, BigFive{Openness: 0.7, Conscientiousness: 0.8, Extraversion: 0.7, Agreeableness: 0.6, Neuroticism: 0.3}, high.BigFive)
	assert.InDelta(t, 0.72, high.Behavior.EyeContact, 1e-9)
	assert.InDelta(t, 0.9, high.EmotionTimeline[1].Intensity, 1e-9)

	low := SyntheticEnrichment(models.Metrics{ConfidenceScore: 0.4, FillerWordsCount: 7, AverageResponseTime: 4000})
	assert.Equal(t, "nervousness", low.DominantEmotions[1].Emotion)
	assert.Equal(t, []string{"developing-confidence", "needs-communication-practice", "deliberate"}, low.Traits)
	assert.Equal(t, ValenceArousal{Valence: 0.4, Arousal: 0.7}, low.ValenceArousal)
	assert.Equal(t, BigFive{Openness: 0.6, Conscientiousness: 0.6, Extraversion: 0.5, Agreeableness: 0.6, Neuroticism: 0.7}, low.BigFive)
	assert.Equal(t, 0.6, low.Behavior.EmotionalStability)
}

func TestConversationPromptCarriesMetricsAndEnrichment(t *testing.T) {
	m := scenarioMetrics()
	m.TotalDuration = 600000
	m.UserSpeakingTime = 240000
	prompt := ConversationPrompt(ConversationInput{
		Messages:   []models.Message{{Sender: models.SenderInterviewer, Text: "Why this role?"}, {Sender: models.SenderUser, Text: "Because of scale."}},
		Metrics:    m,
		JobTitle:   "SRE",
		Enrichment: SyntheticEnrichment(m),
	})
	for _, want := range []string{
		"interviewer: Why this role?\nuser: Because of scale.\n",
		"- Interview Duration: 10 minutes",
		"- Speaking Time: 240 seconds (40% of total)",
		"- Pause Analysis: 3 pauses, avg 1800ms, longest 2600ms",
		"- Confidence Index: 82%",
		"confidence (30%)",
		"inferred from audio metrics",
		"Return ONLY valid JSON",
	} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q", want)
	}
}

func TestGenerateJoinsAnalysisFailure(t *testing.T) {
	s := newSettings(0.3, nil)
	_, err := s.generate(context.Background(), failing(errors.New("quota")), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailure)
	assert.Contains(t, err.Error(), "quota")
}
