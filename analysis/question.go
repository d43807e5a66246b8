package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/krshsl/praxis/coach/telemetry"
)

// NoResponseRecorded stands in for a question the candidate never answered.
const NoResponseRecorded = "No response recorded"

// DefaultQuestionTemperature is the sampling temperature for per-question scoring.
const DefaultQuestionTemperature = 0.4

type QuestionInput struct {
	Question         string
	Response         string
	JobTitle         string
	CandidateSummary string
}

type DimensionScores struct {
	ContentQuality             int `json:"contentQuality"`
	CommunicationEffectiveness int `json:"communicationEffectiveness"`
	StrategicThinking          int `json:"strategicThinking"`
	CulturalFit                int `json:"culturalFit"`
}

type ImprovementStrategy struct {
	Immediate []string `json:"immediate"`
	Practice  []string `json:"practice"`
	Resources []string `json:"resources"`
}

// QuestionAnalysis scores one question/answer pair. Fallback is set when the
// result was substituted locally; it is not part of the serialized shape.
type QuestionAnalysis struct {
	OverallScore        int                 `json:"overallScore"`
	DimensionScores     DimensionScores     `json:"dimensionScores"`
	DetailedFeedback    string              `json:"detailedFeedback"`
	KeyStrengths        []string            `json:"keyStrengths"`
	CriticalGaps        []string            `json:"criticalGaps"`
	ImprovementStrategy ImprovementStrategy `json:"improvementStrategy"`
	BenchmarkComparison string              `json:"benchmarkComparison"`
	RedFlags            []string            `json:"redFlags"`
	StarMethodAlignment string              `json:"starMethodAlignment"`
	Fallback            bool                `json:"-"`
}

// QuestionDefaults fills fields a successful response left out.
func QuestionDefaults() QuestionAnalysis {
	return QuestionAnalysis{
		OverallScore: 55,
		DimensionScores: DimensionScores{
			ContentQuality:             50,
			CommunicationEffectiveness: 60,
			StrategicThinking:          45,
			CulturalFit:                65,
		},
		DetailedFeedback: "Response demonstrates basic understanding of the question with room for more specific examples and structured approach.",
		KeyStrengths:     []string{"Clear communication", "Relevant experience mentioned"},
		CriticalGaps:     []string{"Lacks specific quantifiable examples", "Could improve STAR method structure"},
		ImprovementStrategy: ImprovementStrategy{
			Immediate: []string{"Practice STAR method structure", "Prepare specific metrics and examples"},
			Practice:  []string{"Record mock answers and review", "Practice with industry-specific scenarios"},
			Resources: []string{"STAR method framework", "Industry competency guides"},
		},
		BenchmarkComparison: "Below average - significant improvement needed to compete with top candidates",
		RedFlags:            []string{},
		StarMethodAlignment: "Partial alignment with STAR methodology",
	}
}

// QuestionFallback is returned whenever the generator cannot be used.
func QuestionFallback() QuestionAnalysis {
	return QuestionAnalysis{
		OverallScore: 45,
		DimensionScores: DimensionScores{
			ContentQuality:             40,
			CommunicationEffectiveness: 50,
			StrategicThinking:          35,
			CulturalFit:                55,
		},
		DetailedFeedback: "Your response demonstrates basic understanding of the question. To strengthen your answer, focus on providing specific, quantifiable examples using the STAR method (Situation, Task, Action, Result). Consider how your experience directly relates to the role requirements and articulate the business impact of your actions.",
		KeyStrengths:     []string{"Shows relevant experience", "Communicates clearly"},
		CriticalGaps:     []string{"Needs more specific examples", "Could improve structure using STAR method"},
		ImprovementStrategy: ImprovementStrategy{
			Immediate: []string{"Prepare 3-5 STAR stories for common questions", "Practice quantifying achievements"},
			Practice:  []string{"Record yourself answering questions", "Time your responses (aim for 2-3 minutes)"},
			Resources: []string{"STAR method guide", "Industry-specific interview preparation"},
		},
		BenchmarkComparison: "Well below average - major gaps in preparation, structure, and executive presence",
		RedFlags:            []string{"Generic responses without specific examples"},
		StarMethodAlignment: "Limited structure - recommend practicing STAR methodology",
		Fallback:            true,
	}
}

// QuestionAnalyzer scores single question/answer pairs.
type QuestionAnalyzer struct {
	gen Generator
	settings
}

func NewQuestionAnalyzer(gen Generator, opts ...Option) *QuestionAnalyzer {
	return &QuestionAnalyzer{gen: gen, settings: newSettings(DefaultQuestionTemperature, opts)}
}

// Analyze never fails: any generator or parse error yields QuestionFallback.
func (a *QuestionAnalyzer) Analyze(ctx context.Context, in QuestionInput) QuestionAnalysis {
	start := time.Now()
	if in.Response == "" {
		in.Response = NoResponseRecorded
	}

	o, err := a.generate(ctx, a.gen, QuestionPrompt(in))
	if err != nil {
		slog.Warn("Question analysis fell back", "error", err, "job_title", in.JobTitle)
		a.record(telemetry.KindQuestion, true, start)
		return QuestionFallback()
	}

	result := mergeQuestion(o)
	a.record(telemetry.KindQuestion, false, start)
	return result
}

func mergeQuestion(o object) QuestionAnalysis {
	q := QuestionDefaults()
	o.setScore(&q.OverallScore, "overallScore")
	if dims, ok := o.obj("dimensionScores"); ok {
		dims.setScore(&q.DimensionScores.ContentQuality, "contentQuality")
		dims.setScore(&q.DimensionScores.CommunicationEffectiveness, "communicationEffectiveness")
		dims.setScore(&q.DimensionScores.StrategicThinking, "strategicThinking")
		dims.setScore(&q.DimensionScores.CulturalFit, "culturalFit")
	}
	o.setStr(&q.DetailedFeedback, "detailedFeedback")
	o.setStrs(&q.KeyStrengths, "keyStrengths")
	o.setStrs(&q.CriticalGaps, "criticalGaps")
	if plan, ok := o.obj("improvementStrategy"); ok {
		plan.setStrs(&q.ImprovementStrategy.Immediate, "immediate")
		plan.setStrs(&q.ImprovementStrategy.Practice, "practice")
		plan.setStrs(&q.ImprovementStrategy.Resources, "resources")
	}
	o.setStr(&q.BenchmarkComparison, "benchmarkComparison")
	o.setStrs(&q.RedFlags, "redFlags")
	o.setStr(&q.StarMethodAlignment, "starMethodAlignment")
	return q
}
