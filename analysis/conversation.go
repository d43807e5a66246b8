package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/krshsl/praxis/coach/telemetry"
)

// DefaultConversationTemperature is the sampling temperature for the
// whole-interview analysis.
const DefaultConversationTemperature = 0.3

type CommunicationSubScores struct {
	Clarity         int `json:"clarity"`
	Structure       int `json:"structure"`
	Engagement      int `json:"engagement"`
	Professionalism int `json:"professionalism"`
}

type CommunicationSkills struct {
	Score        int                    `json:"score"`
	Strengths    []string               `json:"strengths"`
	Improvements []string               `json:"improvements"`
	Feedback     string                 `json:"feedback"`
	SubScores    CommunicationSubScores `json:"subScores"`
}

type TechnicalKnowledge struct {
	Score             int      `json:"score"`
	Strengths         []string `json:"strengths"`
	Improvements      []string `json:"improvements"`
	Feedback          string   `json:"feedback"`
	DepthAssessment   string   `json:"depthAssessment"`
	IndustryAlignment string   `json:"industryAlignment"`
}

type ProblemSolving struct {
	Score           int      `json:"score"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Feedback        string   `json:"feedback"`
	CognitiveLoad   string   `json:"cognitiveLoad"`
	InnovationIndex string   `json:"innovationIndex"`
}

type EmotionalIntelligence struct {
	Score               int    `json:"score"`
	SelfAwareness       int    `json:"selfAwareness"`
	SocialSkills        int    `json:"socialSkills"`
	Empathy             int    `json:"empathy"`
	Feedback            string `json:"feedback"`
	LeadershipPotential string `json:"leadershipPotential"`
}

type Confidence struct {
	Score             int      `json:"score"`
	Analysis          string   `json:"analysis"`
	Recommendations   []string `json:"recommendations"`
	AuthenticityIndex string   `json:"authenticityIndex"`
}

type Adaptability struct {
	Score         int      `json:"score"`
	Evidence      []string `json:"evidence"`
	GrowthMindset string   `json:"growthMindset"`
}

type Performance struct {
	CommunicationSkills   CommunicationSkills   `json:"communicationSkills"`
	TechnicalKnowledge    TechnicalKnowledge    `json:"technicalKnowledge"`
	ProblemSolving        ProblemSolving        `json:"problemSolving"`
	EmotionalIntelligence EmotionalIntelligence `json:"emotionalIntelligence"`
	Confidence            Confidence            `json:"confidence"`
	Adaptability          Adaptability          `json:"adaptability"`
}

type BigFiveAssessment struct {
	Openness          string `json:"openness"`
	Conscientiousness string `json:"conscientiousness"`
	Extraversion      string `json:"extraversion"`
	Agreeableness     string `json:"agreeableness"`
	Neuroticism       string `json:"neuroticism"`
}

type PersonalityProfile struct {
	BigFiveAssessment BigFiveAssessment `json:"bigFiveAssessment"`
	WorkStyle         string            `json:"workStyle"`
	MotivationDrivers []string          `json:"motivationDrivers"`
}

type BehavioralInsights struct {
	CognitiveProcessing string `json:"cognitiveProcessing"`
	StressResponse      string `json:"stressResponse"`
	CommunicationStyle  string `json:"communicationStyle"`
	DecisionMaking      string `json:"decisionMaking"`
}

type CompetencyGap struct {
	Competency      string `json:"competency"`
	CurrentLevel    string `json:"currentLevel"`
	RequiredLevel   string `json:"requiredLevel"`
	DevelopmentPath string `json:"developmentPath"`
}

type Recommendations struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"shortTerm"`
	LongTerm  []string `json:"longTerm"`
}

type Feedback struct {
	OverallScore         int                `json:"overallScore"`
	HiringRecommendation string             `json:"hiringRecommendation"`
	Summary              string             `json:"summary"`
	KeyStrengths         []string           `json:"keyStrengths"`
	CriticalConcerns     []string           `json:"criticalConcerns"`
	PersonalityProfile   PersonalityProfile `json:"personalityProfile"`
	BehavioralInsights   BehavioralInsights `json:"behavioralInsights"`
	CompetencyGaps       []CompetencyGap    `json:"competencyGaps"`
	Recommendations      Recommendations    `json:"recommendations"`
	InterviewerNotes     string             `json:"interviewerNotes"`
}

// ConversationAnalysis is the holistic result. Success and fallback share
// this shape; Fallback only marks which one it was.
type ConversationAnalysis struct {
	Performance Performance `json:"performanceAnalysis"`
	Feedback    Feedback    `json:"detailedFeedback"`
	Fallback    bool        `json:"-"`
}

// ConversationAnalyzer scores a whole transcript plus its metrics.
type ConversationAnalyzer struct {
	gen Generator
	settings
}

func NewConversationAnalyzer(gen Generator, opts ...Option) *ConversationAnalyzer {
	return &ConversationAnalyzer{gen: gen, settings: newSettings(DefaultConversationTemperature, opts)}
}

// Analyze never fails. Fields the generator leaves out keep the values the
// metrics-only fallback would have produced; a total failure returns that
// fallback outright.
func (a *ConversationAnalyzer) Analyze(ctx context.Context, in ConversationInput) ConversationAnalysis {
	start := time.Now()
	base := FallbackConversation(in.Metrics, in.JobTitle)

	o, err := a.generate(ctx, a.gen, ConversationPrompt(in))
	if err == nil {
		merged, ok := mergeConversation(base, o)
		if ok {
			merged.Fallback = false
			a.record(telemetry.KindConversation, false, start)
			return merged
		}
		err = errors.Join(ErrAnalysisFailure, errors.New("response has no analysis sections"))
	}

	slog.Warn("Conversation analysis fell back", "error", err, "job_title", in.JobTitle)
	a.record(telemetry.KindConversation, true, start)
	return base
}

// mergeConversation overlays the usable fields of o onto c. It reports false
// when o carries neither top-level section.
func mergeConversation(c ConversationAnalysis, o object) (ConversationAnalysis, bool) {
	pa, hasPerf := o.obj("performanceAnalysis")
	fb, hasFeedback := o.obj("detailedFeedback")
	if !hasPerf && !hasFeedback {
		return c, false
	}

	if hasPerf {
		p := &c.Performance
		if s, ok := pa.obj("communicationSkills"); ok {
			mergeSkill(s, &p.CommunicationSkills.Score, &p.CommunicationSkills.Strengths, &p.CommunicationSkills.Improvements, &p.CommunicationSkills.Feedback)
			if sub, ok := s.obj("subScores"); ok {
				sub.setScore(&p.CommunicationSkills.SubScores.Clarity, "clarity")
				sub.setScore(&p.CommunicationSkills.SubScores.Structure, "structure")
				sub.setScore(&p.CommunicationSkills.SubScores.Engagement, "engagement")
				sub.setScore(&p.CommunicationSkills.SubScores.Professionalism, "professionalism")
			}
		}
		if s, ok := pa.obj("technicalKnowledge"); ok {
			mergeSkill(s, &p.TechnicalKnowledge.Score, &p.TechnicalKnowledge.Strengths, &p.TechnicalKnowledge.Improvements, &p.TechnicalKnowledge.Feedback)
			s.setStr(&p.TechnicalKnowledge.DepthAssessment, "depthAssessment")
			s.setStr(&p.TechnicalKnowledge.IndustryAlignment, "industryAlignment")
		}
		if s, ok := pa.obj("problemSolving"); ok {
			mergeSkill(s, &p.ProblemSolving.Score, &p.ProblemSolving.Strengths, &p.ProblemSolving.Improvements, &p.ProblemSolving.Feedback)
			s.setStr(&p.ProblemSolving.CognitiveLoad, "cognitiveLoad")
			s.setStr(&p.ProblemSolving.InnovationIndex, "innovationIndex")
		}
		if s, ok := pa.obj("emotionalIntelligence"); ok {
			ei := &p.EmotionalIntelligence
			s.setScore(&ei.Score, "score")
			s.setScore(&ei.SelfAwareness, "selfAwareness")
			s.setScore(&ei.SocialSkills, "socialSkills")
			s.setScore(&ei.Empathy, "empathy")
			s.setStr(&ei.Feedback, "feedback")
			s.setStr(&ei.LeadershipPotential, "leadershipPotential")
		}
		if s, ok := pa.obj("confidence"); ok {
			s.setScore(&p.Confidence.Score, "score")
			s.setStr(&p.Confidence.Analysis, "analysis")
			s.setStrs(&p.Confidence.Recommendations, "recommendations")
			s.setStr(&p.Confidence.AuthenticityIndex, "authenticityIndex")
		}
		if s, ok := pa.obj("adaptability"); ok {
			s.setScore(&p.Adaptability.Score, "score")
			s.setStrs(&p.Adaptability.Evidence, "evidence")
			s.setStr(&p.Adaptability.GrowthMindset, "growthMindset")
		}
	}

	if hasFeedback {
		f := &c.Feedback
		fb.setScore(&f.OverallScore, "overallScore")
		fb.setStr(&f.HiringRecommendation, "hiringRecommendation")
		fb.setStr(&f.Summary, "summary")
		fb.setStrs(&f.KeyStrengths, "keyStrengths")
		fb.setStrs(&f.CriticalConcerns, "criticalConcerns")
		if pp, ok := fb.obj("personalityProfile"); ok {
			if b5, ok := pp.obj("bigFiveAssessment"); ok {
				b5.setStr(&f.PersonalityProfile.BigFiveAssessment.Openness, "openness")
				b5.setStr(&f.PersonalityProfile.BigFiveAssessment.Conscientiousness, "conscientiousness")
				b5.setStr(&f.PersonalityProfile.BigFiveAssessment.Extraversion, "extraversion")
				b5.setStr(&f.PersonalityProfile.BigFiveAssessment.Agreeableness, "agreeableness")
				b5.setStr(&f.PersonalityProfile.BigFiveAssessment.Neuroticism, "neuroticism")
			}
			pp.setStr(&f.PersonalityProfile.WorkStyle, "workStyle")
			pp.setStrs(&f.PersonalityProfile.MotivationDrivers, "motivationDrivers")
		}
		if bi, ok := fb.obj("behavioralInsights"); ok {
			bi.setStr(&f.BehavioralInsights.CognitiveProcessing, "cognitiveProcessing")
			bi.setStr(&f.BehavioralInsights.StressResponse, "stressResponse")
			bi.setStr(&f.BehavioralInsights.CommunicationStyle, "communicationStyle")
			bi.setStr(&f.BehavioralInsights.DecisionMaking, "decisionMaking")
		}
		if gaps, ok := competencyGaps(fb); ok {
			f.CompetencyGaps = gaps
		}
		if rec, ok := fb.obj("recommendations"); ok {
			rec.setStrs(&f.Recommendations.Immediate, "immediate")
			rec.setStrs(&f.Recommendations.ShortTerm, "shortTerm")
			rec.setStrs(&f.Recommendations.LongTerm, "longTerm")
		}
		fb.setStr(&f.InterviewerNotes, "interviewerNotes")
	}
	return c, true
}

func mergeSkill(o object, score *int, strengths, improvements *[]string, feedback *string) {
	o.setScore(score, "score")
	o.setStrs(strengths, "strengths")
	o.setStrs(improvements, "improvements")
	o.setStr(feedback, "feedback")
}

func competencyGaps(o object) ([]CompetencyGap, bool) {
	raw, ok := o["competencyGaps"].([]any)
	if !ok {
		return nil, false
	}
	gaps := make([]CompetencyGap, 0, len(raw))
	for _, item := range raw {
		g, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var gap CompetencyGap
		object(g).setStr(&gap.Competency, "competency")
		object(g).setStr(&gap.CurrentLevel, "currentLevel")
		object(g).setStr(&gap.RequiredLevel, "requiredLevel")
		object(g).setStr(&gap.DevelopmentPath, "developmentPath")
		if gap.Competency != "" {
			gaps = append(gaps, gap)
		}
	}
	return gaps, true
}
