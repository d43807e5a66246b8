package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/krshsl/praxis/coach/models"
)

// QuestionPrompt asks for a STAR-based score of one answer.
func QuestionPrompt(in QuestionInput) string {
	return fmt.Sprintf(`You are a senior executive interview coach with 15+ years of experience coaching candidates for %[1]s positions at Fortune 500 companies. You have deep expertise in behavioral psychology, communication analysis, and industry-specific competency assessment.

CONTEXT:
- Job Title: %[1]s
- Candidate Background: %[2]s
- Interview Question: "%[3]s"
- Candidate Response: "%[4]s"

ANALYSIS FRAMEWORK:
Analyze this Q&A using the STAR method (Situation, Task, Action, Result) and behavioral competency frameworks. Evaluate:
1. Content Quality (40%%): relevance, specific quantifiable examples, demonstrated competencies, industry knowledge.
2. Communication Effectiveness (30%%): clarity and structure, storytelling, confidence, professional language.
3. Strategic Thinking (20%%): problem-solving approach, strategic vs tactical thinking, business impact awareness.
4. Cultural Fit Indicators (10%%): values alignment, collaboration, leadership potential, growth mindset.

STRICT SCORING GUIDELINES:
- 90-100: EXCEPTIONAL - top 1%% of candidates
- 80-89: EXCELLENT - top 5%% of candidates
- 70-79: GOOD - solid performer with growth potential
- 60-69: AVERAGE - meets basic requirements but significant gaps exist
- 50-59: BELOW AVERAGE - major improvement needed before hiring
- 0-49: POOR - fundamental skills missing
Most candidates should score in the 50-70 range unless truly exceptional.

Respond with JSON only:
{
  "overallScore": 0-100,
  "dimensionScores": {
    "contentQuality": 0-100,
    "communicationEffectiveness": 0-100,
    "strategicThinking": 0-100,
    "culturalFit": 0-100
  },
  "detailedFeedback": "150-200 word analysis of strengths, weaknesses, structure and relevance",
  "keyStrengths": ["specific strength with example"],
  "criticalGaps": ["specific gap with impact"],
  "improvementStrategy": {
    "immediate": ["actionable tip"],
    "practice": ["practice exercise"],
    "resources": ["recommended resource or framework"]
  },
  "benchmarkComparison": "how this response compares to typical %[1]s candidates",
  "redFlags": ["concerning patterns that could hurt candidacy"],
  "starMethodAlignment": "how well the response follows STAR"
}`, in.JobTitle, in.CandidateSummary, in.Question, in.Response)
}

// ConversationInput is everything the holistic analysis sees.
type ConversationInput struct {
	Messages         []models.Message
	Metrics          models.Metrics
	JobTitle         string
	CandidateSummary string
	RoleSummary      string
	Enrichment       Enrichment
}

// ConversationPrompt asks for the nested whole-interview analysis.
func ConversationPrompt(in ConversationInput) string {
	var transcript strings.Builder
	for _, msg := range in.Messages {
		transcript.WriteString(fmt.Sprintf("%s: %s\n", msg.Sender, msg.Text))
	}

	m := in.Metrics
	speakingShare := 0
	if m.TotalDuration > 0 {
		speakingShare = jsRound(m.UserSpeakingTime / m.TotalDuration * 100)
	}

	var b strings.Builder
	b.WriteString("You are an expert interview coach. Provide detailed, constructive feedback in valid JSON format only.\n\n")
	b.WriteString(fmt.Sprintf("You are a world-class executive interview coach and industrial psychologist assessing candidates for %s positions.\n\n", in.JobTitle))
	b.WriteString("CANDIDATE PROFILE:\n")
	b.WriteString(fmt.Sprintf("- Target Role: %s\n- Background: %s\n- Role Requirements: %s\n\n", in.JobTitle, in.CandidateSummary, in.RoleSummary))
	b.WriteString("INTERVIEW TRANSCRIPT:\n")
	b.WriteString(transcript.String())
	b.WriteString("\nBEHAVIORAL METRICS:\n")
	b.WriteString(fmt.Sprintf("- Interview Duration: %d minutes\n", jsRound(m.TotalDuration/1000/60)))
	b.WriteString(fmt.Sprintf("- Speaking Time: %d seconds (%d%% of total)\n", jsRound(m.UserSpeakingTime/1000), speakingShare))
	b.WriteString(fmt.Sprintf("- Pause Analysis: %d pauses, avg %sms, longest %sms\n", m.TotalPauses, formatNumber(m.AveragePauseLength), formatNumber(m.LongestPause)))
	b.WriteString(fmt.Sprintf("- Response Latency: %sms average\n", formatNumber(m.AverageResponseTime)))
	b.WriteString(fmt.Sprintf("- Speech Rate: %d WPM\n", m.WordsPerMinute))
	b.WriteString(fmt.Sprintf("- Fluency: %d filler words detected\n", m.FillerWordsCount))
	b.WriteString(fmt.Sprintf("- Confidence Index: %d%%\n\n", jsRound(m.ConfidenceScore*100)))
	b.WriteString(enrichmentSection(in.Enrichment))
	b.WriteString(conversationSchema)
	b.WriteString(fmt.Sprintf("\nReference %s role requirements and industry standards. Be extremely demanding: most candidates should score 40-65, award 70+ only for genuinely impressive responses, and back every score with evidence from the transcript.\n\n", in.JobTitle))
	b.WriteString("IMPORTANT: Return ONLY valid JSON, no additional text or formatting.")
	return b.String()
}

func enrichmentSection(e Enrichment) string {
	var b strings.Builder
	if e.Synthetic {
		b.WriteString("VIDEO EMOTION ANALYSIS (inferred from audio metrics, no video available):\n")
	} else {
		b.WriteString("VIDEO EMOTION ANALYSIS:\n")
	}

	emotions := make([]string, 0, len(e.DominantEmotions))
	for _, em := range e.DominantEmotions {
		emotions = append(emotions, fmt.Sprintf("%s (%d%%)", em.Emotion, jsRound(em.Confidence*100)))
	}
	traits := "Not available"
	if len(e.Traits) > 0 {
		traits = strings.Join(e.Traits, ", ")
	}

	b.WriteString(fmt.Sprintf("- Dominant Emotions: %s\n", strings.Join(emotions, ", ")))
	b.WriteString(fmt.Sprintf("- Emotional Valence: %d%% (positive/negative sentiment)\n", percentOrHalf(e.ValenceArousal.Valence)))
	b.WriteString(fmt.Sprintf("- Emotional Arousal: %d%% (energy/activation level)\n", percentOrHalf(e.ValenceArousal.Arousal)))
	b.WriteString(fmt.Sprintf("- Eye Contact Quality: %d%%\n", percentOrHalf(e.Behavior.EyeContact)))
	b.WriteString(fmt.Sprintf("- Emotional Stability: %d%%\n", percentOrHalf(e.Behavior.EmotionalStability)))
	b.WriteString(fmt.Sprintf("- Authenticity Index: %d%%\n", percentOrHalf(e.Behavior.Authenticity)))
	b.WriteString(fmt.Sprintf("- Personality Traits: %s\n", traits))
	b.WriteString("- Big Five Personality:\n")
	b.WriteString(fmt.Sprintf("  * Openness: %d%%\n", percentOrHalf(e.BigFive.Openness)))
	b.WriteString(fmt.Sprintf("  * Conscientiousness: %d%%\n", percentOrHalf(e.BigFive.Conscientiousness)))
	b.WriteString(fmt.Sprintf("  * Extraversion: %d%%\n", percentOrHalf(e.BigFive.Extraversion)))
	b.WriteString(fmt.Sprintf("  * Agreeableness: %d%%\n", percentOrHalf(e.BigFive.Agreeableness)))
	b.WriteString(fmt.Sprintf("  * Neuroticism: %d%%\n\n", percentOrHalf(e.BigFive.Neuroticism)))
	return b.String()
}

// percentOrHalf treats an unset signal as neutral.
func percentOrHalf(v float64) int {
	if v == 0 {
		v = 0.5
	}
	return jsRound(v * 100)
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const conversationSchema = `PROVIDE COMPREHENSIVE ANALYSIS AS JSON:
{
  "performanceAnalysis": {
    "communicationSkills": {
      "score": 0-100,
      "strengths": ["strength with evidence"],
      "improvements": ["improvement with rationale"],
      "feedback": "100+ word analysis of clarity, persuasiveness and professional presence",
      "subScores": {"clarity": 0-100, "structure": 0-100, "engagement": 0-100, "professionalism": 0-100}
    },
    "technicalKnowledge": {
      "score": 0-100,
      "strengths": ["technical strength demonstrated"],
      "improvements": ["technical gap identified"],
      "feedback": "technical competency and role-specific expertise",
      "depthAssessment": "depth vs breadth for the role level",
      "industryAlignment": "alignment with industry standards"
    },
    "problemSolving": {
      "score": 0-100,
      "strengths": ["problem-solving approach shown"],
      "improvements": ["thinking process to improve"],
      "feedback": "logical reasoning, creativity and solution quality",
      "cognitiveLoad": "handling of complex problems under pressure",
      "innovationIndex": "evidence of creative thinking"
    },
    "emotionalIntelligence": {
      "score": 0-100,
      "selfAwareness": 0-100,
      "socialSkills": 0-100,
      "empathy": 0-100,
      "feedback": "emotional maturity and interpersonal skills",
      "leadershipPotential": "evidence of leadership qualities"
    },
    "confidence": {
      "score": 0-100,
      "analysis": "confidence level, authenticity vs overconfidence, presence",
      "recommendations": ["confidence-building strategy"],
      "authenticityIndex": "genuine vs projected confidence"
    },
    "adaptability": {
      "score": 0-100,
      "evidence": ["example of adaptability"],
      "growthMindset": "learning orientation and resilience"
    }
  },
  "detailedFeedback": {
    "overallScore": 0-100,
    "hiringRecommendation": "Strong Hire / Hire / Maybe / No Hire with rationale",
    "summary": "200+ word executive summary of performance, potential and fit",
    "keyStrengths": ["strength with evidence and impact"],
    "criticalConcerns": ["concern with evidence and impact"],
    "personalityProfile": {
      "bigFiveAssessment": {"openness": "", "conscientiousness": "", "extraversion": "", "agreeableness": "", "neuroticism": ""},
      "workStyle": "predicted work style and team dynamics",
      "motivationDrivers": ["key motivator"]
    },
    "behavioralInsights": {
      "cognitiveProcessing": "thinking speed and mental agility from response times and pauses",
      "stressResponse": "handling of pressure from speech patterns",
      "communicationStyle": "communication patterns and influence style",
      "decisionMaking": "decision-making process and judgment quality"
    },
    "competencyGaps": [
      {"competency": "", "currentLevel": "", "requiredLevel": "", "developmentPath": ""}
    ],
    "recommendations": {
      "immediate": ["action with timeline and expected outcome"],
      "shortTerm": ["30-90 day development goal"],
      "longTerm": ["6-12 month development area"]
    },
    "interviewerNotes": "what a hiring manager should know about potential, risks and onboarding"
  }
}
`
