package analysis

import (
	"fmt"

	"github.com/krshsl/praxis/coach/models"
)

// Fallback thresholds. Response times are milliseconds.
const (
	lowFillerThreshold      = 3
	clearSpeechFillers      = 2
	fluentFillerThreshold   = 5
	highFillerConcern       = 8
	fastResponseMs          = 2000
	quickThinkingMs         = 3000
	slowResponseMs          = 5000
	slowResponseConcernMs   = 8000
	longPauseMs             = 5000
	engagedConfidence       = 0.8
	confidentThreshold      = 0.7
	collaborativeConfidence = 0.6
	lowConfidenceConcern    = 0.5
	fastSpeechWPM           = 150
	slowSpeechWPM           = 120
)

// FallbackScore is the rounded mean of three metric-derived terms:
// confidence×60, 65 or 35 by filler count, and 60 or 40 by response time.
func FallbackScore(m models.Metrics) int {
	fillerTerm := pick(m.FillerWordsCount < lowFillerThreshold, 65.0, 35.0)
	responseTerm := pick(m.AverageResponseTime < fastResponseMs, 60.0, 40.0)
	return jsRound((m.ConfidenceScore*60 + fillerTerm + responseTerm) / 3)
}

// HiringLabel maps an overall score to a recommendation with its rationale.
func HiringLabel(score int) string {
	label := "No Hire"
	switch {
	case score > 80:
		label = "Strong Hire"
	case score > 70:
		label = "Hire"
	case score > 60:
		label = "Maybe"
	}
	rationale := "Not suitable for role at current skill level"
	switch {
	case score > 70:
		rationale = "Candidate shows potential but needs significant development"
	case score > 50:
		rationale = "Major improvement required before hiring consideration"
	}
	return label + " - " + rationale
}

// FallbackConversation is a pure function of the metrics and role title.
func FallbackConversation(m models.Metrics, jobTitle string) ConversationAnalysis {
	score := FallbackScore(m)
	conf := m.ConfidenceScore
	fillers := m.FillerWordsCount
	resp := m.AverageResponseTime
	quick := resp < quickThinkingMs
	confident := conf > confidentThreshold
	fluent := fillers < fluentFillerThreshold

	return ConversationAnalysis{
		Performance: Performance{
			CommunicationSkills:   fallbackCommunication(m),
			TechnicalKnowledge:    fallbackTechnical(score),
			ProblemSolving:        fallbackProblemSolving(resp),
			EmotionalIntelligence: fallbackEmotionalIntelligence(conf),
			Confidence:            fallbackConfidence(m),
			Adaptability: Adaptability{
				Score:         45,
				Evidence:      []string{"Shows openness to feedback", "Demonstrates learning orientation"},
				GrowthMindset: "Appears to have growth mindset but needs more evidence of adaptability in challenging situations",
			},
		},
		Feedback: Feedback{
			OverallScore:         score,
			HiringRecommendation: HiringLabel(score),
			Summary: fmt.Sprintf("Interview performance demonstrates %s for the %s role. Key observations include %s, %s, and %s. The candidate shows %s but would benefit from targeted development in specific areas to reach full effectiveness in the role.",
				pick(score > 80, "strong competency", pick(score > 70, "adequate capability", "developing skills")),
				jobTitle,
				pick(confident, "confident presentation", "developing confidence"),
				pick(fluent, "clear communication", "communication that needs refinement"),
				pick(quick, "quick analytical processing", "thoughtful but slower response patterns"),
				pick(score > 70, "promise", "potential"),
			),
			KeyStrengths: []string{
				pick(confident, "Strong executive presence and confidence", "Professional demeanor and basic competency"),
				pick(fluent, "Clear, articulate communication with minimal hesitation", "Understandable communication with room for improvement"),
				pick(quick, "Quick analytical thinking and problem-solving agility", "Thoughtful, deliberate approach to complex questions"),
			},
			CriticalConcerns: fallbackConcerns(m),
			PersonalityProfile: PersonalityProfile{
				BigFiveAssessment: BigFiveAssessment{
					Openness:          pick(confident, "High - shows curiosity and openness to new experiences", "Moderate - some openness but may prefer familiar approaches"),
					Conscientiousness: pick(score > 75, "High - demonstrates preparation and attention to detail", "Moderate - shows basic organization but could improve preparation"),
					Extraversion:      pick(conf > collaborativeConfidence, "Moderate to High - comfortable in social interactions", "Low to Moderate - may prefer smaller group interactions"),
					Agreeableness:     "Moderate - appears collaborative but needs more evidence",
					Neuroticism:       pick(confident, "Low - appears emotionally stable", "Moderate - some signs of stress under pressure"),
				},
				WorkStyle: fmt.Sprintf("Likely %s work style with %s tendencies",
					pick(quick, "fast-paced, decisive", "deliberate, thorough"),
					pick(conf > collaborativeConfidence, "collaborative", "independent")),
				MotivationDrivers: []string{"Professional growth and development", "Achievement and recognition"},
			},
			BehavioralInsights: fallbackInsights(m),
			CompetencyGaps: []CompetencyGap{
				{
					Competency:      "Communication Excellence",
					CurrentLevel:    pick(fluent, "Proficient", "Developing"),
					RequiredLevel:   "Expert",
					DevelopmentPath: "Practice structured storytelling, reduce filler words, enhance executive presence",
				},
				{
					Competency:      "Technical Expertise",
					CurrentLevel:    "Adequate",
					RequiredLevel:   "Advanced",
					DevelopmentPath: "Deepen technical knowledge, prepare specific examples, study industry trends",
				},
			},
			Recommendations: Recommendations{
				Immediate: []string{
					pick(fillers >= fluentFillerThreshold,
						"Practice 2-minute elevator pitches daily to reduce filler words and improve fluency",
						"Prepare 5-7 STAR method stories with quantifiable results"),
					pick(resp > slowResponseMs,
						"Practice rapid-fire interview questions to improve response speed (target <3 seconds)",
						"Focus on adding more specific metrics and business impact to responses"),
				},
				ShortTerm: []string{
					pick(conf < confidentThreshold,
						"30-day confidence building program: daily power posing, mock interviews, public speaking practice",
						"60-day technical skill enhancement: complete 2-3 relevant certifications or courses"),
					"Join professional associations and practice networking to build industry presence and knowledge",
				},
				LongTerm: []string{
					"6-month leadership development program focusing on executive presence and strategic thinking",
					"Build personal brand through thought leadership content and speaking opportunities",
				},
			},
			InterviewerNotes: fmt.Sprintf("Candidate shows %s for %s role. %s. %s. Recommend %s. Risk factors: %s.",
				pick(score > 75, "strong potential", "developing capability"),
				jobTitle,
				pick(confident, "High confidence and presence", "Confidence needs development"),
				pick(fluent, "Strong communicator", "Communication skills need refinement"),
				pick(score > 75, "standard onboarding with focus on technical depth", "extended onboarding with communication coaching and confidence building"),
				pick(resp > slowResponseConcernMs, "slow decision-making under pressure", "minimal risks identified"),
			),
		},
		Fallback: true,
	}
}

func fallbackCommunication(m models.Metrics) CommunicationSkills {
	low := m.FillerWordsCount < lowFillerThreshold
	c := CommunicationSkills{
		Score: pick(low, 55, 35),
		Strengths: pick(low,
			[]string{"Minimal hesitation in speech", "Basic professional language"},
			[]string{"Understandable communication", "Shows effort to communicate"}),
		Improvements: pick(low,
			[]string{"Add specific quantifiable examples", "Develop persuasive storytelling", "Practice advanced communication techniques"},
			[]string{"Eliminate filler words completely", "Practice executive-level communication", "Develop confident speaking presence"}),
		SubScores: CommunicationSubScores{
			Clarity:         pick(m.FillerWordsCount < clearSpeechFillers, 60, 40),
			Structure:       45,
			Engagement:      pick(m.ConfidenceScore > engagedConfidence, 55, 35),
			Professionalism: 50,
		},
	}

	pace := "Needs significant improvement in delivery and presence."
	if wpm := m.WordsPerMinute; wpm != 0 {
		verdict := "is adequate but needs more confidence"
		switch {
		case wpm > fastSpeechWPM:
			verdict = "may be too fast for executive presence"
		case wpm < slowSpeechWPM:
			verdict = "is too slow for professional settings"
		}
		pace = fmt.Sprintf("Speaking pace of %d WPM %s.", wpm, verdict)
	}
	c.Feedback = fmt.Sprintf("Communication shows %s with %d filler words detected. %s",
		pick(low, "basic competency but lacks executive polish", "significant room for improvement"),
		m.FillerWordsCount, pace)
	return c
}

func fallbackTechnical(score int) TechnicalKnowledge {
	return TechnicalKnowledge{
		Score:             score,
		Strengths:         []string{"Demonstrates relevant industry awareness", "Shows understanding of role requirements"},
		Improvements:      []string{"Provide more specific technical examples", "Deepen industry-specific knowledge"},
		Feedback:          "Technical competency appears adequate for the role level, though more specific examples and deeper technical discussions would strengthen the assessment.",
		DepthAssessment:   "Moderate technical depth - suitable for role but could benefit from more specialized knowledge",
		IndustryAlignment: "Aligns with basic industry standards, room for advanced specialization",
	}
}

func fallbackProblemSolving(resp float64) ProblemSolving {
	quick := resp < quickThinkingMs
	return ProblemSolving{
		Score: pick(resp < fastResponseMs, 55, 40),
		Strengths: pick(quick,
			[]string{"Quick analytical processing", "Efficient problem approach"},
			[]string{"Thoughtful consideration of problems", "Deliberate analysis approach"}),
		Improvements: pick(resp > slowResponseMs,
			[]string{"Improve response speed through practice", "Develop faster problem-solving frameworks"},
			[]string{"Enhance solution creativity", "Develop more structured problem-solving approach"}),
		Feedback: fmt.Sprintf("Problem-solving approach shows %s with average response time of %d seconds. This indicates %s.",
			pick(quick, "quick analytical thinking", "careful deliberation"),
			jsRound(resp/1000),
			pick(quick, "strong cognitive agility", "thorough but potentially slow processing")),
		CognitiveLoad:   pick(quick, "Handles complexity well under pressure", "May need more time for complex problem processing"),
		InnovationIndex: "Limited evidence of innovative thinking - recommend developing creative problem-solving skills",
	}
}

func fallbackEmotionalIntelligence(conf float64) EmotionalIntelligence {
	return EmotionalIntelligence{
		Score:               jsRound(conf * 60),
		SelfAwareness:       jsRound(conf * 55),
		SocialSkills:        45,
		Empathy:             40,
		Feedback:            "Emotional intelligence appears developing with room for growth in self-awareness and interpersonal skills.",
		LeadershipPotential: pick(conf > confidentThreshold, "Shows potential leadership qualities", "Leadership potential needs development"),
	}
}

func fallbackConfidence(m models.Metrics) Confidence {
	conf := m.ConfidenceScore
	level := "developing confidence that needs strengthening"
	switch {
	case conf > engagedConfidence:
		level = "strong self-assurance and executive presence"
	case conf > collaborativeConfidence:
		level = "moderate confidence with room for growth"
	}
	return Confidence{
		Score: jsRound(conf * 100),
		Analysis: fmt.Sprintf("Confidence assessment reveals %s. Pause patterns and response timing suggest %s.",
			level, pick(m.LongestPause > longPauseMs, "some hesitation under pressure", "reasonable composure")),
		Recommendations: pick(conf < confidentThreshold,
			[]string{"Practice power posing and confidence-building exercises", "Work on reducing long pauses through preparation"},
			[]string{"Maintain authentic confidence while avoiding overconfidence", "Continue building executive presence"}),
		AuthenticityIndex: "Appears genuine - confidence seems authentic rather than projected",
	}
}

func fallbackConcerns(m models.Metrics) []string {
	concerns := []string{}
	if m.FillerWordsCount >= highFillerConcern {
		concerns = append(concerns, "High filler word usage may impact professional credibility")
	}
	if m.AverageResponseTime > slowResponseConcernMs {
		concerns = append(concerns, "Slow response times may indicate processing challenges under pressure")
	}
	if m.ConfidenceScore < lowConfidenceConcern {
		concerns = append(concerns, "Low confidence may impact leadership effectiveness and team influence")
	}
	return concerns
}

func fallbackInsights(m models.Metrics) BehavioralInsights {
	quick := m.AverageResponseTime < quickThinkingMs

	style := "Communication pace appears measured and professional"
	if wpm := m.WordsPerMinute; wpm != 0 {
		kind := "balanced communication pace"
		switch {
		case wpm > fastSpeechWPM:
			kind = "energetic, fast-paced communication"
		case wpm < slowSpeechWPM:
			kind = "deliberate, measured communication"
		}
		style = fmt.Sprintf("Speaking rate of %d WPM suggests %s", wpm, kind)
	}

	return BehavioralInsights{
		CognitiveProcessing: fmt.Sprintf("Analysis of %d pauses (avg %sms, max %ds) and %ds average response time suggests %s",
			m.TotalPauses, formatNumber(m.AveragePauseLength), jsRound(m.LongestPause/1000), jsRound(m.AverageResponseTime/1000),
			pick(quick, "strong cognitive agility and quick processing", "careful, methodical thinking that may slow decision-making")),
		StressResponse: fmt.Sprintf("%s. Filler word usage (%d) %s",
			pick(m.LongestPause > longPauseMs, "Shows some stress indicators with longer pauses under pressure", "Maintains composure well under interview pressure"),
			m.FillerWordsCount,
			pick(m.FillerWordsCount > fluentFillerThreshold, "indicates nervousness or lack of preparation", "shows good self-control and preparation")),
		CommunicationStyle: style,
		DecisionMaking: pick(quick,
			"Quick decision-making style that may favor speed over thorough analysis",
			"Deliberate decision-making approach that prioritizes thoroughness over speed"),
	}
}
