package analysis

import (
	"context"

	"github.com/krshsl/praxis/coach/models"
)

// EnrichmentSource analyzes recorded media. A nil Enrichment with a nil error
// means the service had nothing to offer.
type EnrichmentSource interface {
	Analyze(ctx context.Context, mediaURL string) (*Enrichment, error)
}

type EmotionScore struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

type EmotionPoint struct {
	Timestamp float64 `json:"timestamp"`
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

type ValenceArousal struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

type BigFive struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

type BehavioralMetrics struct {
	EyeContact              float64 `json:"eyeContact"`
	FacialExpressionVariety float64 `json:"facialExpressionVariety"`
	EmotionalStability      float64 `json:"emotionalStability"`
	Authenticity            float64 `json:"authenticity"`
}

// Enrichment carries video-derived emotion and personality signals.
type Enrichment struct {
	DominantEmotions []EmotionScore    `json:"dominantEmotions"`
	EmotionTimeline  []EmotionPoint    `json:"emotionTimeline"`
	ValenceArousal   ValenceArousal    `json:"valenceArousal"`
	BigFive          BigFive           `json:"bigFive"`
	Traits           []string          `json:"traits"`
	WorkStyle        string            `json:"workStyle,omitempty"`
	Behavior         BehavioralMetrics `json:"behavioralMetrics"`
	Synthetic        bool              `json:"synthetic"`
}

// SyntheticEnrichment derives a stand-in enrichment from metrics alone so the
// conversation prompt always has a populated section.
func SyntheticEnrichment(m models.Metrics) Enrichment {
	conf, fillers := m.ConfidenceScore, m.FillerWordsCount

	mood := "nervousness"
	if conf > 0.7 {
		mood = "confidence"
	}

	e := Enrichment{
		DominantEmotions: []EmotionScore{
			{Emotion: "neutral", Confidence: 0.4},
			{Emotion: mood, Confidence: 0.3},
			{Emotion: "focus", Confidence: 0.3},
		},
		EmotionTimeline: []EmotionPoint{
			{Timestamp: 0, Emotion: "neutral", Intensity: 0.5},
			{Timestamp: 50, Emotion: mood, Intensity: conf},
			{Timestamp: 100, Emotion: "focus", Intensity: 0.7},
		},
		ValenceArousal: ValenceArousal{
			Valence: pick(conf > 0.6, 0.6, 0.4),
			Arousal: pick(fillers > 5, 0.7, 0.5),
		},
		BigFive: BigFive{
			Openness:          pick(conf > 0.7, 0.7, 0.6),
			Conscientiousness: pick(fillers < 5, 0.8, 0.6),
			Extraversion:      pick(conf > 0.6, 0.7, 0.5),
			Agreeableness:     0.6,
			Neuroticism:       pick(conf < 0.5, 0.7, 0.3),
		},
		Traits: []string{
			pick(conf > 0.7, "confident", "developing-confidence"),
			pick(fillers < 5, "articulate", "needs-communication-practice"),
			pick(m.AverageResponseTime < 3000, "quick-thinking", "deliberate"),
		},
		Behavior: BehavioralMetrics{
			EyeContact:              conf * 0.8,
			FacialExpressionVariety: 0.6,
			EmotionalStability:      pick(conf > 0.6, 0.8, 0.6),
			Authenticity:            0.75,
		},
		Synthetic: true,
	}
	return e
}

func pick[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
