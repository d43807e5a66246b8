package speech

import (
	"math"
	"strings"
	"time"

	"github.com/krshsl/praxis/coach/models"
)

// PauseThreshold is the gap, in milliseconds, above which silence before a
// user utterance counts as a pause.
const PauseThreshold = 1000.0

// MinConfidence is the floor of the derived confidence score.
const MinConfidence = 0.3

// Aggregator turns transcripts into Metrics. It holds no per-session state.
type Aggregator struct {
	fillers *FillerMatcher
}

// NewAggregator returns an Aggregator counting fillers with f. A nil matcher
// uses DefaultFillerWords with phrase matching.
func NewAggregator(f *FillerMatcher) *Aggregator {
	if f == nil {
		f = NewFillerMatcher(DefaultFillerWords, true)
	}
	return &Aggregator{fillers: f}
}

// Fillers exposes the matcher in use.
func (a *Aggregator) Fillers() *FillerMatcher {
	return a.fillers
}

// Aggregate computes Metrics over messages in order. totalDuration is the
// wall-clock length of the session in milliseconds.
func (a *Aggregator) Aggregate(messages []models.Message, totalDuration float64) models.Metrics {
	t := a.NewTracker()
	for _, m := range messages {
		t.Observe(m)
	}
	return t.Metrics(totalDuration)
}

// Tracker accumulates metrics one message at a time.
type Tracker struct {
	fillers *FillerMatcher

	pauses        int
	pauseTime     float64
	longestPause  float64
	userSpeaking  float64
	wordsSpoken   int
	fillerCount   int
	interruptions int
	userText      []string
	lastUserEnd   time.Time
}

// NewTracker starts an empty incremental computation.
func (a *Aggregator) NewTracker() *Tracker {
	return &Tracker{fillers: a.fillers}
}

// Observe folds one message into the running totals. Interviewer messages only
// contribute interruptions.
func (t *Tracker) Observe(m models.Message) {
	t.interruptions += m.InterruptionCount
	if m.Sender != models.SenderUser {
		return
	}

	if gap, ok := t.gapBefore(m); ok && gap > PauseThreshold {
		t.pauses++
		t.pauseTime += gap
		if gap > t.longestPause {
			t.longestPause = gap
		}
	}

	t.userSpeaking += m.DurationMs()
	t.wordsSpoken += WordCount(m.Text)
	t.fillerCount += t.fillers.Count(m.Text)
	t.userText = append(t.userText, m.Text)
	if !m.Timestamp.IsZero() {
		t.lastUserEnd = m.Timestamp
	}
}

// gapBefore returns the silence preceding a user utterance. A measured
// PauseBefore wins; otherwise the gap runs from the end of the previous user
// utterance to the start of this one (timestamp minus speech duration).
func (t *Tracker) gapBefore(m models.Message) (float64, bool) {
	if m.PauseBefore != nil {
		return *m.PauseBefore, true
	}
	if t.lastUserEnd.IsZero() || m.Timestamp.IsZero() {
		return 0, false
	}
	start := m.Timestamp.Add(-time.Duration(m.DurationMs() * float64(time.Millisecond)))
	gap := float64(start.Sub(t.lastUserEnd)) / float64(time.Millisecond)
	if gap < 0 {
		return 0, false
	}
	return gap, true
}

// Metrics snapshots the running totals.
func (t *Tracker) Metrics(totalDuration float64) models.Metrics {
	m := models.Metrics{
		TotalDuration:     totalDuration,
		UserSpeakingTime:  t.userSpeaking,
		TotalPauses:       t.pauses,
		FillerWordsCount:  t.fillerCount,
		InterruptionCount: t.interruptions,
	}
	m.InterviewerSpeakingTime = math.Max(0, totalDuration-t.userSpeaking)
	if t.pauses > 0 {
		m.TotalPauseTime = t.pauseTime
		m.AveragePauseLength = t.pauseTime / float64(t.pauses)
		m.LongestPause = t.longestPause
	}
	m.AverageResponseTime = m.AveragePauseLength
	m.WordsPerMinute = WordsPerMinute(strings.Join(t.userText, " "), t.userSpeaking)
	m.ConfidenceScore = ConfidenceScore(t.fillerCount, t.wordsSpoken)
	m.EmotionalTone = SynthesizeTone(m.ConfidenceScore, t.fillerCount)
	return m.Normalize()
}

// WordsPerMinute is the rounded word count of text over speakingMs. No
// speaking time yields 0.
func WordsPerMinute(text string, speakingMs float64) int {
	if speakingMs <= 0 {
		return 0
	}
	minutes := speakingMs / 60000
	return int(math.Round(float64(WordCount(text)) / minutes))
}

// ConfidenceScore is max(0.3, 1 - fillers/max(1, words)). The result is
// always within [0.3, 1].
func ConfidenceScore(fillers, words int) float64 {
	if fillers < 0 {
		fillers = 0
	}
	score := 1 - float64(fillers)/float64(max(1, words))
	return math.Min(1, math.Max(MinConfidence, score))
}

// SynthesizeTone builds an illustrative tone distribution from the
// confidence score and filler count; nothing here is measured.
func SynthesizeTone(confidence float64, fillers int) models.EmotionalTone {
	tone := models.EmotionalTone{Positive: 0.6, Neutral: 0.3, Negative: 0.1, Confident: 0.7, Nervous: 0.3}
	if confidence < 0.7 {
		tone = models.EmotionalTone{Positive: 0.4, Neutral: 0.4, Negative: 0.2, Confident: 0.4, Nervous: 0.6}
	}
	if fillers >= 5 {
		tone.Confident = round2(tone.Confident - 0.1)
		tone.Nervous = round2(tone.Nervous + 0.1)
	}
	return tone
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
