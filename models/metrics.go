package models

// EmotionalTone is a distribution over five named tones.
type EmotionalTone struct {
	Positive  float64 `json:"positive"`
	Neutral   float64 `json:"neutral"`
	Negative  float64 `json:"negative"`
	Confident float64 `json:"confident"`
	Nervous   float64 `json:"nervous"`
}

// Metrics is the behavioral summary of a session. Durations are milliseconds.
type Metrics struct {
	TotalDuration           float64       `json:"total_duration"`
	UserSpeakingTime        float64       `json:"user_speaking_time"`
	InterviewerSpeakingTime float64       `json:"interviewer_speaking_time"`
	TotalPauses             int           `json:"total_pauses"`
	TotalPauseTime          float64       `json:"total_pause_time"`
	AveragePauseLength      float64       `json:"average_pause_length"`
	LongestPause            float64       `json:"longest_pause"`
	AverageResponseTime     float64       `json:"average_response_time"`
	WordsPerMinute          int           `json:"words_per_minute"`
	FillerWordsCount        int           `json:"filler_words_count"`
	InterruptionCount       int           `json:"interruption_count"`
	ConfidenceScore         float64       `json:"confidence_score"`
	EmotionalTone           EmotionalTone `json:"emotional_tone"`
}

// MetricsPatch is a partial Metrics update. Nil fields are left untouched.
type MetricsPatch struct {
	TotalDuration           *float64       `json:"total_duration,omitempty"`
	UserSpeakingTime        *float64       `json:"user_speaking_time,omitempty"`
	InterviewerSpeakingTime *float64       `json:"interviewer_speaking_time,omitempty"`
	TotalPauses             *int           `json:"total_pauses,omitempty"`
	TotalPauseTime          *float64       `json:"total_pause_time,omitempty"`
	AveragePauseLength      *float64       `json:"average_pause_length,omitempty"`
	LongestPause            *float64       `json:"longest_pause,omitempty"`
	AverageResponseTime     *float64       `json:"average_response_time,omitempty"`
	WordsPerMinute          *int           `json:"words_per_minute,omitempty"`
	FillerWordsCount        *int           `json:"filler_words_count,omitempty"`
	InterruptionCount       *int           `json:"interruption_count,omitempty"`
	ConfidenceScore         *float64       `json:"confidence_score,omitempty"`
	EmotionalTone           *EmotionalTone `json:"emotional_tone,omitempty"`
}

// IsEmpty reports whether the patch names no field.
func (p MetricsPatch) IsEmpty() bool {
	return p == MetricsPatch{}
}

// Merge applies p over m key by key. A named field overwrites the stored value
// (last write wins); omitted fields are preserved. Nothing is accumulated, and
// EmotionalTone is replaced as a whole. The result is normalized.
func (m Metrics) Merge(p MetricsPatch) Metrics {
	if p.TotalDuration != nil {
		m.TotalDuration = *p.TotalDuration
	}
	if p.UserSpeakingTime != nil {
		m.UserSpeakingTime = *p.UserSpeakingTime
	}
	if p.InterviewerSpeakingTime != nil {
		m.InterviewerSpeakingTime = *p.InterviewerSpeakingTime
	}
	if p.TotalPauses != nil {
		m.TotalPauses = *p.TotalPauses
	}
	if p.TotalPauseTime != nil {
		m.TotalPauseTime = *p.TotalPauseTime
	}
	if p.AveragePauseLength != nil {
		m.AveragePauseLength = *p.AveragePauseLength
	}
	if p.LongestPause != nil {
		m.LongestPause = *p.LongestPause
	}
	if p.AverageResponseTime != nil {
		m.AverageResponseTime = *p.AverageResponseTime
	}
	if p.WordsPerMinute != nil {
		m.WordsPerMinute = *p.WordsPerMinute
	}
	if p.FillerWordsCount != nil {
		m.FillerWordsCount = *p.FillerWordsCount
	}
	if p.InterruptionCount != nil {
		m.InterruptionCount = *p.InterruptionCount
	}
	if p.ConfidenceScore != nil {
		m.ConfidenceScore = *p.ConfidenceScore
	}
	if p.EmotionalTone != nil {
		m.EmotionalTone = *p.EmotionalTone
	}
	return m.Normalize()
}

// Normalize clamps durations and counts at zero and keeps ConfidenceScore in
// [0,1].
func (m Metrics) Normalize() Metrics {
	for _, f := range []*float64{
		&m.TotalDuration, &m.UserSpeakingTime, &m.InterviewerSpeakingTime,
		&m.TotalPauseTime, &m.AveragePauseLength, &m.LongestPause, &m.AverageResponseTime,
	} {
		if *f < 0 {
			*f = 0
		}
	}
	if m.TotalPauses < 0 {
		m.TotalPauses = 0
	}
	if m.WordsPerMinute < 0 {
		m.WordsPerMinute = 0
	}
	if m.FillerWordsCount < 0 {
		m.FillerWordsCount = 0
	}
	if m.InterruptionCount < 0 {
		m.InterruptionCount = 0
	}
	switch {
	case m.ConfidenceScore < 0:
		m.ConfidenceScore = 0
	case m.ConfidenceScore > 1:
		m.ConfidenceScore = 1
	}
	return m
}

// Patch returns a patch naming every field of m.
func (m Metrics) Patch() MetricsPatch {
	tone := m.EmotionalTone
	return MetricsPatch{
		TotalDuration:           &m.TotalDuration,
		UserSpeakingTime:        &m.UserSpeakingTime,
		InterviewerSpeakingTime: &m.InterviewerSpeakingTime,
		TotalPauses:             &m.TotalPauses,
		TotalPauseTime:          &m.TotalPauseTime,
		AveragePauseLength:      &m.AveragePauseLength,
		LongestPause:            &m.LongestPause,
		AverageResponseTime:     &m.AverageResponseTime,
		WordsPerMinute:          &m.WordsPerMinute,
		FillerWordsCount:        &m.FillerWordsCount,
		InterruptionCount:       &m.InterruptionCount,
		ConfidenceScore:         &m.ConfidenceScore,
		EmotionalTone:           &tone,
	}
}
