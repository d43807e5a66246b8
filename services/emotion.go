package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/krshsl/praxis/coach/analysis"
)

// EmotionClient asks a video emotion service about a session recording.
type EmotionClient struct {
	c      *http.Client
	url    string
	apiKey string
}

var _ analysis.EnrichmentSource = (*EmotionClient)(nil)

func NewEmotionClient(url, apiKey string, timeout time.Duration) *EmotionClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &EmotionClient{c: &http.Client{Timeout: timeout}, url: url, apiKey: apiKey}
}

type emotionRequest struct {
	VideoURL           string `json:"video_url"`
	AnalysisType       string `json:"analysis_type"`
	IncludeTranscript  bool   `json:"include_transcript"`
	IncludePersonality bool   `json:"include_personality"`
}

type emotionResponse struct {
	Emotions       []analysis.EmotionScore `json:"emotions"`
	Timeline       []analysis.EmotionPoint `json:"timeline"`
	ValenceArousal analysis.ValenceArousal `json:"valence_arousal"`
	Personality    struct {
		BigFive   analysis.BigFive `json:"big_five"`
		Traits    []string         `json:"traits"`
		WorkStyle string           `json:"work_style"`
	} `json:"personality"`
	Behavior struct {
		EyeContact         float64 `json:"eye_contact"`
		ExpressionVariety  float64 `json:"expression_variety"`
		EmotionalStability float64 `json:"emotional_stability"`
		Authenticity       float64 `json:"authenticity"`
	} `json:"behavior"`
}

// Analyze returns nil without error when the service has no answer.
func (e *EmotionClient) Analyze(ctx context.Context, mediaURL string) (*analysis.Enrichment, error) {
	if e.url == "" || mediaURL == "" {
		return nil, nil
	}

	b, err := json.Marshal(emotionRequest{
		VideoURL:           mediaURL,
		AnalysisType:       "comprehensive",
		IncludeTranscript:  true,
		IncludePersonality: true,
	})
	if err != nil {
		return nil, fmt.Errorf("emotion encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("emotion %s: %s", resp.Status, string(body))
	}

	var out *emotionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("emotion decode: %w", err)
	}
	if out == nil {
		return nil, nil
	}

	return &analysis.Enrichment{
		DominantEmotions: out.Emotions,
		EmotionTimeline:  out.Timeline,
		ValenceArousal:   out.ValenceArousal,
		BigFive:          out.Personality.BigFive,
		Traits:           out.Personality.Traits,
		WorkStyle:        out.Personality.WorkStyle,
		Behavior: analysis.BehavioralMetrics{
			EyeContact:              out.Behavior.EyeContact,
			FacialExpressionVariety: out.Behavior.ExpressionVariety,
			EmotionalStability:      out.Behavior.EmotionalStability,
			Authenticity:            out.Behavior.Authenticity,
		},
	}, nil
}
