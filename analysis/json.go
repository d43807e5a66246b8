package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// object is an untyped JSON object from the generator. Field access is
// tolerant: a missing, null or mistyped field reports false and the caller
// keeps its default.
type object map[string]any

// cleanJSON strips markdown fences and any prose around the outermost object.
func cleanJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}

func parseObject(text string) (object, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, errors.Join(ErrAnalysisFailure, errors.New("empty response"))
	}
	var o object
	if err := json.Unmarshal([]byte(cleaned), &o); err != nil {
		return nil, errors.Join(ErrAnalysisFailure, fmt.Errorf("failed to parse response: %w", err))
	}
	if o == nil {
		return nil, errors.Join(ErrAnalysisFailure, errors.New("response is not an object"))
	}
	return o, nil
}

func (o object) obj(key string) (object, bool) {
	v, ok := o[key].(map[string]any)
	return object(v), ok
}

func (o object) score(key string) (int, bool) {
	v, ok := o[key].(float64)
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return clampScore(int(math.Round(v))), true
}

func (o object) str(key string) (string, bool) {
	v, ok := o[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (o object) strs(key string) ([]string, bool) {
	raw, ok := o[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// The set* helpers overwrite dst only when the field is usable.

func (o object) setScore(dst *int, key string) {
	if v, ok := o.score(key); ok {
		*dst = v
	}
}

func (o object) setStr(dst *string, key string) {
	if v, ok := o.str(key); ok {
		*dst = v
	}
}

func (o object) setStrs(dst *[]string, key string) {
	if v, ok := o.strs(key); ok {
		*dst = v
	}
}

func clampScore(v int) int {
	return min(100, max(0, v))
}

// jsRound rounds half up, matching the arithmetic the fallback scores were
// specified with.
func jsRound(v float64) int {
	return int(math.Floor(v + 0.5))
}
