// Package analysis scores interview transcripts. Every analyzer calls a
// generative-text collaborator and, when the call fails or returns something
// unusable, substitutes a deterministic result of the same shape.
package analysis

import (
	"context"
	"errors"
	"time"
)

// ErrAnalysisFailure marks a failed or unparsable analysis call. It never
// leaves this package: analyzers absorb it into a fallback.
var ErrAnalysisFailure = errors.New("analysis failure")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f(ctx, prompt, temperature)
}

// Recorder observes analysis outcomes.
type Recorder interface {
	RecordAnalysis(kind string, fallback bool, elapsed time.Duration)
}

type settings struct {
	temperature float64
	timeout     time.Duration
	recorder    Recorder
}

// Option configures an analyzer.
type Option func(*settings)

// WithTemperature overrides the sampling temperature sent to the generator.
func WithTemperature(t float64) Option {
	return func(s *settings) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithTimeout bounds every generator call. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRecorder reports each call's outcome and latency.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		s.recorder = r
	}
}

func newSettings(temperature float64, opts []Option) settings {
	s := settings{temperature: temperature}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// generate runs one bounded call and returns the parsed JSON object.
func (s settings) generate(ctx context.Context, gen Generator, prompt string) (object, error) {
	if gen == nil {
		return nil, errors.Join(ErrAnalysisFailure, errors.New("no generator configured"))
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err := gen.Generate(ctx, prompt, s.temperature)
	if err != nil {
		return nil, errors.Join(ErrAnalysisFailure, err)
	}
	return parseObject(text)
}

func (s settings) record(kind string, fallback bool, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordAnalysis(kind, fallback, time.Since(start))
	}
}
