// Package imaging fetches inbound media and derives what the ledger needs
// from it: a content fingerprint, best-effort metadata and recognized text.
package imaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrEmptyImage = errors.New("image is empty")

// Analysis is everything derived from one image.
type Analysis struct {
	Hash     string
	Metadata map[string]string
	Text     string
}

// Step is one stage of the analysis pipeline.
type Step interface {
	Name() string
	Run(ctx context.Context, imageData []byte, analysis *Analysis) error
}

type fingerprintStep struct{}

func (fingerprintStep) Name() string { return "fingerprint" }

func (fingerprintStep) Run(ctx context.Context, imageData []byte, analysis *Analysis) error {
	analysis.Hash = Fingerprint(imageData)
	return nil
}

type metadataStep struct{}

func (metadataStep) Name() string { return "metadata" }

func (metadataStep) Run(ctx context.Context, imageData []byte, analysis *Analysis) error {
	analysis.Metadata = ReadMetadata(imageData)
	return nil
}

type recognizeStep struct {
	recognizer Recognizer
}

func (s recognizeStep) Name() string { return "recognize:" + s.recognizer.Name() }

func (s recognizeStep) Run(ctx context.Context, imageData []byte, analysis *Analysis) error {
	text, err := s.recognizer.Recognize(ctx, imageData)
	if err != nil {
		return err
	}
	analysis.Text = text
	return nil
}

// Analyzer executes the fingerprint, metadata and recognition steps in order.
type Analyzer struct {
	steps []Step
}

func NewAnalyzer(recognizer Recognizer) *Analyzer {
	return &Analyzer{
		steps: []Step{fingerprintStep{}, metadataStep{}, recognizeStep{recognizer: recognizer}},
	}
}

func (a *Analyzer) Analyze(ctx context.Context, imageData []byte) (*Analysis, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}
	start := time.Now()
	analysis := &Analysis{Metadata: map[string]string{}}

	for idx, step := range a.steps {
		stepStart := time.Now()
		if err := step.Run(ctx, imageData, analysis); err != nil {
			slog.Error("analysis step failed",
				"index", idx,
				"step", step.Name(),
				"error", err,
				"input_size_bytes", len(imageData))
			return nil, fmt.Errorf("step %s (index %d) failed: %w", step.Name(), idx, err)
		}
		slog.Debug("analysis step completed",
			"index", idx,
			"step", step.Name(),
			"duration_ms", time.Since(stepStart).Milliseconds())
	}

	slog.Info("image analysis completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"input_size_bytes", len(imageData),
		"hash", analysis.Hash,
		"metadata_tags", len(analysis.Metadata),
		"text_length", len(analysis.Text))
	return analysis, nil
}
