// Package scoring wraps the pre-trained regression model as an opaque
// probability function. The pipeline is fixed: polynomial feature expansion,
// affine normalization, then the model's score, in that order.
package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
)

// Expander widens a raw feature vector (e.g. polynomial cross terms).
type Expander interface {
	Expand(features []float64) ([]float64, error)
}

// Normalizer rescales an expanded feature vector.
type Normalizer interface {
	Normalize(features []float64) ([]float64, error)
}

// Model scores a normalized feature vector into a probability.
type Model interface {
	Score(features []float64) (float64, error)
}

// Pipeline composes expand -> normalize -> score and holds the warm-up
// buffer: no prediction is produced until WarmupLength consecutive readings
// have been observed. The warm-up gate is unrelated to the alert cool-down
// and is configured independently.
type Pipeline struct {
	logger     *zap.Logger
	expander   Expander
	normalizer Normalizer
	model      Model
	timeout    time.Duration

	mu       sync.Mutex
	buffered int
	warmup   int
}

// NewPipeline builds a scoring pipeline. warmup <= 1 disables the gate.
func NewPipeline(logger *zap.Logger, e Expander, n Normalizer, m Model, warmup int, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pipeline{
		logger:     logger.Named("scoring"),
		expander:   e,
		normalizer: n,
		model:      m,
		timeout:    timeout,
		warmup:     warmup,
	}
}

// Score returns the model probability for a raw feature vector, or nil while
// the warm-up buffer is still filling. The call is bounded by the pipeline
// timeout so a stuck model cannot stall the generation loop.
func (p *Pipeline) Score(ctx context.Context, features []float64) (*float64, error) {
	if len(features) != model.NumFactors {
		return nil, fmt.Errorf("expected %d features, got %d", model.NumFactors, len(features))
	}

	p.mu.Lock()
	if p.buffered < p.warmup {
		p.buffered++
	}
	ready := p.buffered >= p.warmup
	remaining := p.warmup - p.buffered
	p.mu.Unlock()

	if !ready {
		p.logger.Debug("Scoring warm-up in progress", zap.Int("readings_needed", remaining))
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		probability float64
		err         error
	}
	done := make(chan result, 1)
	go func() {
		probability, err := p.run(features)
		done <- result{probability, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("scoring timed out: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		probability := model.ClampProbability(r.probability)
		return &probability, nil
	}
}

func (p *Pipeline) run(features []float64) (float64, error) {
	expanded, err := p.expander.Expand(features)
	if err != nil {
		return 0, fmt.Errorf("feature expansion failed: %w", err)
	}
	normalized, err := p.normalizer.Normalize(expanded)
	if err != nil {
		return 0, fmt.Errorf("feature normalization failed: %w", err)
	}
	probability, err := p.model.Score(normalized)
	if err != nil {
		return 0, fmt.Errorf("model scoring failed: %w", err)
	}
	return probability, nil
}

// Reset clears the warm-up buffer. Called when the scenario changes so the
// model never scores a window straddling two regimes.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.buffered = 0
	p.mu.Unlock()
}
