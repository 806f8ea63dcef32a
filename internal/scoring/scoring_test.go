package scoring

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
)

func TestPolynomialExpander(t *testing.T) {
	e := NewPolynomialExpander(3)
	require.Equal(t, 3+6, e.Width())

	expanded, err := e.Expand([]float64{1, 2, 3})
	require.NoError(t, err)
	// Raw terms first, then products x_i*x_j with i <= j.
	require.Equal(t, []float64{1, 2, 3, 1, 2, 3, 4, 6, 9}, expanded)

	_, err = e.Expand([]float64{1, 2})
	require.Error(t, err)
}

func TestAffineNormalizer(t *testing.T) {
	n := &AffineNormalizer{
		Means:  []float64{1, 2},
		Scales: []float64{2, 0}, // zero scale must not divide by zero
	}
	out, err := n.Normalize([]float64{3, 5})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 3}, out)

	_, err = n.Normalize([]float64{1})
	require.Error(t, err)
}

func TestLinearModel(t *testing.T) {
	m := &LinearModel{Coefficients: []float64{0.5, -0.25}, Intercept: 0.1}
	p, err := m.Score([]float64{1, 2})
	require.NoError(t, err)
	require.InDelta(t, 0.1, p, 1e-9)

	_, err = m.Score([]float64{1})
	require.Error(t, err)
}

type identityExpander struct{}

func (identityExpander) Expand(f []float64) ([]float64, error) { return f, nil }

type identityNormalizer struct{}

func (identityNormalizer) Normalize(f []float64) ([]float64, error) { return f, nil }

type constantModel struct {
	value float64
	delay time.Duration
}

func (m constantModel) Score([]float64) (float64, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.value, nil
}

func testFeatures() []float64 {
	return make([]float64, model.NumFactors)
}

func TestPipeline_WarmupGate(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	p := NewPipeline(logger, identityExpander{}, identityNormalizer{}, constantModel{value: 0.7}, 3, time.Second)

	for i := 0; i < 2; i++ {
		probability, err := p.Score(context.Background(), testFeatures())
		require.NoError(t, err)
		require.Nil(t, probability, "reading %d should be within warm-up", i+1)
	}

	probability, err := p.Score(context.Background(), testFeatures())
	require.NoError(t, err)
	require.NotNil(t, probability)
	require.InDelta(t, 0.7, *probability, 1e-9)
}

func TestPipeline_ResetClearsWarmup(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	p := NewPipeline(logger, identityExpander{}, identityNormalizer{}, constantModel{value: 0.5}, 2, time.Second)

	_, err := p.Score(context.Background(), testFeatures())
	require.NoError(t, err)
	probability, err := p.Score(context.Background(), testFeatures())
	require.NoError(t, err)
	require.NotNil(t, probability)

	p.Reset()
	probability, err = p.Score(context.Background(), testFeatures())
	require.NoError(t, err)
	require.Nil(t, probability)
}

func TestPipeline_ClampsModelOutput(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	p := NewPipeline(logger, identityExpander{}, identityNormalizer{}, constantModel{value: 1.8}, 1, time.Second)

	probability, err := p.Score(context.Background(), testFeatures())
	require.NoError(t, err)
	require.NotNil(t, probability)
	require.Equal(t, 1.0, *probability)
}

func TestPipeline_Timeout(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	p := NewPipeline(logger, identityExpander{}, identityNormalizer{},
		constantModel{value: 0.5, delay: 200 * time.Millisecond}, 1, 10*time.Millisecond)

	_, err := p.Score(context.Background(), testFeatures())
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeline_RejectsWrongWidth(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	p := NewPipeline(logger, identityExpander{}, identityNormalizer{}, constantModel{value: 0.5}, 1, time.Second)

	_, err := p.Score(context.Background(), []float64{1, 2, 3})
	require.Error(t, err)
}

func TestLoadArtifact(t *testing.T) {
	width := NewPolynomialExpander(model.NumFactors).Width()
	artifact := Artifact{
		Means:        make([]float64, width),
		Scales:       make([]float64, width),
		Coefficients: make([]float64, width),
		Intercept:    0.42,
	}
	for i := range artifact.Scales {
		artifact.Scales[i] = 1
	}

	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	expander, normalizer, linear, err := LoadArtifact(path)
	require.NoError(t, err)

	expanded, err := expander.Expand(testFeatures())
	require.NoError(t, err)
	normalized, err := normalizer.Normalize(expanded)
	require.NoError(t, err)
	p, err := linear.Score(normalized)
	require.NoError(t, err)
	require.InDelta(t, 0.42, p, 1e-9)
}

func TestLoadArtifact_WidthMismatch(t *testing.T) {
	artifact := Artifact{Means: []float64{1}, Scales: []float64{1}, Coefficients: []float64{1}}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, _, err = LoadArtifact(path)
	require.Error(t, err)
}
