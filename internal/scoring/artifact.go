package scoring

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anuragv/floodwatch/internal/model"
)

// Artifact is the serialized form of the trained pipeline: the degree-2
// polynomial expansion is implied by the coefficient layout, while means,
// scales, coefficients and intercept come from training.
type Artifact struct {
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LoadArtifact reads a model artifact from disk and builds the three pipeline
// stages from it.
func LoadArtifact(path string) (Expander, Normalizer, Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}

	expander := NewPolynomialExpander(model.NumFactors)
	width := expander.Width()
	if len(artifact.Means) != width || len(artifact.Scales) != width {
		return nil, nil, nil, fmt.Errorf("scaler width %d does not match expanded width %d", len(artifact.Means), width)
	}
	if len(artifact.Coefficients) != width {
		return nil, nil, nil, fmt.Errorf("model width %d does not match expanded width %d", len(artifact.Coefficients), width)
	}

	normalizer := &AffineNormalizer{Means: artifact.Means, Scales: artifact.Scales}
	linear := &LinearModel{Coefficients: artifact.Coefficients, Intercept: artifact.Intercept}
	return expander, normalizer, linear, nil
}

// PolynomialExpander produces degree-2 features: the raw values followed by
// all products x_i*x_j with i <= j, matching the layout the scaler and model
// were fitted against.
type PolynomialExpander struct {
	inputWidth int
}

// NewPolynomialExpander creates an expander for vectors of the given width.
func NewPolynomialExpander(inputWidth int) *PolynomialExpander {
	return &PolynomialExpander{inputWidth: inputWidth}
}

// Width returns the expanded vector width.
func (e *PolynomialExpander) Width() int {
	return e.inputWidth + e.inputWidth*(e.inputWidth+1)/2
}

// Expand implements Expander.
func (e *PolynomialExpander) Expand(features []float64) ([]float64, error) {
	if len(features) != e.inputWidth {
		return nil, fmt.Errorf("expected %d features, got %d", e.inputWidth, len(features))
	}
	expanded := make([]float64, 0, e.Width())
	expanded = append(expanded, features...)
	for i := 0; i < len(features); i++ {
		for j := i; j < len(features); j++ {
			expanded = append(expanded, features[i]*features[j])
		}
	}
	return expanded, nil
}

// AffineNormalizer applies the trained per-feature (x - mean) / scale.
type AffineNormalizer struct {
	Means  []float64
	Scales []float64
}

// Normalize implements Normalizer.
func (n *AffineNormalizer) Normalize(features []float64) ([]float64, error) {
	if len(features) != len(n.Means) {
		return nil, fmt.Errorf("expected %d features, got %d", len(n.Means), len(features))
	}
	normalized := make([]float64, len(features))
	for i, v := range features {
		scale := n.Scales[i]
		if scale == 0 {
			scale = 1
		}
		normalized[i] = (v - n.Means[i]) / scale
	}
	return normalized, nil
}

// LinearModel is the regression head: dot product plus intercept.
type LinearModel struct {
	Coefficients []float64
	Intercept    float64
}

// Score implements Model.
func (m *LinearModel) Score(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(features))
	}
	sum := m.Intercept
	for i, v := range features {
		sum += v * m.Coefficients[i]
	}
	return sum, nil
}
