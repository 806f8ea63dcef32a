package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
)

// HTTPGenerator calls a hosted text-generation service for advisory content.
type HTTPGenerator struct {
	logger *zap.Logger
	client *http.Client
	url    string
	apiKey string
}

// NewHTTPGenerator creates a remote generator. The per-call deadline comes
// from the context the Service passes in.
func NewHTTPGenerator(logger *zap.Logger, url, apiKey string) *HTTPGenerator {
	return &HTTPGenerator{
		logger: logger.Named("advisor-http"),
		client: &http.Client{},
		url:    url,
		apiKey: apiKey,
	}
}

type generateRequest struct {
	Location    string         `json:"location"`
	Scenario    string         `json:"scenario"`
	Probability float64        `json:"probability"`
	RiskLevel   string         `json:"risk_level"`
	Factors     map[string]int `json:"factors"`
}

type generateResponse struct {
	Summary          string   `json:"summary"`
	ImmediateActions []string `json:"immediate_actions"`
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, reading *model.SensorReading, location string) (*Advisory, error) {
	body, err := json.Marshal(generateRequest{
		Location:    location,
		Scenario:    reading.Scenario,
		Probability: reading.Probability,
		RiskLevel:   string(model.ClassifyRisk(reading.Probability)),
		Factors:     reading.Factors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal advisory request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build advisory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisory service returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode advisory response: %w", err)
	}

	return &Advisory{
		Summary:          out.Summary,
		ImmediateActions: out.ImmediateActions,
		EmergencyNumbers: emergencyNumbers,
	}, nil
}
