package generator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
	"github.com/anuragv/floodwatch/internal/scenario"
)

// Mode selects how a reading's probability is produced.
type Mode string

const (
	// ModeSynthetic computes the probability from a fixed weighted sum over
	// the generated factors plus the scenario's base probability.
	ModeSynthetic Mode = "synthetic"
	// ModeModel asks the scoring pipeline for a probability and falls back to
	// the synthetic formula while the model is warming up or unavailable.
	ModeModel Mode = "model"
)

// Scorer produces a probability for a feature vector. A nil probability with
// a nil error means the scorer is not ready yet (warm-up).
type Scorer interface {
	Score(ctx context.Context, features []float64) (*float64, error)
}

// syntheticWeights drive the synthetic probability. Negative weights mark
// factors where a high value reduces flood risk.
var syntheticWeights = map[string]float64{
	"MonsoonIntensity":                0.25,
	"DrainageSystems":                 -0.20,
	"RiverManagement":                 -0.15,
	"Landslides":                      0.15,
	"Urbanization":                    0.10,
	"ClimateChange":                   0.08,
	"IneffectiveDisasterPreparedness": 0.07,
}

// baseProbability anchors the synthetic score per scenario.
var baseProbability = map[string]float64{
	"normal":      0.35,
	"heavy_rain":  0.55,
	"flood":       0.75,
	"pre_monsoon": 0.25,
	"drought":     0.15,
}

const factorScale = 16.0

// Synthetic probabilities are squeezed away from the extremes so demo data
// never sits at a degenerate 0 or 1. This is a generator detail; the
// pre-classification clamp is model.ClampProbability.
const (
	syntheticFloor   = 0.15
	syntheticCeiling = 0.95
)

// Generator synthesizes sensor readings for the active scenario.
type Generator struct {
	logger *zap.Logger
	clock  clockwork.Clock
	mode   Mode
	scorer Scorer

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator. scorer may be nil when mode is ModeSynthetic.
func New(logger *zap.Logger, clock clockwork.Clock, mode Mode, scorer Scorer) *Generator {
	return &Generator{
		logger: logger.Named("generator"),
		clock:  clock,
		mode:   mode,
		scorer: scorer,
		rng:    rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// Seed replaces the random source. Tests use this for reproducible draws.
func (g *Generator) Seed(seed int64) {
	g.mu.Lock()
	g.rng = rand.New(rand.NewSource(seed))
	g.mu.Unlock()
}

// Generate draws one reading for the named scenario. Unknown scenario names
// are a configuration error and fail fast.
func (g *Generator) Generate(ctx context.Context, scenarioKey string) (*model.SensorReading, error) {
	sc, err := scenario.Lookup(scenarioKey)
	if err != nil {
		return nil, err
	}

	factors := make(map[string]int, model.NumFactors)
	g.mu.Lock()
	for name, r := range sc.FactorRanges() {
		factors[name] = r.Min + g.rng.Intn(r.Max-r.Min+1)
	}
	jitter := g.rng.Float64()*0.1 - 0.05
	g.mu.Unlock()

	reading := &model.SensorReading{
		Timestamp: g.clock.Now(),
		Factors:   factors,
		Scenario:  sc.Key,
	}

	reading.Probability = g.probability(ctx, reading, jitter)
	return reading, nil
}

// probability resolves the reading's probability according to the configured
// mode. Model errors and warm-up degrade to the synthetic formula.
func (g *Generator) probability(ctx context.Context, reading *model.SensorReading, jitter float64) float64 {
	if g.mode == ModeModel && g.scorer != nil {
		p, err := g.scorer.Score(ctx, reading.FeatureVector())
		if err != nil {
			g.logger.Warn("Scoring unavailable, using synthetic probability",
				zap.String("scenario", reading.Scenario),
				zap.Error(err))
		} else if p != nil {
			return model.ClampProbability(*p)
		}
	}
	return g.synthetic(reading, jitter)
}

// synthetic implements the fixed weighted-sum formula: each weighted factor is
// normalized to [0,1] (inverted for risk-reducing factors), summed, and added
// to the scenario's base probability with a small jitter.
func (g *Generator) synthetic(reading *model.SensorReading, jitter float64) float64 {
	score := 0.0
	for factor, weight := range syntheticWeights {
		value, ok := reading.Factors[factor]
		if !ok {
			continue
		}
		normalized := float64(value) / factorScale
		if weight < 0 {
			normalized = 1 - normalized
			weight = -weight
			score -= normalized * weight
			continue
		}
		score += normalized * weight
	}

	p := baseProbability[reading.Scenario] + score + jitter
	if p < syntheticFloor {
		p = syntheticFloor
	}
	if p > syntheticCeiling {
		p = syntheticCeiling
	}
	return p
}

// Interval bounds for the generation loop.
const (
	MinInterval = 5 * time.Second
	MaxInterval = 120 * time.Second
)

// ClampInterval bounds a configured generation interval.
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}
