package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
	"github.com/anuragv/floodwatch/internal/scenario"
)

func newTestGenerator(t *testing.T, mode Mode, scorer Scorer) *Generator {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	g := New(logger, clockwork.NewFakeClock(), mode, scorer)
	g.Seed(42)
	return g
}

func TestGenerate_UnknownScenario(t *testing.T) {
	g := newTestGenerator(t, ModeSynthetic, nil)
	_, err := g.Generate(context.Background(), "tsunami")
	require.ErrorIs(t, err, scenario.ErrUnknownScenario)
}

func TestGenerate_BoundsHeld(t *testing.T) {
	g := newTestGenerator(t, ModeSynthetic, nil)

	for _, key := range scenario.Keys() {
		sc, err := scenario.Lookup(key)
		require.NoError(t, err)
		ranges := sc.FactorRanges()

		for i := 0; i < 1000; i++ {
			reading, err := g.Generate(context.Background(), key)
			require.NoError(t, err)
			require.Len(t, reading.Factors, model.NumFactors)

			for name, value := range reading.Factors {
				r := ranges[name]
				require.GreaterOrEqual(t, value, r.Min,
					"scenario %s factor %s", key, name)
				require.LessOrEqual(t, value, r.Max,
					"scenario %s factor %s", key, name)
			}
		}
	}
}

func TestGenerate_SyntheticProbabilityRange(t *testing.T) {
	g := newTestGenerator(t, ModeSynthetic, nil)

	for i := 0; i < 1000; i++ {
		reading, err := g.Generate(context.Background(), "flood")
		require.NoError(t, err)
		require.GreaterOrEqual(t, reading.Probability, syntheticFloor)
		require.LessOrEqual(t, reading.Probability, syntheticCeiling)
	}
}

func TestGenerate_FloodScenarioSkewsHigh(t *testing.T) {
	g := newTestGenerator(t, ModeSynthetic, nil)

	floodSum, droughtSum := 0.0, 0.0
	const n = 500
	for i := 0; i < n; i++ {
		flood, err := g.Generate(context.Background(), "flood")
		require.NoError(t, err)
		drought, err := g.Generate(context.Background(), "drought")
		require.NoError(t, err)
		floodSum += flood.Probability
		droughtSum += drought.Probability
	}
	require.Greater(t, floodSum/n, droughtSum/n)
}

type stubScorer struct {
	probability *float64
	err         error
	calls       int
}

func (s *stubScorer) Score(context.Context, []float64) (*float64, error) {
	s.calls++
	return s.probability, s.err
}

func TestGenerate_ModelBacked(t *testing.T) {
	p := 0.82
	scorer := &stubScorer{probability: &p}
	g := newTestGenerator(t, ModeModel, scorer)

	reading, err := g.Generate(context.Background(), "flood")
	require.NoError(t, err)
	require.Equal(t, 0.82, reading.Probability)
	require.Equal(t, 1, scorer.calls)
}

func TestGenerate_ModelErrorDegradesToSynthetic(t *testing.T) {
	scorer := &stubScorer{err: errors.New("model offline")}
	g := newTestGenerator(t, ModeModel, scorer)

	reading, err := g.Generate(context.Background(), "normal")
	require.NoError(t, err)
	require.GreaterOrEqual(t, reading.Probability, syntheticFloor)
	require.LessOrEqual(t, reading.Probability, syntheticCeiling)
}

func TestGenerate_ModelWarmupDegradesToSynthetic(t *testing.T) {
	// A nil probability with nil error signals warm-up.
	scorer := &stubScorer{}
	g := newTestGenerator(t, ModeModel, scorer)

	reading, err := g.Generate(context.Background(), "normal")
	require.NoError(t, err)
	require.GreaterOrEqual(t, reading.Probability, syntheticFloor)
}

func TestGenerate_ModelProbabilityClamped(t *testing.T) {
	p := 1.4
	scorer := &stubScorer{probability: &p}
	g := newTestGenerator(t, ModeModel, scorer)

	reading, err := g.Generate(context.Background(), "flood")
	require.NoError(t, err)
	require.Equal(t, 1.0, reading.Probability)
}

func TestClampInterval(t *testing.T) {
	require.Equal(t, MinInterval, ClampInterval(0))
	require.Equal(t, MaxInterval, ClampInterval(time.Hour))
	require.Equal(t, 60*time.Second, ClampInterval(60*time.Second))
}
