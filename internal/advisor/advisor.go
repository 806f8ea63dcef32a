// Package advisor produces situational flood recommendations. Remote
// generation is guarded by two independent policies composed cache-first: a
// TTL cache keyed by (risk level, probability decile), then a minimum
// inter-call throttle. Either guard failing open falls back to a static
// recommendation of the same shape.
package advisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
)

// Advisory is a structured recommendation for the current conditions.
type Advisory struct {
	RiskLevel        model.RiskLevel `json:"risk_level"`
	Summary          string          `json:"summary"`
	ImmediateActions []string        `json:"immediate_actions"`
	EmergencyNumbers map[string]string `json:"emergency_numbers"`
	Source           string          `json:"source"` // "remote", "cache", or "fallback"
	GeneratedAt      time.Time       `json:"generated_at"`
}

// Generator produces advisory text remotely (e.g. a hosted LLM).
type Generator interface {
	Generate(ctx context.Context, reading *model.SensorReading, location string) (*Advisory, error)
}

// Config tunes the guards.
type Config struct {
	CacheTTL    time.Duration // default 5m
	MinInterval time.Duration // default 1m between remote calls
	Timeout     time.Duration // default 10s per remote call
}

// Service wraps a Generator with the cache and throttle guards.
type Service struct {
	logger    *zap.Logger
	clock     clockwork.Clock
	generator Generator
	cfg       Config

	mu       sync.Mutex
	cache    map[string]cacheEntry
	lastCall time.Time
}

type cacheEntry struct {
	advisory *Advisory
	storedAt time.Time
}

// NewService creates the advisory service. generator may be nil, in which
// case every request gets the static fallback.
func NewService(logger *zap.Logger, clock clockwork.Clock, generator Generator, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Service{
		logger:    logger.Named("advisor"),
		clock:     clock,
		generator: generator,
		cfg:       cfg,
		cache:     make(map[string]cacheEntry),
	}
}

// cacheKey buckets probabilities by decile so nearby readings share an entry.
func cacheKey(level model.RiskLevel, probability float64) string {
	decile := int(probability*10) * 10
	return fmt.Sprintf("%s_%d", level, decile)
}

// Recommend returns an advisory for the reading. Guards run in order: cache
// hit, then throttle, then the bounded remote call. Timeouts and errors
// degrade to the static fallback; the caller always gets an advisory.
func (s *Service) Recommend(ctx context.Context, reading *model.SensorReading, location string) *Advisory {
	level := model.ClassifyRisk(reading.Probability)
	key := cacheKey(level, reading.Probability)
	now := s.clock.Now()

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && now.Sub(entry.storedAt) < s.cfg.CacheTTL {
		s.mu.Unlock()
		cached := *entry.advisory
		cached.Source = "cache"
		return &cached
	}
	throttled := !s.lastCall.IsZero() && now.Sub(s.lastCall) < s.cfg.MinInterval
	if !throttled {
		s.lastCall = now
	}
	s.mu.Unlock()

	if throttled || s.generator == nil {
		return s.fallback(level, now)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	advisory, err := s.generator.Generate(ctx, reading, location)
	if err != nil {
		s.logger.Warn("Advisory generation failed, using fallback",
			zap.String("risk_level", string(level)),
			zap.Error(err))
		return s.fallback(level, now)
	}
	advisory.RiskLevel = level
	advisory.Source = "remote"
	advisory.GeneratedAt = now

	s.mu.Lock()
	s.cache[key] = cacheEntry{advisory: advisory, storedAt: now}
	s.mu.Unlock()

	result := *advisory
	return &result
}

var emergencyNumbers = map[string]string{
	"Police":              "100",
	"Fire Brigade":        "101",
	"Ambulance":           "108",
	"Disaster Management": "1070",
}

// fallback returns the locally generated advisory for the risk band.
func (s *Service) fallback(level model.RiskLevel, now time.Time) *Advisory {
	advisory := &Advisory{
		RiskLevel:        level,
		EmergencyNumbers: emergencyNumbers,
		Source:           "fallback",
		GeneratedAt:      now,
	}
	switch level {
	case model.RiskSevere:
		advisory.Summary = "Severe flood risk. Evacuation may be necessary."
		advisory.ImmediateActions = []string{
			"Move to higher ground immediately",
			"Keep emergency supplies and documents ready",
			"Follow instructions from local authorities",
		}
	case model.RiskHigh:
		advisory.Summary = "High flood risk. Prepare to move to safety."
		advisory.ImmediateActions = []string{
			"Avoid low-lying areas and riverbanks",
			"Charge phones and prepare an emergency kit",
			"Monitor official flood updates",
		}
	case model.RiskMild:
		advisory.Summary = "Mild flood risk. Stay informed."
		advisory.ImmediateActions = []string{
			"Review your household emergency plan",
			"Keep drains around your home clear",
		}
	default:
		advisory.Summary = "Low flood risk. Conditions are normal."
		advisory.ImmediateActions = []string{
			"No action needed",
		}
	}
	return advisory
}
