// Package monitor runs the generation loop: one producer ticking at a fixed
// interval, generating a reading, classifying it, broadcasting it, and
// triggering alerts for qualifying risk. Control arrives on a command channel
// so input sources stay decoupled from the scheduling loop.
package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/advisor"
	"github.com/anuragv/floodwatch/internal/alert"
	"github.com/anuragv/floodwatch/internal/generator"
	"github.com/anuragv/floodwatch/internal/hub"
	"github.com/anuragv/floodwatch/internal/model"
	"github.com/anuragv/floodwatch/internal/scenario"
)

// Command is a control message consumed by the generation loop.
type Command interface{ isCommand() }

// ChangeScenario switches the active scenario, optionally overriding its
// duration for this activation.
type ChangeScenario struct {
	Key      string
	Duration time.Duration
}

// ToggleAutoTransition enables or disables automatic reversion.
type ToggleAutoTransition struct {
	Enabled bool
}

// SetInterval changes the generation interval, clamped to the sane bounds.
type SetInterval struct {
	Interval time.Duration
}

func (ChangeScenario) isCommand()       {}
func (ToggleAutoTransition) isCommand() {}
func (SetInterval) isCommand()          {}

// Resetter lets the coordinator clear the scoring warm-up buffer on scenario
// changes. Nil when running synthetic-only.
type Resetter interface {
	Reset()
}

// Adviser produces a recommendation for a reading. Nil disables advisories.
type Adviser interface {
	Recommend(ctx context.Context, reading *model.SensorReading, location string) *advisor.Advisory
}

// Update is the JSON payload broadcast to listeners after each tick.
type Update struct {
	Type         string               `json:"type"`
	Reading      *model.SensorReading `json:"reading"`
	RiskLevel    model.RiskLevel      `json:"risk_level"`
	AlertIssued  bool                 `json:"alert_issued"`
	AlertSummary *alert.Summary       `json:"alert_summary,omitempty"`
	Advisory     *advisor.Advisory    `json:"advisory,omitempty"`
}

// Status is a point-in-time snapshot of the coordinator.
type Status struct {
	Running         bool       `json:"running"`
	Scenario        string     `json:"scenario"`
	AutoTransition  bool       `json:"auto_transition"`
	Interval        string     `json:"interval"`
	TotalReadings   int64      `json:"total_readings"`
	LastReadingTime *time.Time `json:"last_reading_time,omitempty"`
	UptimeSeconds   float64    `json:"uptime_seconds"`
	Listeners       int        `json:"listeners"`
	CPUPercent      float64    `json:"cpu_percent"`
	MemoryPercent   float64    `json:"memory_percent"`
}

// Coordinator owns the pipeline. There is at most one producer: ticks run
// synchronously inside the loop and never overlap.
type Coordinator struct {
	logger    *zap.Logger
	clock     clockwork.Clock
	scenarios *scenario.Manager
	gen       *generator.Generator
	scoring   Resetter
	notifier  *alert.Notifier
	adviser   Adviser
	location  string
	fanout    *hub.Hub
	metrics   *Metrics

	commands chan Command
	stop     chan struct{}
	done     chan struct{}

	mu          sync.Mutex
	running     bool
	interval    time.Duration
	readings    int64
	lastReading *time.Time
	startedAt   time.Time
}

// NewCoordinator wires the pipeline together. metrics and scoring may be nil.
func NewCoordinator(
	logger *zap.Logger,
	clock clockwork.Clock,
	scenarios *scenario.Manager,
	gen *generator.Generator,
	scoring Resetter,
	notifier *alert.Notifier,
	adviser Adviser,
	location string,
	fanout *hub.Hub,
	metrics *Metrics,
	interval time.Duration,
) *Coordinator {
	return &Coordinator{
		logger:    logger.Named("monitor"),
		clock:     clock,
		scenarios: scenarios,
		gen:       gen,
		scoring:   scoring,
		notifier:  notifier,
		adviser:   adviser,
		location:  location,
		fanout:    fanout,
		metrics:   metrics,
		commands:  make(chan Command, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		interval:  generator.ClampInterval(interval),
	}
}

// Submit queues a control command for the loop. Returns false if the queue is
// full or the loop has stopped.
func (c *Coordinator) Submit(cmd Command) bool {
	select {
	case c.commands <- cmd:
		return true
	case <-c.stop:
		return false
	default:
		c.logger.Warn("Command queue full, dropping command")
		return false
	}
}

// Start launches the generation loop.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.running = true
	c.startedAt = c.clock.Now()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.LoopRunning.Set(1)
	}
	c.logger.Info("Monitoring started",
		zap.String("scenario", c.scenarios.Current().Key),
		zap.Duration("interval", c.interval))

	go c.run(ctx)
}

// Stop halts the loop. The in-flight tick, if any, completes first.
func (c *Coordinator) Stop() {
	close(c.stop)
	<-c.done
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.LoopRunning.Set(0)
		}
		c.logger.Info("Monitoring stopped")
	}()

	ticker := c.clock.NewTicker(c.currentInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case cmd := <-c.commands:
			if c.handleCommand(cmd) {
				ticker.Reset(c.currentInterval())
			}
		case <-ticker.Chan():
			c.tick(ctx)
		}
	}
}

// handleCommand applies one control message. Returns true when the ticker
// interval changed.
func (c *Coordinator) handleCommand(cmd Command) bool {
	switch v := cmd.(type) {
	case ChangeScenario:
		if err := c.scenarios.Set(v.Key, v.Duration); err != nil {
			c.logger.Warn("Rejected scenario change",
				zap.String("scenario", v.Key),
				zap.Error(err))
			return false
		}
		if c.scoring != nil {
			c.scoring.Reset()
		}
	case ToggleAutoTransition:
		c.scenarios.SetAutoTransition(v.Enabled)
	case SetInterval:
		interval := generator.ClampInterval(v.Interval)
		c.mu.Lock()
		c.interval = interval
		c.mu.Unlock()
		c.logger.Info("Generation interval changed", zap.Duration("interval", interval))
		return true
	}
	return false
}

func (c *Coordinator) currentInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// tick runs one generate-classify-broadcast-notify pass. A failing tick is
// logged and skipped; the loop itself never terminates because of one.
func (c *Coordinator) tick(ctx context.Context) {
	start := c.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Tick panicked", zap.Any("panic", r))
			if c.metrics != nil {
				c.metrics.TickErrors.Inc()
			}
		}
		if c.metrics != nil {
			c.metrics.TickDuration.Observe(c.clock.Since(start).Seconds())
		}
	}()

	if c.scenarios.ShouldAutoTransition() {
		expired := c.scenarios.Current().Key
		c.scenarios.RevertToDefault()
		if c.scoring != nil {
			c.scoring.Reset()
		}
		c.logger.Info("Scenario expired, reverted to default",
			zap.String("expired", expired))
	}

	reading, err := c.gen.Generate(ctx, c.scenarios.Current().Key)
	if err != nil {
		c.logger.Error("Failed to generate reading", zap.Error(err))
		if c.metrics != nil {
			c.metrics.TickErrors.Inc()
		}
		return
	}

	level := model.ClassifyRisk(reading.Probability)

	c.mu.Lock()
	c.readings++
	t := reading.Timestamp
	c.lastReading = &t
	total := c.readings
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ReadingsGenerated.WithLabelValues(reading.Scenario).Inc()
		c.metrics.CurrentRisk.Set(reading.Probability)
	}

	update := &Update{
		Type:        "sensor_update",
		Reading:     reading,
		RiskLevel:   level,
		AlertIssued: level.Qualifying(),
	}

	if level.Qualifying() {
		if c.adviser != nil {
			update.Advisory = c.adviser.Recommend(ctx, reading, c.location)
		}
		summary, err := c.notifier.NotifyAll(ctx, level, reading.Probability)
		if err != nil {
			c.logger.Error("Alert pass failed", zap.Error(err))
		} else {
			update.AlertSummary = summary
			if c.metrics != nil {
				c.metrics.AlertsSent.Add(float64(summary.Sent))
				c.metrics.AlertsFailed.Add(float64(summary.Failed))
			}
		}
	}

	c.broadcast(update)

	c.logger.Info("Reading processed",
		zap.Int64("reading", total),
		zap.String("scenario", reading.Scenario),
		zap.Float64("probability", reading.Probability),
		zap.String("risk_level", string(level)))
}

func (c *Coordinator) broadcast(update *Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		c.logger.Error("Failed to marshal update", zap.Error(err))
		return
	}
	c.fanout.Broadcast(payload)
}

// Status returns a snapshot including host resource usage.
func (c *Coordinator) Status() *Status {
	c.mu.Lock()
	status := &Status{
		Running:         c.running,
		Scenario:        c.scenarios.Current().Key,
		AutoTransition:  c.scenarios.AutoTransition(),
		Interval:        c.interval.String(),
		TotalReadings:   c.readings,
		LastReadingTime: c.lastReading,
		Listeners:       c.fanout.Count(),
	}
	if c.running {
		status.UptimeSeconds = c.clock.Since(c.startedAt).Seconds()
	}
	c.mu.Unlock()

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemoryPercent = vm.UsedPercent
	}
	return status
}
