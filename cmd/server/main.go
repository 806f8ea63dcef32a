package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/advisor"
	"github.com/anuragv/floodwatch/internal/alert"
	"github.com/anuragv/floodwatch/internal/config"
	"github.com/anuragv/floodwatch/internal/generator"
	"github.com/anuragv/floodwatch/internal/hub"
	"github.com/anuragv/floodwatch/internal/monitor"
	"github.com/anuragv/floodwatch/internal/scenario"
	"github.com/anuragv/floodwatch/internal/scoring"
	"github.com/anuragv/floodwatch/internal/sms"
	"github.com/anuragv/floodwatch/internal/storage"
)

// alertRetention controls how long dispatch records are kept before the
// nightly purge removes them.
const alertRetention = 30 * 24 * time.Hour

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	clock := clockwork.NewRealClock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	store, err := storage.NewStore(logger, storage.DriverConfig{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	// Fan-out hub with optional broker sinks
	metrics := monitor.NewMetrics()
	fanout := hub.New(logger, func(string) { metrics.ListenersDropped.Inc() })

	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc = connectNATS(logger, cfg)
		defer nc.Close()

		js, err := nc.JetStream()
		if err != nil {
			logger.Fatal("Failed to create JetStream context", zap.Error(err))
		}
		sink, err := hub.NewNATSSink(logger, js)
		if err != nil {
			logger.Fatal("Failed to create NATS sink", zap.Error(err))
		}
		fanout.Register(sink)
	}

	if cfg.Kafka.Enabled {
		sink := hub.NewKafkaSink(logger, cfg.Kafka.Brokers, cfg.Kafka.Topic, 10*time.Second)
		defer sink.Close()
		fanout.Register(sink)
	}

	// Scoring
	var scorer generator.Scorer
	var resetter monitor.Resetter
	mode := generator.ModeSynthetic
	if cfg.Scoring.Mode == "model" {
		expander, normalizer, linear, err := scoring.LoadArtifact(cfg.Scoring.ArtifactPath)
		if err != nil {
			logger.Warn("Model artifact unavailable, falling back to synthetic scoring",
				zap.String("path", cfg.Scoring.ArtifactPath),
				zap.Error(err))
		} else {
			pipeline := scoring.NewPipeline(logger, expander, normalizer, linear,
				cfg.Scoring.WarmupLength, cfg.Scoring.Timeout)
			scorer = pipeline
			resetter = pipeline
			mode = generator.ModeModel
			logger.Info("Loaded pre-trained model",
				zap.String("path", cfg.Scoring.ArtifactPath),
				zap.Int("warmup_length", cfg.Scoring.WarmupLength))
		}
	}

	// Alerting
	sender := sms.NewSender(logger, sms.Config{
		Mode:        cfg.SMS.Mode,
		ProviderURL: cfg.SMS.ProviderURL,
		AuthToken:   cfg.SMS.AuthToken,
		From:        cfg.SMS.From,
		Timeout:     cfg.SMS.Timeout,
	})
	notifier := alert.NewNotifier(logger, clock, store, sender, cfg.Alerts.Cooldown)

	// Advisory service (optional remote generation, always has a fallback)
	var advisoryGen advisor.Generator
	if cfg.Advisor.Enabled {
		advisoryGen = advisor.NewHTTPGenerator(logger, cfg.Advisor.URL, cfg.Advisor.APIKey)
	}
	advisory := advisor.NewService(logger, clock, advisoryGen, advisor.Config{
		CacheTTL:    cfg.Advisor.CacheTTL,
		MinInterval: cfg.Advisor.MinInterval,
		Timeout:     cfg.Advisor.Timeout,
	})

	// Monitoring pipeline
	scenarios := scenario.NewManager(logger, clock)
	scenarios.SetAutoTransition(cfg.Monitor.AutoTransition)
	if cfg.Monitor.DefaultScenario != scenario.DefaultScenario {
		if err := scenarios.Set(cfg.Monitor.DefaultScenario, 0); err != nil {
			logger.Fatal("Invalid default scenario", zap.Error(err))
		}
	}

	gen := generator.New(logger, clock, mode, scorer)
	coordinator := monitor.NewCoordinator(logger, clock, scenarios, gen, resetter,
		notifier, advisory, cfg.App.Location, fanout, metrics, cfg.Monitor.Interval)

	// Nightly purge of old dispatch records
	purger := cron.New()
	if _, err := purger.AddFunc("0 3 * * *", func() {
		cutoff := time.Now().Add(-alertRetention)
		if err := store.PurgeAlertsBefore(context.Background(), cutoff); err != nil {
			logger.Error("Failed to purge alert history", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("Failed to schedule alert purge", zap.Error(err))
	}
	purger.Start()
	defer purger.Stop()

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics endpoint listening", zap.String("addr", cfg.Metrics.ListenAddr))
		if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	coordinator.Start(ctx)

	// Graceful shutdown on SIGINT/SIGTERM; the in-flight tick completes first.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	coordinator.Stop()
	cancel()
	logger.Info("Server shut down gracefully")
}

// connectNATS dials NATS with retry and the standard connection handlers.
func connectNATS(logger *zap.Logger, cfg *config.Config) *nats.Conn {
	opts := []nats.Option{
		nats.Name(cfg.App.Name),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
		nats.Timeout(cfg.NATS.ConnectTimeout),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS connection error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	var nc *nats.Conn
	var err error
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		nc, err = nats.Connect(cfg.NATS.URLs[0], opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
	}

	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return nc
}
