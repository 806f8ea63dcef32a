// Package sms delivers alert texts through a provider. Ordinary delivery
// failures are reported as false, never as errors, so the notifier can treat
// them uniformly.
package sms

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender accepts a message for delivery. The returned bool means "accepted
// by the provider", not "delivered".
type Sender interface {
	Send(ctx context.Context, address, text string) bool
}

// Config selects and configures the delivery channel.
type Config struct {
	Mode        string // "demo" or "http"
	ProviderURL string
	AuthToken   string
	From        string
	Timeout     time.Duration
}

// NewSender builds a sender from config. Unknown modes fall back to demo so a
// misconfigured provider never breaks the pipeline.
func NewSender(logger *zap.Logger, cfg Config) Sender {
	switch cfg.Mode {
	case "http":
		return NewHTTPSender(logger, cfg)
	default:
		return NewDemoSender(logger)
	}
}

// DemoSender logs the message instead of delivering it. Used when no provider
// is configured.
type DemoSender struct {
	logger *zap.Logger
}

// NewDemoSender creates a log-only sender.
func NewDemoSender(logger *zap.Logger) *DemoSender {
	return &DemoSender{logger: logger.Named("sms-demo")}
}

// Send implements Sender.
func (s *DemoSender) Send(_ context.Context, address, text string) bool {
	s.logger.Info("DEMO SMS",
		zap.String("to", address),
		zap.String("body", text))
	return true
}

// HTTPSender posts messages to an SMS provider's REST endpoint.
type HTTPSender struct {
	logger *zap.Logger
	client *http.Client
	cfg    Config
}

// NewHTTPSender creates a provider-backed sender with a bounded timeout.
func NewHTTPSender(logger *zap.Logger, cfg Config) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		logger: logger.Named("sms"),
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
	}
}

// Send implements Sender. Any transport or provider error is converted to a
// false return; the call never outlives the client timeout.
func (s *HTTPSender) Send(ctx context.Context, address, text string) bool {
	form := url.Values{}
	form.Set("To", address)
	form.Set("From", s.cfg.From)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ProviderURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Error("Failed to build SMS request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("SMS request failed",
			zap.String("to", address),
			zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("SMS provider rejected message",
			zap.String("to", address),
			zap.Int("status", resp.StatusCode))
		return false
	}

	s.logger.Info("SMS accepted for delivery", zap.String("to", address))
	return true
}
