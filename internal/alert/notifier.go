// Package alert dispatches rate-limited SMS flood alerts to registered
// recipients and records every attempt.
package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
	"github.com/anuragv/floodwatch/internal/sms"
	"github.com/anuragv/floodwatch/internal/storage"
)

// Outcome describes what happened for one recipient.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"
)

// Summary aggregates one NotifyAll pass.
type Summary struct {
	RiskLevel   model.RiskLevel `json:"risk_level"`
	Probability float64         `json:"probability"`
	Total       int             `json:"total_recipients"`
	Sent        int             `json:"alerts_sent"`
	Failed      int             `json:"failed_alerts"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Notifier applies the cool-down policy and dispatches through the SMS
// sender. It performs at most one attempt per recipient per call; failed
// sends are recorded, never retried.
type Notifier struct {
	logger   *zap.Logger
	clock    clockwork.Clock
	store    storage.Store
	sender   sms.Sender
	cooldown *Cooldown
}

// NewNotifier creates a notifier with the given cool-down window.
func NewNotifier(logger *zap.Logger, clock clockwork.Clock, store storage.Store, sender sms.Sender, window time.Duration) *Notifier {
	return &Notifier{
		logger:   logger.Named("notifier"),
		clock:    clock,
		store:    store,
		sender:   sender,
		cooldown: NewCooldown(clock, window),
	}
}

// Notify evaluates and, if policy allows, dispatches one alert to a single
// recipient. Suppression (low risk or within cool-down) is a non-error skip.
func (n *Notifier) Notify(ctx context.Context, recipient *model.Recipient, level model.RiskLevel) (Outcome, error) {
	if !n.cooldown.ShouldSend(recipient, level) {
		n.logger.Debug("Alert suppressed",
			zap.String("recipient", recipient.Name),
			zap.String("risk_level", string(level)))
		return OutcomeSuppressed, nil
	}

	now := n.clock.Now()
	message := RenderMessage(level, recipient.Name, recipient.Area, now)
	record := model.AlertRecord{
		ID:          uuid.New().String(),
		RecipientID: recipient.ID,
		RiskLevel:   level,
		Message:     message,
		SentAt:      now,
	}

	if !n.sender.Send(ctx, recipient.Phone, message) {
		record.Status = model.DeliveryFailed
		if err := n.store.AppendAlert(ctx, record); err != nil {
			n.logger.Error("Failed to record failed alert", zap.Error(err))
		}
		n.logger.Warn("Alert delivery failed",
			zap.String("recipient", recipient.Name),
			zap.String("phone", recipient.Phone))
		return OutcomeFailed, nil
	}

	// Only a successful send advances the cool-down clock.
	if err := n.store.SetLastAlert(ctx, recipient.ID, &now); err != nil {
		n.logger.Error("Failed to update last alert time",
			zap.Int64("recipient_id", recipient.ID),
			zap.Error(err))
	}
	record.Status = model.DeliverySent
	if err := n.store.AppendAlert(ctx, record); err != nil {
		n.logger.Error("Failed to record sent alert", zap.Error(err))
	}

	n.logger.Info("Alert sent",
		zap.String("recipient", recipient.Name),
		zap.String("area", recipient.Area),
		zap.String("risk_level", string(level)))
	return OutcomeSent, nil
}

// NotifyAll runs one serialized pass over every active recipient. A failure
// for one recipient never aborts processing of the remainder. LOW and MILD
// levels short-circuit with zero attempts.
func (n *Notifier) NotifyAll(ctx context.Context, level model.RiskLevel, probability float64) (*Summary, error) {
	summary := &Summary{
		RiskLevel:   level,
		Probability: probability,
		Timestamp:   n.clock.Now(),
	}

	if !level.Qualifying() {
		n.logger.Info("No alerts for risk level",
			zap.String("risk_level", string(level)))
		return summary, nil
	}

	recipients, err := n.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	summary.Total = len(recipients)

	for i := range recipients {
		recipient := &recipients[i]
		outcome := n.notifyOne(ctx, recipient, level)
		switch outcome {
		case OutcomeSent:
			summary.Sent++
		case OutcomeFailed:
			summary.Failed++
		}
	}

	n.logger.Info("Alert pass completed",
		zap.String("risk_level", string(level)),
		zap.Float64("probability", probability),
		zap.Int("total", summary.Total),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// notifyOne isolates a single recipient's processing, converting panics and
// errors into a failed outcome.
func (n *Notifier) notifyOne(ctx context.Context, recipient *model.Recipient, level model.RiskLevel) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Panic while notifying recipient",
				zap.Int64("recipient_id", recipient.ID),
				zap.Any("panic", r))
			outcome = OutcomeFailed
		}
	}()

	outcome, err := n.Notify(ctx, recipient, level)
	if err != nil {
		n.logger.Error("Failed to notify recipient",
			zap.Int64("recipient_id", recipient.ID),
			zap.Error(err))
		return OutcomeFailed
	}
	return outcome
}
