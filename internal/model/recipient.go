package model

import "time"

// Recipient is a registered phone-alert target.
type Recipient struct {
	ID           int64      `json:"id"`
	Phone        string     `json:"phone"`
	Name         string     `json:"name"`
	Area         string     `json:"area"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	RegisteredAt time.Time  `json:"registered_at"`
	Active       bool       `json:"active"`
	LastAlertAt  *time.Time `json:"last_alert_at,omitempty"`
}

// DeliveryStatus records the outcome of one dispatch attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// AlertRecord is the append-only log entry for one attempted dispatch.
type AlertRecord struct {
	ID          string         `json:"id"`
	RecipientID int64          `json:"recipient_id"`
	RiskLevel   RiskLevel      `json:"risk_level"`
	Message     string         `json:"message"`
	Status      DeliveryStatus `json:"status"`
	SentAt      time.Time      `json:"sent_at"`
}
