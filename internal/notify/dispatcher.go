// Package notify delivers user-facing notifications to the desktop and an
// optional webhook.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// EventType represents a notification event type.
type EventType string

const (
	EventListDownloaded EventType = "list_downloaded"
	EventListFailed     EventType = "list_failed"
	EventSessionEnded   EventType = "session_ended"
)

// Config selects notification channels.
type Config struct {
	Desktop    bool   `mapstructure:"desktop" json:"desktop"`
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url,omitempty"`
}

// Event describes a notification event.
type Event struct {
	ProfileID   string
	ProfileName string
	Type        EventType
	Title       string
	Message     string
	Timestamp   time.Time
}

type payload struct {
	Profile   string    `json:"profile"`
	ProfileID string    `json:"profileId"`
	Event     EventType `json:"event"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"`
}

// Dispatcher sends notifications to configured channels.
type Dispatcher struct {
	client  *resty.Client
	desktop func(title, message string) error
	logger  *zap.Logger
}

// NewDispatcher creates a Dispatcher with sensible defaults.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		client: resty.New().
			SetTimeout(5*time.Second).
			SetHeader("Content-Type", "application/json"),
		desktop: func(title, message string) error { return beeep.Notify(title, message, "") },
		logger:  logger.Named("notify"),
	}
}

// Dispatch sends an event using the given config. Delivery failures are
// logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg Config, event Event) {
	title := strings.TrimSpace(event.Title)
	if title == "" {
		if event.ProfileName != "" {
			title = event.ProfileName
		} else {
			title = "websmith"
		}
	}
	message := strings.TrimSpace(event.Message)
	if message == "" {
		message = string(event.Type)
	}
	if len(message) > 800 {
		message = message[:800] + "..."
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if cfg.Desktop {
		if err := d.desktop(title, message); err != nil {
			d.logger.Debug("Desktop notification failed", zap.Error(err))
		}
	}

	if cfg.WebhookURL == "" {
		return
	}
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(payload{
			Profile:   event.ProfileName,
			ProfileID: event.ProfileID,
			Event:     event.Type,
			Title:     title,
			Message:   message,
			Timestamp: event.Timestamp.Unix(),
		}).
		Post(cfg.WebhookURL)
	if err != nil {
		d.logger.Warn("Webhook delivery failed", zap.String("url", cfg.WebhookURL), zap.Error(err))
		return
	}
	if resp.IsError() {
		d.logger.Warn("Webhook rejected notification",
			zap.String("url", cfg.WebhookURL), zap.Int("status", resp.StatusCode()))
	}
}
