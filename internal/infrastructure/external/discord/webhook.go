package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fixflow/fixflow/internal/application/port"
	"github.com/fixflow/fixflow/internal/domain/event"
)

// Config holds Discord webhook configuration.
type Config struct {
	WebhookURL string
	Username   string
	Timeout    time.Duration
}

// WebhookChannel posts lifecycle updates to a Discord channel via an
// incoming webhook. It implements port.NotificationChannel.
type WebhookChannel struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookChannel creates a Discord webhook channel.
func NewWebhookChannel(cfg Config, logger *zap.Logger) *WebhookChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name implements port.NotificationChannel.
func (c *WebhookChannel) Name() string {
	return "discord"
}

// webhookPayload is the Discord webhook request body.
type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed colors per outcome class.
const (
	colorInfo    = 0x3498db
	colorSuccess = 0x2ecc71
	colorWarning = 0xe67e22
	colorDanger  = 0xe74c3c
)

// Send implements port.NotificationChannel.
func (c *WebhookChannel) Send(ctx context.Context, evt *event.Event) error {
	body, err := json.Marshal(buildPayload(c.cfg.Username, evt))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to post Discord webhook",
			zap.String("event_id", evt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Discord webhook returned failure",
			zap.String("event_id", evt.ID),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("webhook error: status=%d", resp.StatusCode)
	}

	c.logger.Info("Discord webhook sent", zap.String("event_id", evt.ID))
	return nil
}

func buildPayload(username string, evt *event.Event) webhookPayload {
	s := evt.Summary

	fields := []embedField{
		{Name: "Status", Value: fmt.Sprintf("%s → %s", s.OldStatus, s.NewStatus), Inline: true},
		{Name: "Category", Value: orDash(s.Category), Inline: true},
		{Name: "Location", Value: orDash(s.Location), Inline: true},
		{Name: "Requester", Value: orDash(s.RequesterName), Inline: true},
	}
	if s.TechnicianName != "" {
		fields = append(fields, embedField{Name: "Technician", Value: s.TechnicianName, Inline: true})
	}
	fields = append(fields, embedField{Name: "By", Value: orDash(s.ActorName), Inline: true})
	if s.Note != "" {
		fields = append(fields, embedField{Name: "Note", Value: s.Note})
	}

	return webhookPayload{
		Username: username,
		Embeds: []embed{{
			Title:       fmt.Sprintf("[%s] %s", evt.Type, s.RequestNumber),
			Description: s.Title,
			Color:       colorFor(evt.Type),
			Fields:      fields,
			Timestamp:   evt.Timestamp.UTC().Format(time.RFC3339),
		}},
	}
}

func colorFor(t event.Type) int {
	switch t {
	case event.TypeCompleted:
		return colorSuccess
	case event.TypeRejected, event.TypeCancelled:
		return colorDanger
	case event.TypeHeld:
		return colorWarning
	default:
		return colorInfo
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var _ port.NotificationChannel = (*WebhookChannel)(nil)
