package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/fixflow/fixflow/internal/application/port"
	"github.com/fixflow/fixflow/internal/domain/event"
)

// Channel posts lifecycle updates to a Lark chat. It implements
// port.NotificationChannel.
type Channel struct {
	client *Client
	logger *zap.Logger
}

// NewChannel creates a Lark notification channel.
func NewChannel(client *Client, logger *zap.Logger) *Channel {
	return &Channel{
		client: client,
		logger: logger,
	}
}

// Name implements port.NotificationChannel.
func (c *Channel) Name() string {
	return "lark"
}

// Send implements port.NotificationChannel.
func (c *Channel) Send(ctx context.Context, evt *event.Event) error {
	content, err := json.Marshal(map[string]string{"text": formatText(evt)})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(c.client.cfg.ReceiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(c.client.cfg.ReceiveID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.client.client.Im.Message.Create(ctx, req)
	if err != nil {
		c.logger.Error("Failed to send Lark message",
			zap.String("event_id", evt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		c.logger.Error("Lark API returned failure",
			zap.String("event_id", evt.ID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	c.logger.Info("Lark message sent",
		zap.String("event_id", evt.ID),
		zap.String("message_id", messageID))

	return nil
}

// formatText renders one event as a plain-text Lark message.
func formatText(evt *event.Event) string {
	s := evt.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s\n", evt.Type, s.RequestNumber, s.Title)
	fmt.Fprintf(&b, "Status: %s → %s\n", s.OldStatus, s.NewStatus)
	fmt.Fprintf(&b, "Category: %s | Location: %s\n", s.Category, s.Location)
	fmt.Fprintf(&b, "Requester: %s", s.RequesterName)
	if s.TechnicianName != "" {
		fmt.Fprintf(&b, " | Technician: %s", s.TechnicianName)
	}
	fmt.Fprintf(&b, "\nBy: %s", s.ActorName)
	if s.Note != "" {
		fmt.Fprintf(&b, "\nNote: %s", s.Note)
	}
	return b.String()
}

var _ port.NotificationChannel = (*Channel)(nil)
