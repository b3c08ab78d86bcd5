// Package notification wires chat channels into the event dispatcher.
// Each channel becomes one named handler per event type; channels run
// independently, so one failing channel never prevents another from
// attempting delivery.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/fixflow/fixflow/internal/application/dispatcher"
	"github.com/fixflow/fixflow/internal/application/port"
	"github.com/fixflow/fixflow/internal/domain/event"
)

// Policy bounds the best-effort delivery per channel per event. The default
// is a single attempt; retries are a small fixed-backoff courtesy for flaky
// endpoints, never a durability guarantee.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy is one attempt, no backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 1}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// RegisterChannels subscribes every channel to every lifecycle event type.
func RegisterChannels(d dispatcher.Dispatcher, policy Policy, channels ...port.NotificationChannel) {
	policy = policy.normalized()
	for _, ch := range channels {
		handler := channelHandler(ch, policy)
		for _, t := range event.AllTypes() {
			d.SubscribeNamed(t, ch.Name(), handler)
		}
	}
}

// channelHandler wraps a channel send with the attempt budget. The returned
// error is only ever logged by the dispatcher.
func channelHandler(ch port.NotificationChannel, policy Policy) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		var lastErr error
		for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
			lastErr = ch.Send(ctx, evt)
			if lastErr == nil {
				return nil
			}
			if attempt < policy.MaxAttempts && policy.Backoff > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(policy.Backoff):
				}
			}
		}
		return fmt.Errorf("channel %s: %d attempt(s) failed: %w", ch.Name(), policy.MaxAttempts, lastErr)
	}
}
