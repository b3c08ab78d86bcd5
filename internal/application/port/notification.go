package port

import (
	"context"

	"github.com/fixflow/fixflow/internal/domain/event"
)

// NotificationChannel delivers one transition event to one external chat
// service. Channels are best-effort collaborators: a Send failure is logged
// by the dispatcher and never reaches the caller of the transition.
type NotificationChannel interface {
	// Name identifies the channel in logs and handler registration.
	Name() string

	// Send delivers a single event. Implementations format the event
	// summary however the target service requires.
	Send(ctx context.Context, evt *event.Event) error
}
