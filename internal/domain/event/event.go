package event

import (
	"time"

	"github.com/google/uuid"
)

// Summary is the structured payload handed to every notification channel.
// It is built once per transition from the freshly loaded request detail;
// channel-specific formatting happens entirely inside the channel adapters.
type Summary struct {
	RequestNumber  string `json:"request_number"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Location       string `json:"location"`
	RequesterName  string `json:"requester_name"`
	TechnicianName string `json:"technician_name,omitempty"`
	ActorName      string `json:"actor_name"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
	Note           string `json:"note,omitempty"`
}

// Event describes one committed lifecycle transition. Events are created
// only after the state transaction commits, so a dispatched event always
// refers to a durable transition.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	RequestID     string    `json:"request_id"`
	Summary       Summary   `json:"summary"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

// New creates an event with a generated ID and timestamp.
func New(eventType Type, requestID string, summary Summary) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequestID:     requestID,
		Summary:       summary,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}
}

// NewWithCorrelation creates an event linked to an existing correlation chain.
func NewWithCorrelation(eventType Type, requestID string, summary Summary, correlationID string) *Event {
	evt := New(eventType, requestID, summary)
	evt.CorrelationID = correlationID
	return evt
}
