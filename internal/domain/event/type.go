package event

// Type identifies the lifecycle transition an event describes.
type Type string

const (
	TypeCreated   Type = "request.created"
	TypeAssigned  Type = "request.assigned"
	TypeAccepted  Type = "request.accepted"
	TypeRejected  Type = "request.rejected"
	TypeStarted   Type = "request.started"
	TypeHeld      Type = "request.held"
	TypeResumed   Type = "request.resumed"
	TypeCompleted Type = "request.completed"
	TypeCancelled Type = "request.cancelled"
	TypeUpdated   Type = "request.updated"
)

// String returns the string representation of the event type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants.
func (t Type) IsValid() bool {
	switch t {
	case TypeCreated, TypeAssigned, TypeAccepted, TypeRejected,
		TypeStarted, TypeHeld, TypeResumed, TypeCompleted,
		TypeCancelled, TypeUpdated:
		return true
	default:
		return false
	}
}

// AllTypes returns every defined event type. Channel registration subscribes
// each channel to the full set.
func AllTypes() []Type {
	return []Type{
		TypeCreated, TypeAssigned, TypeAccepted, TypeRejected,
		TypeStarted, TypeHeld, TypeResumed, TypeCompleted,
		TypeCancelled, TypeUpdated,
	}
}
