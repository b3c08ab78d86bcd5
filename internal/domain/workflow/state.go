package workflow

// State represents a workflow state in the request lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateAssigned   State = "assigned"
	StateAccepted   State = "accepted"
	StateInProgress State = "in_progress"
	StateOnHold     State = "on_hold"
	StateCompleted  State = "completed"
	StateRejected   State = "rejected"
	StateCancelled  State = "cancelled"
)

var validStates = map[State]bool{
	StatePending:    true,
	StateAssigned:   true,
	StateAccepted:   true,
	StateInProgress: true,
	StateOnHold:     true,
	StateCompleted:  true,
	StateRejected:   true,
	StateCancelled:  true,
}

// rejected is deliberately not terminal: a rejected request returns to an
// assignable state and may be reassigned any number of times.
var terminalStates = map[State]bool{
	StateCompleted: true,
	StateCancelled: true,
}

// IsTerminal returns true if no further transitions are allowed from s.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if s is a defined lifecycle state.
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
