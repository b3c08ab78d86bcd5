package workflow

// Trigger represents an actor action that can cause a state transition.
// Trigger values match the action names recorded in the audit log.
type Trigger string

const (
	TriggerAssign   Trigger = "assign"
	TriggerAccept   Trigger = "accept"
	TriggerReject   Trigger = "reject"
	TriggerStart    Trigger = "start"
	TriggerHold     Trigger = "hold"
	TriggerResume   Trigger = "resume"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
	TriggerUpdate   Trigger = "update"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
