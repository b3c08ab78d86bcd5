package entity

// Status constants for Request. The status column is the single source of
// truth for workflow position; the transition rules live in the state
// machine factory, not here.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusAccepted   = "accepted"
	StatusInProgress = "in_progress"
	StatusOnHold     = "on_hold"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
	StatusCancelled  = "cancelled"
)

// Action constants for RequestLog entries.
const (
	ActionCreate   = "create"
	ActionAssign   = "assign"
	ActionAccept   = "accept"
	ActionReject   = "reject"
	ActionStart    = "start"
	ActionHold     = "hold"
	ActionResume   = "resume"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
	ActionUpdate   = "update"
)
