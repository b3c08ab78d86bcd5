package workflow

import "context"

// StateMachine tracks the current state of one request and validates
// transitions against the configured table.
type StateMachine interface {
	// State returns the current state.
	State() State

	// CanFire returns true if the trigger is permitted in the current state.
	CanFire(trigger Trigger) bool

	// Fire attempts the trigger, moving to the target state if permitted.
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can fire in the current state.
	PermittedTriggers() []Trigger
}
