// Package workflow configures the request lifecycle state machine. The
// entire transition table lives here so that adding or auditing a transition
// touches one place.
package workflow

import (
	domainwf "github.com/fixflow/fixflow/internal/domain/workflow"
)

// BuildRequestStateMachine creates a state machine configured with the
// request lifecycle transition table, positioned at initialState.
//
// The main path is pending → assigned → accepted → in_progress → completed,
// with on_hold as a pause between start and completion. reject returns an
// assigned request to the rejected state, from which assign is legal again;
// there is no cap on how often a request may be rejected and reassigned.
// update is a self-transition: it is subject to the same state legality
// rules but leaves the status unchanged.
func BuildRequestStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerAssign, domainwf.StateAssigned).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled).
		Permit(domainwf.TriggerUpdate, domainwf.StatePending)

	builder.Configure(domainwf.StateAssigned).
		Permit(domainwf.TriggerAccept, domainwf.StateAccepted).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled).
		Permit(domainwf.TriggerUpdate, domainwf.StateAssigned)

	builder.Configure(domainwf.StateRejected).
		Permit(domainwf.TriggerAssign, domainwf.StateAssigned)

	builder.Configure(domainwf.StateAccepted).
		Permit(domainwf.TriggerStart, domainwf.StateInProgress)

	builder.Configure(domainwf.StateInProgress).
		Permit(domainwf.TriggerHold, domainwf.StateOnHold).
		Permit(domainwf.TriggerComplete, domainwf.StateCompleted)

	builder.Configure(domainwf.StateOnHold).
		Permit(domainwf.TriggerResume, domainwf.StateInProgress).
		Permit(domainwf.TriggerComplete, domainwf.StateCompleted)

	// completed and cancelled are terminal, no outgoing transitions.

	return builder.Build(initialState)
}
