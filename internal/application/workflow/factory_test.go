package workflow

import (
	"context"
	"testing"

	domainwf "github.com/fixflow/fixflow/internal/domain/workflow"
)

func TestBuildRequestStateMachine_TransitionTable(t *testing.T) {
	tests := []struct {
		from    domainwf.State
		trigger domainwf.Trigger
		to      domainwf.State
		allowed bool
	}{
		// pending
		{domainwf.StatePending, domainwf.TriggerAssign, domainwf.StateAssigned, true},
		{domainwf.StatePending, domainwf.TriggerCancel, domainwf.StateCancelled, true},
		{domainwf.StatePending, domainwf.TriggerUpdate, domainwf.StatePending, true},
		{domainwf.StatePending, domainwf.TriggerAccept, "", false},
		{domainwf.StatePending, domainwf.TriggerStart, "", false},
		{domainwf.StatePending, domainwf.TriggerComplete, "", false},

		// assigned
		{domainwf.StateAssigned, domainwf.TriggerAccept, domainwf.StateAccepted, true},
		{domainwf.StateAssigned, domainwf.TriggerReject, domainwf.StateRejected, true},
		{domainwf.StateAssigned, domainwf.TriggerCancel, domainwf.StateCancelled, true},
		{domainwf.StateAssigned, domainwf.TriggerUpdate, domainwf.StateAssigned, true},
		{domainwf.StateAssigned, domainwf.TriggerAssign, "", false},
		{domainwf.StateAssigned, domainwf.TriggerStart, "", false},

		// rejected returns to the assignable pool
		{domainwf.StateRejected, domainwf.TriggerAssign, domainwf.StateAssigned, true},
		{domainwf.StateRejected, domainwf.TriggerCancel, "", false},
		{domainwf.StateRejected, domainwf.TriggerUpdate, "", false},

		// accepted
		{domainwf.StateAccepted, domainwf.TriggerStart, domainwf.StateInProgress, true},
		{domainwf.StateAccepted, domainwf.TriggerCancel, "", false},
		{domainwf.StateAccepted, domainwf.TriggerReject, "", false},

		// in_progress
		{domainwf.StateInProgress, domainwf.TriggerHold, domainwf.StateOnHold, true},
		{domainwf.StateInProgress, domainwf.TriggerComplete, domainwf.StateCompleted, true},
		{domainwf.StateInProgress, domainwf.TriggerResume, "", false},
		{domainwf.StateInProgress, domainwf.TriggerCancel, "", false},

		// on_hold
		{domainwf.StateOnHold, domainwf.TriggerResume, domainwf.StateInProgress, true},
		{domainwf.StateOnHold, domainwf.TriggerComplete, domainwf.StateCompleted, true},
		{domainwf.StateOnHold, domainwf.TriggerHold, "", false},

		// terminal states permit nothing
		{domainwf.StateCompleted, domainwf.TriggerAssign, "", false},
		{domainwf.StateCompleted, domainwf.TriggerUpdate, "", false},
		{domainwf.StateCancelled, domainwf.TriggerAssign, "", false},
		{domainwf.StateCancelled, domainwf.TriggerCancel, "", false},
	}

	for _, tt := range tests {
		name := string(tt.from) + "/" + string(tt.trigger)
		t.Run(name, func(t *testing.T) {
			machine := BuildRequestStateMachine(tt.from)

			if got := machine.CanFire(tt.trigger); got != tt.allowed {
				t.Fatalf("CanFire(%s) from %s = %v, want %v", tt.trigger, tt.from, got, tt.allowed)
			}
			if !tt.allowed {
				return
			}

			if err := machine.Fire(context.Background(), tt.trigger); err != nil {
				t.Fatalf("Fire(%s) from %s failed: %v", tt.trigger, tt.from, err)
			}
			if machine.State() != tt.to {
				t.Errorf("Fire(%s) from %s = %v, want %v", tt.trigger, tt.from, machine.State(), tt.to)
			}
		})
	}
}

func TestBuildRequestStateMachine_RejectionLoop(t *testing.T) {
	// A request may be rejected and reassigned any number of times.
	machine := BuildRequestStateMachine(domainwf.StateAssigned)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := machine.Fire(ctx, domainwf.TriggerReject); err != nil {
			t.Fatalf("round %d: Fire(reject) failed: %v", i, err)
		}
		if err := machine.Fire(ctx, domainwf.TriggerAssign); err != nil {
			t.Fatalf("round %d: Fire(assign) failed: %v", i, err)
		}
	}

	if machine.State() != domainwf.StateAssigned {
		t.Errorf("state after rejection loop = %v, want %v", machine.State(), domainwf.StateAssigned)
	}
}

func TestBuildRequestStateMachine_FullLifecycle(t *testing.T) {
	machine := BuildRequestStateMachine(domainwf.StatePending)
	ctx := context.Background()

	steps := []struct {
		trigger domainwf.Trigger
		want    domainwf.State
	}{
		{domainwf.TriggerAssign, domainwf.StateAssigned},
		{domainwf.TriggerAccept, domainwf.StateAccepted},
		{domainwf.TriggerStart, domainwf.StateInProgress},
		{domainwf.TriggerHold, domainwf.StateOnHold},
		{domainwf.TriggerResume, domainwf.StateInProgress},
		{domainwf.TriggerComplete, domainwf.StateCompleted},
	}

	for _, step := range steps {
		if err := machine.Fire(ctx, step.trigger); err != nil {
			t.Fatalf("Fire(%s) failed: %v", step.trigger, err)
		}
		if machine.State() != step.want {
			t.Fatalf("state after %s = %v, want %v", step.trigger, machine.State(), step.want)
		}
	}

	if !machine.State().IsTerminal() {
		t.Errorf("completed should be terminal")
	}
}
