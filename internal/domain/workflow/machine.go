package workflow

import "context"

// StateMachine tracks a current state and validates transitions out of it
type StateMachine interface {
	State() State

	// CanFire reports whether any transition exists for the trigger; guards are not evaluated
	CanFire(trigger Trigger) bool

	// Fire takes the first transition whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	PermittedTriggers() []Trigger
}
