package workflow

// Shared builders, assembled in init.
var (
	submissionBuilder StateMachineBuilder
	reviewBuilder     StateMachineBuilder
)

func init() {
	submissionBuilder = buildSubmission()
	reviewBuilder = buildReview()
}

// buildSubmission describes the report submission dialogue.
func buildSubmission() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateRegionSelect).
		Permit(TriggerSelectRegion, StateTemplateEntry)

	b.Configure(StateTemplateEntry).
		Permit(TriggerTemplateAccepted, StateImageEntry)

	b.Configure(StateImageEntry).
		Permit(TriggerImageAttached, StateConfirm)

	b.Configure(StateConfirm).
		Permit(TriggerDispatch, StateDispatched).
		Permit(TriggerEdit, StateEditSelect).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateEditSelect).
		Permit(TriggerBackToConfirm, StateConfirm)

	b.PermitGlobal(TriggerAbort, StateCancelled)

	return b
}

// buildReview describes the review lifecycle of a dispatched report.
func buildReview() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StatePending).
		Permit(TriggerApprove, StateConfirmed).
		Permit(TriggerReject, StateRejected)

	return b
}

// NewSubmissionMachine returns a dialogue machine positioned at the given step.
func NewSubmissionMachine(current State) StateMachine {
	return submissionBuilder.Build(current)
}

// NewReviewMachine returns a review machine positioned at the given state.
func NewReviewMachine(current State) StateMachine {
	return reviewBuilder.Build(current)
}
