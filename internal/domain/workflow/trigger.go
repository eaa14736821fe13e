package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

// Submission dialogue triggers
const (
	TriggerSelectRegion     Trigger = "SELECT_REGION"
	TriggerTemplateAccepted Trigger = "TEMPLATE_ACCEPTED"
	TriggerImageAttached    Trigger = "IMAGE_ATTACHED"
	TriggerEdit             Trigger = "EDIT"
	TriggerBackToConfirm    Trigger = "BACK_TO_CONFIRM"
	TriggerDispatch         Trigger = "DISPATCH"
	TriggerCancel           Trigger = "CANCEL"
	TriggerAbort            Trigger = "ABORT"
)

// Review triggers
const (
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
