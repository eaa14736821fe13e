package workflow

// State represents a step of the submission dialogue or a report review state
type State string

// Submission dialogue states
const (
	StateRegionSelect  State = "REGION_SELECT"
	StateTemplateEntry State = "TEMPLATE_ENTRY"
	StateImageEntry    State = "IMAGE_ENTRY"
	StateConfirm       State = "CONFIRM"
	StateEditSelect    State = "EDIT_SELECT"
	StateDispatched    State = "DISPATCHED"
	StateCancelled     State = "CANCELLED"
)

// Report review states
const (
	StatePending   State = "PENDING"
	StateConfirmed State = "CONFIRMED"
	StateRejected  State = "REJECTED"
)

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	switch s {
	case StateDispatched, StateCancelled, StateConfirmed, StateRejected:
		return true
	}
	return false
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known workflow state
func (s State) IsValid() bool {
	switch s {
	case StateRegionSelect, StateTemplateEntry, StateImageEntry, StateConfirm, StateEditSelect,
		StateDispatched, StateCancelled, StatePending, StateConfirmed, StateRejected:
		return true
	}
	return false
}
