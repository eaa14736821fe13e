package event

// Type identifies the type of domain event
type Type string

const (
	TypeReportDispatched Type = "report.dispatched"
	TypeReportConfirmed  Type = "report.confirmed"
	TypeReportRejected   Type = "report.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeReportDispatched,
		TypeReportConfirmed,
		TypeReportRejected:
		return true
	default:
		return false
	}
}
