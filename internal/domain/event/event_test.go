package event

import (
	"testing"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{name: "dispatched", eventType: TypeReportDispatched, want: true},
		{name: "confirmed", eventType: TypeReportConfirmed, want: true},
		{name: "rejected", eventType: TypeReportRejected, want: true},
		{name: "unknown", eventType: Type("report.deleted"), want: false},
		{name: "empty", eventType: Type(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeReportDispatched, 42, map[string]interface{}{"sheet": "VL 06.12.2025"})

	if evt.ID == "" || evt.CorrelationID == "" {
		t.Fatal("NewEvent() should generate ID and correlation ID")
	}
	if evt.ID == evt.CorrelationID {
		t.Error("ID and correlation ID should differ")
	}
	if evt.ReportID != 42 {
		t.Errorf("ReportID = %d, want 42", evt.ReportID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if got := evt.GetPayloadString("sheet"); got != "VL 06.12.2025" {
		t.Errorf("GetPayloadString() = %q", got)
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	first := NewEvent(TypeReportDispatched, 1, nil)
	second := NewEventWithCorrelation(TypeReportConfirmed, 1, nil, first.CorrelationID)

	if second.CorrelationID != first.CorrelationID {
		t.Errorf("CorrelationID = %q, want %q", second.CorrelationID, first.CorrelationID)
	}
	if second.Payload == nil {
		t.Error("nil payload should be replaced with an empty map")
	}
}

func TestEvent_WithPayloadIsImmutable(t *testing.T) {
	original := NewEvent(TypeReportConfirmed, 7, map[string]interface{}{"reviewer_id": int64(100)})
	updated := original.WithPayload("status", "confirmed")

	if _, ok := original.Payload["status"]; ok {
		t.Error("WithPayload() mutated the original event")
	}
	if updated.GetPayloadString("status") != "confirmed" {
		t.Error("updated event is missing the new payload key")
	}
	if updated.GetPayloadInt("reviewer_id") != 100 {
		t.Error("updated event lost existing payload")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload() should keep the event ID")
	}
}

func TestEvent_GetPayloadInt(t *testing.T) {
	evt := NewEvent(TypeReportRejected, 1, map[string]interface{}{
		"int":    5,
		"int64":  int64(6),
		"float":  float64(7),
		"string": "8",
	})

	tests := map[string]int64{"int": 5, "int64": 6, "float": 7, "string": 0, "missing": 0}
	for key, want := range tests {
		if got := evt.GetPayloadInt(key); got != want {
			t.Errorf("GetPayloadInt(%q) = %d, want %d", key, got, want)
		}
	}
}
