package dispatcher

import (
	"context"

	"github.com/garyjia/sales-report-bot/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// AuditHandler writes every report lifecycle event to the log
func AuditHandler(logger Logger) Handler {
	return func(_ context.Context, evt *event.Event) error {
		kv := []interface{}{
			"event_type", evt.Type,
			"event_id", evt.ID,
			"correlation_id", evt.CorrelationID,
			"report_id", evt.ReportID,
		}
		for k, v := range evt.Payload {
			kv = append(kv, k, v)
		}
		logger.Info("Report event", kv...)
		return nil
	}
}

// SubscribeAudit attaches the audit handler to every report event type
func SubscribeAudit(d Dispatcher, logger Logger) {
	for _, t := range []event.Type{
		event.TypeReportDispatched,
		event.TypeReportConfirmed,
		event.TypeReportRejected,
	} {
		d.Subscribe(t, "audit-log", AuditHandler(logger))
	}
}
