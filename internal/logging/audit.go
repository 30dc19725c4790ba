package logging

import (
	"slices"

	"github.com/go-logr/logr"
)

// LogAuditEvent logs a structured event for a state-changing action taken on the
// workload (license pushed, layer replanned, ingress URL stored or cleared).
// Audit events are tagged with "audit=true" for filtering in the unit debug log.
func LogAuditEvent(logger logr.Logger, eventType string, fields map[string]string) {
	kvs := []any{"audit", "true", "event_type", eventType}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		kvs = append(kvs, key, fields[key])
	}
	logger.Info("Audit event", kvs...)
}
