// Package audit provides a unified helper for recording operation audit
// events. Unlike the teacher's PocketBase-backed version, this service
// keeps no database: every entry becomes one structured zerolog event
// instead of an audit_logs record, with the same field shape.
package audit

import "github.com/rs/zerolog"

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Entry holds all fields for a single audit record. A named struct avoids
// the swap-bug risk of several consecutive string parameters.
type Entry struct {
	// Action is a dot-namespaced verb, e.g. "ssh.exec", "ssh.write_file".
	Action string
	// ResourceType is the category of the affected resource, e.g. "host".
	ResourceType string
	// ResourceID identifies the affected resource, e.g. "user@host:22".
	ResourceID string
	// Status must be StatusSuccess or StatusFailed.
	Status string
	// Detail holds optional structured context (error message, exit status).
	Detail map[string]any
}

// Write emits one audit event through log. It never returns an error:
// an audit failure must not break the calling operation.
func Write(log zerolog.Logger, entry Entry) {
	ev := log.Info()
	if entry.Status == StatusFailed {
		ev = log.Warn()
	}
	ev = ev.
		Str("audit_action", entry.Action).
		Str("audit_resource_type", entry.ResourceType).
		Str("audit_resource_id", entry.ResourceID).
		Str("audit_status", entry.Status)
	for k, v := range entry.Detail {
		ev = ev.Interface(k, v)
	}
	ev.Msg("audit")
}
