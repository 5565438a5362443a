package log

// Canonical field name constants for structured logging.
const (
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldChatID    = "chat_id"
	FieldMode      = "mode"
	FieldURL       = "url"
	FieldPath      = "path"
	FieldBytes     = "bytes"
)
