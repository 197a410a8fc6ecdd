package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"
	FieldLocale    = "locale"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Resources
	FieldTargetID  = "target_id"
	FieldPostID    = "post_id"
	FieldMessageID = "message_id"

	// Service
	FieldService = "service"

	// Storage
	FieldSQL          = "sql"
	FieldRowsAffected = "rows"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
