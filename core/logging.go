package core

import "context"

// Logger is any leveled logger.
// Extra args may carry errors or a user.User to enrich error reports.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// AuditLogger records who did what. It is fire-and-forget: implementations
// must swallow their own failures; a failed audit write never aborts the
// operation being audited.
type AuditLogger interface {
	Log(ctx context.Context, userID, action, description string, meta map[string]string)
}
