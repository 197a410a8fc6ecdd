package audit

import (
	"context"

	"github.com/weiawesome/microblog/pkg/log"
)

// Audit actions.
const (
	ActionRegister      = "user.register"
	ActionTokenIssue    = "token.issue"
	ActionTokenRevoke   = "token.revoke"
	ActionLoginFailed   = "token.login_failed"
	ActionUpdateProfile = "user.update_profile"
	ActionFollow        = "social.follow"
	ActionUnfollow      = "social.unfollow"
	ActionPost          = "post.create"
	ActionMessage       = "message.send"
	ActionAvatarUpload  = "user.avatar_upload"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Msg(msg)
}

// LogTarget emits an audit entry about an action on another resource.
func LogTarget(ctx context.Context, action string, userID, targetID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Uint(log.FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID uint, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
