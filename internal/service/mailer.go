package service

import (
	"context"

	"github.com/folio/internal/db"
	"github.com/rs/zerolog"
)

// Mailer 负责投递账号相关邮件。投递失败不会影响主流程。
type Mailer interface {
	SendVerification(ctx context.Context, user db.User, token string) error
	SendPasswordReset(ctx context.Context, user db.User, token string) error
}

// LogMailer 只把邮件内容写入日志，不做真实投递。
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer 构造 LogMailer。
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendVerification 记录一封验证邮件。
func (m *LogMailer) SendVerification(_ context.Context, user db.User, token string) error {
	m.logger.Info().
		Str("mail", "verification").
		Str("to", user.Email).
		Str("token", token).
		Msg("verification mail queued")
	return nil
}

// SendPasswordReset 记录一封重置密码邮件。
func (m *LogMailer) SendPasswordReset(_ context.Context, user db.User, token string) error {
	m.logger.Info().
		Str("mail", "password_reset").
		Str("to", user.Email).
		Str("token", token).
		Msg("password reset mail queued")
	return nil
}
