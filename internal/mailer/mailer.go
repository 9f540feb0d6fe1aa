// Package mailer is the outbound email capability. Delivery transport lives
// outside this service; the core only needs a boolean success signal and never
// retries internally.
package mailer

import "go.uber.org/zap"

const (
	KindPasswordReset     = "password_reset"
	KindEmailVerification = "email_verification"
)

type Sender interface {
	Send(to, kind, link string) bool
}

// LogSender is the development implementation: it logs the link instead of
// delivering it. Raw tokens inside the link must never reach production logs.
type LogSender struct {
	lg *zap.SugaredLogger
}

func NewLogSender(lg *zap.SugaredLogger) *LogSender { return &LogSender{lg: lg} }

func (s *LogSender) Send(to, kind, link string) bool {
	s.lg.Infow("email send", "to", to, "kind", kind, "link", link)
	return true
}
