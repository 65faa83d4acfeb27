package sms

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// LogSender writes messages to a logger instead of sending them. Development only:
// the message body, including any code, is logged at info level.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = logger.Discard()
	}
	return &LogSender{log: log}
}

func (s *LogSender) SendSMS(ctx context.Context, params SendSMSParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "sms not sent, dev sender",
		logger.Component("sms"),
		slog.String("to", NormalizePhone(params.To)),
		slog.String("message", params.Message),
	)
	return nil
}
