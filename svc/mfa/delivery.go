package mfa

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/email"
	"github.com/dmitrymomot/mfakit/pkg/email/templates"
	"github.com/dmitrymomot/mfakit/pkg/sms"
)

// NewEmailSender renders the verification email and sends it through es.
func NewEmailSender(es email.EmailSender, issuer, supportURL string) Sender {
	return SenderFunc(func(ctx context.Context, destination, code string, validFor time.Duration) error {
		data := templates.VerificationCodeData{
			Issuer:     issuer,
			Code:       code,
			ValidFor:   humanDuration(validFor),
			SupportURL: supportURL,
		}

		html, err := templates.Render(ctx, templates.VerificationCode(data))
		if err != nil {
			return fmt.Errorf("render verification email: %w", err)
		}

		return es.SendEmail(ctx, email.SendEmailParams{
			SendTo:   destination,
			Subject:  issuer + " verification code",
			BodyHTML: html,
			BodyText: templates.VerificationCodeText(data),
			Tag:      "mfa-code",
		})
	})
}

// NewSMSSender formats the verification text and sends it through ss.
func NewSMSSender(ss sms.Sender, issuer string) Sender {
	return SenderFunc(func(ctx context.Context, destination, code string, validFor time.Duration) error {
		return ss.SendSMS(ctx, sms.SendSMSParams{
			To:      destination,
			Message: fmt.Sprintf("%s: your verification code is %s. It expires in %s.", issuer, code, humanDuration(validFor)),
		})
	})
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return d.Round(time.Second).String()
	}
}
