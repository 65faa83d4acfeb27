// Package email sends transactional messages through Postmark, or writes them
// to disk with DevSender when no Postmark credentials are configured.
//
// Bodies are produced with templ components from the templates subpackage:
//
//	html, err := templates.Render(ctx, templates.VerificationCode(data))
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   addr,
//	    Subject:  "Your verification code",
//	    BodyHTML: html,
//	    BodyText: templates.VerificationCodeText(data),
//	    Tag:      "mfa-code",
//	})
package email
