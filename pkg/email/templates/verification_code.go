package templates

import "fmt"

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.924 generate

// VerificationCodeData is the view model for the one-time code email.
type VerificationCodeData struct {
	Issuer     string
	Code       string
	ValidFor   string // human readable, e.g. "5 minutes"
	SupportURL string // optional
}

// VerificationCodeText is the plain-text alternative of VerificationCode.
func VerificationCodeText(d VerificationCodeData) string {
	return fmt.Sprintf("Your %s verification code is %s. It expires in %s.", d.Issuer, d.Code, d.ValidFor)
}
