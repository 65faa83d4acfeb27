package sms

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers a single text message.
type Sender interface {
	SendSMS(ctx context.Context, params SendSMSParams) error
}

type SendSMSParams struct {
	To      string // E.164, e.g. +14155550100
	Message string
}

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// NormalizePhone strips spaces, dashes, dots and parentheses users type around a number.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// ValidPhone reports whether s is an E.164 number after normalization.
func ValidPhone(s string) bool {
	return e164Regex.MatchString(NormalizePhone(s))
}

func (p SendSMSParams) Validate() error {
	switch {
	case p.To == "":
		return fmt.Errorf("%w: To is required", ErrInvalidParams)
	case !ValidPhone(p.To):
		return fmt.Errorf("%w: To must be an E.164 phone number", ErrInvalidParams)
	case strings.TrimSpace(p.Message) == "":
		return fmt.Errorf("%w: Message is required", ErrInvalidParams)
	}
	return nil
}
