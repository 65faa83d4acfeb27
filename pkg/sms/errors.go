package sms

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid sms config")
	ErrInvalidParams     = errors.New("invalid sms params")
	ErrFailedToSendSMS   = errors.New("failed to send sms")
	ErrFailedToLoadAWS   = errors.New("failed to load aws config")
	ErrOptedOut          = errors.New("recipient opted out of sms")
	ErrProviderThrottled = errors.New("sms provider throttled the request")
)
