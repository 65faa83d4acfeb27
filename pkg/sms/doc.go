// Package sms delivers one-time codes by text message through Amazon SNS
// (aws-sdk-go-v2). LogSender stands in during local development.
//
// SNS errors are classified into ErrOptedOut, ErrProviderThrottled and
// ErrInvalidParams, each joined with ErrFailedToSendSMS.
package sms
