package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params email.SendEmailParams
		errMsg string
	}{
		{
			name:   "valid html",
			params: email.SendEmailParams{SendTo: "user@example.com", Subject: "Code", BodyHTML: "<p>1</p>"},
		},
		{
			name:   "valid text only",
			params: email.SendEmailParams{SendTo: "test.user+tag@sub.example.com", Subject: "Code", BodyText: "1"},
		},
		{
			name:   "empty SendTo",
			params: email.SendEmailParams{Subject: "Code", BodyHTML: "<p>1</p>"},
			errMsg: "SendTo is required",
		},
		{
			name:   "invalid address",
			params: email.SendEmailParams{SendTo: "user@", Subject: "Code", BodyHTML: "<p>1</p>"},
			errMsg: "SendTo must be a valid email address",
		},
		{
			name:   "blank subject",
			params: email.SendEmailParams{SendTo: "user@example.com", Subject: "  ", BodyHTML: "<p>1</p>"},
			errMsg: "Subject is required",
		},
		{
			name:   "no body",
			params: email.SendEmailParams{SendTo: "user@example.com", Subject: "Code"},
			errMsg: "BodyHTML or BodyText is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.params.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "outbox")
	sender := email.NewDevSender(dir)

	err := sender.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Your code",
		BodyHTML: "<p>123456</p>",
		BodyText: "123456",
		Tag:      "mfa-code",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			htmlFile = e.Name()
		case ".json":
			jsonFile = e.Name()
		}
	}
	assert.True(t, strings.HasSuffix(htmlFile, "_mfa-code.html"))

	body, err := os.ReadFile(filepath.Join(dir, htmlFile))
	require.NoError(t, err)
	assert.Equal(t, "<p>123456</p>", string(body))

	raw, err := os.ReadFile(filepath.Join(dir, jsonFile))
	require.NoError(t, err)
	var meta map[string]string
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "user@example.com", meta["send_to"])
	assert.Equal(t, "123456", meta["body_text"])
}

func TestDevSender_RejectsInvalidParams(t *testing.T) {
	t.Parallel()
	sender := email.NewDevSender(t.TempDir())
	err := sender.SendEmail(context.Background(), email.SendEmailParams{})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
}

func validConfig() email.Config {
	return email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "sender@example.com",
		SupportEmail:         "support@example.com",
	}
}

func TestNewPostmarkClient_Config(t *testing.T) {
	t.Parallel()

	_, err := email.NewPostmarkClient(validConfig())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*email.Config)
		errMsg string
	}{
		{"no server token", func(c *email.Config) { c.PostmarkServerToken = "" }, "PostmarkServerToken is required"},
		{"no account token", func(c *email.Config) { c.PostmarkAccountToken = "" }, "PostmarkAccountToken is required"},
		{"bad sender", func(c *email.Config) { c.SenderEmail = "nope" }, "SenderEmail"},
		{"bad support", func(c *email.Config) { c.SupportEmail = "" }, "SupportEmail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			client, err := email.NewPostmarkClient(cfg)
			assert.Nil(t, client)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPostmarkClient_SendEmail(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"user@example.com","MessageID":"m-1","ErrorCode":0,"Message":"OK"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := email.NewPostmarkClient(validConfig(), email.WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = client.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Your code",
		BodyHTML: "<p>123456</p>",
		Tag:      "mfa-code",
	})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got["To"])
	assert.Equal(t, "sender@example.com", got["From"])
	assert.Equal(t, "mfa-code", got["Tag"])
}

func TestPostmarkClient_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":406,"Message":"Inactive recipient"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := email.NewPostmarkClient(validConfig(), email.WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = client.SendEmail(context.Background(), email.SendEmailParams{
		SendTo: "user@example.com", Subject: "Code", BodyText: "1",
	})
	assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	assert.Contains(t, err.Error(), "406")
}
