package sms_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/sms"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSendSMSParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  sms.SendSMSParams
		wantErr bool
	}{
		{name: "valid", params: sms.SendSMSParams{To: "+14155550100", Message: "code 123456"}},
		{name: "formatted number", params: sms.SendSMSParams{To: "+1 (415) 555-0100", Message: "x"}},
		{name: "missing plus", params: sms.SendSMSParams{To: "14155550100", Message: "x"}, wantErr: true},
		{name: "too short", params: sms.SendSMSParams{To: "+123", Message: "x"}, wantErr: true},
		{name: "empty message", params: sms.SendSMSParams{To: "+14155550100"}, wantErr: true},
		{name: "empty to", params: sms.SendSMSParams{Message: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, sms.ErrInvalidParams)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSNSSender_SendSMS(t *testing.T) {
	t.Parallel()

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+14155550100" &&
			aws.ToString(in.Message) == "Your code is 123456" &&
			aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue) == "Transactional" &&
			aws.ToString(in.MessageAttributes["AWS.SNS.SMS.MaxPrice"].DataType) == "Number"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil).Once()

	sender, err := sms.NewSNSSender(context.Background(),
		sms.Config{Region: "us-east-1", SMSType: "Transactional", MaxPrice: "0.50"},
		sms.WithPublisher(pub),
	)
	require.NoError(t, err)

	err = sender.SendSMS(context.Background(), sms.SendSMSParams{To: "+1 415-555-0100", Message: "Your code is 123456"})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestSNSSender_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want error
	}{
		{code: "OptedOut", want: sms.ErrOptedOut},
		{code: "Throttling", want: sms.ErrProviderThrottled},
		{code: "InvalidParameter", want: sms.ErrInvalidParams},
		{code: "InternalError", want: sms.ErrFailedToSendSMS},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			pub := new(MockPublisher)
			pub.On("Publish", mock.Anything, mock.Anything).
				Return(nil, &smithy.GenericAPIError{Code: tt.code, Message: "boom"})

			sender, err := sms.NewSNSSender(context.Background(), sms.Config{Region: "eu-west-1"}, sms.WithPublisher(pub))
			require.NoError(t, err)

			err = sender.SendSMS(context.Background(), sms.SendSMSParams{To: "+447700900123", Message: "x"})
			assert.ErrorIs(t, err, sms.ErrFailedToSendSMS)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewSNSSender_RequiresRegion(t *testing.T) {
	t.Parallel()
	_, err := sms.NewSNSSender(context.Background(), sms.Config{})
	assert.ErrorIs(t, err, sms.ErrInvalidConfig)
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sender := sms.NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, sender.SendSMS(context.Background(), sms.SendSMSParams{To: "+14155550100", Message: "hi"}))
	assert.Contains(t, buf.String(), `"to":"+14155550100"`)

	assert.ErrorIs(t, sender.SendSMS(context.Background(), sms.SendSMSParams{}), sms.ErrInvalidParams)
}
