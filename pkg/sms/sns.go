package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
)

// Publisher is the subset of *sns.Client used for SMS.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender publishes SMS directly to phone numbers through Amazon SNS.
type SNSSender struct {
	client Publisher
	cfg    Config
}

// SNSOption configures NewSNSSender.
type SNSOption func(*snsOptions)

type snsOptions struct {
	client     Publisher
	awsOptions []func(*config.LoadOptions) error
}

// WithPublisher injects a ready client, skipping AWS config loading.
func WithPublisher(p Publisher) SNSOption {
	return func(o *snsOptions) { o.client = p }
}

// WithAWSConfigOption appends a raw AWS config loader option.
func WithAWSConfigOption(opt func(*config.LoadOptions) error) SNSOption {
	return func(o *snsOptions) { o.awsOptions = append(o.awsOptions, opt) }
}

func NewSNSSender(ctx context.Context, cfg Config, opts ...SNSOption) (*SNSSender, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: Region is required", ErrInvalidConfig)
	}

	o := &snsOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.client != nil {
		return &SNSSender{client: o.client, cfg: cfg}, nil
	}

	awsOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsOpts = append(awsOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsOpts = append(awsOpts, o.awsOptions...)

	awsCfg, err := config.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadAWS, err)
	}

	client := sns.NewFromConfig(awsCfg, func(so *sns.Options) {
		if cfg.Endpoint != "" {
			so.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &SNSSender{client: client, cfg: cfg}, nil
}

func (s *SNSSender) SendSMS(ctx context.Context, params SendSMSParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(NormalizePhone(params.To)),
		Message:           aws.String(params.Message),
		MessageAttributes: s.attributes(),
	})
	return classifySNSError(err)
}

func (s *SNSSender) attributes() map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{}
	put := func(name, value string) {
		if value == "" {
			return
		}
		attrs[name] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(value)}
	}
	put("AWS.SNS.SMS.SMSType", s.cfg.SMSType)
	put("AWS.SNS.SMS.SenderID", s.cfg.SenderID)
	if s.cfg.MaxPrice != "" {
		attrs["AWS.SNS.SMS.MaxPrice"] = types.MessageAttributeValue{
			DataType: aws.String("Number"), StringValue: aws.String(s.cfg.MaxPrice),
		}
	}
	return attrs
}

func classifySNSError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrFailedToSendSMS, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "OptedOut", "OptedOutException":
			return errors.Join(ErrFailedToSendSMS, ErrOptedOut, err)
		case "Throttling", "ThrottledException", "KMSThrottlingException":
			return errors.Join(ErrFailedToSendSMS, ErrProviderThrottled, err)
		case "InvalidParameter", "InvalidParameterValue":
			return errors.Join(ErrFailedToSendSMS, ErrInvalidParams, err)
		}
	}
	return errors.Join(ErrFailedToSendSMS, err)
}
