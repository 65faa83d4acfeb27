package sms

// Config holds SMS delivery settings. With an empty Region the service falls
// back to LogSender.
type Config struct {
	Region          string `env:"SMS_AWS_REGION"`
	AccessKeyID     string `env:"SMS_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SMS_AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"SMS_SNS_ENDPOINT"`                    // Optional: SNS-compatible endpoint, e.g. localstack
	SenderID        string `env:"SMS_SENDER_ID"`                       // Alphanumeric sender ID where the carrier supports it
	MaxPrice        string `env:"SMS_MAX_PRICE_USD" envDefault:"0.50"` // Per-message spend cap
	SMSType         string `env:"SMS_TYPE" envDefault:"Transactional"` // Transactional or Promotional
}

// Enabled reports whether SNS delivery is configured.
func (c Config) Enabled() bool {
	return c.Region != ""
}
