package totp

// Config carries the base64 master key. Load it with config.Load and turn it
// into working keys with LoadKeys.
type Config struct {
	EncryptionKey string `env:"TOTP_ENCRYPTION_KEY,required"`
}
