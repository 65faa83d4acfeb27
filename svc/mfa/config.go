package mfa

import (
	"time"

	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// Config holds the verification policy. Zero fields fall back to DefaultConfig.
type Config struct {
	Issuer             string        `env:"MFA_ISSUER" envDefault:"mfakit"`
	MaxFailedAttempts  int           `env:"MFA_MAX_FAILED_ATTEMPTS" envDefault:"5"`
	LockDuration       time.Duration `env:"MFA_LOCK_DURATION" envDefault:"30m"`
	TOTPSkew           int           `env:"MFA_TOTP_SKEW" envDefault:"1"`
	ChannelCodeTTL     time.Duration `env:"MFA_CHANNEL_CODE_TTL" envDefault:"5m"`
	ChannelCodeDigits  int           `env:"MFA_CHANNEL_CODE_DIGITS" envDefault:"6"`
	BackupCodeCount    int           `env:"MFA_BACKUP_CODE_COUNT" envDefault:"10"`
	BackupCodeMax      int           `env:"MFA_BACKUP_CODE_MAX" envDefault:"20"`
	BackupCodeLowWater int           `env:"MFA_BACKUP_CODE_LOW_WATER" envDefault:"3"`
	QRCodeSize         int           `env:"MFA_QR_SIZE" envDefault:"256"`
}

func DefaultConfig() Config {
	return Config{
		Issuer:             "mfakit",
		MaxFailedAttempts:  5,
		LockDuration:       30 * time.Minute,
		TOTPSkew:           1,
		ChannelCodeTTL:     5 * time.Minute,
		ChannelCodeDigits:  6,
		BackupCodeCount:    10,
		BackupCodeMax:      20,
		BackupCodeLowWater: 3,
		QRCodeSize:         256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Issuer == "" {
		c.Issuer = d.Issuer
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockDuration <= 0 {
		c.LockDuration = d.LockDuration
	}
	if c.TOTPSkew < 0 {
		c.TOTPSkew = d.TOTPSkew
	}
	if c.ChannelCodeTTL <= 0 {
		c.ChannelCodeTTL = d.ChannelCodeTTL
	}
	if c.ChannelCodeDigits <= 0 {
		c.ChannelCodeDigits = d.ChannelCodeDigits
	}
	if c.BackupCodeCount <= 0 {
		c.BackupCodeCount = d.BackupCodeCount
	}
	if c.BackupCodeMax <= 0 {
		c.BackupCodeMax = d.BackupCodeMax
	}
	c.BackupCodeMax = min(max(c.BackupCodeMax, c.BackupCodeCount), totp.MaxRecoveryCodes)
	if c.BackupCodeLowWater < 0 {
		c.BackupCodeLowWater = d.BackupCodeLowWater
	}
	if c.QRCodeSize <= 0 {
		c.QRCodeSize = d.QRCodeSize
	}
	return c
}
