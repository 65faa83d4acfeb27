// Package totp holds the cryptographic primitives behind multi-factor verification:
// RFC 6238 time-based codes, numeric one-time codes for SMS and email, backup
// codes, and at-rest protection of factor secrets.
//
// # Keys
//
// A single Base64 master key is read from TOTP_ENCRYPTION_KEY. DeriveKeys expands
// it with HKDF-SHA256 into two purpose-bound keys: an AES-256-GCM key for factor
// secrets (EncryptSecret/DecryptSecret) and an HMAC pepper for backup code digests
// (HashRecoveryCode/VerifyRecoveryCode).
//
// # Time-based codes
//
// GenerateSecretKey returns a 160-bit Base32 secret and GetTOTPURI builds the
// otpauth:// provisioning URI. MatchTOTP checks a code against the current step
// and DefaultSkew steps either side and returns the step that matched, which lets
// callers refuse a second use of the same code:
//
//	step, ok, err := totp.MatchTOTP(secret, code, time.Now(), totp.DefaultSkew)
//	if err == nil && ok && step > lastUsedStep {
//	    // accept and persist step
//	}
//
// # Numeric and backup codes
//
// GenerateNumericCode draws uniform decimal codes from crypto/rand.
// GenerateRecoveryCodes returns unique 8-digit codes; FormatRecoveryCode renders
// them as 1234-5678 and NormalizeCode folds user input (full-width digits,
// spaces, dashes) back to the canonical form before hashing.
//
// # Error Handling
//
// Errors are package-level sentinels, wrapped with errors.Join where a cause is
// available. Match with errors.Is.
package totp
