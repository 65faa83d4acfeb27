package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	AESKeySize = 32 // Required key size for AES-256 (256 bits / 8 = 32 bytes)

	encryptionKeyInfo = "mfakit-totp-secret-v1"
	pepperKeyInfo     = "mfakit-backup-code-v1"
)

// Keys holds the purpose-bound keys derived from the master key.
type Keys struct {
	Encryption []byte // AES-256 key for factor secrets at rest
	Pepper     []byte // HMAC key for backup code digests
}

// DeriveKeys expands the master key with HKDF-SHA256 into independent sub-keys,
// so rotating the master rotates both and a leak of one does not expose the other.
func DeriveKeys(master []byte) (Keys, error) {
	if len(master) != AESKeySize {
		return Keys{}, errors.Join(ErrFailedToDeriveKeys, ErrInvalidEncryptionKeyLength)
	}

	enc, err := expand(master, encryptionKeyInfo)
	if err != nil {
		return Keys{}, err
	}
	pepper, err := expand(master, pepperKeyInfo)
	if err != nil {
		return Keys{}, err
	}

	return Keys{Encryption: enc, Pepper: pepper}, nil
}

func expand(master []byte, info string) ([]byte, error) {
	out := make([]byte, AESKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), out); err != nil {
		return nil, errors.Join(ErrFailedToDeriveKeys, err)
	}
	return out, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, ErrInvalidEncryptionKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptSecret encrypts the TOTP secret using AES-256-GCM.
// Returns base64(nonce || ciphertext). Each call uses a fresh nonce, so the same
// secret never encrypts to the same string twice.
func EncryptSecret(plainText string, key []byte) (string, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	cipherText := aesGCM.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// DecryptSecret decrypts a value produced by EncryptSecret.
func DecryptSecret(cipherTextBase64 string, key []byte) (string, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	cipherText, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(cipherText) < nonceSize {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrInvalidCipherTooShort)
	}
	nonce, cipherText := cipherText[:nonceSize], cipherText[nonceSize:]

	plainText, err := aesGCM.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	return string(plainText), nil
}

// GenerateEncryptionKey creates a new random 32-byte master key.
func GenerateEncryptionKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return key, nil
}

// GenerateEncodedEncryptionKey returns a new master key as base64, ready for TOTP_ENCRYPTION_KEY.
func GenerateEncodedEncryptionKey() (string, error) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// GetEncryptionKey decodes the master key from the configuration.
func GetEncryptionKey(cfg Config) ([]byte, error) {
	if cfg.EncryptionKey == "" {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrEncryptionKeyNotSet)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}

	if len(key) != AESKeySize {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrInvalidEncryptionKeyLength)
	}

	return key, nil
}

// LoadKeys reads the master key from cfg and derives the working keys.
func LoadKeys(cfg Config) (Keys, error) {
	master, err := GetEncryptionKey(cfg)
	if err != nil {
		return Keys{}, err
	}
	return DeriveKeys(master)
}
