package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix starts every issued credential. It marks the value as a
// BlueTrace secret key for humans and for log redaction.
const KeyPrefix = "bt_sk_"

const (
	prefixRandomChars = 8
	secretBytes       = 32
	urlSafeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// GeneratedKey is a freshly issued credential. Plaintext is shown to the
// caller exactly once and must never be persisted or logged.
type GeneratedKey struct {
	Plaintext string
	Prefix    string
	Hash      string
}

// HashKey returns the hex HMAC-SHA256 digest of credential keyed by salt.
func HashKey(salt, credential string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(credential))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateKey issues a new credential of the form
// "bt_sk_<8 chars>.<43 chars>" and its digest under salt.
func GenerateKey(salt string) (*GeneratedKey, error) {
	raw := make([]byte, prefixRandomChars)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate key prefix: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(KeyPrefix)
	for _, b := range raw {
		// 64-character alphabet, so b%64 is unbiased.
		sb.WriteByte(urlSafeAlphabet[b%64])
	}
	prefix := sb.String()

	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate key secret: %w", err)
	}

	plaintext := prefix + "." + base64.RawURLEncoding.EncodeToString(secret)
	return &GeneratedKey{
		Plaintext: plaintext,
		Prefix:    prefix,
		Hash:      HashKey(salt, plaintext),
	}, nil
}

// PrefixOf returns the public part of a credential, safe to log.
// Values that do not look like an issued key yield "".
func PrefixOf(credential string) string {
	prefix, _, ok := strings.Cut(credential, ".")
	if !ok || !strings.HasPrefix(prefix, KeyPrefix) || len(prefix) > len(KeyPrefix)+prefixRandomChars {
		return ""
	}
	return prefix
}
