package logging

import (
	"regexp"
	"strings"
)

// Redactor masks credentials and secrets in log values.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternAPIKey        = "api_key"
	PatternWebhookSecret = "webhook_secret"
	PatternStripeKey     = "stripe_key"
	PatternBearerToken   = "bearer_token"
	PatternPassword      = "password"
)

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	r := &Redactor{}

	defs := []struct {
		name        string
		regex       string
		replacement string
	}{
		// Issued keys keep their public prefix so log lines stay correlatable.
		{PatternAPIKey, `(bt_sk_[A-Za-z0-9_-]{1,8})\.[A-Za-z0-9_-]+`, "$1.***"},
		{PatternWebhookSecret, `whsec_[A-Za-z0-9]+`, "whsec_***"},
		{PatternStripeKey, `(sk|rk)_(live|test)_[A-Za-z0-9]+`, "${1}_${2}_***"},
		{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
		{PatternPassword, `(password|passwd|pwd)[:=]\s*[^\s&]+`, "$1=***"},
	}

	for _, d := range defs {
		r.patterns = append(r.patterns, &redactPattern{
			name:        d.name,
			regex:       regexp.MustCompile(d.regex),
			replacement: d.replacement,
		})
	}

	return r
}

// RedactString masks every secret found in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// RedactValue masks a value logged under key. Values under sensitive keys
// are replaced entirely; other values are pattern-scanned.
func (r *Redactor) RedactValue(key, value string) string {
	if isSensitiveKey(key) {
		return "***"
	}
	return r.RedactString(value)
}

// isSensitiveKey checks if a key name indicates secret data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	// key_prefix and key_hash are safe by construction.
	if lowerKey == "key_prefix" || lowerKey == "key_hash" {
		return false
	}

	for _, sensitive := range []string{
		"password", "passwd", "secret", "salt",
		"token", "api_key", "apikey", "authorization",
		"plaintext",
	} {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}
