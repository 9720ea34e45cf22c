package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Stripe-Signature"

// ComputeSignature returns the hex HMAC-SHA256 of "{timestamp}.{payload}"
// keyed by secret.
func ComputeSignature(timestamp string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a header of the form "t=<ts>,v1=<hex>[,v1=<hex>...]"
// against payload. Any element key starting with "v" is a candidate; one
// matching candidate is enough. Malformed headers verify as false.
//
// The signed payload is text; a body that is not valid UTF-8 never
// verifies. The timestamp is not checked for freshness.
func VerifySignature(payload []byte, header, secret string) bool {
	if header == "" || secret == "" || !utf8.Valid(payload) {
		return false
	}

	var timestamp string
	var candidates []string
	for _, element := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(element, "=")
		if !ok {
			return false
		}
		switch {
		case key == "t":
			timestamp = value
		case strings.HasPrefix(key, "v"):
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return false
	}

	expected := []byte(ComputeSignature(timestamp, payload, secret))
	matched := false
	for _, c := range candidates {
		// Compare every candidate so timing does not reveal which matched.
		if hmac.Equal(expected, []byte(c)) {
			matched = true
		}
	}
	return matched
}
