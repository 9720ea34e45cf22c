package billing

import "testing"

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"customer.subscription.created"}`)
	secret := "whsec_test"
	valid := ComputeSignature("1700000000", payload, secret)

	tests := []struct {
		name     string
		header   string
		secret   string
		expected bool
	}{
		{"valid", "t=1700000000,v1=" + valid, secret, true},
		{"valid among several candidates", "t=1700000000,v1=deadbeef,v0=" + valid, secret, true},
		{"wrong secret", "t=1700000000,v1=" + valid, "whsec_other", false},
		{"wrong timestamp", "t=1700000001,v1=" + valid, secret, false},
		{"no timestamp", "v1=" + valid, secret, false},
		{"no candidates", "t=1700000000", secret, false},
		{"element without equals", "t=1700000000,v1=" + valid + ",garbage", secret, false},
		{"empty header", "", secret, false},
		{"empty secret", "t=1700000000,v1=" + valid, "", false},
		{"value containing equals", "t=1700000000,v1=" + valid + "=", secret, false},
		{"non-signature keys ignored", "t=1700000000,x=1,v1=" + valid, secret, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(payload, tt.header, tt.secret); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	sig := ComputeSignature("1", []byte(`{"a":1}`), "s")
	if VerifySignature([]byte(`{"a":2}`), "t=1,v1="+sig, "s") {
		t.Error("expected tampered payload to fail verification")
	}
}

func TestParseEventKind(t *testing.T) {
	tests := []struct {
		eventType string
		expected  EventKind
	}{
		{"customer.subscription.created", SubscriptionCreated},
		{"customer.subscription.updated", SubscriptionUpdated},
		{"customer.subscription.deleted", SubscriptionDeleted},
		{"invoice.paid", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			if got := ParseEventKind(tt.eventType); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestVerifySignature_BitFlip(t *testing.T) {
	payload := []byte(`{"type":"customer.subscription.deleted"}`)
	valid := ComputeSignature("1700000000", payload, "whsec_test")

	for i := range valid {
		flipped := []byte(valid)
		if flipped[i] == '0' {
			flipped[i] = '1'
		} else {
			flipped[i] = '0'
		}
		if VerifySignature(payload, "t=1700000000,v1="+string(flipped), "whsec_test") {
			t.Fatalf("expected signature with hex digit %d changed to fail", i)
		}
	}

	if !VerifySignature(payload, "t=1700000000,v1="+valid, "whsec_test") {
		t.Error("expected unmodified signature to verify")
	}
}

func TestVerifySignature_InvalidUTF8(t *testing.T) {
	payload := []byte{'{', 0xff, 0xfe, '}'}
	sig := ComputeSignature("1", payload, "s")
	if VerifySignature(payload, "t=1,v1="+sig, "s") {
		t.Error("expected non-UTF-8 payload to fail verification")
	}
}
